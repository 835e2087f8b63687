package connector

import (
	"errors"
	"testing"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("ORA-03113: end-of-file on communication channel"), true},
		{errors.New("ORA-12537: TNS:connection closed"), true},
		{errors.New("ORA-00942: table or view does not exist"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := isTransient(c.err); got != c.want {
			t.Errorf("isTransient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestVendorCode(t *testing.T) {
	got := vendorCode(errors.New("ORA-00942: table or view does not exist"))
	if got != "ORA-00942" {
		t.Errorf("vendorCode() = %q, want ORA-00942", got)
	}
	if vendorCode(errors.New("connection reset")) != "" {
		t.Errorf("vendorCode() should be empty for a non-ORA error")
	}
}
