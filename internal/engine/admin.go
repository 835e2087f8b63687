package engine

import (
	"context"
	"encoding/hex"

	"github.com/oracleschema/mcp-server/internal/cache"
)

// RebuildCacheResultJSON is the result of rebuild_schema_cache.
type RebuildCacheResultJSON struct {
	Built       bool   `json:"built"`
	DurationMS  int64  `json:"duration_ms"`
	Tables      int    `json:"tables"`
	Fingerprint string `json:"fingerprint"`
}

// RebuildSchemaCache implements rebuild_schema_cache(). It does not apply
// withDeadline's 30s default; a full sweep over 10^4 tables targets ten
// minutes (spec.md §4.2), well past the 30s default.
func (e *Engine) RebuildSchemaCache(ctx context.Context) (*RebuildCacheResultJSON, error) {
	stats, err := e.Cache.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	return &RebuildCacheResultJSON{
		Built: stats.Built, DurationMS: stats.DurationMS, Tables: stats.Tables,
		Fingerprint: fingerprintHex(stats.Fingerprint),
	}, nil
}

func fingerprintHex(fp cache.Fingerprint) string {
	return hex.EncodeToString(fp[:])
}
