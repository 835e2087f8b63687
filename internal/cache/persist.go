package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/oracleschema/mcp-server/internal/apperr"
)

// Persisted cache file layout (spec.md §6): fixed little-endian encoding.
//
//	magic       [4]byte  "SCIX"
//	version     uint16
//	fingerprint [32]byte
//	sectionCount uint16
//	sections    (sectionID uint16, length uint64, bytes)*
//
// Unknown section IDs are skipped, so a newer writer's file stays loadable
// by an older reader so long as the sections it understands are present.
const (
	cacheMagic       = "SCIX"
	cacheFileVersion = uint16(1)

	sectionMeta        = uint16(1)
	sectionTables      = uint16(2)
	sectionColumns     = uint16(3)
	sectionConstraints = uint16(4)
	sectionIndexes     = uint16(5)
	sectionDeps        = uint16(6)
	sectionPLSQL       = uint16(7)
	sectionUDTs        = uint16(8)
	sectionNameIndex   = uint16(9)
	sectionColumnIndex = uint16(10)
)

const cacheFileName = "schema_cache.bin"

// persistedMeta is gob-encoded into the Meta section. Tables and the rest
// are gob-encoded too: the section framing in the header is what gives the
// format forward-compatibility, not the payload encoding itself, so gob's
// usual fragility under field removal doesn't bite here (we only ever add
// fields, and unknown sections are already skipped wholesale).
type persistedMeta struct {
	Fingerprint Fingerprint
	WrittenAt   time.Time
	Schema      string
}

func (c *Cache) cacheFilePath() string {
	return filepath.Join(c.cfg.CacheDir, cacheFileName)
}

func (c *Cache) lockFilePath() string {
	return filepath.Join(c.cfg.CacheDir, cacheFileName+".lock")
}

// persistLocked writes the current snapshot synchronously. Callers that
// already hold c.mu must not call this directly from under the lock; it
// takes its own RLock internally. Used after Rebuild, where the caller has
// already released the write lock.
func (c *Cache) persistLocked() error {
	return c.persist()
}

// persistAsync is the persist used after a targeted merge. It runs
// synchronously; the caller starts it in its own goroutine so the request
// does not block on the disk write.
func (c *Cache) persistAsync() error {
	return c.persist()
}

func (c *Cache) persist() error {
	if c.cfg.CacheDir == "" {
		return nil // no persistence configured; in-memory only (tests, --no-cache)
	}
	if err := os.MkdirAll(c.cfg.CacheDir, 0o755); err != nil {
		return apperr.Wrap(apperr.CacheIOError, "create cache dir", err)
	}

	lockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fl := flock.New(c.lockFilePath())
	locked, err := fl.TryLockContext(lockCtx, 200*time.Millisecond)
	if err != nil || !locked {
		zap.L().Warn("cache persist skipped: could not acquire advisory lock", zap.Error(err))
		return nil
	}
	defer fl.Unlock()

	c.mu.RLock()
	buf, err := c.encodeLocked()
	c.mu.RUnlock()
	if err != nil {
		return apperr.Wrap(apperr.CacheIOError, "encode cache snapshot", err)
	}

	tmp, err := os.CreateTemp(c.cfg.CacheDir, cacheFileName+".tmp-*")
	if err != nil {
		return apperr.Wrap(apperr.CacheIOError, "create temp cache file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.Wrap(apperr.CacheIOError, "write temp cache file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.Wrap(apperr.CacheIOError, "sync temp cache file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperr.Wrap(apperr.CacheIOError, "close temp cache file", err)
	}
	if err := os.Rename(tmpName, c.cacheFilePath()); err != nil {
		os.Remove(tmpName)
		return apperr.Wrap(apperr.CacheIOError, "rename temp cache file into place", err)
	}

	zap.L().Debug("cache persisted", zap.String("path", c.cacheFilePath()), zap.Int("bytes", len(buf)))
	return nil
}

func (c *Cache) encodeLocked() ([]byte, error) {
	var body bytes.Buffer

	sections := []struct {
		id      uint16
		payload any
	}{
		{sectionMeta, persistedMeta{Fingerprint: c.fingerprint, WrittenAt: time.Now(), Schema: c.cfg.TargetSchema}},
		{sectionTables, c.ix.byQualified},
		{sectionNameIndex, c.ix.byName},
		{sectionColumnIndex, c.ix.byColumn},
		{sectionDeps, struct{ Out, In map[string][]ObjectRef }{c.ix.depsOut, c.ix.depsIn}},
		{sectionPLSQL, c.plsql},
		{sectionUDTs, c.udts},
	}

	var header bytes.Buffer
	header.WriteString(cacheMagic)
	binary.Write(&header, binary.LittleEndian, cacheFileVersion)
	header.Write(c.fingerprint[:])
	binary.Write(&header, binary.LittleEndian, uint16(len(sections)))

	for _, s := range sections {
		var payload bytes.Buffer
		if err := gob.NewEncoder(&payload).Encode(s.payload); err != nil {
			return nil, fmt.Errorf("encode section %d: %w", s.id, err)
		}
		binary.Write(&header, binary.LittleEndian, s.id)
		binary.Write(&header, binary.LittleEndian, uint64(payload.Len()))
		header.Write(payload.Bytes())
	}

	return header.Bytes(), nil
}

// loadFromDisk reads a previously persisted snapshot. A corrupt or
// unreadable file is never fatal: callers fall back to a full rebuild and
// log the reason (spec.md §7's CacheCorrupt taxonomy entry).
func (c *Cache) loadFromDisk() (bool, error) {
	if c.cfg.CacheDir == "" {
		return false, nil
	}
	data, err := os.ReadFile(c.cacheFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.CacheCorrupt, "read cache file", err)
	}

	r := bytes.NewReader(data)
	magic := make([]byte, 4)
	if _, err := r.Read(magic); err != nil || string(magic) != cacheMagic {
		return false, apperr.New(apperr.CacheCorrupt, "bad cache file magic")
	}
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return false, apperr.Wrap(apperr.CacheCorrupt, "read cache version", err)
	}
	var fp Fingerprint
	if _, err := r.Read(fp[:]); err != nil {
		return false, apperr.Wrap(apperr.CacheCorrupt, "read cache fingerprint", err)
	}
	var sectionCount uint16
	if err := binary.Read(r, binary.LittleEndian, &sectionCount); err != nil {
		return false, apperr.Wrap(apperr.CacheCorrupt, "read section count", err)
	}

	newIx := newIndexes()
	newPlsql := make(map[string]*PLSQLObject)
	newUdts := make(map[string]*UserDefinedType)

	for i := uint16(0); i < sectionCount; i++ {
		var id uint16
		var length uint64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return false, apperr.Wrap(apperr.CacheCorrupt, "read section id", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return false, apperr.Wrap(apperr.CacheCorrupt, "read section length", err)
		}
		payload := make([]byte, length)
		if _, err := r.Read(payload); err != nil {
			return false, apperr.Wrap(apperr.CacheCorrupt, "read section payload", err)
		}

		dec := gob.NewDecoder(bytes.NewReader(payload))
		switch id {
		case sectionMeta:
			var m persistedMeta
			if err := dec.Decode(&m); err != nil {
				return false, apperr.Wrap(apperr.CacheCorrupt, "decode meta section", err)
			}
			fp = m.Fingerprint
		case sectionTables:
			if err := dec.Decode(&newIx.byQualified); err != nil {
				return false, apperr.Wrap(apperr.CacheCorrupt, "decode tables section", err)
			}
		case sectionNameIndex:
			if err := dec.Decode(&newIx.byName); err != nil {
				return false, apperr.Wrap(apperr.CacheCorrupt, "decode name index section", err)
			}
		case sectionColumnIndex:
			if err := dec.Decode(&newIx.byColumn); err != nil {
				return false, apperr.Wrap(apperr.CacheCorrupt, "decode column index section", err)
			}
		case sectionDeps:
			var deps struct{ Out, In map[string][]ObjectRef }
			if err := dec.Decode(&deps); err != nil {
				return false, apperr.Wrap(apperr.CacheCorrupt, "decode deps section", err)
			}
			newIx.depsOut, newIx.depsIn = deps.Out, deps.In
		case sectionPLSQL:
			if err := dec.Decode(&newPlsql); err != nil {
				return false, apperr.Wrap(apperr.CacheCorrupt, "decode plsql section", err)
			}
		case sectionUDTs:
			if err := dec.Decode(&newUdts); err != nil {
				return false, apperr.Wrap(apperr.CacheCorrupt, "decode udts section", err)
			}
		default:
			// Forward-compatible: a section this reader doesn't know about
			// yet is simply skipped.
		}
	}

	rebuildSortedNames(newIx)

	c.mu.Lock()
	c.ix = newIx
	c.plsql = newPlsql
	c.udts = newUdts
	c.fingerprint = fp
	c.mu.Unlock()

	return true, nil
}

func rebuildSortedNames(ix *indexes) {
	for name := range ix.byName {
		ix.insertSortedName(name)
	}
}
