package connector

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/oracleschema/mcp-server/internal/apperr"
)

// pool bounds concurrent in-flight session use to POOL_SIZE, independent of
// database/sql's own idle-socket pool, so that POOL_ACQUIRE_TIMEOUT_MS is
// observable even when the underlying *sql.DB would otherwise happily open
// another physical connection.
type pool struct {
	db   *sql.DB
	sem  *semaphore.Weighted
	size int64

	acquireTimeout time.Duration
	idleGrace      time.Duration

	mu          sync.Mutex
	lastProbeAt time.Time
}

func newPool(db *sql.DB, size int, acquireTimeout time.Duration) *pool {
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &pool{
		db:             db,
		sem:            semaphore.NewWeighted(int64(size)),
		size:           int64(size),
		acquireTimeout: acquireTimeout,
		idleGrace:      30 * time.Second,
	}
}

// session represents one acquired slot. Release must be called exactly once.
type session struct {
	p *pool
}

// acquire waits up to p.acquireTimeout for a free slot, then validates the
// underlying session with a trivial probe at most once per idle interval.
func (p *pool) acquire(ctx context.Context) (*session, error) {
	actx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	if err := p.sem.Acquire(actx, 1); err != nil {
		return nil, apperr.Wrap(apperr.ConnectionError, "pool acquire timed out", err)
	}

	if p.shouldProbe() {
		pctx, pcancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.db.PingContext(pctx)
		pcancel()
		if err != nil {
			p.sem.Release(1)
			return nil, apperr.Wrap(apperr.ConnectionError, "session probe failed", err)
		}
	}

	return &session{p: p}, nil
}

func (p *pool) shouldProbe() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if now.Sub(p.lastProbeAt) < p.idleGrace {
		return false
	}
	p.lastProbeAt = now
	return true
}

func (s *session) release() {
	s.p.sem.Release(1)
}
