package reconstruct

import (
	"context"

	"github.com/local/manualrebuild/internal/store"
)

type redisAuditAdapter struct{ s *store.RedisAudit }

func NewAuditAdapter(s *store.RedisAudit) AuditLog { return &redisAuditAdapter{s: s} }

func (a *redisAuditAdapter) Record(ctx context.Context, requestID string, e AuditEntry) error {
	return a.s.Record(ctx, requestID, store.Entry(e))
}

func (a *redisAuditAdapter) Get(ctx context.Context, requestID string) (AuditEntry, bool, error) {
	e, ok, err := a.s.Get(ctx, requestID)
	if !ok || err != nil {
		return AuditEntry{}, ok, err
	}
	return AuditEntry(e), true, nil
}
