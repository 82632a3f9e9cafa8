package memory

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type AuditLogRepository struct {
	b backend
}

func (r *AuditLogRepository) Create(ctx context.Context, log model.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	return r.b.write(func(st *state) error {
		st.auditLogs = append(st.auditLogs, log)
		return nil
	})
}

func (r *AuditLogRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var out []model.AuditLog
	r.b.read(func(st *state) {
		// appended in time order, newest last
		for i := len(st.auditLogs) - 1; i >= 0; i-- {
			l := st.auditLogs[i]
			if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
				continue
			}
			if f.Action != nil && l.Action != *f.Action {
				continue
			}
			if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
				continue
			}
			if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
				continue
			}
			if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
				continue
			}
			if f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo) {
				continue
			}
			out = append(out, l)
		}
	})

	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []model.AuditLog{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repo.AuditLogRepository = (*AuditLogRepository)(nil)
