package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type AuditLogFilter struct {
	ActorUserID  *string
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// newest first
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
