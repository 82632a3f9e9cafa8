package usecase

import (
	"context"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// AuditUsecase exposes the audit trail to admins.
type AuditUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditUsecase(logs repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{logs: logs}
}

type ListAuditLogsInput struct {
	ActorUserID  string
	ResourceType string
	ResourceID   string
	Limit        int
	Offset       int
}

func (u *AuditUsecase) List(ctx context.Context, actor Actor, in ListAuditLogsInput) ([]model.AuditLog, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, forbidden("admin only")
	}

	f := repo.AuditLogFilter{Limit: in.Limit, Offset: in.Offset}
	if v := strings.TrimSpace(in.ActorUserID); v != "" {
		f.ActorUserID = &v
	}
	if v := strings.TrimSpace(in.ResourceType); v != "" {
		rt := model.AuditResourceType(v)
		if rt != model.AuditResourceProduct && rt != model.AuditResourceOrder {
			return nil, badRequest("invalid resourceType")
		}
		f.ResourceType = &rt
	}
	if v := strings.TrimSpace(in.ResourceID); v != "" {
		f.ResourceID = &v
	}

	logs, err := u.logs.List(ctx, f)
	if err != nil {
		return nil, internalError(ctx, "list audit logs", err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, nil
}
