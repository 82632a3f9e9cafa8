package model

import "time"

type AuditAction string

const (
	AuditActionUpdateOrderStatus   AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionUpdatePaymentStatus AuditAction = "UPDATE_PAYMENT_STATUS"
	AuditActionUpdateProduct       AuditAction = "UPDATE_PRODUCT"
	AuditActionDeleteProduct       AuditAction = "DELETE_PRODUCT"
)

type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceOrder   AuditResourceType = "order"
)

// AuditLog records who changed what, on which resource, from and to.
type AuditLog struct {
	ID           string            `gorm:"type:uuid;primaryKey" json:"id"`
	ActorUserID  string            `gorm:"type:uuid;not null;index" json:"actorUserId"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resourceType"`
	ResourceID   string            `gorm:"type:uuid;not null;index" json:"resourceId"`
	BeforeJSON   string            `gorm:"type:text" json:"before"`
	AfterJSON    string            `gorm:"type:text" json:"after"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"createdAt"`
}
