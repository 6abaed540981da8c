package models

import (
	"time"

	"gorm.io/gorm"
)

// MaintenanceRequest is a tenant-submitted issue against an active lease.
type MaintenanceRequest struct {
	gorm.Model
	LeaseID    uint `json:"leaseID" gorm:"index;not null"`
	TenantID   uint `json:"tenantID" gorm:"index;not null"`
	PropertyID uint `json:"propertyID" gorm:"index;not null"`

	Category    string `json:"category" gorm:"type:varchar(32)"` // plumbing, electrical, appliance, structural, other
	Title       string `json:"title" gorm:"size:200"`
	Description string `json:"description" gorm:"type:text"`
	Priority    string `json:"priority" gorm:"type:varchar(16);default:medium;index"` // low, medium, high, emergency
	Status      string `json:"status" gorm:"type:varchar(16);default:submitted;index"` // submitted, acknowledged, in_progress, completed, cancelled

	CostEstimate *float64 `json:"costEstimate"`
	ActualCost   *float64 `json:"actualCost"`

	ContractorName  string `json:"contractorName" gorm:"size:120"`
	ContractorPhone string `json:"contractorPhone" gorm:"size:32"`

	AcknowledgedAt *time.Time `json:"acknowledgedAt"`
	CompletedAt    *time.Time `json:"completedAt"`

	Lease  LeaseAgreement `json:"-" gorm:"foreignKey:LeaseID;references:ID"`
	Tenant User           `json:"tenant" gorm:"foreignKey:TenantID;references:ID"`
}
