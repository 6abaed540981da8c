package models

import "time"

// Notification represents system notifications for users
type Notification struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"userID" gorm:"not null;index"`
	User   User `json:"user" gorm:"foreignKey:UserID"`

	Type     string `json:"type" gorm:"size:32;index"` // lease_created, lease_activated, payment_received, payment_overdue, renewal_offer, maintenance, deposit_return
	Title    string `json:"title" gorm:"size:100"`
	Message  string `json:"message" gorm:"size:500"`
	Priority string `json:"priority" gorm:"size:16;default:normal"` // normal, high

	// Reference data
	RefType   string `json:"refType" gorm:"size:32"` // lease, payment, renewal_offer, maintenance
	RefID     uint   `json:"refID"`
	ActionURL string `json:"actionURL" gorm:"size:200"`

	IsRead    bool       `json:"isRead" gorm:"default:false"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt"`
}
