package models

import (
	"time"

	"gorm.io/gorm"
)

// RentPayment is one scheduled rent cycle of a lease, generated up front when the
// lease is created. Cancelled rather than deleted when the lease terminates early.
type RentPayment struct {
	gorm.Model
	LeaseID uint `json:"leaseID" gorm:"index;not null"`

	Amount     float64   `json:"amount" gorm:"not null"`
	AmountPaid float64   `json:"amountPaid" gorm:"default:0"`
	DueDate    time.Time `json:"dueDate" gorm:"index;not null"`
	PaidDate   *time.Time `json:"paidDate"`

	Status        string  `json:"status" gorm:"type:varchar(16);default:pending;index"` // pending, paid, partial, overdue, cancelled
	PaymentMethod string  `json:"paymentMethod" gorm:"type:varchar(32)"`                // bankily, masrvi, cash, bank_transfer
	TransactionID string  `json:"transactionID" gorm:"size:64;index"`
	LateFee       float64 `json:"lateFee" gorm:"default:0"`

	EscalatedAt *time.Time `json:"escalatedAt"`

	// Optimistic concurrency token, bumped on every mutation
	Version uint `json:"version" gorm:"default:1"`

	Lease LeaseAgreement `json:"-" gorm:"foreignKey:LeaseID;references:ID"`
}

// Balance is the amount still owed on this cycle, late fee included.
func (p *RentPayment) Balance() float64 {
	balance := p.Amount + p.LateFee - p.AmountPaid
	if balance < 0 {
		return 0
	}
	return balance
}
