package models

import (
	"time"

	"gorm.io/gorm"
)

// LeaseRenewalOffer is a proposed extension of an expiring lease, generated by the
// renewal sweep roughly 30 days before the lease end date.
type LeaseRenewalOffer struct {
	gorm.Model
	LeaseID uint `json:"leaseID" gorm:"index;not null"`

	ProposedStartDate time.Time `json:"proposedStartDate"`
	ProposedEndDate   time.Time `json:"proposedEndDate"`
	ProposedRent      float64   `json:"proposedRent"`

	Status         string     `json:"status" gorm:"type:varchar(16);default:offered;index"` // offered, accepted, declined, expired
	OfferExpiresAt time.Time  `json:"offerExpiresAt"`
	RespondedAt    *time.Time `json:"respondedAt"`

	// Reference of the offer shared with both parties
	Reference string `json:"reference" gorm:"size:40;uniqueIndex"`

	// Set when the tenant accepts and a successor draft lease is created
	RenewalLeaseID *uint `json:"renewalLeaseID"`

	Lease LeaseAgreement `json:"-" gorm:"foreignKey:LeaseID;references:ID"`
}
