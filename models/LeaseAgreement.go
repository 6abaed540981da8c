package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LeaseAgreement is the tenancy contract between a tenant and an agent for a property.
// Status flow: draft -> pending_signature -> active -> terminated/expired.
// A lease only becomes active once both the tenant and the agent have signed.
type LeaseAgreement struct {
	gorm.Model
	PropertyID uint `json:"propertyID" gorm:"index;not null"`
	TenantID   uint `json:"tenantID" gorm:"index;not null"`
	AgentID    uint `json:"agentID" gorm:"index;not null"`

	LeaseType   string    `json:"leaseType" gorm:"type:varchar(20);default:fixed"` // fixed, periodic, month_to_month
	StartDate   time.Time `json:"startDate" gorm:"not null"`
	EndDate     time.Time `json:"endDate" gorm:"not null"`
	MonthlyRent float64   `json:"monthlyRent" gorm:"not null"`
	Deposit     float64   `json:"deposit"`
	Currency    string    `json:"currency" gorm:"type:varchar(10);default:MRO"`

	Status       string     `json:"status" gorm:"type:varchar(24);default:draft;index"` // draft, pending_signature, active, terminated, expired
	ActivatedAt  *time.Time `json:"activatedAt"`
	TerminatedAt *time.Time `json:"terminatedAt"`

	Terms     datatypes.JSON `json:"terms" gorm:"type:jsonb"`     // LeaseTerms
	Documents datatypes.JSON `json:"documents" gorm:"type:jsonb"` // array of document URLs

	// Optimistic concurrency token, bumped on every mutation
	Version uint `json:"version" gorm:"default:1"`

	Signatures []LeaseSignature `json:"signatures" gorm:"foreignKey:LeaseID;references:ID"`
	Payments   []RentPayment    `json:"payments" gorm:"foreignKey:LeaseID;references:ID"`

	Property Property `json:"property" gorm:"foreignKey:PropertyID;references:ID"`
	Tenant   User     `json:"tenant" gorm:"foreignKey:TenantID;references:ID"`
	Agent    User     `json:"agent" gorm:"foreignKey:AgentID;references:ID"`
}

// LeaseTerms is the embedded terms document stored in LeaseAgreement.Terms.
type LeaseTerms struct {
	DueDay            int     `json:"dueDay"`    // day of month rent is due (clamped for short months)
	GraceDays         int     `json:"graceDays"` // days past due before a payment goes overdue
	LateFeeAmount     float64 `json:"lateFeeAmount"`
	UtilitiesIncluded bool    `json:"utilitiesIncluded"`
	MaintenanceBy     string  `json:"maintenanceBy"` // tenant, agent
}

// ParsedTerms decodes the Terms JSON column, falling back to defaults on empty/bad data.
func (l *LeaseAgreement) ParsedTerms() LeaseTerms {
	terms := LeaseTerms{DueDay: 1, GraceDays: 3, MaintenanceBy: "agent"}
	if l.Terms != nil {
		json.Unmarshal(l.Terms, &terms)
	}
	if terms.DueDay < 1 {
		terms.DueDay = 1
	}
	return terms
}

// SignedBy reports whether the given party ("tenant" or "agent") has a signature on file.
func (l *LeaseAgreement) SignedBy(party string) bool {
	for _, s := range l.Signatures {
		if s.Party == party {
			return true
		}
	}
	return false
}

// LeaseSignature is one party's signature on a lease.
type LeaseSignature struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	LeaseID   uint      `json:"leaseID" gorm:"index;not null"`
	Party     string    `json:"party" gorm:"type:varchar(10);not null"` // tenant, agent
	UserID    uint      `json:"userID" gorm:"index"`
	Signature string    `json:"signature" gorm:"type:text"` // base64 signature image
	IPAddress string    `json:"ipAddress" gorm:"size:64"`
	SignedAt  time.Time `json:"signedAt"`
}
