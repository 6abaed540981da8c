package services

import (
	"encoding/json"
	"fmt"
	"log"
	"nestie-server/models"
	"nestie-server/storage"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LeaseService drives the lease lifecycle: create, sign, activate, terminate,
// expire and renew.
type LeaseService struct{}

// NewLeaseService creates a new lease service instance
func NewLeaseService() *LeaseService {
	return &LeaseService{}
}

// CreateLeaseInput carries everything needed to draft a lease.
type CreateLeaseInput struct {
	PropertyID  uint
	TenantID    uint
	AgentID     uint
	LeaseType   string
	StartDate   time.Time
	EndDate     time.Time
	MonthlyRent float64
	Deposit     float64
	Currency    string
	Terms       models.LeaseTerms
	Documents   []string
}

// CreateLease persists a draft lease and its full payment schedule in one
// transaction, then notifies the tenant. A schedule failure rolls the draft
// back rather than leaving an orphan.
func (ls *LeaseService) CreateLease(input CreateLeaseInput) (*models.LeaseAgreement, error) {
	if !input.EndDate.After(input.StartDate) {
		return nil, fmt.Errorf("lease end date must be after start date")
	}

	leaseType := input.LeaseType
	if leaseType == "" {
		leaseType = "fixed"
	}
	currency := input.Currency
	if currency == "" {
		currency = "MRO"
	}

	termsJSON, err := json.Marshal(input.Terms)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lease terms: %v", err)
	}
	docs := input.Documents
	if docs == nil {
		docs = []string{}
	}
	docsJSON, _ := json.Marshal(docs)

	lease := models.LeaseAgreement{
		PropertyID:  input.PropertyID,
		TenantID:    input.TenantID,
		AgentID:     input.AgentID,
		LeaseType:   leaseType,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		MonthlyRent: input.MonthlyRent,
		Deposit:     input.Deposit,
		Currency:    currency,
		Status:      "draft",
		Terms:       datatypes.JSON(termsJSON),
		Documents:   datatypes.JSON(docsJSON),
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lease).Error; err != nil {
			return err
		}

		schedule := PaymentServiceInstance.GenerateSchedule(
			lease.ID, lease.StartDate, lease.EndDate, input.Terms.DueDay, lease.MonthlyRent)
		if len(schedule) > 0 {
			if err := tx.Create(&schedule).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("❌ Failed to create lease for property %d: %v", input.PropertyID, err)
		return nil, err
	}

	var property models.Property
	storage.DB.First(&property, lease.PropertyID)
	NotificationServiceInstance.SendLeaseCreatedNotificationToTenant(lease.ID, lease.TenantID, property.Title)

	return &lease, nil
}

// SignLease appends a party's signature. Once both the tenant and the agent
// have signed, the lease transitions to active; until then it sits in
// pending_signature and the other party is nudged.
func (ls *LeaseService) SignLease(leaseID uint, party string, userID uint, signature, ipAddress string) (*models.LeaseAgreement, error) {
	party = strings.ToLower(party)
	if party != "tenant" && party != "agent" {
		return nil, fmt.Errorf("unknown signing party %q", party)
	}

	var lease models.LeaseAgreement
	if err := storage.DB.Preload("Signatures").First(&lease, leaseID).Error; err != nil {
		return nil, fmt.Errorf("lease not found: %v", err)
	}

	if lease.Status != "draft" && lease.Status != "pending_signature" {
		return nil, fmt.Errorf("lease %d is %s and can no longer be signed", leaseID, lease.Status)
	}
	if lease.SignedBy(party) {
		return nil, fmt.Errorf("party %s has already signed lease %d", party, leaseID)
	}

	now := time.Now()
	otherParty := "agent"
	if party == "agent" {
		otherParty = "tenant"
	}
	bothSigned := lease.SignedBy(otherParty)

	newStatus := "pending_signature"
	var activatedAt *time.Time
	if bothSigned {
		newStatus = "active"
		activatedAt = &now
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		record := models.LeaseSignature{
			LeaseID:   lease.ID,
			Party:     party,
			UserID:    userID,
			Signature: signature,
			IPAddress: ipAddress,
			SignedAt:  now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		// Version guard: concurrent signature submissions race on the status flip
		updates := map[string]interface{}{
			"status":  newStatus,
			"version": lease.Version + 1,
		}
		if activatedAt != nil {
			updates["activated_at"] = activatedAt
		}
		result := tx.Model(&models.LeaseAgreement{}).
			Where("id = ? AND version = ?", lease.ID, lease.Version).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("lease %d was modified concurrently, retry", lease.ID)
		}

		lease.Signatures = append(lease.Signatures, record)
		lease.Status = newStatus
		lease.ActivatedAt = activatedAt
		lease.Version++
		return nil
	})
	if err != nil {
		log.Printf("❌ Failed to record %s signature on lease %d: %v", party, leaseID, err)
		return nil, err
	}

	var property models.Property
	storage.DB.First(&property, lease.PropertyID)

	if lease.Status == "active" {
		NotificationServiceInstance.SendLeaseActivatedNotification(lease.ID, lease.TenantID, property.Title)
		NotificationServiceInstance.SendLeaseActivatedNotification(lease.ID, lease.AgentID, property.Title)
	} else {
		waitingOn := lease.TenantID
		if party == "tenant" {
			waitingOn = lease.AgentID
		}
		NotificationServiceInstance.SendLeaseSignatureProgressNotification(lease.ID, waitingOn, party)
	}

	return &lease, nil
}

// UpdateLeaseStatus overwrites the lease status. Termination runs the full
// termination sequence; activation stamps ActivatedAt.
func (ls *LeaseService) UpdateLeaseStatus(leaseID uint, status string) (*models.LeaseAgreement, error) {
	switch status {
	case "draft", "pending_signature", "active", "terminated", "expired":
	default:
		return nil, fmt.Errorf("invalid lease status %q", status)
	}

	if status == "terminated" {
		return ls.TerminateLease(leaseID, time.Now())
	}

	var lease models.LeaseAgreement
	if err := storage.DB.First(&lease, leaseID).Error; err != nil {
		return nil, fmt.Errorf("lease not found: %v", err)
	}

	updates := map[string]interface{}{
		"status":  status,
		"version": gorm.Expr("version + 1"),
	}
	if status == "active" && lease.ActivatedAt == nil {
		now := time.Now()
		updates["activated_at"] = &now
	}
	if err := storage.DB.Model(&lease).Updates(updates).Error; err != nil {
		return nil, err
	}

	lease.Status = status
	return &lease, nil
}

// TerminateLease ends a lease: future pending cycles are cancelled (paid and
// overdue history stays), a deposit return is scheduled and both parties are
// notified. The whole sequence is one transaction.
func (ls *LeaseService) TerminateLease(leaseID uint, now time.Time) (*models.LeaseAgreement, error) {
	var lease models.LeaseAgreement
	if err := storage.DB.First(&lease, leaseID).Error; err != nil {
		return nil, fmt.Errorf("lease not found: %v", err)
	}

	if lease.Status == "terminated" || lease.Status == "expired" {
		return nil, fmt.Errorf("lease %d is already %s", leaseID, lease.Status)
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.LeaseAgreement{}).
			Where("id = ? AND version = ?", lease.ID, lease.Version).
			Updates(map[string]interface{}{
				"status":        "terminated",
				"terminated_at": &now,
				"version":       lease.Version + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("lease %d was modified concurrently, retry", lease.ID)
		}

		cancelled, err := PaymentServiceInstance.CancelFuturePayments(tx, lease.ID, now)
		if err != nil {
			return err
		}
		log.Printf("🔚 Lease %d terminated, %d future payments cancelled", lease.ID, cancelled)
		return nil
	})
	if err != nil {
		log.Printf("❌ Failed to terminate lease %d: %v", leaseID, err)
		return nil, err
	}

	lease.Status = "terminated"
	lease.TerminatedAt = &now
	lease.Version++

	var property models.Property
	storage.DB.First(&property, lease.PropertyID)

	// Deposit returned after the customary 30-day inspection window
	if lease.Deposit > 0 {
		NotificationServiceInstance.SendDepositReturnScheduledNotification(
			lease.ID, lease.TenantID, lease.Deposit, now.AddDate(0, 0, 30))
	}
	NotificationServiceInstance.SendLeaseTerminatedNotification(lease.ID, lease.TenantID, property.Title)
	NotificationServiceInstance.SendLeaseTerminatedNotification(lease.ID, lease.AgentID, property.Title)

	return &lease, nil
}

// ExpireLease flips an active lease past its end date to expired and cancels
// any cycle still pending. Used by the daily expiry sweep.
func (ls *LeaseService) ExpireLease(leaseID uint, now time.Time) error {
	return storage.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.LeaseAgreement{}).
			Where("id = ? AND status = ?", leaseID, "active").
			Updates(map[string]interface{}{
				"status":  "expired",
				"version": gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil // someone else got there first
		}

		return tx.Model(&models.RentPayment{}).
			Where("lease_id = ? AND status = ?", leaseID, "pending").
			Updates(map[string]interface{}{
				"status":  "cancelled",
				"version": gorm.Expr("version + 1"),
			}).Error
	})
}

// CreateRenewalOffer synthesizes a renewal proposal for a lease nearing its
// end: a 12-month extension at a 3% rent increase.
func (ls *LeaseService) CreateRenewalOffer(lease *models.LeaseAgreement, now time.Time) (*models.LeaseRenewalOffer, error) {
	proposedStart := lease.EndDate.AddDate(0, 0, 1)
	proposedEnd := proposedStart.AddDate(1, 0, 0).AddDate(0, 0, -1)

	// The offer stays open until the lease ends, at most 30 days
	expiresAt := now.AddDate(0, 0, 30)
	if lease.EndDate.Before(expiresAt) {
		expiresAt = lease.EndDate
	}

	offer := models.LeaseRenewalOffer{
		LeaseID:           lease.ID,
		ProposedStartDate: proposedStart,
		ProposedEndDate:   proposedEnd,
		ProposedRent:      lease.MonthlyRent * 1.03,
		Status:            "offered",
		OfferExpiresAt:    expiresAt,
		Reference:         "RNW-" + uuid.NewString()[:8],
	}
	if err := storage.DB.Create(&offer).Error; err != nil {
		return nil, err
	}

	var property models.Property
	storage.DB.First(&property, lease.PropertyID)
	NotificationServiceInstance.SendRenewalOfferNotification(offer.ID, lease.ID, lease.TenantID, property.Title, offer.ProposedRent)
	NotificationServiceInstance.SendRenewalOfferNotification(offer.ID, lease.ID, lease.AgentID, property.Title, offer.ProposedRent)

	return &offer, nil
}

// AcceptRenewalOffer creates the successor draft lease with the proposed
// dates and rent, carrying the terms of the expiring lease forward.
func (ls *LeaseService) AcceptRenewalOffer(offerID, tenantID uint) (*models.LeaseAgreement, error) {
	var offer models.LeaseRenewalOffer
	if err := storage.DB.Preload("Lease").First(&offer, offerID).Error; err != nil {
		return nil, fmt.Errorf("renewal offer not found: %v", err)
	}

	if offer.Lease.TenantID != tenantID {
		return nil, fmt.Errorf("renewal offer %d does not belong to this tenant", offerID)
	}
	if offer.Status != "offered" {
		return nil, fmt.Errorf("renewal offer %d is %s", offerID, offer.Status)
	}
	now := time.Now()
	if now.After(offer.OfferExpiresAt) {
		storage.DB.Model(&offer).Update("status", "expired")
		return nil, fmt.Errorf("renewal offer %d has expired", offerID)
	}

	terms := offer.Lease.ParsedTerms()
	renewal, err := ls.CreateLease(CreateLeaseInput{
		PropertyID:  offer.Lease.PropertyID,
		TenantID:    offer.Lease.TenantID,
		AgentID:     offer.Lease.AgentID,
		LeaseType:   offer.Lease.LeaseType,
		StartDate:   offer.ProposedStartDate,
		EndDate:     offer.ProposedEndDate,
		MonthlyRent: offer.ProposedRent,
		Deposit:     offer.Lease.Deposit,
		Currency:    offer.Lease.Currency,
		Terms:       terms,
	})
	if err != nil {
		return nil, err
	}

	if err := storage.DB.Model(&offer).Updates(map[string]interface{}{
		"status":           "accepted",
		"responded_at":     &now,
		"renewal_lease_id": renewal.ID,
	}).Error; err != nil {
		log.Printf("⚠️  Renewal lease %d created but offer %d not marked accepted: %v", renewal.ID, offerID, err)
	}

	return renewal, nil
}

// DeclineRenewalOffer records the tenant's refusal.
func (ls *LeaseService) DeclineRenewalOffer(offerID, tenantID uint) error {
	var offer models.LeaseRenewalOffer
	if err := storage.DB.Preload("Lease").First(&offer, offerID).Error; err != nil {
		return fmt.Errorf("renewal offer not found: %v", err)
	}
	if offer.Lease.TenantID != tenantID {
		return fmt.Errorf("renewal offer %d does not belong to this tenant", offerID)
	}
	if offer.Status != "offered" {
		return fmt.Errorf("renewal offer %d is %s", offerID, offer.Status)
	}

	now := time.Now()
	return storage.DB.Model(&offer).Updates(map[string]interface{}{
		"status":       "declined",
		"responded_at": &now,
	}).Error
}

// Global lease service instance
var LeaseServiceInstance = NewLeaseService()
