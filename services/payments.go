package services

import (
	"fmt"
	"log"
	"nestie-server/models"
	"nestie-server/storage"
	"time"

	"gorm.io/gorm"
)

// PaymentService generates rent schedules and applies incoming payments.
type PaymentService struct{}

// NewPaymentService creates a new payment service instance
func NewPaymentService() *PaymentService {
	return &PaymentService{}
}

// clampedDueDate places dueDay inside the given month, clamping to the last
// day for months shorter than the configured day (e.g. day 31 in February).
func clampedDueDate(year int, month time.Month, dueDay int) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := dueDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// GenerateSchedule expands a lease date range into monthly rent cycles.
// The first due date is the configured due day of the start month; a due day
// before the lease start advances one month, while one landing exactly on
// the start stays (first rent is due at move-in). One pending payment is
// emitted per month until the due date passes the lease end.
func (ps *PaymentService) GenerateSchedule(leaseID uint, start, end time.Time, dueDay int, rent float64) []models.RentPayment {
	if dueDay < 1 {
		dueDay = 1
	}

	due := clampedDueDate(start.Year(), start.Month(), dueDay)
	if due.Before(start) {
		due = clampedDueDate(due.Year(), due.Month()+1, dueDay)
	}

	var payments []models.RentPayment
	for !due.After(end) {
		payments = append(payments, models.RentPayment{
			LeaseID: leaseID,
			Amount:  rent,
			DueDate: due,
			Status:  "pending",
		})
		due = clampedDueDate(due.Year(), due.Month()+1, dueDay)
	}

	return payments
}

// ProcessPayment applies an incoming amount against a scheduled rent cycle.
// amount >= balance due marks the cycle paid, anything smaller marks it
// partial and queues a reminder for the remainder. Re-submitting the same
// transaction ID is a no-op.
func (ps *PaymentService) ProcessPayment(paymentID uint, amount float64, method, transactionID string) (*models.RentPayment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	var payment models.RentPayment
	if err := storage.DB.Preload("Lease").First(&payment, paymentID).Error; err != nil {
		return nil, fmt.Errorf("payment not found: %v", err)
	}

	// Idempotence: the same transaction applied twice must not double-count
	if transactionID != "" && payment.TransactionID == transactionID {
		log.Printf("Transaction %s already applied to payment %d, skipping", transactionID, paymentID)
		return &payment, nil
	}

	switch payment.Status {
	case "paid":
		return nil, fmt.Errorf("payment %d is already settled", paymentID)
	case "cancelled":
		return nil, fmt.Errorf("payment %d was cancelled with its lease", paymentID)
	}

	now := time.Now()
	due := payment.Amount + payment.LateFee
	newPaid := payment.AmountPaid + amount

	status := "partial"
	var paidDate *time.Time
	if newPaid >= due {
		status = "paid"
		paidDate = &now
	}

	// Version-guarded update so concurrent postings can't both apply
	result := storage.DB.Model(&models.RentPayment{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version).
		Updates(map[string]interface{}{
			"amount_paid":    newPaid,
			"status":         status,
			"paid_date":      paidDate,
			"payment_method": method,
			"transaction_id": transactionID,
			"version":        payment.Version + 1,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("payment %d was modified concurrently, retry", paymentID)
	}

	payment.AmountPaid = newPaid
	payment.Status = status
	payment.PaidDate = paidDate
	payment.PaymentMethod = method
	payment.TransactionID = transactionID
	payment.Version++

	// Notification failures never unwind a persisted payment
	if status == "paid" {
		NotificationServiceInstance.SendPaymentReceivedNotification(payment.ID, payment.LeaseID, payment.Lease.TenantID, amount)
	} else {
		NotificationServiceInstance.SendPartialPaymentReminderNotification(payment.ID, payment.LeaseID, payment.Lease.TenantID, payment.Balance())
	}

	return &payment, nil
}

// CancelFuturePayments cancels every still-pending cycle of a lease due after
// the cutoff. Paid, partial and overdue records are left untouched.
func (ps *PaymentService) CancelFuturePayments(tx *gorm.DB, leaseID uint, cutoff time.Time) (int64, error) {
	result := tx.Model(&models.RentPayment{}).
		Where("lease_id = ? AND status = ? AND due_date > ?", leaseID, "pending", cutoff).
		Updates(map[string]interface{}{
			"status":  "cancelled",
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// Global payment service instance
var PaymentServiceInstance = NewPaymentService()
