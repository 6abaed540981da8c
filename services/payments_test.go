package services

import (
	"nestie-server/models"
	"nestie-server/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateScheduleFullYear(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	payments := PaymentServiceInstance.GenerateSchedule(1, start, end, 1, 85000)

	require.Len(t, payments, 12)
	for i, p := range payments {
		assert.Equal(t, "pending", p.Status)
		assert.Equal(t, float64(85000), p.Amount)
		assert.Equal(t, 1, p.DueDate.Day())
		assert.Equal(t, time.Month(i+1), p.DueDate.Month())
	}
}

func TestGenerateScheduleMidMonthStart(t *testing.T) {
	// Due day before the start date pushes the first cycle to the next month
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	payments := PaymentServiceInstance.GenerateSchedule(1, start, end, 1, 50000)

	require.Len(t, payments, 5)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), payments[0].DueDate)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), payments[4].DueDate)
}

func TestGenerateScheduleClampsShortMonths(t *testing.T) {
	// Due day 31 lands on the last day of shorter months
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	payments := PaymentServiceInstance.GenerateSchedule(1, start, end, 31, 60000)

	require.Len(t, payments, 4)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), payments[0].DueDate)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), payments[1].DueDate) // leap year
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), payments[2].DueDate)
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), payments[3].DueDate)
}

func TestGenerateScheduleEndBeforeFirstDue(t *testing.T) {
	start := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	payments := PaymentServiceInstance.GenerateSchedule(1, start, end, 1, 50000)
	assert.Empty(t, payments)
}

func TestProcessPaymentFullAmount(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})

	var payment models.RentPayment
	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).Order("due_date ASC").First(&payment).Error)

	processed, err := PaymentServiceInstance.ProcessPayment(payment.ID, 85000, "bankily", "tx-001")
	require.NoError(t, err)

	assert.Equal(t, "paid", processed.Status)
	assert.Equal(t, float64(85000), processed.AmountPaid)
	assert.NotNil(t, processed.PaidDate)
	assert.Equal(t, "bankily", processed.PaymentMethod)
	assert.Equal(t, float64(0), processed.Balance())

	var note models.Notification
	require.NoError(t, storage.DB.Where("user_id = ? AND type = ?", tenant.ID, "payment_received").First(&note).Error)
}

func TestProcessPaymentPartialAmount(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})

	var payment models.RentPayment
	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).Order("due_date ASC").First(&payment).Error)

	processed, err := PaymentServiceInstance.ProcessPayment(payment.ID, 40000, "masrvi", "tx-002")
	require.NoError(t, err)

	assert.Equal(t, "partial", processed.Status)
	assert.Equal(t, float64(40000), processed.AmountPaid)
	assert.Nil(t, processed.PaidDate)
	assert.Equal(t, float64(45000), processed.Balance())

	// A reminder for the remaining balance is queued
	var note models.Notification
	require.NoError(t, storage.DB.Where("user_id = ? AND type = ?", tenant.ID, "payment_partial").First(&note).Error)
	assert.Contains(t, note.Message, "45000")
}

func TestProcessPaymentTopUpToPaid(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})

	var payment models.RentPayment
	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).Order("due_date ASC").First(&payment).Error)

	_, err := PaymentServiceInstance.ProcessPayment(payment.ID, 40000, "masrvi", "tx-003")
	require.NoError(t, err)

	processed, err := PaymentServiceInstance.ProcessPayment(payment.ID, 45000, "masrvi", "tx-004")
	require.NoError(t, err)
	assert.Equal(t, "paid", processed.Status)
	assert.Equal(t, float64(85000), processed.AmountPaid)
}

func TestProcessPaymentIdempotentOnTransactionID(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})

	var payment models.RentPayment
	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).Order("due_date ASC").First(&payment).Error)

	_, err := PaymentServiceInstance.ProcessPayment(payment.ID, 40000, "bankily", "tx-dup")
	require.NoError(t, err)

	// Same transaction replayed must not double-apply
	replayed, err := PaymentServiceInstance.ProcessPayment(payment.ID, 40000, "bankily", "tx-dup")
	require.NoError(t, err)
	assert.Equal(t, float64(40000), replayed.AmountPaid)
	assert.Equal(t, "partial", replayed.Status)
}

func TestProcessPaymentRejectsNonPositiveAmount(t *testing.T) {
	setupTestDB(t)
	_, err := PaymentServiceInstance.ProcessPayment(1, 0, "cash", "tx-005")
	assert.Error(t, err)

	_, err = PaymentServiceInstance.ProcessPayment(1, -500, "cash", "tx-006")
	assert.Error(t, err)
}

func TestProcessPaymentRejectsSettledAndCancelled(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})

	var payments []models.RentPayment
	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).Order("due_date ASC").Find(&payments).Error)

	_, err := PaymentServiceInstance.ProcessPayment(payments[0].ID, 85000, "cash", "tx-007")
	require.NoError(t, err)
	_, err = PaymentServiceInstance.ProcessPayment(payments[0].ID, 85000, "cash", "tx-008")
	assert.Error(t, err)

	require.NoError(t, storage.DB.Model(&payments[1]).Update("status", "cancelled").Error)
	_, err = PaymentServiceInstance.ProcessPayment(payments[1].ID, 85000, "cash", "tx-009")
	assert.Error(t, err)
}
