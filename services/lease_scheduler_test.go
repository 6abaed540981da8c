package services

import (
	"nestie-server/models"
	"nestie-server/storage"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRunAfter(t *testing.T) {
	loc := time.UTC

	// Before today's slot: fires today
	now := time.Date(2024, 3, 10, 7, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 10, 9, 0, 0, 0, loc), nextRunAfter(now, 9, 0))

	// Past today's slot: fires tomorrow
	now = time.Date(2024, 3, 10, 9, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 11, 9, 0, 0, 0, loc), nextRunAfter(now, 9, 0))

	// Exactly on the slot: strictly after, so tomorrow
	now = time.Date(2024, 3, 10, 9, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 11, 9, 0, 0, 0, loc), nextRunAfter(now, 9, 0))
}

func TestSchedulerStartStopLifecycle(t *testing.T) {
	scheduler := NewLeaseScheduler()

	scheduler.Start()
	scheduler.Start() // repeated start is a no-op

	// Stop may race in from the interrupt handler while another caller stops too
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()
	}
	wg.Wait()

	scheduler.Stop() // stopping a stopped scheduler is safe
}

func TestOverdueSweepRespectsGracePeriod(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})
	activateLease(t, lease, tenant, agent)

	scheduler := NewLeaseScheduler()

	// Three days past due: still inside the grace period
	marked, err := scheduler.RunOverdueSweep(time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	// Four days past due: grace elapsed
	marked, err = scheduler.RunOverdueSweep(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	var payment models.RentPayment
	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).Order("due_date ASC").First(&payment).Error)
	assert.Equal(t, "overdue", payment.Status)
	assert.Equal(t, 85000*0.05, payment.LateFee) // no configured amount, 5% of rent
	assert.Nil(t, payment.EscalatedAt)

	var note models.Notification
	require.NoError(t, storage.DB.Where("user_id = ? AND type = ?", tenant.ID, "payment_overdue").First(&note).Error)
}

func TestOverdueSweepUsesConfiguredLateFee(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3, LateFeeAmount: 2000})
	activateLease(t, lease, tenant, agent)

	scheduler := NewLeaseScheduler()
	marked, err := scheduler.RunOverdueSweep(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	var payment models.RentPayment
	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).Order("due_date ASC").First(&payment).Error)
	assert.Equal(t, float64(2000), payment.LateFee)
}

func TestOverdueSweepEscalatesAfterThreshold(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})
	activateLease(t, lease, tenant, agent)

	scheduler := NewLeaseScheduler()

	// Marked overdue on day 6, well under the escalation threshold
	_, err := scheduler.RunOverdueSweep(time.Date(2024, 1, 7, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var payment models.RentPayment
	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).Order("due_date ASC").First(&payment).Error)
	assert.Equal(t, "overdue", payment.Status)
	assert.Nil(t, payment.EscalatedAt)

	// A later sweep finds it 19 days overdue and pulls in the agent
	_, err = scheduler.RunOverdueSweep(time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).Order("due_date ASC").First(&payment).Error)
	assert.NotNil(t, payment.EscalatedAt)

	var note models.Notification
	require.NoError(t, storage.DB.Where("user_id = ? AND type = ?", agent.ID, "payment_escalation").First(&note).Error)
	assert.Contains(t, note.Message, "Aminata Sow")

	// Escalation happens once, not on every subsequent sweep
	_, err = scheduler.RunOverdueSweep(time.Date(2024, 1, 21, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	var escalations int64
	storage.DB.Model(&models.Notification{}).Where("user_id = ? AND type = ?", agent.ID, "payment_escalation").Count(&escalations)
	assert.Equal(t, int64(1), escalations)
}

func TestExpirySweepClosesEndedLeases(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})
	activateLease(t, lease, tenant, agent)

	scheduler := NewLeaseScheduler()

	// Still running: nothing to expire
	expired, err := scheduler.RunExpirySweep(time.Date(2024, 12, 30, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	expired, err = scheduler.RunExpirySweep(time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	var reloaded models.LeaseAgreement
	require.NoError(t, storage.DB.First(&reloaded, lease.ID).Error)
	assert.Equal(t, "expired", reloaded.Status)
}

func TestRenewalSweepOffersInsideWindowOnce(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)

	// Ends 2024-12-31: inside the window on 2024-12-10
	nearEnd := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})
	activateLease(t, nearEnd, tenant, agent)

	// Ends mid-2025: well outside the window
	farEnd, err := LeaseServiceInstance.CreateLease(CreateLeaseInput{
		PropertyID:  property.ID,
		TenantID:    tenant.ID,
		AgentID:     agent.ID,
		StartDate:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		MonthlyRent: 60000,
		Terms:       models.LeaseTerms{DueDay: 1, GraceDays: 3},
	})
	require.NoError(t, err)
	activateLease(t, farEnd, tenant, agent)

	scheduler := NewLeaseScheduler()
	now := time.Date(2024, 12, 10, 10, 0, 0, 0, time.UTC)

	created, err := scheduler.RunRenewalSweep(now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var offer models.LeaseRenewalOffer
	require.NoError(t, storage.DB.Where("lease_id = ?", nearEnd.ID).First(&offer).Error)
	assert.InDelta(t, 85000*1.03, offer.ProposedRent, 0.001)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), offer.ProposedStartDate)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), offer.ProposedEndDate)

	var farOffers int64
	storage.DB.Model(&models.LeaseRenewalOffer{}).Where("lease_id = ?", farEnd.ID).Count(&farOffers)
	assert.Equal(t, int64(0), farOffers)

	// The next day's sweep must not stack a second offer
	created, err = scheduler.RunRenewalSweep(now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestRenewalSweepSkipsDeclinedButNotForever(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})
	activateLease(t, lease, tenant, agent)

	scheduler := NewLeaseScheduler()
	now := time.Date(2024, 12, 10, 10, 0, 0, 0, time.UTC)

	created, err := scheduler.RunRenewalSweep(now)
	require.NoError(t, err)
	require.Equal(t, 1, created)

	var offer models.LeaseRenewalOffer
	require.NoError(t, storage.DB.Where("lease_id = ?", lease.ID).First(&offer).Error)
	require.NoError(t, LeaseServiceInstance.DeclineRenewalOffer(offer.ID, tenant.ID))

	// Declined offers don't block a fresh proposal
	created, err = scheduler.RunRenewalSweep(now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}
