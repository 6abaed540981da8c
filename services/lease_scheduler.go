package services

import (
	"context"
	"log"
	"nestie-server/models"
	"nestie-server/storage"
	"strings"
	"sync"
	"time"
)

// LeaseScheduler runs the daily background sweeps of the lease lifecycle:
// overdue rent detection, active->expired transitions and renewal offers.
// Each job fires once a day at a fixed local time; a Redis day-lock keeps
// multiple server instances from running the same sweep twice.
type LeaseScheduler struct {
	stopCh chan struct{}
	wg     sync.WaitGroup

	// Guards started; Stop runs from the interrupt goroutine
	mu      sync.Mutex
	started bool

	// Overridable for tests
	now func() time.Time
}

const (
	overdueSweepHour   = 9
	overdueSweepMinute = 0
	expirySweepHour    = 9
	expirySweepMinute  = 30
	renewalSweepHour   = 10
	renewalSweepMinute = 0

	// Days before lease end at which a renewal offer goes out
	renewalWindowDays = 30

	// Days overdue after which the agent is pulled in
	escalationDays = 14
)

// NewLeaseScheduler creates a new scheduler instance
func NewLeaseScheduler() *LeaseScheduler {
	return &LeaseScheduler{
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

// Start launches the daily sweep goroutines.
func (s *LeaseScheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.runDailyAt("overdue", overdueSweepHour, overdueSweepMinute, func(now time.Time) {
		if n, err := s.RunOverdueSweep(now); err != nil {
			log.Printf("❌ Overdue sweep failed: %v", err)
		} else {
			log.Printf("✅ Overdue sweep done, %d payments marked overdue", n)
		}
	})
	s.runDailyAt("expiry", expirySweepHour, expirySweepMinute, func(now time.Time) {
		if n, err := s.RunExpirySweep(now); err != nil {
			log.Printf("❌ Expiry sweep failed: %v", err)
		} else {
			log.Printf("✅ Expiry sweep done, %d leases expired", n)
		}
	})
	s.runDailyAt("renewal", renewalSweepHour, renewalSweepMinute, func(now time.Time) {
		if n, err := s.RunRenewalSweep(now); err != nil {
			log.Printf("❌ Renewal sweep failed: %v", err)
		} else {
			log.Printf("✅ Renewal sweep done, %d offers created", n)
		}
	})

	log.Println("🔧 Lease scheduler started (overdue 09:00, expiry 09:30, renewal 10:00)")
}

// Stop terminates the sweep goroutines and waits for them to drain.
func (s *LeaseScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// runDailyAt sleeps until the next hh:mm occurrence, runs the job, repeats.
// A timer on the computed next run avoids the drift of minute-polling.
func (s *LeaseScheduler) runDailyAt(name string, hour, minute int, job func(time.Time)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			now := s.now()
			next := nextRunAfter(now, hour, minute)
			timer := time.NewTimer(next.Sub(now))

			select {
			case <-s.stopCh:
				timer.Stop()
				return
			case fired := <-timer.C:
				if !storage.AcquireDailyLock(context.Background(), name, fired) {
					log.Printf("Sweep %s already ran today on another instance, skipping", name)
					continue
				}
				job(fired)
			}
		}
	}()
}

// nextRunAfter returns the next wall-clock hh:mm strictly after now.
func nextRunAfter(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunOverdueSweep scans pending payments past their due date. Once the
// lease's grace period has elapsed the payment goes overdue with a late fee
// (configured amount, else 5% of the rent); past the escalation threshold the
// agent is notified. Per-record failures are logged and the sweep moves on.
func (s *LeaseScheduler) RunOverdueSweep(now time.Time) (int, error) {
	var payments []models.RentPayment
	err := storage.DB.Preload("Lease").
		Where("status = ? AND due_date < ?", "pending", now).
		Find(&payments).Error
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range payments {
		payment := &payments[i]
		lease := payment.Lease
		terms := lease.ParsedTerms()

		daysOverdue := int(now.Sub(payment.DueDate).Hours() / 24)
		if daysOverdue <= terms.GraceDays {
			continue
		}

		lateFee := terms.LateFeeAmount
		if lateFee <= 0 {
			lateFee = lease.MonthlyRent * 0.05
		}

		result := storage.DB.Model(&models.RentPayment{}).
			Where("id = ? AND version = ?", payment.ID, payment.Version).
			Updates(map[string]interface{}{
				"status":   "overdue",
				"late_fee": lateFee,
				"version":  payment.Version + 1,
			})
		if result.Error != nil {
			log.Printf("❌ Failed to mark payment %d overdue: %v", payment.ID, result.Error)
			continue
		}
		if result.RowsAffected == 0 {
			// Paid or cancelled between the scan and the update
			continue
		}
		payment.Status = "overdue"
		payment.LateFee = lateFee
		payment.Version++
		marked++

		NotificationServiceInstance.SendPaymentOverdueNotification(
			payment.ID, lease.ID, lease.TenantID, payment.Balance(), lateFee, daysOverdue)

		if daysOverdue > escalationDays {
			s.escalateOverdue(payment, &lease, now, daysOverdue)
		}
	}

	// Already-overdue payments cross the escalation threshold on a later day
	var overdue []models.RentPayment
	err = storage.DB.Preload("Lease").
		Where("status = ? AND escalated_at IS NULL AND due_date < ?", "overdue", now.AddDate(0, 0, -escalationDays)).
		Find(&overdue).Error
	if err != nil {
		log.Printf("❌ Escalation scan failed: %v", err)
		return marked, nil
	}
	for i := range overdue {
		payment := &overdue[i]
		daysOverdue := int(now.Sub(payment.DueDate).Hours() / 24)
		s.escalateOverdue(payment, &payment.Lease, now, daysOverdue)
	}

	return marked, nil
}

func (s *LeaseScheduler) escalateOverdue(payment *models.RentPayment, lease *models.LeaseAgreement, now time.Time, daysOverdue int) {
	if payment.EscalatedAt != nil {
		return
	}
	if err := storage.DB.Model(payment).Update("escalated_at", &now).Error; err != nil {
		log.Printf("❌ Failed to record escalation of payment %d: %v", payment.ID, err)
		return
	}

	var tenant models.User
	storage.DB.First(&tenant, lease.TenantID)
	tenantName := strings.TrimSpace(tenant.FirstName + " " + tenant.LastName)

	NotificationServiceInstance.SendOverdueEscalationNotificationToAgent(
		payment.ID, lease.ID, lease.AgentID, tenantName, daysOverdue)
}

// RunExpirySweep transitions active leases past their end date to expired.
func (s *LeaseScheduler) RunExpirySweep(now time.Time) (int, error) {
	var leases []models.LeaseAgreement
	err := storage.DB.
		Where("status = ? AND end_date < ?", "active", now).
		Find(&leases).Error
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, lease := range leases {
		if err := LeaseServiceInstance.ExpireLease(lease.ID, now); err != nil {
			log.Printf("❌ Failed to expire lease %d: %v", lease.ID, err)
			continue
		}
		expired++
	}
	return expired, nil
}

// RunRenewalSweep offers a renewal to every active lease ending within the
// renewal window that has no open or answered offer yet.
func (s *LeaseScheduler) RunRenewalSweep(now time.Time) (int, error) {
	windowEnd := now.AddDate(0, 0, renewalWindowDays)

	var leases []models.LeaseAgreement
	err := storage.DB.
		Where("status = ? AND end_date BETWEEN ? AND ?", "active", now, windowEnd).
		Find(&leases).Error
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range leases {
		lease := &leases[i]

		var existing int64
		storage.DB.Model(&models.LeaseRenewalOffer{}).
			Where("lease_id = ? AND status IN ?", lease.ID, []string{"offered", "accepted"}).
			Count(&existing)
		if existing > 0 {
			continue
		}

		if _, err := LeaseServiceInstance.CreateRenewalOffer(lease, now); err != nil {
			log.Printf("❌ Failed to create renewal offer for lease %d: %v", lease.ID, err)
			continue
		}
		created++
	}
	return created, nil
}

// Global scheduler instance, started from main
var LeaseSchedulerInstance = NewLeaseScheduler()
