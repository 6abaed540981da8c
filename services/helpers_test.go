package services

import (
	"nestie-server/models"
	"nestie-server/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.LeaseAgreement{},
		&models.LeaseSignature{},
		&models.RentPayment{},
		&models.LeaseRenewalOffer{},
		&models.MaintenanceRequest{},
		&models.Notification{},
		&models.AuditLog{},
	)
	require.NoError(t, err)

	storage.DB = db
	return db
}

// seedLeaseFixture creates a tenant, an agent and a property to lease.
func seedLeaseFixture(t *testing.T) (tenant, agent models.User, property models.Property) {
	tenant = models.User{FirstName: "Aminata", LastName: "Sow", Email: "aminata@example.com", Role: "tenant"}
	require.NoError(t, storage.DB.Create(&tenant).Error)

	agent = models.User{FirstName: "Moussa", LastName: "Diallo", Email: "moussa@example.com", Role: "agent"}
	require.NoError(t, storage.DB.Create(&agent).Error)

	property = models.Property{
		AgentID:      agent.ID,
		Title:        "Appartement Tevragh Zeina",
		PropertyType: "apartment",
		City:         "Nouakchott",
		Country:      "Mauritania",
		MonthlyRent:  85000,
		Deposit:      170000,
		Currency:     "MRO",
	}
	require.NoError(t, storage.DB.Create(&property).Error)
	return tenant, agent, property
}

// createDraftLease drafts a one-year lease with the given terms.
func createDraftLease(t *testing.T, tenant, agent models.User, property models.Property, terms models.LeaseTerms) *models.LeaseAgreement {
	lease, err := LeaseServiceInstance.CreateLease(CreateLeaseInput{
		PropertyID:  property.ID,
		TenantID:    tenant.ID,
		AgentID:     agent.ID,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		MonthlyRent: 85000,
		Deposit:     170000,
		Terms:       terms,
	})
	require.NoError(t, err)
	return lease
}

// activateLease signs for both parties so the lease goes active.
func activateLease(t *testing.T, lease *models.LeaseAgreement, tenant, agent models.User) *models.LeaseAgreement {
	_, err := LeaseServiceInstance.SignLease(lease.ID, "tenant", tenant.ID, "sig-tenant", "10.0.0.1")
	require.NoError(t, err)
	signed, err := LeaseServiceInstance.SignLease(lease.ID, "agent", agent.ID, "sig-agent", "10.0.0.2")
	require.NoError(t, err)
	return signed
}
