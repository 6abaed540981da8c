package services

import (
	"encoding/json"
	"nestie-server/models"
	"nestie-server/storage"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSubmitRequestRequiresActiveLease(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})

	// Draft lease: rejected
	_, err := MaintenanceServiceInstance.SubmitRequest(lease.ID, tenant.ID, "plumbing", "Fuite d'eau", "Fuite sous l'évier", "high")
	assert.Error(t, err)

	activateLease(t, lease, tenant, agent)

	request, err := MaintenanceServiceInstance.SubmitRequest(lease.ID, tenant.ID, "plumbing", "Fuite d'eau", "Fuite sous l'évier", "high")
	require.NoError(t, err)
	assert.Equal(t, "submitted", request.Status)
	assert.Equal(t, lease.PropertyID, request.PropertyID)

	// Agent hears about it
	var note models.Notification
	require.NoError(t, storage.DB.Where("user_id = ? AND type = ?", agent.ID, "maintenance").First(&note).Error)
}

func TestSubmitRequestRejectsWrongTenantAndBadPriority(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})
	activateLease(t, lease, tenant, agent)

	_, err := MaintenanceServiceInstance.SubmitRequest(lease.ID, agent.ID, "plumbing", "Fuite", "", "high")
	assert.Error(t, err)

	_, err = MaintenanceServiceInstance.SubmitRequest(lease.ID, tenant.ID, "plumbing", "Fuite", "", "urgent-now")
	assert.Error(t, err)

	// Empty priority defaults to medium
	request, err := MaintenanceServiceInstance.SubmitRequest(lease.ID, tenant.ID, "plumbing", "Fuite", "", "")
	require.NoError(t, err)
	assert.Equal(t, "medium", request.Priority)
}

func TestEmergencyRequestAutoAssignsContractor(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)

	contractors, _ := json.Marshal([]models.ContractorInfo{
		{Name: "Société Générale BTP", Phone: "+22245000001", Specialty: "general"},
		{Name: "Ahmed Plomberie", Phone: "+22245000002", Specialty: "plumbing"},
	})
	require.NoError(t, storage.DB.Model(&property).Update("contractors", datatypes.JSON(contractors)).Error)

	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})
	activateLease(t, lease, tenant, agent)

	// Specialty match wins
	request, err := MaintenanceServiceInstance.SubmitRequest(lease.ID, tenant.ID, "plumbing", "Canalisation éclatée", "Eau partout", "emergency")
	require.NoError(t, err)
	assert.Equal(t, "Ahmed Plomberie", request.ContractorName)
	assert.Equal(t, "+22245000002", request.ContractorPhone)

	// No specialty match: first configured contractor
	request, err = MaintenanceServiceInstance.SubmitRequest(lease.ID, tenant.ID, "electrical", "Court-circuit", "", "emergency")
	require.NoError(t, err)
	assert.Equal(t, "Société Générale BTP", request.ContractorName)

	// Non-emergency requests stay unassigned
	request, err = MaintenanceServiceInstance.SubmitRequest(lease.ID, tenant.ID, "plumbing", "Robinet qui goutte", "", "low")
	require.NoError(t, err)
	assert.Empty(t, request.ContractorName)
}

func TestUpdateStatusFollowsTransitions(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})
	activateLease(t, lease, tenant, agent)

	request, err := MaintenanceServiceInstance.SubmitRequest(lease.ID, tenant.ID, "electrical", "Panne de courant", "", "high")
	require.NoError(t, err)

	// submitted -> completed skips steps
	_, err = MaintenanceServiceInstance.UpdateStatus(request.ID, "completed", nil, nil, "", "")
	assert.Error(t, err)

	estimate := 15000.0
	acked, err := MaintenanceServiceInstance.UpdateStatus(request.ID, "acknowledged", &estimate, nil, "Élec Service", "+22245000003")
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", acked.Status)

	var reloaded models.MaintenanceRequest
	require.NoError(t, storage.DB.First(&reloaded, request.ID).Error)
	assert.NotNil(t, reloaded.AcknowledgedAt)
	require.NotNil(t, reloaded.CostEstimate)
	assert.Equal(t, 15000.0, *reloaded.CostEstimate)
	assert.Equal(t, "Élec Service", reloaded.ContractorName)

	_, err = MaintenanceServiceInstance.UpdateStatus(request.ID, "in_progress", nil, nil, "", "")
	require.NoError(t, err)

	actual := 18000.0
	done, err := MaintenanceServiceInstance.UpdateStatus(request.ID, "completed", nil, &actual, "", "")
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)

	require.NoError(t, storage.DB.First(&reloaded, request.ID).Error)
	assert.NotNil(t, reloaded.CompletedAt)

	// Completed is terminal
	_, err = MaintenanceServiceInstance.UpdateStatus(request.ID, "cancelled", nil, nil, "", "")
	assert.Error(t, err)

	// Tenant got a status update per transition
	var count int64
	storage.DB.Model(&models.Notification{}).Where("user_id = ? AND type = ?", tenant.ID, "maintenance_status").Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestCancelFromAnyOpenState(t *testing.T) {
	setupTestDB(t)
	tenant, agent, property := seedLeaseFixture(t)
	lease := createDraftLease(t, tenant, agent, property, models.LeaseTerms{DueDay: 1, GraceDays: 3})
	activateLease(t, lease, tenant, agent)

	request, err := MaintenanceServiceInstance.SubmitRequest(lease.ID, tenant.ID, "other", "Porte cassée", "", "low")
	require.NoError(t, err)

	cancelled, err := MaintenanceServiceInstance.UpdateStatus(request.ID, "cancelled", nil, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
}
