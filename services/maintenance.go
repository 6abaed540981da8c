package services

import (
	"encoding/json"
	"fmt"
	"log"
	"nestie-server/models"
	"nestie-server/storage"
	"time"
)

// MaintenanceService handles tenant maintenance requests on active leases.
type MaintenanceService struct{}

// NewMaintenanceService creates a new maintenance service instance
func NewMaintenanceService() *MaintenanceService {
	return &MaintenanceService{}
}

// Allowed forward transitions of a maintenance request
var maintenanceTransitions = map[string][]string{
	"submitted":    {"acknowledged", "cancelled"},
	"acknowledged": {"in_progress", "cancelled"},
	"in_progress":  {"completed", "cancelled"},
}

// SubmitRequest files a request against the tenant's active lease. Emergency
// priority auto-assigns the property's matching contractor right away.
func (ms *MaintenanceService) SubmitRequest(leaseID, tenantID uint, category, title, description, priority string) (*models.MaintenanceRequest, error) {
	switch priority {
	case "low", "medium", "high", "emergency":
	case "":
		priority = "medium"
	default:
		return nil, fmt.Errorf("invalid priority %q", priority)
	}

	var lease models.LeaseAgreement
	if err := storage.DB.First(&lease, leaseID).Error; err != nil {
		return nil, fmt.Errorf("lease not found: %v", err)
	}
	if lease.TenantID != tenantID {
		return nil, fmt.Errorf("lease %d does not belong to this tenant", leaseID)
	}
	if lease.Status != "active" {
		return nil, fmt.Errorf("maintenance requests require an active lease, lease %d is %s", leaseID, lease.Status)
	}

	request := models.MaintenanceRequest{
		LeaseID:     lease.ID,
		TenantID:    tenantID,
		PropertyID:  lease.PropertyID,
		Category:    category,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      "submitted",
	}

	if priority == "emergency" {
		if contractor := ms.pickContractor(lease.PropertyID, category); contractor != nil {
			request.ContractorName = contractor.Name
			request.ContractorPhone = contractor.Phone
			log.Printf("🚨 Emergency request on lease %d auto-assigned to %s", lease.ID, contractor.Name)
		}
	}

	if err := storage.DB.Create(&request).Error; err != nil {
		return nil, err
	}

	NotificationServiceInstance.SendMaintenanceNotificationToAgent(request.ID, lease.ID, lease.AgentID, priority, title)

	return &request, nil
}

// pickContractor returns the property's first contractor matching the
// category, falling back to the first configured one.
func (ms *MaintenanceService) pickContractor(propertyID uint, category string) *models.ContractorInfo {
	var property models.Property
	if err := storage.DB.First(&property, propertyID).Error; err != nil || property.Contractors == nil {
		return nil
	}

	var contractors []models.ContractorInfo
	if err := json.Unmarshal(property.Contractors, &contractors); err != nil || len(contractors) == 0 {
		return nil
	}

	for i := range contractors {
		if contractors[i].Specialty == category {
			return &contractors[i]
		}
	}
	return &contractors[0]
}

// UpdateStatus advances a request along its lifecycle and stamps the
// acknowledgement/completion times.
func (ms *MaintenanceService) UpdateStatus(requestID uint, status string, costEstimate, actualCost *float64, contractorName, contractorPhone string) (*models.MaintenanceRequest, error) {
	var request models.MaintenanceRequest
	if err := storage.DB.First(&request, requestID).Error; err != nil {
		return nil, fmt.Errorf("maintenance request not found: %v", err)
	}

	allowed := false
	for _, next := range maintenanceTransitions[request.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("cannot move maintenance request from %s to %s", request.Status, status)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": status}
	switch status {
	case "acknowledged":
		updates["acknowledged_at"] = &now
	case "completed":
		updates["completed_at"] = &now
	}
	if costEstimate != nil {
		updates["cost_estimate"] = costEstimate
	}
	if actualCost != nil {
		updates["actual_cost"] = actualCost
	}
	if contractorName != "" {
		updates["contractor_name"] = contractorName
	}
	if contractorPhone != "" {
		updates["contractor_phone"] = contractorPhone
	}

	if err := storage.DB.Model(&request).Updates(updates).Error; err != nil {
		return nil, err
	}
	request.Status = status

	NotificationServiceInstance.SendMaintenanceStatusNotificationToTenant(request.ID, request.TenantID, status)

	return &request, nil
}

// Global maintenance service instance
var MaintenanceServiceInstance = NewMaintenanceService()
