package routes

import (
	"nestie-server/models"
	"nestie-server/services"
	"nestie-server/storage"
	"nestie-server/utils"
	"strconv"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type CreateMaintenanceInput struct {
	LeaseID     uint   `json:"leaseID" validate:"required"`
	Category    string `json:"category" validate:"required"` // plumbing, electrical, appliance, structural, other
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // low, medium, high, emergency
}

type UpdateMaintenanceInput struct {
	Status          string   `json:"status" validate:"required"`
	CostEstimate    *float64 `json:"costEstimate"`
	ActualCost      *float64 `json:"actualCost"`
	ContractorName  string   `json:"contractorName"`
	ContractorPhone string   `json:"contractorPhone"`
}

// CreateMaintenanceRequest files a request on the tenant's active lease
func CreateMaintenanceRequest(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateMaintenanceInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	request, err := services.MaintenanceServiceInstance.SubmitRequest(
		input.LeaseID, claims.ID, input.Category, input.Title, input.Description, input.Priority)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Maintenance Error", err.Error(), ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(request)
}

// GetLeaseMaintenanceRequests lists the maintenance history of a lease
func GetLeaseMaintenanceRequests(ctx iris.Context) {
	lease := getLeaseForParty(ctx)
	if lease == nil {
		return
	}

	var requests []models.MaintenanceRequest
	if err := storage.DB.Where("lease_id = ?", lease.ID).Order("created_at DESC").Find(&requests).Error; err != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", err.Error(), ctx)
		return
	}

	ctx.JSON(requests)
}

// UpdateMaintenanceStatus advances a request along its lifecycle (agent only)
func UpdateMaintenanceStatus(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	requestID64, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var request models.MaintenanceRequest
	if err := storage.DB.Preload("Lease").First(&request, uint(requestID64)).Error; err != nil {
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "Maintenance request not found"})
		return
	}

	// The agent drives the workflow; the tenant may only cancel their own request
	var input UpdateMaintenanceInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	isAgent := request.Lease.AgentID == claims.ID || claims.Role == "admin"
	isTenantCancel := request.TenantID == claims.ID && input.Status == "cancelled"
	if !isAgent && !isTenantCancel {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"message": "Not allowed to update this request"})
		return
	}

	updated, err := services.MaintenanceServiceInstance.UpdateStatus(
		request.ID, input.Status, input.CostEstimate, input.ActualCost, input.ContractorName, input.ContractorPhone)
	if err != nil {
		utils.CreateError(iris.StatusConflict, "Maintenance Error", err.Error(), ctx)
		return
	}

	utils.Audit(ctx, "maintenance.status", "maintenance", updated.ID,
		iris.Map{"status": request.Status}, iris.Map{"status": updated.Status})
	ctx.JSON(updated)
}
