package routes

import (
	"nestie-server/models"
	"nestie-server/services"
	"nestie-server/storage"
	"nestie-server/utils"
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type CreateLeaseInput struct {
	PropertyID  uint     `json:"propertyID" validate:"required"`
	TenantID    uint     `json:"tenantID" validate:"required"`
	LeaseType   string   `json:"leaseType"` // fixed, periodic, month_to_month
	StartDate   string   `json:"startDate" validate:"required"`
	EndDate     string   `json:"endDate" validate:"required"`
	MonthlyRent float64  `json:"monthlyRent" validate:"required,gt=0"`
	Deposit     float64  `json:"deposit"`
	Currency    string   `json:"currency"`
	DueDay      int      `json:"dueDay" validate:"min=0,max=31"`
	GraceDays   int      `json:"graceDays" validate:"min=0,max=60"`
	LateFee     float64  `json:"lateFee"`
	Utilities   bool     `json:"utilitiesIncluded"`
	Maintenance string   `json:"maintenanceBy"` // tenant, agent
	Documents   []string `json:"documents"`
}

type SignLeaseInput struct {
	Party     string `json:"party" validate:"required"` // tenant, agent
	Signature string `json:"signature" validate:"required"`
}

type UpdateLeaseStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// CreateLease drafts a lease on one of the agent's properties and generates
// its full rent schedule.
func CreateLease(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateLeaseInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var property models.Property
	if err := storage.DB.First(&property, input.PropertyID).Error; err != nil {
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "Property not found"})
		return
	}
	if property.AgentID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"message": "Only the property's agent can create a lease"})
		return
	}

	var tenant models.User
	if err := storage.DB.First(&tenant, input.TenantID).Error; err != nil {
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "Tenant not found"})
		return
	}

	startDate, err := time.Parse("2006-01-02", input.StartDate)
	if err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"message": "Invalid start date format"})
		return
	}
	endDate, err := time.Parse("2006-01-02", input.EndDate)
	if err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"message": "Invalid end date format"})
		return
	}

	dueDay := input.DueDay
	if dueDay == 0 {
		dueDay = 1
	}
	maintenanceBy := input.Maintenance
	if maintenanceBy == "" {
		maintenanceBy = "agent"
	}

	lease, err := services.LeaseServiceInstance.CreateLease(services.CreateLeaseInput{
		PropertyID:  property.ID,
		TenantID:    tenant.ID,
		AgentID:     claims.ID,
		LeaseType:   input.LeaseType,
		StartDate:   startDate,
		EndDate:     endDate,
		MonthlyRent: input.MonthlyRent,
		Deposit:     input.Deposit,
		Currency:    input.Currency,
		Terms: models.LeaseTerms{
			DueDay:            dueDay,
			GraceDays:         input.GraceDays,
			LateFeeAmount:     input.LateFee,
			UtilitiesIncluded: input.Utilities,
			MaintenanceBy:     maintenanceBy,
		},
		Documents: input.Documents,
	})
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Lease Error", err.Error(), ctx)
		return
	}

	utils.Audit(ctx, "lease.create", "lease", lease.ID, nil, lease)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(lease)
}

func GetLease(ctx iris.Context) {
	lease := getLeaseForParty(ctx)
	if lease == nil {
		return
	}
	ctx.JSON(lease)
}

// GetUserLeases lists leases the caller participates in, as tenant or agent
func GetUserLeases(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var leases []models.LeaseAgreement
	query := storage.DB.Preload("Property").Preload("Signatures").
		Where("tenant_id = ? OR agent_id = ?", claims.ID, claims.ID)
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Find(&leases).Error; err != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", err.Error(), ctx)
		return
	}

	ctx.JSON(leases)
}

// SignLease records the caller's signature for their party on the lease
func SignLease(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	leaseID64, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	leaseID := uint(leaseID64)

	var input SignLeaseInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var lease models.LeaseAgreement
	if err := storage.DB.First(&lease, leaseID).Error; err != nil {
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "Lease not found"})
		return
	}

	// The caller must actually be the party they sign as
	switch input.Party {
	case "tenant":
		if lease.TenantID != claims.ID {
			ctx.StatusCode(iris.StatusForbidden)
			ctx.JSON(iris.Map{"message": "You are not the tenant on this lease"})
			return
		}
	case "agent":
		if lease.AgentID != claims.ID {
			ctx.StatusCode(iris.StatusForbidden)
			ctx.JSON(iris.Map{"message": "You are not the agent on this lease"})
			return
		}
	default:
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"message": "Party must be tenant or agent"})
		return
	}

	signed, err := services.LeaseServiceInstance.SignLease(leaseID, input.Party, claims.ID, input.Signature, utils.ClientIP(ctx))
	if err != nil {
		utils.CreateError(iris.StatusConflict, "Signature Error", err.Error(), ctx)
		return
	}

	utils.Audit(ctx, "lease.sign", "lease", signed.ID, iris.Map{"status": lease.Status}, iris.Map{"status": signed.Status, "party": input.Party})
	ctx.JSON(signed)
}

// UpdateLeaseStatus overwrites the lease status (agent only); terminating
// cancels future payments and schedules the deposit return.
func UpdateLeaseStatus(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	leaseID64, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	leaseID := uint(leaseID64)

	var lease models.LeaseAgreement
	if err := storage.DB.First(&lease, leaseID).Error; err != nil {
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "Lease not found"})
		return
	}
	if lease.AgentID != claims.ID && claims.Role != "admin" {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"message": "Only the lease agent can update its status"})
		return
	}

	var input UpdateLeaseStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updated, err := services.LeaseServiceInstance.UpdateLeaseStatus(leaseID, input.Status)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Status Error", err.Error(), ctx)
		return
	}

	utils.Audit(ctx, "lease.status", "lease", leaseID, iris.Map{"status": lease.Status}, iris.Map{"status": updated.Status})
	ctx.JSON(updated)
}

// GetLeaseRenewalOffers lists renewal offers on a lease, expiring stale ones on read
func GetLeaseRenewalOffers(ctx iris.Context) {
	lease := getLeaseForParty(ctx)
	if lease == nil {
		return
	}

	var offers []models.LeaseRenewalOffer
	if err := storage.DB.Where("lease_id = ?", lease.ID).Order("created_at DESC").Find(&offers).Error; err != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", err.Error(), ctx)
		return
	}

	now := time.Now()
	for i := range offers {
		if offers[i].Status == "offered" && now.After(offers[i].OfferExpiresAt) {
			storage.DB.Model(&offers[i]).Update("status", "expired")
			offers[i].Status = "expired"
		}
	}

	ctx.JSON(offers)
}

// AcceptRenewalOffer lets the tenant accept; a successor draft lease is created
func AcceptRenewalOffer(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	offerID64, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	renewal, err := services.LeaseServiceInstance.AcceptRenewalOffer(uint(offerID64), claims.ID)
	if err != nil {
		utils.CreateError(iris.StatusConflict, "Renewal Error", err.Error(), ctx)
		return
	}

	utils.Audit(ctx, "renewal.accept", "renewal_offer", uint(offerID64), nil, iris.Map{"renewalLeaseID": renewal.ID})
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(renewal)
}

// DeclineRenewalOffer lets the tenant pass on a renewal
func DeclineRenewalOffer(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	offerID64, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	if err := services.LeaseServiceInstance.DeclineRenewalOffer(uint(offerID64), claims.ID); err != nil {
		utils.CreateError(iris.StatusConflict, "Renewal Error", err.Error(), ctx)
		return
	}

	utils.Audit(ctx, "renewal.decline", "renewal_offer", uint(offerID64), nil, nil)
	ctx.JSON(iris.Map{"success": true})
}

// getLeaseForParty loads the lease in the id param and checks the caller is
// the tenant, the agent or an admin. Writes the error response itself.
func getLeaseForParty(ctx iris.Context) *models.LeaseAgreement {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	id := ctx.Params().Get("id")

	var lease models.LeaseAgreement
	result := storage.DB.Preload("Property").Preload("Signatures").Preload("Payments").Find(&lease, id)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}

	if lease.TenantID != claims.ID && lease.AgentID != claims.ID && claims.Role != "admin" {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"message": "You are not a party to this lease"})
		return nil
	}

	return &lease
}
