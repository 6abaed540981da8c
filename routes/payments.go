package routes

import (
	"nestie-server/models"
	"nestie-server/services"
	"nestie-server/storage"
	"nestie-server/utils"
	"strconv"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type SubmitPaymentInput struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod" validate:"required"` // bankily, masrvi, cash, bank_transfer
	TransactionID string  `json:"transactionID"`
}

// GetLeasePayments lists the rent schedule of a lease
func GetLeasePayments(ctx iris.Context) {
	lease := getLeaseForParty(ctx)
	if lease == nil {
		return
	}

	var payments []models.RentPayment
	query := storage.DB.Where("lease_id = ?", lease.ID)
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("due_date ASC").Find(&payments).Error; err != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", err.Error(), ctx)
		return
	}

	ctx.JSON(payments)
}

// SubmitPayment applies an amount against a scheduled rent cycle. Callers may
// supply a gateway transaction id; one is generated for cash payments so
// retries stay idempotent.
func SubmitPayment(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	paymentID64, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	paymentID := uint(paymentID64)

	var input SubmitPaymentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var payment models.RentPayment
	if err := storage.DB.Preload("Lease").First(&payment, paymentID).Error; err != nil {
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "Payment not found"})
		return
	}
	if payment.Lease.TenantID != claims.ID && payment.Lease.AgentID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"message": "You are not a party to this lease"})
		return
	}

	transactionID := input.TransactionID
	if transactionID == "" {
		transactionID = uuid.NewString()
	}

	processed, err := services.PaymentServiceInstance.ProcessPayment(paymentID, input.Amount, input.PaymentMethod, transactionID)
	if err != nil {
		utils.CreateError(iris.StatusConflict, "Payment Error", err.Error(), ctx)
		return
	}

	utils.Audit(ctx, "payment.process", "payment", processed.ID,
		iris.Map{"status": payment.Status, "amountPaid": payment.AmountPaid},
		iris.Map{"status": processed.Status, "amountPaid": processed.AmountPaid})
	ctx.JSON(processed)
}

// GetPayment returns a single rent cycle with its balance
func GetPayment(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	paymentID64, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var payment models.RentPayment
	result := storage.DB.Preload("Lease").Find(&payment, uint(paymentID64))
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	if payment.Lease.TenantID != claims.ID && payment.Lease.AgentID != claims.ID && claims.Role != "admin" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	ctx.JSON(iris.Map{
		"payment": payment,
		"balance": payment.Balance(),
	})
}

// GetOverduePayments lists the agent's overdue rent across all their leases
func GetOverduePayments(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var payments []models.RentPayment
	err := storage.DB.
		Joins("JOIN lease_agreements ON lease_agreements.id = rent_payments.lease_id").
		Where("lease_agreements.agent_id = ? AND rent_payments.status = ?", claims.ID, "overdue").
		Order("rent_payments.due_date ASC").
		Find(&payments).Error
	if err != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", err.Error(), ctx)
		return
	}

	ctx.JSON(payments)
}
