package routes

import (
	"nestie-server/models"
	"nestie-server/services"
	"nestie-server/storage"
	"nestie-server/utils"
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
)

// TestNotificationInput represents the input for testing notifications
type TestNotificationInput struct {
	UserID uint   `json:"userId" validate:"required"`
	Title  string `json:"title" validate:"required"`
	Body   string `json:"body" validate:"required"`
	Type   string `json:"type"`
}

// SendTestNotification sends a test notification to a user (admin only)
func SendTestNotification(ctx iris.Context) {
	var input TestNotificationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	data := services.NotificationData{
		Type:   input.Type,
		UserID: strconv.FormatUint(uint64(input.UserID), 10),
	}

	notificationService := services.NewNotificationService()
	if err := notificationService.SendNotificationToUser(input.UserID, input.Title, input.Body, data); err != nil {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{
			"success": false,
			"message": "Failed to send notification",
			"error":   err.Error(),
		})
		return
	}

	ctx.JSON(iris.Map{
		"success": true,
		"message": "Test notification sent successfully",
	})
}

// GetUserNotifications returns the caller's in-app notifications, newest first
func GetUserNotifications(ctx iris.Context) {
	userIDValue := ctx.Values().Get("userID")
	if userIDValue == nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}
	userID := userIDValue.(uint)

	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 20)
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
	if ctx.URLParamBoolDefault("unread", false) {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	query.Count(&total)

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&notifications).Error; err != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", err.Error(), ctx)
		return
	}

	utils.JSONPage(ctx, notifications, page, perPage, total)
}

// MarkNotificationRead flags one notification as read
func MarkNotificationRead(ctx iris.Context) {
	userIDValue := ctx.Values().Get("userID")
	if userIDValue == nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}
	userID := userIDValue.(uint)

	notificationID64, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var notification models.Notification
	result := storage.DB.Where("id = ? AND user_id = ?", uint(notificationID64), userID).Find(&notification)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	now := time.Now()
	storage.DB.Model(&notification).Updates(map[string]interface{}{"is_read": true, "read_at": &now})

	ctx.JSON(iris.Map{"success": true})
}

// MarkAllNotificationsRead flags every unread notification of the caller
func MarkAllNotificationsRead(ctx iris.Context) {
	userIDValue := ctx.Values().Get("userID")
	if userIDValue == nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}
	userID := userIDValue.(uint)

	now := time.Now()
	result := storage.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})

	ctx.JSON(iris.Map{"success": true, "updated": result.RowsAffected})
}
