package routes

import (
	"encoding/json"
	"nestie-server/models"
	"nestie-server/storage"
	"nestie-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

func CreateProperty(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateListingInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	// Ensure arrays are never null
	amenities := input.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	amenitiesJSON, _ := json.Marshal(amenities)

	images := input.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, _ := json.Marshal(images)

	contractors := input.Contractors
	if contractors == nil {
		contractors = []models.ContractorInfo{}
	}
	contractorsJSON, _ := json.Marshal(contractors)

	property := models.Property{
		AgentID:      claims.ID,
		Title:        input.Title,
		Description:  input.Description,
		PropertyType: input.PropertyType,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		State:        input.State,
		Zip:          input.Zip,
		Country:      input.Country,
		Lat:          input.Lat,
		Lng:          input.Lng,
		Bedrooms:     input.Bedrooms,
		Bathrooms:    input.Bathrooms,
		MonthlyRent:  input.MonthlyRent,
		Deposit:      input.Deposit,
		Currency:     input.Currency,
		Amenities:    string(amenitiesJSON),
		Images:       string(imagesJSON),
		IsActive:     input.IsActive,
		Contractors:  datatypes.JSON(contractorsJSON),
	}

	result := storage.DB.Create(&property)
	if result.Error != nil {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to create property"})
		return
	}

	ctx.JSON(property)
}

func GetProperty(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var property models.Property
	propertyExists := storage.DB.Preload("Agent").Find(&property, id)
	if propertyExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if propertyExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(property)
}

func GetPropertiesByUserID(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var properties []models.Property
	propertiesExist := storage.DB.Preload(clause.Associations).Where("agent_id = ?", id).Find(&properties)

	if propertiesExist.Error != nil {
		utils.CreateError(
			iris.StatusInternalServerError,
			"Error", propertiesExist.Error.Error(), ctx)
		return
	}

	ctx.JSON(properties)
}

func UpdateProperty(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var property models.Property
	propertyExists := storage.DB.Find(&property, id)
	if propertyExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if property.AgentID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	var input UpdateListingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.Title != "" {
		updates["title"] = input.Title
	}
	if input.Description != "" {
		updates["description"] = input.Description
	}
	if input.MonthlyRent > 0 {
		updates["monthly_rent"] = input.MonthlyRent
	}
	if input.Deposit > 0 {
		updates["deposit"] = input.Deposit
	}
	if input.IsActive != nil {
		updates["is_active"] = input.IsActive
	}
	if input.Contractors != nil {
		contractorsJSON, _ := json.Marshal(input.Contractors)
		updates["contractors"] = datatypes.JSON(contractorsJSON)
	}

	if err := storage.DB.Model(&property).Updates(updates).Error; err != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", err.Error(), ctx)
		return
	}

	ctx.JSON(property)
}

func DeleteProperty(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var property models.Property
	propertyExists := storage.DB.Find(&property, id)

	if propertyExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	if property.AgentID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	propertyDeleted := storage.DB.Delete(&models.Property{}, id)

	if propertyDeleted.Error != nil {
		utils.CreateError(
			iris.StatusInternalServerError,
			"Error", propertyDeleted.Error.Error(), ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

type CreateListingInput struct {
	Title        string                  `json:"title" validate:"required,max=256"`
	Description  string                  `json:"description"`
	PropertyType string                  `json:"propertyType" validate:"required"`
	AddressLine1 string                  `json:"addressLine1" validate:"required"`
	AddressLine2 string                  `json:"addressLine2"`
	City         string                  `json:"city" validate:"required"`
	State        string                  `json:"state"`
	Zip          string                  `json:"zip"`
	Country      string                  `json:"country" validate:"required"`
	Lat          float32                 `json:"lat"`
	Lng          float32                 `json:"lng"`
	Bedrooms     int                     `json:"bedrooms"`
	Bathrooms    float32                 `json:"bathrooms"`
	MonthlyRent  float64                 `json:"monthlyRent" validate:"required,gt=0"`
	Deposit      float64                 `json:"deposit"`
	Currency     string                  `json:"currency"`
	Amenities    []string                `json:"amenities"`
	Images       []string                `json:"images"`
	IsActive     *bool                   `json:"isActive"`
	Contractors  []models.ContractorInfo `json:"contractors"`
}

type UpdateListingInput struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	MonthlyRent float64                 `json:"monthlyRent"`
	Deposit     float64                 `json:"deposit"`
	IsActive    *bool                   `json:"isActive"`
	Contractors []models.ContractorInfo `json:"contractors"`
}
