package routes

import (
	"encoding/json"
	"fmt"
	"log"
	"nestie-server/models"
	"nestie-server/storage"
	"nestie-server/utils"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
)

type RemoveLeaseDocumentInput struct {
	URL string `json:"url" validate:"required"`
}

type UploadLeaseDocumentInput struct {
	Data string `json:"data" validate:"required"` // base64 data URL or raw base64
	Name string `json:"name"`                     // e.g. signed_contract, inventory_report
}

// UploadLeaseDocument attaches a document (signed contract, inventory report)
// to a lease. Either party can upload; the file lands on Cloudinary and its
// URL is appended to the lease's document list.
func UploadLeaseDocument(ctx iris.Context) {
	lease := getLeaseForParty(ctx)
	if lease == nil {
		return
	}

	var input UploadLeaseDocumentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	name := input.Name
	if name == "" {
		name = "document"
	}
	publicID := fmt.Sprintf("lease-%d-%s-%s", lease.ID, name, uuid.NewString()[:8])

	documentURL, err := storage.UploadBase64Document(input.Data, publicID)
	if err != nil {
		utils.CreateError(iris.StatusBadGateway, "Upload Error", err.Error(), ctx)
		return
	}

	var documents []string
	if lease.Documents != nil {
		if err := json.Unmarshal(lease.Documents, &documents); err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}
	documents = append(documents, documentURL)
	marshalled, _ := json.Marshal(documents)

	if err := storage.DB.Model(&models.LeaseAgreement{}).
		Where("id = ?", lease.ID).
		Update("documents", marshalled).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "lease.document.upload", "lease", lease.ID, nil, iris.Map{"url": documentURL, "name": name})
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"url": documentURL, "documents": documents})
}

// DeleteLeaseDocument detaches a document from a lease and destroys the
// Cloudinary asset. The lease record is authoritative: a failed remote
// destroy is logged, not surfaced.
func DeleteLeaseDocument(ctx iris.Context) {
	lease := getLeaseForParty(ctx)
	if lease == nil {
		return
	}

	var input RemoveLeaseDocumentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var documents []string
	if lease.Documents != nil {
		if err := json.Unmarshal(lease.Documents, &documents); err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	found := false
	remaining := documents[:0]
	for _, doc := range documents {
		if doc == input.URL {
			found = true
			continue
		}
		remaining = append(remaining, doc)
	}
	if !found {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Document is not attached to this lease.", ctx)
		return
	}
	marshalled, _ := json.Marshal(remaining)

	if err := storage.DB.Model(&models.LeaseAgreement{}).
		Where("id = ?", lease.ID).
		Update("documents", marshalled).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if err := storage.DeleteDocument(input.URL); err != nil {
		log.Printf("⚠️  Cloudinary destroy for lease %d document failed: %v", lease.ID, err)
	}

	utils.Audit(ctx, "lease.document.remove", "lease", lease.ID, iris.Map{"url": input.URL}, nil)
	ctx.JSON(iris.Map{"success": true, "documents": remaining})
}
