package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"nestie-server/models"
	"nestie-server/storage"
	"nestie-server/utils"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// buildLeaseDocumentTestApp wires the lease document routes the way main does.
func buildLeaseDocumentTestApp() *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "test-access-secret")

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	lease := app.Party("/api/lease", accessTokenVerifierMiddleware)
	{
		lease.Delete("/{id:uint}/documents", DeleteLeaseDocument)
	}
	app.Build()
	return app
}

func seedLeaseWithDocuments(t *testing.T) (tenant, agent models.User, lease models.LeaseAgreement) {
	tenant = models.User{FirstName: "Aminata", LastName: "Sow", Email: "aminata@example.com", Role: "tenant"}
	require.NoError(t, storage.DB.Create(&tenant).Error)
	agent = models.User{FirstName: "Moussa", LastName: "Diallo", Email: "moussa@example.com", Role: "agent"}
	require.NoError(t, storage.DB.Create(&agent).Error)

	property := models.Property{AgentID: agent.ID, Title: "Appartement Tevragh Zeina", City: "Nouakchott", MonthlyRent: 85000, Currency: "MRO"}
	require.NoError(t, storage.DB.Create(&property).Error)

	docs, _ := json.Marshal([]string{
		"https://files.example.com/contrat-signe.pdf",
		"https://files.example.com/etat-des-lieux.pdf",
	})
	lease = models.LeaseAgreement{
		PropertyID:  property.ID,
		TenantID:    tenant.ID,
		AgentID:     agent.ID,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		MonthlyRent: 85000,
		Status:      "active",
		Documents:   datatypes.JSON(docs),
	}
	require.NoError(t, storage.DB.Create(&lease).Error)
	return tenant, agent, lease
}

func TestDeleteLeaseDocumentRemovesURL(t *testing.T) {
	setupTestDB(t)
	app := buildLeaseDocumentTestApp()
	tenant, _, lease := seedLeaseWithDocuments(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/lease/1/documents",
		strings.NewReader(`{"url": "https://files.example.com/contrat-signe.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signTestAccessToken(t, tenant.ID, "tenant"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var reloaded models.LeaseAgreement
	require.NoError(t, storage.DB.First(&reloaded, lease.ID).Error)
	var documents []string
	require.NoError(t, json.Unmarshal(reloaded.Documents, &documents))
	assert.Equal(t, []string{"https://files.example.com/etat-des-lieux.pdf"}, documents)

	// Removing the same URL again finds nothing
	req2 := httptest.NewRequest(http.MethodDelete, "/api/lease/1/documents",
		strings.NewReader(`{"url": "https://files.example.com/contrat-signe.pdf"}`))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("Authorization", "Bearer "+signTestAccessToken(t, tenant.ID, "tenant"))
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	assert.Equal(t, http.StatusNotFound, resp2.Code)
}

func TestDeleteLeaseDocumentRejectsNonParty(t *testing.T) {
	setupTestDB(t)
	app := buildLeaseDocumentTestApp()
	seedLeaseWithDocuments(t)

	outsider := models.User{FirstName: "Autre", LastName: "Agent", Email: "autre@example.com", Role: "agent"}
	require.NoError(t, storage.DB.Create(&outsider).Error)

	req := httptest.NewRequest(http.MethodDelete, "/api/lease/1/documents",
		strings.NewReader(`{"url": "https://files.example.com/contrat-signe.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signTestAccessToken(t, outsider.ID, "agent"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}
