package routes

import (
	"net/http"
	"net/http/httptest"
	"nestie-server/models"
	"nestie-server/storage"
	"nestie-server/utils"
	"os"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// buildPasswordTestApp wires the password recovery routes the way main does.
func buildPasswordTestApp() *iris.Application {
	os.Setenv("EMAIL_TOKEN_SECRET", "test-email-secret")

	app := iris.New()
	app.Validator = validator.New()

	resetTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("EMAIL_TOKEN_SECRET")))
	resetTokenVerifier.WithDefaultBlocklist()
	resetTokenVerifierMiddleware := resetTokenVerifier.Verify(func() interface{} {
		return new(utils.ForgotPasswordToken)
	})

	user := app.Party("/api/user")
	{
		user.Post("/forgotpassword", ForgotPassword)
		user.Post("/resetpassword", resetTokenVerifierMiddleware, ResetPassword)
	}
	app.Build()
	return app
}

func TestResetPasswordWithEmailToken(t *testing.T) {
	setupTestDB(t)
	app := buildPasswordTestApp()

	oldHash, err := bcrypt.GenerateFromPassword([]byte("ancienMotDePasse1"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := models.User{FirstName: "Aminata", LastName: "Sow", Email: "aminata@example.com", Password: string(oldHash), Role: "tenant"}
	require.NoError(t, storage.DB.Create(&user).Error)

	token, err := utils.CreateForgotPasswordToken(user.ID, user.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/user/resetpassword",
		strings.NewReader(`{"password": "nouveauMotDePasse1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var reloaded models.User
	require.NoError(t, storage.DB.First(&reloaded, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.Password), []byte("nouveauMotDePasse1")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(reloaded.Password), []byte("ancienMotDePasse1")))
}

func TestResetPasswordRejectsMissingToken(t *testing.T) {
	setupTestDB(t)
	app := buildPasswordTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/user/resetpassword",
		strings.NewReader(`{"password": "nouveauMotDePasse1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	assert.NotEqual(t, http.StatusOK, resp.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	setupTestDB(t)
	app := buildPasswordTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/user/forgotpassword",
		strings.NewReader(`{"email": "inconnue@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
