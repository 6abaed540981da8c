package routes

import (
	"nestie-server/models"
	"nestie-server/storage"
	"nestie-server/utils"
	"os"
	"testing"
	"time"

	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.LeaseAgreement{},
		&models.LeaseSignature{},
		&models.RentPayment{},
		&models.LeaseRenewalOffer{},
		&models.MaintenanceRequest{},
		&models.Notification{},
		&models.AuditLog{},
	)
	require.NoError(t, err)

	storage.DB = db
	return db
}

// signTestAccessToken signs an access token for the given user, using the
// same secret the test app's verifier reads.
func signTestAccessToken(t *testing.T, id uint, role string) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), time.Hour)
	token, err := signer.Sign(utils.AccessToken{ID: id, Role: role})
	require.NoError(t, err)
	return string(token)
}
