package main

import (
	"fmt"
	"log"
	"nestie-server/routes"
	"nestie-server/services"
	"nestie-server/storage"
	"nestie-server/utils"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS for the web dashboard (http://localhost:3000)
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	resetTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("EMAIL_TOKEN_SECRET")))
	resetTokenVerifier.WithDefaultBlocklist()
	resetTokenVerifierMiddleware := resetTokenVerifier.Verify(func() interface{} {
		return new(utils.ForgotPasswordToken)
	})

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}

		return tokenInput.RefreshToken
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/logout", routes.Logout)
		user.Post("/forgotpassword", routes.ForgotPassword)
		user.Post("/resetpassword", resetTokenVerifierMiddleware, routes.ResetPassword)
		user.Get("/{id}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetUser)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AllowsNotifications)
	}

	property := app.Party("/api/property")
	{
		property.Post("/", accessTokenVerifierMiddleware, utils.AgentOnlyMiddleware, routes.CreateProperty)
		property.Get("/{id}", routes.GetProperty)
		property.Get("/userid/{id}", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.GetPropertiesByUserID)
		property.Patch("/update/{id}", accessTokenVerifierMiddleware, routes.UpdateProperty)
		property.Delete("/{id}", accessTokenVerifierMiddleware, routes.DeleteProperty)
	}

	lease := app.Party("/api/lease", accessTokenVerifierMiddleware)
	{
		lease.Post("/", utils.AgentOnlyMiddleware, routes.CreateLease)
		lease.Get("/", utils.UserIDFromTokenMiddleware, routes.GetUserLeases)
		lease.Get("/{id:uint}", routes.GetLease)
		lease.Post("/{id:uint}/sign", routes.SignLease)
		lease.Patch("/{id:uint}/status", routes.UpdateLeaseStatus)
		lease.Get("/{id:uint}/payments", routes.GetLeasePayments)
		lease.Get("/{id:uint}/renewals", routes.GetLeaseRenewalOffers)
		lease.Get("/{id:uint}/maintenance", routes.GetLeaseMaintenanceRequests)
		lease.Post("/{id:uint}/documents", routes.UploadLeaseDocument)
		lease.Delete("/{id:uint}/documents", routes.DeleteLeaseDocument)
	}

	payment := app.Party("/api/payment", accessTokenVerifierMiddleware)
	{
		payment.Get("/overdue", utils.AgentOnlyMiddleware, routes.GetOverduePayments)
		payment.Get("/{id:uint}", routes.GetPayment)
		payment.Post("/{id:uint}/submit", routes.SubmitPayment)
	}

	renewal := app.Party("/api/renewal", accessTokenVerifierMiddleware)
	{
		renewal.Post("/{id:uint}/accept", routes.AcceptRenewalOffer)
		renewal.Post("/{id:uint}/decline", routes.DeclineRenewalOffer)
	}

	maintenance := app.Party("/api/maintenance", accessTokenVerifierMiddleware)
	{
		maintenance.Post("/", utils.UserIDFromTokenMiddleware, routes.CreateMaintenanceRequest)
		maintenance.Patch("/{id:uint}/status", utils.UserIDFromTokenMiddleware, routes.UpdateMaintenanceStatus)
	}

	notification := app.Party("/api/notifications", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		notification.Get("/", routes.GetUserNotifications)
		notification.Patch("/{id:uint}/read", routes.MarkNotificationRead)
		notification.Patch("/read-all", routes.MarkAllNotificationsRead)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Post("/notifications/test", routes.SendTestNotification)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, routes.RefreshAccessToken)

	// Background sweeps: overdue rent, lease expiry, renewal offers
	services.LeaseSchedulerInstance.Start()
	iris.RegisterOnInterrupt(func() {
		services.LeaseSchedulerInstance.Stop()
	})

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	// Start server
	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
