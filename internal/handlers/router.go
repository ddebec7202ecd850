package handlers

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/middleware"
)

// NewRouter wires every route of the API onto a gin engine
func NewRouter(h *Handlers, cfg *config.Config, store cache.Cache) *gin.Engine {
	router := gin.New()

	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Index)

		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Signed by the gateway, not by a user session
		v1.POST("/webhooks/payment-gateway", h.Payment.GatewayWebhook)

		protected := v1.Group("")
		protected.Use(middleware.Auth(h.Auth.Verifier(), cfg.LegacyTokenPrefix))
		protected.Use(middleware.Idempotency(store, cfg.IdempotencyTTL))
		{
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/users", h.User.Index)
				admin.POST("/users", h.User.Create)
				admin.GET("/users/:user_id", h.User.Show)
				admin.PUT("/users/:user_id", h.User.Update)
				admin.PUT("/users/:user_id/toggle_status", h.User.ToggleStatus)

				admin.POST("/policies/:policy_id/cancel", h.Policy.Cancel)
				admin.DELETE("/cheques/:cheque_id", h.Cheque.Delete)
				admin.DELETE("/expenses/:expense_id", h.Expense.Delete)

				admin.GET("/audits", h.Audit.Index)
				admin.GET("/jobs/status", h.Job.Status)
			}

			protected.POST("/auth/logout_all", h.Auth.LogoutAll)
			protected.PATCH("/users/:user_id/change_password", h.User.ChangePassword)

			customers := protected.Group("/customers")
			{
				customers.GET("", h.Customer.Index)
				customers.POST("", h.Customer.Create)
				customers.GET("/:customer_id", h.Customer.Show)
				customers.PUT("/:customer_id", h.Customer.Update)
				customers.POST("/:customer_id/attachments", h.Customer.UploadAttachment)
				customers.GET("/:customer_id/attachments/:attachment_id", h.Customer.DownloadAttachment)
				customers.POST("/:customer_id/vehicles", h.Customer.AddVehicle)
				customers.DELETE("/:customer_id/vehicles/:vehicle_id", h.Customer.DeleteVehicle)
				customers.POST("/:customer_id/vehicles/:vehicle_id/policies", h.Policy.Create)
				customers.POST("/:customer_id/payments", h.Payment.CreateForCustomer)
			}

			policies := protected.Group("/policies")
			{
				policies.GET("", h.Policy.Index)
				policies.GET("/:policy_id", h.Policy.Show)
				policies.POST("/:policy_id/payments", h.Policy.AddPayment)
				policies.POST("/:policy_id/transfer", h.Policy.Transfer)
			}

			payments := protected.Group("/payments")
			{
				payments.GET("", h.Payment.Index)
				payments.GET("/:payment_id", h.Payment.Show)
				payments.GET("/:payment_id/receipt", h.Payment.Receipt)
			}

			cheques := protected.Group("/cheques")
			{
				cheques.GET("", h.Cheque.Index)
				cheques.GET("/export", h.Cheque.Export)
				cheques.POST("/customer/:customer_id", h.Cheque.CreateForCustomer)
				cheques.GET("/:cheque_id", h.Cheque.Show)
				cheques.GET("/:cheque_id/image", h.Cheque.Image)
				cheques.PATCH("/:cheque_id/status", h.Cheque.UpdateStatus)
			}

			agents := protected.Group("/agents")
			{
				agents.GET("", h.Agent.Index)
				agents.POST("", h.Agent.Create)
				agents.GET("/:agent_name/statement", h.Agent.Statement)
				agents.GET("/:agent_name/statement/export", h.Agent.ExportStatement)
			}

			expenses := protected.Group("/expenses")
			{
				expenses.GET("", h.Expense.Index)
				expenses.POST("", h.Expense.Create)
				expenses.GET("/export", h.Expense.Export)
				expenses.GET("/:expense_id", h.Expense.Show)
				expenses.PUT("/:expense_id", h.Expense.Update)
			}

			dashboard := protected.Group("/dashboard")
			{
				dashboard.GET("/statistics", h.Dashboard.Statistics)
				dashboard.GET("/financial-overview", h.Dashboard.FinancialOverview)
			}
		}
	}

	return router
}
