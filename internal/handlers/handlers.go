package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"studio/api/internal/config"
	"studio/api/internal/middleware"
	"studio/api/internal/models"
	"studio/api/internal/service"
)

// HealthCheck pings one dependency for /healthz.
type HealthCheck func(ctx context.Context) error

type Services struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Bookings  *service.BookingService
	Galleries *service.GalleryService
	Invoices  *service.InvoiceService
}

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	auth      *service.AuthService
	users     *service.UserService
	bookings  *service.BookingService
	galleries *service.GalleryService
	invoices  *service.InvoiceService
	checks    map[string]HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, services Services, checks map[string]HealthCheck) HandlerSet {
	return HandlerSet{
		log:       log,
		cfg:       cfg,
		auth:      services.Auth,
		users:     services.Users,
		bookings:  services.Bookings,
		galleries: services.Galleries,
		invoices:  services.Invoices,
		checks:    checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	requireAuth := middleware.Auth(h.auth)
	adminOnly := middleware.RequireRoles(models.UserRoleAdmin)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)

		auth.POST("/logout", requireAuth, h.Logout)
		auth.POST("/send-otp", requireAuth, h.SendOTP)
		auth.POST("/verify-otp", requireAuth, h.VerifyOTP)
		auth.GET("/me", requireAuth, h.Me)
		auth.GET("/sessions", requireAuth, h.ListSessions)
	}

	users := router.Group("/users", requireAuth)
	{
		users.PUT("/profile", h.UpdateProfile)
		users.GET("", adminOnly, h.ListUsers)
	}

	bookings := router.Group("/bookings")
	{
		bookings.POST("", middleware.OptionalAuth(h.auth), h.CreateBooking)
		bookings.GET("", requireAuth, h.ListBookings)
		bookings.PUT("/:id/status", requireAuth, adminOnly, h.UpdateBookingStatus)
	}

	gallery := router.Group("/gallery")
	{
		gallery.GET("/public/:token", h.GetPublicGallery)
		gallery.POST("/upload", requireAuth, adminOnly, h.UploadGallery)
		gallery.GET("/:userId", requireAuth, h.ListGalleries)
		gallery.DELETE("/:id", requireAuth, adminOnly, h.DeleteGallery)
	}

	router.GET("/cron/cleanup", middleware.CronSecret(h.cfg.Cron.Secret), h.CronCleanup)

	invoices := router.Group("/invoices", requireAuth)
	{
		invoices.POST("", adminOnly, h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.PUT("/:id/status", adminOnly, h.UpdateInvoiceStatus)
	}
}

// identity is only called behind middleware.Auth, which guarantees one.
func identity(c *gin.Context) service.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}
