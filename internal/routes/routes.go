package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mediflow-server/internal/booking"
	"mediflow-server/internal/cache"
	"mediflow-server/internal/config"
	"mediflow-server/internal/handlers"
	"mediflow-server/internal/middleware"
	"mediflow-server/internal/models"
	"mediflow-server/internal/realtime"
	"mediflow-server/internal/storage"
)

// Deps bundles the shared infrastructure the handlers are built on.
type Deps struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Cache cache.Cache
	Store storage.Store
	Hub   *realtime.Hub
	Log   zerolog.Logger
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Deps) {
	bookingSvc := booking.NewService(deps.DB, deps.Log)
	notifier := handlers.NewNotifier(deps.DB, deps.Hub, deps.Log)

	authHandler := handlers.NewAuthHandler(deps.DB, deps.Cfg)
	userHandler := handlers.NewUserHandler(deps.DB, notifier)
	doctorHandler := handlers.NewDoctorHandler(deps.DB, bookingSvc, deps.Cache, deps.Log)
	appointmentHandler := handlers.NewAppointmentHandler(deps.DB, bookingSvc, notifier)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(deps.DB, deps.Store, deps.Log)
	messageHandler := handlers.NewMessageHandler(deps.DB, notifier)
	notificationHandler := handlers.NewNotificationHandler(deps.DB)
	reviewHandler := handlers.NewReviewHandler(deps.DB)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/register-doctor", authHandler.RegisterDoctor)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.Cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)

			patientProfile := authRoutesPrivate.Group("/profile/patient")
			patientProfile.Use(middleware.RoleAuthMiddleware(models.RolePatient))
			{
				patientProfile.PUT("", authHandler.CompletePatientProfile)
				patientProfile.GET("/complete", authHandler.CheckPatientProfile)
			}
		}

		// Doctor directory, availability and slots
		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.GET("", doctorHandler.ListDoctors)
			doctorRoutes.GET("/:id", doctorHandler.GetDoctor)
			doctorRoutes.GET("/:id/availability", doctorHandler.GetAvailability)
			doctorRoutes.GET("/:id/slots", doctorHandler.ListSlots)
			doctorRoutes.GET("/:id/reviews", reviewHandler.ListDoctorReviews)

			// Doctor self-management
			selfRoutes := doctorRoutes.Group("/me")
			selfRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
			{
				selfRoutes.PUT("/profile", doctorHandler.UpdateOwnProfile)
				selfRoutes.POST("/availability", doctorHandler.CreateWindow)
				selfRoutes.PUT("/availability/:windowId", doctorHandler.UpdateWindow)
				selfRoutes.DELETE("/availability/:windowId", doctorHandler.DeleteWindow)
			}
		}

		// User management routes (admin)
		userRoutes := private.Group("/users")
		userRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			userRoutes.POST("", userHandler.CreateUser)
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.GET("/:id", userHandler.GetUser)
			userRoutes.PUT("/:id", userHandler.UpdateUser)
			userRoutes.DELETE("/:id", userHandler.DeactivateUser)
			userRoutes.PATCH("/:id/verify", userHandler.VerifyDoctor)
			userRoutes.POST("/:id/warnings", userHandler.IssueWarning)
			userRoutes.GET("/:id/warnings", userHandler.ListWarnings)
			userRoutes.DELETE("/warnings/:warningId", userHandler.RevokeWarning)
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.ListAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointment)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateStatus)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.Reschedule)
		}

		// Medical record routes. Records are patient-owned; doctors get read
		// access through a shared appointment, enforced in the handler.
		medicalRecordRoutes := private.Group("/medical-records")
		{
			medicalRecordRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), medicalRecordHandler.CreateMedicalRecord)
			medicalRecordRoutes.GET("", middleware.RoleAuthMiddleware(models.RolePatient), medicalRecordHandler.ListMedicalRecords)
			medicalRecordRoutes.GET("/:id", medicalRecordHandler.GetMedicalRecord)
			medicalRecordRoutes.GET("/:id/document", medicalRecordHandler.DownloadDocument)
			medicalRecordRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RolePatient), medicalRecordHandler.UpdateMedicalRecord)
			medicalRecordRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RolePatient), medicalRecordHandler.DeleteMedicalRecord)
		}

		// Messaging routes
		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("/send", messageHandler.SendMessage)
			messageRoutes.GET("", messageHandler.GetMessages)
			messageRoutes.GET("/conversations", messageHandler.GetConversations)
			messageRoutes.PATCH("/:messageId/read", messageHandler.MarkMessageAsRead)
		}

		// Notification routes
		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.ListNotifications)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkNotificationRead)
			notificationRoutes.POST("/read-all", notificationHandler.MarkAllNotificationsRead)
		}

		// Review routes
		reviewRoutes := private.Group("/reviews")
		{
			reviewRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), reviewHandler.CreateReview)
		}

		// Realtime stream: one socket per session carrying the user's
		// appointment, message and notification topics.
		private.GET("/realtime", func(c *gin.Context) {
			actor, ok := middleware.GetActor(c)
			if !ok {
				c.AbortWithStatus(401)
				return
			}
			deps.Hub.ServeWS(c, actor.ID)
		})
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
