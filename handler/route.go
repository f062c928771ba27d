package handler

import (
	"time"

	"github.com/koichi-mofmof/kokoiko-sub002/repository"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
	"github.com/koichi-mofmof/kokoiko-sub002/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Repositories struct {
	User         repository.UserRepository
	List         repository.ListRepository
	Place        repository.PlaceRepository
	Share        repository.ShareRepository
	Credit       repository.CreditRepository
	Subscription repository.SubscriptionRepository
}

type Services struct {
	Availability service.AvailabilityService
	Permission   service.PermissionService
	Registration service.RegistrationService
	Credit       service.CreditService
}

func SetupRoutes(e *echo.Echo, repos Repositories, services Services, cloudinaryService *utils.CloudinaryService) {
	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.PATCH, echo.OPTIONS},
	}))

	// Logger middleware
	e.Use(middleware.Logger())

	// Recover middleware
	e.Use(middleware.Recover())

	// Health check
	e.GET("/ping", func(c echo.Context) error {
		return c.JSON(200, response{
			Success: true,
			Data:    "pong",
		})
	})

	jwtMiddleware := NewJWTMiddleware()
	discoverCache := utils.NewResponseCache(30 * time.Second)

	// Auth routes
	authHandler := NewAuthHandler(repos.User)
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Stripe webhook (signature-verified, no JWT)
	webhookHandler := NewWebhookHandler(services.Credit, repos.Subscription)
	e.POST("/api/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	// A typed nil pointer must not become a non-nil imageStore
	var images imageStore
	if cloudinaryService != nil {
		images = cloudinaryService
	}

	listHandler := NewListHandler(repos.List, repos.Place, services.Permission, discoverCache, images)
	placeHandler := NewPlaceHandler(services.Registration, services.Permission, repos.Place)
	shareHandler := NewShareHandler(repos.Share, repos.List, services.Permission)
	billingHandler := NewBillingHandler(services.Availability, repos.Credit, repos.Subscription)

	// Public routes; auth attaches a session when a token is present but
	// anonymous callers pass through (public lists, share previews)
	public := e.Group("/api")
	public.Use(jwtMiddleware.AttachJWT)
	public.GET("/discover", listHandler.Discover)
	public.GET("/lists/:id", listHandler.GetList)
	public.GET("/share/:token", shareHandler.PreviewToken)

	// Protected routes (require JWT)
	protected := e.Group("/api")
	protected.Use(jwtMiddleware.ValidateJWT)

	// List routes
	lists := protected.Group("/lists")
	lists.GET("", listHandler.GetMyLists)
	lists.POST("", listHandler.CreateList)
	lists.PUT("/:id", listHandler.UpdateList)
	lists.DELETE("/:id", listHandler.DeleteList)
	lists.POST("/:id/cover", listHandler.UploadCover)

	// Place routes
	lists.POST("/:id/places", placeHandler.RegisterPlace)
	lists.DELETE("/:id/places/:placeId", placeHandler.DeletePlace)
	lists.PUT("/:id/places/:placeId/order", placeHandler.UpdatePlaceOrder)

	// Share routes
	lists.POST("/:id/share-tokens", shareHandler.CreateShareToken)
	protected.POST("/share/:token/join", shareHandler.JoinViaToken)
	protected.DELETE("/share/:token", shareHandler.RevokeShareToken)

	// Billing routes
	billing := protected.Group("/billing")
	billing.GET("", billingHandler.GetBilling)
	billing.POST("/checkout", billingHandler.CreateCheckoutSession)
	billing.POST("/portal", billingHandler.CreatePortalSession)
}
