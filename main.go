package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/koichi-mofmof/kokoiko-sub002/db"
	"github.com/koichi-mofmof/kokoiko-sub002/handler"
	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
	"github.com/koichi-mofmof/kokoiko-sub002/utils"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("cannot load .env file")
	}

	// Initialize database
	postgres := db.NewPostgres()

	// Auto-migrate models
	err = postgres.AutoMigrate(
		&model.User{},
		&model.Subscription{},
		&model.CreditRecord{},
		&model.List{},
		&model.SharedListGrant{},
		&model.ShareToken{},
		&model.ListPlace{},
	)
	if err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize repositories
	repos := handler.Repositories{
		User:         repository.NewUserRepository(postgres),
		List:         repository.NewListRepository(postgres),
		Place:        repository.NewPlaceRepository(postgres),
		Share:        repository.NewShareRepository(postgres),
		Credit:       repository.NewCreditRepository(postgres),
		Subscription: repository.NewSubscriptionRepository(postgres),
	}

	// Initialize services
	availabilitySvc := service.NewAvailabilityService(repos.Subscription, repos.Credit, repos.Place)
	permissionSvc := service.NewPermissionService(repos.List, repos.Share, repos.Subscription)
	services := handler.Services{
		Availability: availabilitySvc,
		Permission:   permissionSvc,
		Registration: service.NewRegistrationService(permissionSvc, availabilitySvc, repos.Place, repos.List),
		Credit:       service.NewCreditService(repos.Credit),
	}

	// Initialize Cloudinary service (optional - cover uploads fail without it)
	var cloudinaryService *utils.CloudinaryService
	cloudinaryService, err = utils.NewCloudinaryService()
	if err != nil {
		logrus.Warnf("Cloudinary not configured: %v. Cover uploads will not work.", err)
		cloudinaryService = nil
	}

	// Initialize Echo
	e := echo.New()

	// Setup routes
	handler.SetupRoutes(e, repos, services, cloudinaryService)

	// Shared context with cancel
	_, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Infof("HTTP server starting on :%s", port)

		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("HTTP server error: %v", err)
		}
	}()

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutdown signal received")

	// Initiate graceful shutdown
	cancel()
	ctxTimeout, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(ctxTimeout); err != nil {
		logrus.Errorf("Server shutdown error: %v", err)
	}

	wg.Wait()
	logrus.Info("All services shut down gracefully")
}
