package db

import (
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgres opens the gorm connection from DATABASE_URL. TranslateError is
// enabled so unique-constraint violations surface as gorm.ErrDuplicatedKey,
// which the credit and place repositories rely on.
func NewPostgres() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logrus.Fatal("DATABASE_URL is not set")
	}

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	return database
}
