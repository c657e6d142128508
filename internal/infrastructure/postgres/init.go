package postgres

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/facturis/efactura-service/internal/config"
	"github.com/facturis/efactura-service/internal/infrastructure/postgres/models"
)

func MustInitDB(cfg *config.EFacturaConfig) *gorm.DB {
	dsn := cfg.TransactionDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	db.AutoMigrate(&models.TransactionModel{}, &models.InvoiceModel{})

	return db
}
