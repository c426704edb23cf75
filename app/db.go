package app

import (
	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Sugar().Panic("failed to connect database", "err", err)
	}
	log.Info("Database started")

	log.Info("Starting migrations")
	db.AutoMigrate(
		&models.Subscriber{},
		&models.Campaign{},
		&models.Delivery{},
		&models.Template{},
		&models.Feed{},
	)
	return db
}
