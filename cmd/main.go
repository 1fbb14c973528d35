package main

import (
	"log"

	"github.com/cnm4us/aws-sub000/internal/config"
	"github.com/cnm4us/aws-sub000/internal/database"
	"github.com/cnm4us/aws-sub000/internal/observ"
	"github.com/cnm4us/aws-sub000/internal/role"
	"github.com/cnm4us/aws-sub000/internal/server"
	"github.com/cnm4us/aws-sub000/internal/utils"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal("❌ Failed to build logger: ", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		if err := utils.ValidateJWTSecret(cfg.JWTSecret); err != nil {
			logger.Fatal("❌ JWT configuration error", zap.Error(err))
		}
	}
	utils.SetJWTSecret(cfg.JWTSecret)
	logger.Info("✅ Config loaded", zap.String("env", cfg.Env))

	// ========== DATABASE SETUP ==========
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("❌ Database connection failed", zap.Error(err))
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal("❌ Migration failed", zap.Error(err))
	}
	logger.Info("✅ Database migrated successfully")

	if err := database.RunMigrations(db, cfg.MigrationsDir, logger); err != nil {
		logger.Fatal("❌ SQL migrations failed", zap.Error(err))
	}

	// ========== SEED DEFAULT DATA ==========
	if err := role.SeedDefaultRoles(db); err != nil {
		logger.Fatal("❌ Failed to seed roles", zap.Error(err))
	}
	logger.Info("✅ Default roles seeded")

	// ========== START SERVER ==========
	app := server.New(server.NewDeps(db, logger))

	logger.Info("🚀 Publication server starting", zap.String("addr", cfg.ServerAddr))
	if err := app.Listen(cfg.ServerAddr); err != nil {
		logger.Fatal("❌ Failed to start server", zap.Error(err))
	}
}
