package server

import (
	"github.com/cnm4us/aws-sub000/internal/observ"
	"github.com/cnm4us/aws-sub000/internal/permission"
	"github.com/cnm4us/aws-sub000/internal/publication"
	"github.com/cnm4us/aws-sub000/internal/suspension"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	DB           *gorm.DB
	Logger       *zap.Logger
	Authorizer   *permission.Authorizer
	Gate         *suspension.Gate
	Publications *publication.Service
	Suspensions  *suspension.Service
}

// NewDeps wires the default gorm-backed services.
func NewDeps(db *gorm.DB, logger *zap.Logger) *Deps {
	logger = observ.OrNop(logger)

	gate := suspension.NewGate(db, logger.Named("suspension"))
	authz := permission.NewAuthorizer(permission.NewResolver(db), gate, logger.Named("permission"))

	return &Deps{
		DB:           db,
		Logger:       logger,
		Authorizer:   authz,
		Gate:         gate,
		Publications: publication.NewService(publication.NewGormRepository(db), authz, logger.Named("publication")),
		Suspensions:  suspension.NewService(db, authz, logger.Named("suspension")),
	}
}

func New(deps *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	SetupRoutes(app, deps)

	return app
}
