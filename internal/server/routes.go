package server

import (
	"time"

	"github.com/cnm4us/aws-sub000/internal/auth"
	"github.com/cnm4us/aws-sub000/internal/middleware"
	"github.com/cnm4us/aws-sub000/internal/permission"
	"github.com/cnm4us/aws-sub000/internal/publication"
	"github.com/cnm4us/aws-sub000/internal/role"
	"github.com/cnm4us/aws-sub000/internal/suspension"
	"github.com/cnm4us/aws-sub000/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App, deps *Deps) {
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS, PATCH",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Publication API is running",
		})
	})

	authz := deps.Authorizer
	protected := auth.JWTProtected(deps.Gate)
	adminOnly := middleware.PermissionProtected(authz, permission.AdminShortcut)

	// ==========================================
	// AUTH
	// ==========================================
	authHandler := auth.NewHandler(deps.DB, deps.Gate)
	authGroup := app.Group("/auth")
	authGroup.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), authHandler.LoginHandler)
	authGroup.Get("/me", protected, authHandler.MeHandler)

	// ==========================================
	// USER MANAGEMENT (Admin only)
	// ==========================================
	userHandler := user.NewHandler(deps.DB)
	userGroup := app.Group("/users")
	userGroup.Use(protected)
	userGroup.Use(adminOnly)
	userGroup.Post("/", userHandler.CreateUserHandler)
	userGroup.Get("/", userHandler.ListUsersHandler)
	userGroup.Get("/:id", userHandler.GetUserHandler)

	// ==========================================
	// ROLES
	// ==========================================
	roleHandler := role.NewHandler(deps.DB, authz)
	roleGroup := app.Group("/roles")
	roleGroup.Use(protected)
	roleGroup.Get("/", roleHandler.ListRolesHandler)
	roleGroup.Post("/assign", adminOnly, roleHandler.AssignGlobalRoleHandler)

	spaceGroup := app.Group("/spaces")
	spaceGroup.Use(protected)
	spaceGroup.Post("/:space_id/roles",
		middleware.PermissionProtected(authz, permission.SpaceAssignRoles),
		roleHandler.AssignSpaceRoleHandler)
	spaceGroup.Delete("/:space_id/roles/:user_id",
		middleware.PermissionProtected(authz, permission.SpaceAssignRoles),
		roleHandler.RevokeSpaceRoleHandler)

	// ==========================================
	// PUBLICATIONS
	// ==========================================
	pubHandler := publication.NewHandler(deps.Publications)
	pubGroup := app.Group("/publications")
	pubGroup.Use(protected)
	pubGroup.Post("/", pubHandler.CreateHandler)
	pubGroup.Post("/:id/approve", pubHandler.ApproveHandler)
	pubGroup.Post("/:id/reject", pubHandler.RejectHandler)
	pubGroup.Post("/:id/unpublish", pubHandler.UnpublishHandler)
	pubGroup.Post("/:id/republish", pubHandler.RepublishHandler)
	pubGroup.Get("/:id/events", pubHandler.EventsHandler)

	// ==========================================
	// MODERATION
	// ==========================================
	suspensionHandler := suspension.NewHandler(deps.Suspensions, authz)
	modGroup := app.Group("/moderation")
	modGroup.Use(protected)
	// the service checks video:review_space after confirming the space exists
	modGroup.Get("/spaces/:space_id/queue", pubHandler.QueueHandler)
	modGroup.Get("/spaces/:space_id/stats", pubHandler.StatsHandler)
	modGroup.Post("/suspensions", suspensionHandler.SuspendHandler)
	modGroup.Delete("/suspensions/:id", suspensionHandler.LiftHandler)
	modGroup.Get("/users/:user_id/suspensions", suspensionHandler.ListActiveHandler)
}
