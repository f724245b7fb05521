package routes

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hr-backoffice/internal/controllers"
	"hr-backoffice/internal/repositories"
	"hr-backoffice/internal/services"
	"hr-backoffice/pkg/config"
	"hr-backoffice/pkg/eventbus"
)

// Dependencies are the long-lived resources the router wires into repositories and services.
type Dependencies struct {
	DB       *pgxpool.Pool
	Cache    repositories.CacheRepositoryInterface
	EventBus *eventbus.Bus
	Config   *config.Config
	Logger   *zap.Logger
}

// NewDepartmentService assembles the hierarchy engine on top of PostgreSQL.
func NewDepartmentService(deps Dependencies) services.DepartmentServiceInterface {
	departmentRepo := repositories.NewDepartmentRepository(deps.DB, deps.Logger, deps.Config.Hierarchy.LockKey)
	guard := services.NewDepartmentGuard(
		departmentRepo,
		repositories.NewEmployeeDirectory(deps.DB),
		repositories.NewPositionDirectory(deps.DB),
	)
	treeCache := services.NewTreeCache(deps.Cache, deps.Config.Redis.TreeTTL, deps.Logger)

	return services.NewDepartmentService(
		repositories.NewTxManager(deps.DB),
		departmentRepo,
		guard,
		treeCache,
		deps.EventBus,
		deps.Logger.Named("departments"),
	)
}

func InitRouter(e *echo.Echo, deps Dependencies) {
	deps.Logger.Info("registering routes")

	e.GET("/healthcheck", func(c echo.Context) error {
		if err := deps.DB.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	departmentService := NewDepartmentService(deps)
	runDepartmentRouter(api, controllers.NewDepartmentController(departmentService, deps.Logger))
}
