package router

import (
	"time"

	"pvflow/internal/config"
	"pvflow/internal/handler"
	"pvflow/internal/infra"
	"pvflow/internal/middleware"
	"pvflow/internal/model"
	"pvflow/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services are built in the composition root, where the record store
// backend is chosen.
type Services struct {
	Records service.ProcessService
	SLA     service.SLAService
	Reports service.ReportService
	Auth    service.AuthService
}

// Infra is what the router needs directly: health checks and rate limits.
// DB may be nil, in which case /health is not mounted.
type Infra struct {
	DB     *gorm.DB
	RDB    *redis.Client
	MailCB *infra.CircuitBreaker
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Store/Repository ← DB/Redis/DynamoDB
func New(cfg *config.Config, svc Services, inf Infra) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// order matters
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.Env, cfg.CORSAllowedOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(inf.RDB, 1000, time.Minute))

	authH := handler.NewAuthHandler(svc.Auth)
	usersH := handler.NewUsersHandler(svc.Auth)
	recordsH := handler.NewRecordsHandler(svc.Records, svc.SLA, svc.Reports)
	dashH := handler.NewDashboardHandler(svc.SLA, svc.Reports)
	slaH := handler.NewSLAHandler(svc.SLA)
	adminH := handler.NewAdminHandler(svc.Records)

	// ── Public ───────────────────────────────────────────────────────────────
	if inf.DB != nil {
		r.GET("/health", handler.Health(inf.DB, inf.RDB, inf.MailCB))
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(inf.RDB), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// ── Protected ────────────────────────────────────────────────────────────
	// Every role may read; what a user may write is decided per record by
	// the lock policy, not by route.
	elevated := middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		rec := v1.Group("/records")
		{
			rec.GET("", recordsH.List)
			rec.GET("/stream", recordsH.Stream)
			rec.GET("/queue/:department", recordsH.Queue)
			rec.POST("/validate", recordsH.Validate)
			rec.POST("/save", recordsH.Save)
			rec.POST("/items/csv", recordsH.ParseCSV)
			rec.GET("/items/csv-template", recordsH.CSVTemplate)
			rec.GET("/:id", recordsH.Get)
			rec.GET("/:id/lock", recordsH.Lock)
			rec.GET("/:id/audit", recordsH.Audit)
			rec.GET("/:id/urgency", recordsH.Urgency)
			rec.GET("/:id/pdf", recordsH.PDF)
			rec.POST("/:id/items/:item_id/approve", recordsH.ApproveItem)
		}

		dash := v1.Group("/dashboard")
		{
			dash.GET("/stock", dashH.Stock)
			dash.GET("/sla", dashH.SLA)
		}

		v1.GET("/reports/records.xlsx", dashH.RecordsXLSX)

		slaG := v1.Group("/sla")
		{
			slaG.GET("/config", slaH.GetConfig)
			slaG.GET("/holidays", slaH.Holidays)
			slaG.PUT("/config", elevated, slaH.UpdateConfig)
			slaG.POST("/holidays", elevated, slaH.AddHoliday)
			slaG.DELETE("/holidays/:date", elevated, slaH.RemoveHoliday)
		}

		admin := v1.Group("/admin", elevated)
		{
			admin.POST("/records/:id/reopen", adminH.Reopen)
			admin.DELETE("/records/:id", middleware.RequireRole(model.RoleSuperAdmin), adminH.Wipe)
			admin.POST("/import", adminH.Import)
			admin.GET("/audit", adminH.Audit)

			users := admin.Group("/users")
			{
				users.POST("", usersH.Create)
				users.GET("", usersH.List)
				users.PUT("/:id", usersH.Update)
				users.DELETE("/:id", usersH.Deactivate)
				users.PATCH("/:id/reactivate", usersH.Reactivate)
			}
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
