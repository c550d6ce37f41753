package handlers

import (
	"net/http"
	"time"

	"github.com/arnavshah/roster-solver/pkg/auth"
	"github.com/arnavshah/roster-solver/pkg/config"
	"github.com/arnavshah/roster-solver/pkg/database"
	"github.com/arnavshah/roster-solver/pkg/metrics"
	"github.com/arnavshah/roster-solver/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// NewRouter wires every route. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler) *gin.Engine {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.Logger))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Roster Solver API is running", "admin_url": "/admin"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	r.StaticFS("/static", h.GetStaticFS())

	r.GET("/admin", h.AdminInterface)
	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.GET("/usage/:id", h.GetUsage)
		admin.GET("/runs", h.ListRuns)
		admin.GET("/runs/:id", h.GetAnyRun)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/schedule", h.ScheduleJSON)
		api.POST("/schedule/csv", h.ScheduleCSV)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
		api.GET("/runs/:id", h.GetRun)
	}

	// short routes kept for older clients
	r.POST("/schedule/json", h.APIKeyMiddleware(), h.ScheduleJSON)
	r.POST("/schedule/csv", h.APIKeyMiddleware(), h.ScheduleCSV)

	return r
}

// Setup checks the server secrets, opens the database, makes sure an admin
// exists and wires the router from the configuration
func Setup(cfg *config.Config, logger *zap.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	authn := auth.New(cfg.Auth, auth.WithLogger(logger.Named("auth")))
	if err := authn.EnsureAdminExists(db); err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(nil)
	opts := []service.Option{
		service.WithLogger(logger.Named("scheduler")),
		service.WithRecorder(collector),
	}
	// roster checks reuse gin's binding validator
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		opts = append(opts, service.WithValidator(v))
	}

	h := &Handler{
		DB:               db,
		Auth:             authn,
		Service:          service.New(cfg.Solver, cfg.Policy, opts...),
		Logger:           logger.Named("http"),
		DefaultRateLimit: cfg.Auth.DefaultRateLimit,
	}
	return NewRouter(h, collector.Handler()), nil
}
