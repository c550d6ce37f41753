package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/arnavshah/roster-solver/pkg/auth"
	"github.com/arnavshah/roster-solver/pkg/database"
	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/arnavshah/roster-solver/pkg/roster"
	"github.com/arnavshah/roster-solver/pkg/scheduler"
	"github.com/arnavshah/roster-solver/pkg/service"
	"github.com/arnavshah/roster-solver/pkg/tableio"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed static/*
var staticEmbed embed.FS

const (
	ctxAPIKey   = "apiKey"
	ctxUserID   = "userID"
	ctxUsername = "username"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	DB               *gorm.DB
	Auth             *auth.Authenticator
	Service          *service.Service
	Logger           *zap.Logger
	DefaultRateLimit int
}

func bearer(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	}
	return token
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key for scheduling routes and
// enforces the key's daily request limit
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		userID, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		// keys minted offline with the keygen tool are registered on first use
		apiKey, err := auth.TouchAPIKey(h.DB, key, userID, h.rateLimit())
		if err != nil {
			h.Logger.Error("api key lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not load API key"})
			return
		}

		var today database.APIUsage
		h.DB.Where("key_id = ? AND date = ?", apiKey.ID, time.Now().Format("2006-01-02")).Limit(1).Find(&today)
		if apiKey.RateLimit > 0 && today.RequestCount >= apiKey.RateLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Daily request limit reached"})
			return
		}

		c.Set(ctxAPIKey, apiKey)
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func (h *Handler) rateLimit() int {
	if h.DefaultRateLimit > 0 {
		return h.DefaultRateLimit
	}
	return 10000
}

func apiKeyFrom(c *gin.Context) *database.APIKey {
	raw, ok := c.Get(ctxAPIKey)
	if !ok {
		return nil
	}
	return raw.(*database.APIKey)
}

// errorStatus maps run errors onto HTTP statuses
func errorStatus(err error) int {
	switch {
	case errors.Is(err, roster.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, scheduler.ErrInfeasible):
		return http.StatusUnprocessableEntity
	}
	// solver and storage failures
	return http.StatusInternalServerError
}

// ScheduleJSON handles the JSON-based scheduling request
func (h *Handler) ScheduleJSON(c *gin.Context) {
	var req models.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, runID, err := h.run(c, "api", &req.Dataset, service.Request{
		Trials:    req.Trials,
		Objective: req.Objective,
		Seed:      req.Seed,
		Days:      req.Days,
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ScheduleResponse{
		RunID:    runID,
		Schedule: out.Schedule,
		Failures: out.Failures,
	})
}

// run solves ds and stores the run together with the key's usage
func (h *Handler) run(c *gin.Context, source string, ds *models.Dataset, req service.Request) (*service.Outcome, string, error) {
	req.Source = source
	out, err := h.Service.Run(c.Request.Context(), ds, req)
	if err != nil {
		h.Logger.Info("schedule request rejected", zap.String("source", source), zap.Error(err))
		return nil, "", err
	}

	var keyID uint
	if key := apiKeyFrom(c); key != nil {
		keyID = key.ID
	}
	days := len(out.Roster.Days())
	if len(req.Days) > 0 {
		days = len(req.Days)
	}
	employees := len(out.Roster.Employees())

	record := &database.ScheduleRun{
		KeyID:     keyID,
		Source:    source,
		Objective: string(out.Objective),
		Days:      days,
		Trials:    out.Trials,
		Employees: employees,
	}
	if err := database.SaveRun(h.DB, record, database.RunPayload{Schedule: out.Schedule, Failures: out.Failures}); err != nil {
		h.Logger.Error("could not store run", zap.Error(err))
	}
	if keyID != 0 {
		if err := database.RecordUsage(h.DB, keyID, days, employees); err != nil {
			h.Logger.Error("could not record usage", zap.Error(err))
		}
	}
	return out, record.ID, nil
}

// sheet opens an uploaded file, nil when the field is absent
func sheet(c *gin.Context, field string) (io.Reader, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return readUpload(fh)
}

func readUpload(fh *multipart.FileHeader) (io.Reader, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// ScheduleCSV handles CSV sheet uploads and answers with the schedule as CSV
func (h *Handler) ScheduleCSV(c *gin.Context) {
	var sheets tableio.Sheets
	for _, f := range []struct {
		field string
		dst   *io.Reader
	}{
		{"availability_file", &sheets.Availability},
		{"capabilities_file", &sheets.Capability},
		{"fulltime_file", &sheets.FullTime},
		{"weights_file", &sheets.Weights},
		{"headcount_file", &sheets.Headcount},
	} {
		r, err := sheet(c, f.field)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to read %s", f.field)})
			return
		}
		*f.dst = r
	}
	if sheets.Availability == nil || sheets.Capability == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "availability_file and capabilities_file are required"})
		return
	}

	ds, err := tableio.LoadDataset(sheets)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := service.Request{Objective: c.PostForm("objective")}
	if v := c.PostForm("trials"); v != "" {
		if req.Trials, err = strconv.Atoi(v); err != nil || req.Trials < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "trials must be a positive integer"})
			return
		}
	}
	if v := c.PostForm("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "seed must be an integer"})
			return
		}
		req.Seed = &seed
	}

	out, runID, err := h.run(c, "csv", ds, req)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := tableio.WriteSchedule(&buf, out.Schedule, out.Roster.Roles(), ds.Weights); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not write schedule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "csv": buf.String(), "failures": out.Failures})
}

// GetRun returns a stored run created with the caller's key
func (h *Handler) GetRun(c *gin.Context) {
	var keyID uint
	if key := apiKeyFrom(c); key != nil {
		keyID = key.ID
	}
	h.writeRun(c, keyID)
}

func (h *Handler) writeRun(c *gin.Context, keyID uint) {
	run, payload, err := database.GetRun(h.DB, c.Param("id"), keyID)
	if errors.Is(err, database.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load run"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":      run,
		"schedule": payload.Schedule,
		"failures": payload.Failures,
	})
}

// AdminInterface serves the admin web interface from embedded files
func (h *Handler) AdminInterface(c *gin.Context) {
	if err := h.Auth.EnsureAdminExists(h.DB); err != nil {
		h.Logger.Error("could not ensure admin user", zap.Error(err))
	}

	data, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "static/index.html not found in embedded FS"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// GetStaticFS returns the embedded filesystem for static assets
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
