package handler

import (
	"net/http"

	"github.com/arnavshah/roster-solver/pkg/config"
	"github.com/arnavshah/roster-solver/pkg/handlers"
	"github.com/arnavshah/roster-solver/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	r       *gin.Engine
	initErr error
)

func init() {
	// .env is only present under vercel dev
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load("")
	if err != nil {
		initErr = err
		return
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		initErr = err
		return
	}
	r, initErr = handlers.Setup(cfg, logger)
}

// Handler is the entry point for the Vercel Go runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	if initErr != nil {
		http.Error(w, "server misconfigured: "+initErr.Error(), http.StatusInternalServerError)
		return
	}
	r.ServeHTTP(w, req)
}
