package handler

import (
	"bank-ledger-core/internal/adapter/http/middleware"
	"bank-ledger-core/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Writer          ports.LedgerWriter
	Cache           ports.BalanceCache
	LocalRoutingNum string
	JWTSecret       []byte
	Version         string
	HealthCheckers  []ports.HealthChecker
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Probes
	r.GET("/healthz", HealthCheck(deps.HealthCheckers...))
	r.GET("/liveness", Liveness)
	r.GET("/version", Version(deps.Version))

	// API v1 routes (JWT-authenticated)
	jwtAuth := middleware.JWTAuth(deps.JWTSecret, deps.Logger)
	ledgerHandler := NewLedgerHandler(deps.Writer, deps.Cache, deps.LocalRoutingNum)

	v1 := r.Group("/api/v1", jwtAuth)
	{
		v1.POST("/transactions", ledgerHandler.SubmitTransaction)
		v1.GET("/balances/:account_num", ledgerHandler.GetBalance)
	}

	return r
}
