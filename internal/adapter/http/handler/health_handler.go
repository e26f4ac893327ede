package handler

import (
	"context"
	"errors"
	"net/http"

	"bank-ledger-core/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /healthz — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}

// Liveness handles GET /liveness — shallow process liveness probe.
func Liveness(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Version returns a handler for GET /version.
func Version(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, version)
	}
}

// ReaderHealth adapts a LedgerReader into a HealthChecker so the polling
// loop participates in the deep health check.
type ReaderHealth struct {
	reader ports.LedgerReader
}

// NewReaderHealth creates a health checker backed by the reader's poll state.
func NewReaderHealth(reader ports.LedgerReader) *ReaderHealth {
	return &ReaderHealth{reader: reader}
}

// Ping reports the outcome of the reader's most recent poll.
func (h *ReaderHealth) Ping(context.Context) error {
	if !h.reader.Healthy() {
		return errors.New("last ledger poll failed")
	}
	return nil
}

// Name returns the dependency name.
func (h *ReaderHealth) Name() string {
	return "ledger_reader"
}
