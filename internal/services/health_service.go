package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/dlcks7456/diaryCleaning/internal/config"
)

// ClientCounter reports connected push clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     *config.Paths
	workbook  *WorkbookService
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. workbook and hub may be nil.
func NewHealthService(version string, paths *config.Paths, workbook *WorkbookService, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		paths:     paths,
		workbook:  workbook,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether output directories are usable. A missing
// workbook is informational and does not make the service unready.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"storage":  hs.checkStorage(),
			"workbook": hs.checkWorkbook(ctx),
		},
	}
	if hs.hub != nil {
		status.Services["websocket"] = ServiceHealth{
			Status:  "ready",
			Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
		}
	}
	if status.Services["storage"].Status != "ready" {
		status.Status = "not_ready"
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

func (hs *HealthService) checkStorage() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}
	for _, dir := range []string{hs.paths.ConvertDir, hs.paths.LogDir, hs.paths.ImportDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("directory not available: %s", dir)}
		}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkWorkbook(ctx context.Context) ServiceHealth {
	if hs.workbook == nil {
		return ServiceHealth{Status: "ready", Message: "no workbook service"}
	}
	summary, err := hs.workbook.Summary(ctx)
	if err != nil {
		return ServiceHealth{Status: "ready", Message: err.Error()}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%s loaded, %d responses", summary.Source, summary.Responses),
	}
}
