package server

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/folio/internal/store"
)

// SystemHandlers serves runtime and host status.
type SystemHandlers struct {
	store   *store.Store
	dataDir string
	started time.Time
	log     zerolog.Logger
}

func NewSystemHandlers(st *store.Store, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		store:   st,
		dataDir: dataDir,
		started: time.Now(),
		log:     log.With().Str("handler", "system").Logger(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/system/status", h.HandleSystemStatus)
}

// HandleSystemStatus returns process, host and document status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":     "ok",
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		status["cpuPercent"] = cpuPercent[0]
	} else if err != nil {
		h.log.Warn().Err(err).Msg("cpu stats unavailable")
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		status["memPercent"] = memStat.UsedPercent
	}
	if diskStat, err := disk.Usage(h.dataDir); err == nil {
		status["diskPercent"] = diskStat.UsedPercent
		status["diskFree"] = diskStat.Free
	}

	state := h.store.Snapshot()
	doc := map[string]interface{}{
		"path":      h.store.Path(),
		"positions": len(state.Positions),
		"accounts":  len(state.Accounts),
	}
	if info, err := os.Stat(h.store.Path()); err == nil {
		doc["sizeBytes"] = info.Size()
		doc["modifiedAt"] = info.ModTime().UTC().Format(time.RFC3339)
	}
	status["document"] = doc

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
