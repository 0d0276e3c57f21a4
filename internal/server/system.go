package server

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleHealth is the liveness probe. It pings the ledger database so
// a wedged SQLite file fails the check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ledgerDB != nil {
		if err := s.ledgerDB.Conn().PingContext(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSystemStatus reports process uptime plus host CPU and memory.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := s.systemStats()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "running",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
		"sse_clients":    s.stream.ClientCount(),
	})
}

// systemStats samples CPU over a short window to keep the endpoint
// fast for pollers.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
