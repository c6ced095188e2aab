package webapi

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"papla-server-go/internal/domain/sequence"
	httptransport "papla-server-go/internal/transport/http"
)

var serverStart = time.Now()

// handleSystemInfo reports host health plus whether ffmpeg is usable,
// so the front-end can warn before the user tries to combine.
// @Summary System info
// @Tags System
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /system/info [get]
func (s *Service) handleSystemInfo(c *gin.Context) {
	payload := gin.H{
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"uptime_seconds": int64(time.Since(serverStart).Seconds()),
		"provider":       s.config.TTS.Provider,
	}

	runner := sequence.NewRunner(s.config.Sequence.FFmpegPath)
	payload["ffmpeg_available"] = runner.Check(c.Request.Context()) == nil

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		payload["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		payload["memory"] = gin.H{
			"total_mb":     vm.Total / 1024 / 1024,
			"used_mb":      vm.Used / 1024 / 1024,
			"used_percent": vm.UsedPercent,
		}
	}
	if hostInfo, err := host.Info(); err == nil {
		payload["host"] = gin.H{
			"hostname": hostInfo.Hostname,
			"os":       hostInfo.OS,
			"platform": hostInfo.Platform,
		}
	}

	if stats, err := s.sessions.Stats(c.Request.Context()); err == nil {
		payload["sessions"] = stats
	}

	httptransport.RespondSuccess(c, http.StatusOK, payload, "")
}
