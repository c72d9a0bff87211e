package app

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"lcdsniff/pkg/pipeline"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of myself and the decoding counters.
// output example:
//  {"NumGoroutines":11,"HeapAllocatedMB":3,"SysMemoryMB":12,"Version":"1.0.0+20261001",
//   "Decoder":{"samples":52344,"frames":3468,"transactions":3468,"portBytes":1156,"commands":12,"data":180,"warnings":0}}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		healthData := struct {
			NumGoroutines   int
			NumCPU          int
			HeapAllocatedMB uint64
			SysMemoryMB     uint64
			Version         string
			ProgLang        string
			HostName        string
			Time            string
			Address         string
			Mode            string
			Decoder         pipeline.Stats
		}{
			NumGoroutines:   runtime.NumGoroutine(),
			NumCPU:          runtime.NumCPU(),
			HeapAllocatedMB: bToMb(m.Alloc),
			SysMemoryMB:     bToMb(m.Sys),
			ProgLang:        runtime.Version(),
			Version:         VERSION,
			HostName:        host,
			Time:            time.Now().Format(time.RFC3339),
			Address:         fmt.Sprintf("0x%02x", app.config.Address),
			Mode:            app.config.BusMode.String(),
			Decoder:         app.Stats(),
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
