package config

import (
	"net/http"
	_ "net/http/pprof"
	"runtime"
	"time"

	"github.com/gogf/greuse"
	log "github.com/sirupsen/logrus"
)

func PrintMemUsage() {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// For info on each, see: https://golang.org/pkg/runtime/#MemStats
	log.WithField("prof", true).Warnf("Alloc = %v MiB\tTotalAlloc = %v MiB\tSys = %v MiB\tGoroutines = %v\tNumGC = %v",
		bToMb(m.Alloc),
		bToMb(m.TotalAlloc),
		bToMb(m.Sys),
		runtime.NumGoroutine(),
		m.NumGC)
}

// InitProfiling starts the periodic memory report and, when PprofHost
// is set, the pprof listener.
func InitProfiling() {
	go func() {
		ticker := time.NewTicker(time.Minute * 1)
		for {
			PrintMemUsage()
			<-ticker.C
		}
	}()

	if Config.PprofHost != "" {
		lis, err := greuse.Listen("tcp", Config.PprofHost)
		if err != nil {
			log.Warnf("Failed to listen on pprof host %s: %v", Config.PprofHost, err)
			return
		}
		go func() {
			err := http.Serve(lis, nil)
			log.Warnf("Pprof server exited: %v", err)
		}()
	}
}
