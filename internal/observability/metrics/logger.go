package metrics

import (
	"sync"

	"github.com/tphakala/proctor-go/internal/logger"
)

var (
	pkgLogger     logger.Logger
	pkgLoggerOnce sync.Once
)

// getLogger resolves the logger on first use, after main has installed the global one
func getLogger() logger.Logger {
	pkgLoggerOnce.Do(func() {
		pkgLogger = logger.Global().Module("telemetry")
	})
	return pkgLogger
}
