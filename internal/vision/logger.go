package vision

import (
	"sync"

	"github.com/tphakala/proctor-go/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the vision package logger. The core analyzer does not log;
// the model adapters in the subpackages do.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("vision")
	})
	return serviceLogger
}
