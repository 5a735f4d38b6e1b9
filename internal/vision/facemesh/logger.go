package facemesh

import (
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/vision"
)

// GetLogger returns the logger shared with the vision package
func GetLogger() logger.Logger {
	return vision.GetLogger().Module("facemesh")
}
