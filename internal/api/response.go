package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
)

type successResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Analysis any    `json:"analysis"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) respond(c echo.Context, message string, analysis any) error {
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: message, Analysis: analysis})
}

// fail writes the error envelope: 400 for invalid input, 500 for everything else
func (s *Server) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithContext(c.Request().Context()).Error("Request failed",
			logger.String("path", c.Path()),
			logger.Error(err))
	}
	return c.JSON(status, errorResponse{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
