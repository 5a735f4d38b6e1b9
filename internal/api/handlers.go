package api

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/media"
)

const (
	videoAnalysisCompleted = "Video analysis completed"
	audioAnalysisCompleted = "Audio analysis completed"
)

// analyzeFace handles POST /analyze-face with form fields image and timestamp.
func (s *Server) analyzeFace(c echo.Context) error {
	timestamp, err := parseTimestamp(c.FormValue("timestamp"))
	if err != nil {
		return s.fail(c, err)
	}

	raw, err := media.DecodeBase64(media.StripDataURL(c.FormValue("image")))
	if err != nil {
		return s.fail(c, err)
	}

	result, err := s.analyzer.AnalyzeFace(c.Request().Context(), raw, timestamp)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respond(c, "", result)
}

// analyzeAudio handles POST /analyze-audio with base64 float32 PCM in audio,
// plus optional sampleRate and timestamp.
func (s *Server) analyzeAudio(c echo.Context) error {
	timestamp, err := parseTimestamp(c.FormValue("timestamp"))
	if err != nil {
		return s.fail(c, err)
	}

	sampleRate, err := s.parseSampleRate(c.FormValue("sampleRate"))
	if err != nil {
		return s.fail(c, err)
	}

	raw, err := media.DecodeBase64(c.FormValue("audio"))
	if err != nil {
		return s.fail(c, err)
	}
	samples, err := media.DecodeFloat32LE(raw)
	if err != nil {
		return s.fail(c, err)
	}

	result, err := s.analyzer.AnalyzeAudio(c.Request().Context(), samples, sampleRate, timestamp)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respond(c, "", result)
}

// analyzeVideo handles POST /analyze-video. The upload is spooled to a temp
// file because the video decoder reads from disk.
func (s *Server) analyzeVideo(c echo.Context) error {
	if _, err := parseTimestamp(c.FormValue("timestamp")); err != nil {
		return s.fail(c, err)
	}

	fh, err := c.FormFile("video")
	if err != nil {
		return s.fail(c, errors.InvalidInputf("api", "video file is required: %v", err))
	}

	path, cleanup, err := s.spool(fh)
	if err != nil {
		return s.fail(c, err)
	}
	defer cleanup()

	report, err := s.analyzer.AnalyzeVideo(c.Request().Context(), path)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respond(c, videoAnalysisCompleted, report)
}

// analyzeAudioBlob handles POST /analyze-audio-blob with a WAV, FLAC or raw
// float32 PCM upload in audio.
func (s *Server) analyzeAudioBlob(c echo.Context) error {
	if _, err := parseTimestamp(c.FormValue("timestamp")); err != nil {
		return s.fail(c, err)
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		return s.fail(c, errors.InvalidInputf("api", "audio file is required: %v", err))
	}

	raw, err := readUpload(fh)
	if err != nil {
		return s.fail(c, err)
	}

	sampleRate, err := s.parseSampleRate(c.FormValue("sampleRate"))
	if err != nil {
		return s.fail(c, err)
	}

	clip, err := media.DecodeAudioBlob(raw, sampleRate)
	if err != nil {
		return s.fail(c, err)
	}

	report, err := s.analyzer.AnalyzeAudioClip(c.Request().Context(), clip)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respond(c, audioAnalysisCompleted, report)
}

// parseTimestamp accepts an empty value as "no timestamp"
func parseTimestamp(value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil //nolint:nilnil // absent timestamp is not an error
	}
	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, errors.InvalidInputf("api", "timestamp must be an integer, got %q", value)
	}
	return &ts, nil
}

func (s *Server) parseSampleRate(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.config.DefaultSampleRate, nil
	}
	rate, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.InvalidInputf("api", "sampleRate must be an integer, got %q", value)
	}
	// Non-positive rates are rejected by the analyzer itself
	return rate, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New(err).Component("api").Category(errors.CategoryFileIO).Build()
	}
	defer f.Close() //nolint:errcheck // read-only

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.FileError(err, fh.Filename, fh.Size)
	}
	return data, nil
}

// spool copies an upload to a temp file and returns its path and a cleanup func
func (s *Server) spool(fh *multipart.FileHeader) (path string, cleanup func(), err error) {
	src, err := fh.Open()
	if err != nil {
		return "", nil, errors.New(err).Component("api").Category(errors.CategoryFileIO).Build()
	}
	defer src.Close() //nolint:errcheck // read-only

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.CreateTemp(s.tempDir, "proctor-video-*"+ext)
	if err != nil {
		return "", nil, errors.FileError(err, s.tempDir, 0)
	}

	cleanup = func() {
		if err := os.Remove(dst.Name()); err != nil && !os.IsNotExist(err) {
			s.log.Warn("Failed to remove spooled upload", logger.String("path", dst.Name()), logger.Error(err))
		}
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, errors.FileError(err, dst.Name(), n)
	}
	return dst.Name(), cleanup, nil
}
