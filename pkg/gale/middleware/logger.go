package middleware

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/galehttp/gale/pkg/gale"
)

// LoggerConfig configures Logger.
type LoggerConfig struct {
	// Output is where log entries are written. Default: os.Stdout.
	Output io.Writer
	// SkipPaths lists request paths to omit from logging.
	SkipPaths []string
}

// LogEntry is one structured access-log record.
type LogEntry struct {
	Time       string  `json:"time"`
	Method     string  `json:"method"`
	Path       string  `json:"path"`
	Status     int     `json:"status"`
	DurationMS float64 `json:"duration_ms"`
}

// Logger returns a middleware that writes one JSON LogEntry per
// request to stdout.
func Logger() gale.Middleware {
	return LoggerWithConfig(LoggerConfig{})
}

// LoggerWithConfig returns a Logger middleware with custom output and
// skip list.
func LoggerWithConfig(config LoggerConfig) gale.Middleware {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	encoder := json.NewEncoder(config.Output)

	return func(req *gale.Request, resp *gale.Response, next gale.Next, captures gale.Captures) {
		path := req.Path()
		if skip[path] {
			next(req, resp)
			return
		}

		start := time.Now()
		next(req, resp)
		duration := time.Since(start)

		encoder.Encode(LogEntry{
			Time:       start.Format(time.RFC3339),
			Method:     req.Method,
			Path:       path,
			Status:     resp.Status,
			DurationMS: float64(duration.Microseconds()) / 1000.0,
		})
	}
}
