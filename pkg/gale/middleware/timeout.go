package middleware

import (
	"time"

	"github.com/galehttp/gale/pkg/gale"
)

// TimeoutConfig configures Timeout.
type TimeoutConfig struct {
	// Timeout is the maximum duration allowed for the rest of the chain.
	// Default 30s.
	Timeout time.Duration
	// SkipPaths lists request paths exempt from the deadline.
	SkipPaths []string
	// Handler, if set, builds the response when the deadline is hit
	// instead of the default 408.
	Handler func(req *gale.Request, resp *gale.Response)
}

// DefaultTimeoutConfig returns a 30-second deadline.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{Timeout: 30 * time.Second}
}

// Timeout returns a middleware that bounds the rest of the chain to
// duration, responding 408 if it runs over.
func Timeout(duration time.Duration) gale.Middleware {
	return TimeoutWithConfig(TimeoutConfig{Timeout: duration})
}

// TimeoutWithConfig returns a Timeout middleware with custom duration,
// skip list, and response handler.
//
// The rest of the chain runs on its own goroutine so the deadline can
// be enforced without the handler's cooperation; note that a handler
// that ignores the timeout keeps running in the background even after
// a 408 is sent; gale's in-memory Request/Response aren't safe to share
// across two requests at once, so any handler used under Timeout must
// not retain req/resp beyond a panic or a send on an unbuffered channel.
func TimeoutWithConfig(config TimeoutConfig) gale.Middleware {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(req *gale.Request, resp *gale.Response, next gale.Next, captures gale.Captures) {
		if skip[req.Path()] {
			next(req, resp)
			return
		}

		done := make(chan struct{})
		go func() {
			next(req, resp)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(config.Timeout):
			if config.Handler != nil {
				config.Handler(req, resp)
				return
			}
			resp.Reset()
			resp.Status = 408
			resp.WriteString("request timeout")
		}
	}
}
