package middleware

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/galehttp/gale/pkg/gale"
)

// RecoveryConfig configures Recovery.
type RecoveryConfig struct {
	// PrintStack enables logging of the panic value and stack trace;
	// when false nothing is logged. Default true.
	PrintStack bool
	// LogOutput is where panic logs are written. Default os.Stderr.
	LogOutput io.Writer
	// Handler, if set, builds the response for a recovered panic instead
	// of the default 500.
	Handler func(req *gale.Request, resp *gale.Response, recovered any)
}

// DefaultRecoveryConfig returns stack-trace-to-stderr defaults.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{PrintStack: true, LogOutput: os.Stderr}
}

// Recovery returns a middleware-level panic recovery layer. This is
// deliberately redundant with the messenger's own per-request
// recover() in invokeDispatcher: the messenger's recovery keeps one bad request
// from taking down the connection loop even with no middleware
// installed, while this one lets a chain convert a panic into a
// response before any later middleware's post-processing (logging,
// metrics) runs, rather than skipping straight to the messenger.
func Recovery() gale.Middleware {
	return RecoveryWithConfig(DefaultRecoveryConfig())
}

// RecoveryWithConfig returns a Recovery middleware with custom logging
// and response behavior.
func RecoveryWithConfig(config RecoveryConfig) gale.Middleware {
	if config.LogOutput == nil {
		config.LogOutput = os.Stderr
	}

	return func(req *gale.Request, resp *gale.Response, next gale.Next, captures gale.Captures) {
		defer func() {
			if r := recover(); r != nil {
				if config.PrintStack {
					fmt.Fprintf(config.LogOutput, "panic: %v\n%s\n", r, debug.Stack())
				}
				if config.Handler != nil {
					config.Handler(req, resp, r)
					return
				}
				resp.Reset()
				resp.Status = 500
				resp.WriteString("internal server error")
			}
		}()
		next(req, resp)
	}
}
