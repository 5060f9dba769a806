package middleware

import (
	"strconv"
	"strings"

	"github.com/galehttp/gale/pkg/gale"
)

// CORSConfig configures CORS.
type CORSConfig struct {
	// AllowOrigins is the list of allowed origins. ["*"] allows all.
	AllowOrigins []string
	// AllowMethods is the list of methods advertised on preflight.
	AllowMethods []string
	// AllowHeaders is the list of headers advertised on preflight.
	AllowHeaders []string
	// ExposeHeaders is the list of response headers exposed to scripts.
	ExposeHeaders []string
	// AllowCredentials sets Access-Control-Allow-Credentials.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig returns a permissive, allow-all CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
		AllowHeaders: []string{"*"},
		MaxAge:       86400,
	}
}

// CORS returns a middleware applying DefaultCORSConfig.
func CORS() gale.Middleware {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig returns a CORS middleware. Every OPTIONS request
// short-circuits the chain with a 204, carrying the preflight headers
// only when its origin is allowed; other requests get the CORS response
// headers set before the rest of the chain runs.
func CORSWithConfig(config CORSConfig) gale.Middleware {
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"*"}
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = []string{"*"}
	}
	if config.MaxAge == 0 {
		config.MaxAge = 86400
	}

	allowMethods := strings.Join(config.AllowMethods, ", ")
	allowHeaders := strings.Join(config.AllowHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	allowAllOrigins := false
	originSet := make(map[string]bool, len(config.AllowOrigins))
	for _, o := range config.AllowOrigins {
		if o == "*" {
			allowAllOrigins = true
			break
		}
		originSet[o] = true
	}

	return func(req *gale.Request, resp *gale.Response, next gale.Next, captures gale.Captures) {
		origin := req.Headers.GetFirst("Origin")

		var allowOrigin string
		switch {
		case allowAllOrigins:
			allowOrigin = "*"
		case origin != "" && originSet[origin]:
			allowOrigin = origin
		}

		if allowOrigin != "" {
			resp.Headers.Set("Access-Control-Allow-Origin", allowOrigin)
			if config.AllowCredentials {
				resp.Headers.Set("Access-Control-Allow-Credentials", "true")
			}
			if len(config.ExposeHeaders) > 0 {
				resp.Headers.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
		}

		if strings.EqualFold(req.Method, "OPTIONS") {
			if allowOrigin != "" {
				resp.Headers.Set("Access-Control-Allow-Methods", allowMethods)
				resp.Headers.Set("Access-Control-Allow-Headers", allowHeaders)
				resp.Headers.Set("Access-Control-Max-Age", maxAge)
			}
			resp.Status = 204
			return
		}

		next(req, resp)
	}
}
