package middleware

import (
	"testing"

	"github.com/galehttp/gale/pkg/gale"
)

func terminalOK() gale.RoutedHandler {
	return func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		resp.Status = 200
	}
}

func TestCORSSetsAllowOriginStar(t *testing.T) {
	req := gale.NewRequest()
	req.Method = "GET"
	req.Headers.Set("Origin", "https://example.com")
	resp := gale.NewResponse()

	c := NewChain(terminalOK(), CORS())
	c.Invoke(req, resp, nil)

	if got := resp.Headers.GetFirst("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	terminalRan := false
	terminal := func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		terminalRan = true
	}

	config := CORSConfig{
		AllowOrigins: []string{"https://example.com"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       3600,
	}

	req := gale.NewRequest()
	req.Method = "OPTIONS"
	req.Headers.Set("Origin", "https://example.com")
	resp := gale.NewResponse()

	c := NewChain(terminal, CORSWithConfig(config))
	c.Invoke(req, resp, nil)

	if terminalRan {
		t.Fatal("terminal must not run on preflight")
	}
	if resp.Status != 204 {
		t.Fatalf("Status = %d, want 204", resp.Status)
	}
	if got := resp.Headers.GetFirst("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Fatalf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestCORSRejectsUnlistedOrigin(t *testing.T) {
	config := CORSConfig{AllowOrigins: []string{"https://example.com"}}

	req := gale.NewRequest()
	req.Method = "GET"
	req.Headers.Set("Origin", "https://evil.example")
	resp := gale.NewResponse()

	c := NewChain(terminalOK(), CORSWithConfig(config))
	c.Invoke(req, resp, nil)

	if resp.Headers.Contains("Access-Control-Allow-Origin") {
		t.Fatal("unlisted origin must not get CORS headers")
	}
}
