package middleware

import (
	"testing"
	"time"

	"github.com/galehttp/gale/pkg/gale"
)

func TestTimeoutPassesFastHandler(t *testing.T) {
	terminal := func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		resp.Status = 200
	}

	req := gale.NewRequest()
	resp := gale.NewResponse()
	c := NewChain(terminal, Timeout(50*time.Millisecond))
	c.Invoke(req, resp, nil)

	if resp.Status != 200 {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}
}

func TestTimeoutReturns408OnSlowHandler(t *testing.T) {
	slow := func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		time.Sleep(50 * time.Millisecond)
		resp.Status = 200
	}

	req := gale.NewRequest()
	resp := gale.NewResponse()
	c := NewChain(slow, Timeout(5*time.Millisecond))
	c.Invoke(req, resp, nil)

	if resp.Status != 408 {
		t.Fatalf("Status = %d, want 408", resp.Status)
	}
}

func TestTimeoutSkipsListedPaths(t *testing.T) {
	slow := func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		resp.Status = 200
	}

	req := gale.NewRequest()
	req.Target = "/upload"
	resp := gale.NewResponse()

	config := TimeoutConfig{Timeout: time.Millisecond, SkipPaths: []string{"/upload"}}
	c := NewChain(slow, TimeoutWithConfig(config))
	c.Invoke(req, resp, nil)

	if resp.Status != 200 {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}
}
