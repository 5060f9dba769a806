package middleware

import "github.com/galehttp/gale/pkg/gale"

// Dispatcher is satisfied by anything that resolves a request to a
// response, most notably *router.Router. It mirrors wire.Dispatcher
// without importing the wire package, so middleware stays usable
// without pulling in the transport layer.
type Dispatcher interface {
	Dispatch(req *gale.Request, resp *gale.Response)
}

// Global wraps a Dispatcher (typically a *router.Router) with
// connection-wide middleware that should run for every request
// regardless of which route matched, such as RequestID, Logger,
// Recovery, or a CORS preflight responder. Global implements
// Dispatcher itself, so it can be handed to wire.NewMessenger in place
// of the router directly.
type Global struct {
	chain *Chain
}

// NewGlobal returns a Global running ms in order before delegating to
// next.
func NewGlobal(next Dispatcher, ms ...gale.Middleware) *Global {
	terminal := func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		next.Dispatch(req, resp)
	}
	return &Global{chain: NewChain(terminal, ms...)}
}

// Dispatch implements Dispatcher (and wire.Dispatcher).
func (g *Global) Dispatch(req *gale.Request, resp *gale.Response) {
	g.chain.Invoke(req, resp, nil)
}
