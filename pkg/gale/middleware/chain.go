// Package middleware implements the explicit-cursor middleware chain
// of spec.md §4.8 and a set of built-in middlewares grounded on the
// teacher framework's cross-cutting handlers.
package middleware

import "github.com/galehttp/gale/pkg/gale"

// Chain composes a sequence of Middleware around a terminal
// RoutedHandler. Invoke drives the cursor described in spec.md §4.8:
// m0 runs first and receives a Next bound to position 1; calling next
// advances one position until the terminal runs.
type Chain struct {
	middlewares []gale.Middleware
	terminal    gale.RoutedHandler
}

// NewChain returns a Chain that runs ms in order before terminal.
func NewChain(terminal gale.RoutedHandler, ms ...gale.Middleware) *Chain {
	return &Chain{middlewares: ms, terminal: terminal}
}

// Invoke runs the chain against req/resp, returning once the terminal
// handler (or an earlier short-circuiting middleware) completes.
func (c *Chain) Invoke(req *gale.Request, resp *gale.Response, captures gale.Captures) {
	cursor{chain: c, pos: 0, captures: captures}.run(req, resp)
}

// cursor is the Next-producing state spec.md §4.8 describes: a
// position into the chain plus the captures threaded through
// unchanged. A fresh cursor is built for each position in the chain;
// single use is not enforced, so calling the same Next twice runs the
// rest of the chain twice.
type cursor struct {
	chain    *Chain
	pos      int
	captures gale.Captures
}

func (cur cursor) run(req *gale.Request, resp *gale.Response) {
	if cur.pos >= len(cur.chain.middlewares) {
		cur.chain.terminal(req, resp, cur.captures)
		return
	}
	m := cur.chain.middlewares[cur.pos]
	next := cursor{chain: cur.chain, pos: cur.pos + 1, captures: cur.captures}
	m(req, resp, next.run, cur.captures)
}

// Wrap turns a Chain into a gale.RoutedHandler, suitable for
// registering directly with a router.Router.
func (c *Chain) Wrap() gale.RoutedHandler {
	return func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		c.Invoke(req, resp, captures)
	}
}
