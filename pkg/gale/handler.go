package gale

// Handler answers a Request by mutating the supplied Response in place
// (spec.md §6.3).
type Handler func(req *Request, resp *Response)

// RoutedHandler is a Handler bound to a route, additionally receiving
// the placeholder captures the route tree extracted.
type RoutedHandler func(req *Request, resp *Response, captures Captures)

// AsRouted adapts a Handler to a RoutedHandler that ignores captures,
// for registering capture-free handlers (e.g. a metrics endpoint)
// directly with a router.
func AsRouted(h Handler) RoutedHandler {
	return func(req *Request, resp *Response, captures Captures) {
		h(req, resp)
	}
}

// Next invokes the remainder of a middleware chain: the following
// middleware, or the terminal handler once the chain is exhausted.
// It is single-use per invoking frame (spec.md §4.8).
type Next func(req *Request, resp *Response)

// Middleware may inspect or mutate the request/response, decide
// whether to call next at all (short-circuiting), and post-process
// whatever next returns.
type Middleware func(req *Request, resp *Response, next Next, captures Captures)

// Capture is one (name, value) placeholder binding produced by the
// route tree, in visit order.
type Capture struct {
	Name  string
	Value string
}

// Captures is an ordered sequence of placeholder bindings.
type Captures []Capture

// Get returns the first capture named name, if any.
func (c Captures) Get(name string) (string, bool) {
	for _, capture := range c {
		if capture.Name == name {
			return capture.Value, true
		}
	}
	return "", false
}
