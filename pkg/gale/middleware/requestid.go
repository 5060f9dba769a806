package middleware

import (
	"github.com/google/uuid"

	"github.com/galehttp/gale/pkg/gale"
)

// RequestIDHeader is the header a request's ID is read from and a
// response's ID is written to.
const RequestIDHeader = "X-Request-Id"

// RequestIDAttr is the Request.Attributes key the resolved ID is
// stored under.
const RequestIDAttr = "request_id"

// RequestID returns a middleware that assigns each request a UUIDv4,
// reusing one supplied by the caller in the X-Request-Id header,
// storing it as an attribute for downstream handlers/middleware (e.g.
// Logger), and echoing it back on the response.
func RequestID() gale.Middleware {
	return func(req *gale.Request, resp *gale.Response, next gale.Next, captures gale.Captures) {
		id := req.Headers.GetFirst(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		req.SetAttr(RequestIDAttr, id)
		resp.Headers.Set(RequestIDHeader, id)
		next(req, resp)
	}
}
