package router

import (
	"strconv"
	"strings"

	"github.com/galehttp/gale/pkg/gale"
)

// NotFoundHandler customises the 404 response when no route matches.
type NotFoundHandler func(req *gale.Request, resp *gale.Response)

// MethodNotAllowedHandler customises the 405 response when a path
// matches a different method's route. allow is the computed Allow
// header value.
type MethodNotAllowedHandler func(req *gale.Request, resp *gale.Response, allow string)

// methodSet is the leaf of the methods-index tree: the set of methods
// registered for one route pattern, used to answer OPTIONS and to
// build the Allow header on 405 (spec.md §4.7). The Allow header always
// orders OPTIONS first, then HEAD and GET together when GET is
// registered, then any other methods in registration order — per
// spec.md §8 scenarios 3 and 4.
type methodSet struct {
	hasGet bool
	others []string
}

func (ms *methodSet) add(method string) {
	switch method {
	case "OPTIONS", "HEAD":
		return
	case "GET":
		ms.hasGet = true
		return
	}
	for _, m := range ms.others {
		if m == method {
			return
		}
	}
	ms.others = append(ms.others, method)
}

func (ms *methodSet) allow() string {
	methods := make([]string, 0, len(ms.others)+3)
	methods = append(methods, "OPTIONS")
	if ms.hasGet {
		methods = append(methods, "HEAD", "GET")
	}
	methods = append(methods, ms.others...)
	return strings.Join(methods, ", ")
}

// Router holds one compressed trie per registered HTTP method plus a
// shared methods-index trie used to answer OPTIONS and compute the
// Allow header on 405s (spec.md §4.7). Trees are built at registration
// time and then treated as read-only at match time, per spec.md §5.
type Router struct {
	trees        map[string]*node[gale.RoutedHandler]
	methodsIndex *node[methodSet]

	NotFound         NotFoundHandler
	MethodNotAllowed MethodNotAllowedHandler
}

// New returns an empty Router.
func New() *Router {
	return &Router{
		trees:        make(map[string]*node[gale.RoutedHandler]),
		methodsIndex: newNode[methodSet](""),
	}
}

// Register inserts handler for method and pattern, per spec.md §4.7.
// pattern must begin with '/'. Returns ErrDuplicateRoute,
// ErrAmbiguousWildcard, ErrPlaceholderNameConflict, or
// ErrInvalidPattern on a malformed or conflicting registration;
// these are startup-time errors and are never surfaced to clients
// (spec.md §7).
func (r *Router) Register(method, pattern string, handler gale.RoutedHandler) error {
	if pattern == "" || pattern[0] != '/' {
		return ErrInvalidPattern
	}
	method = strings.ToUpper(method)
	suffix := pattern[1:]

	tree := r.trees[method]
	if tree == nil {
		tree = newNode[gale.RoutedHandler]("")
		r.trees[method] = tree
	}

	if err := tree.insert(suffix, func(n *node[gale.RoutedHandler]) error {
		if n.leaf != nil {
			return ErrDuplicateRoute
		}
		h := handler
		n.leaf = &h
		return nil
	}); err != nil {
		return err
	}

	return r.methodsIndex.insert(suffix, func(n *node[methodSet]) error {
		if n.leaf == nil {
			n.leaf = &methodSet{}
		}
		n.leaf.add(method)
		return nil
	})
}

// Dispatch implements wire.Dispatcher: it resolves req.Method and
// req.Path() against the route trees and invokes the matching
// handler, or fills resp with a 404/405/204 per spec.md §4.7.
func (r *Router) Dispatch(req *gale.Request, resp *gale.Response) {
	method := strings.ToUpper(req.Method)
	if len(method) < 3 {
		r.respondNotFound(req, resp)
		return
	}
	suffix := strings.TrimPrefix(req.Path(), "/")

	switch method {
	case "GET", "POST", "PUT", "PATCH", "DELETE":
		if r.dispatchTree(method, req, resp, suffix) {
			return
		}
		r.respondUnmatched(req, resp, suffix)

	case "HEAD":
		if r.dispatchTree("GET", req, resp, suffix) {
			bodyLen := resp.Body.Len()
			resp.Body.Reset()
			resp.Headers.Set("Content-Length", strconv.Itoa(bodyLen))
			return
		}
		r.respondUnmatched(req, resp, suffix)

	case "OPTIONS":
		var captures gale.Captures
		if leaf := r.methodsIndex.match(suffix, &captures); leaf != nil {
			resp.Status = 204
			resp.Headers.Set("Allow", leaf.allow())
			return
		}
		r.respondNotFound(req, resp)

	default:
		r.respondUnmatched(req, resp, suffix)
	}
}

func (r *Router) dispatchTree(method string, req *gale.Request, resp *gale.Response, suffix string) bool {
	tree := r.trees[method]
	if tree == nil {
		return false
	}
	var captures gale.Captures
	leaf := tree.match(suffix, &captures)
	if leaf == nil {
		return false
	}
	resp.Status = 200
	(*leaf)(req, resp, captures)
	return true
}

func (r *Router) respondUnmatched(req *gale.Request, resp *gale.Response, suffix string) {
	var captures gale.Captures
	if leaf := r.methodsIndex.match(suffix, &captures); leaf != nil {
		resp.Status = 405
		resp.Headers.Set("Allow", leaf.allow())
		if r.MethodNotAllowed != nil {
			r.MethodNotAllowed(req, resp, leaf.allow())
		}
		return
	}
	r.respondNotFound(req, resp)
}

func (r *Router) respondNotFound(req *gale.Request, resp *gale.Response) {
	resp.Status = 404
	if r.NotFound != nil {
		r.NotFound(req, resp)
	}
}
