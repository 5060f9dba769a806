package router

import (
	"testing"

	"github.com/galehttp/gale/pkg/gale"
)

func handlerReturning(body string) gale.RoutedHandler {
	return func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		resp.WriteString(body)
	}
}

func dispatch(r *Router, method, path string) *gale.Response {
	req := gale.NewRequest()
	req.Method = method
	req.Target = path
	req.Proto = "HTTP/1.1"
	resp := gale.NewResponse()
	r.Dispatch(req, resp)
	return resp
}

func TestRegisterAndDispatchLiteral(t *testing.T) {
	r := New()
	if err := r.Register("GET", "/users", handlerReturning("list")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp := dispatch(r, "GET", "/users")
	if resp.Status != 200 {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}
	if string(resp.Body.Bytes()) != "list" {
		t.Fatalf("body = %q, want list", resp.Body.Bytes())
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	r.Register("GET", "/users", handlerReturning("a"))
	if err := r.Register("GET", "/users", handlerReturning("b")); err != ErrDuplicateRoute {
		t.Fatalf("err = %v, want ErrDuplicateRoute", err)
	}
}

func TestPlaceholderCapture(t *testing.T) {
	r := New()
	r.Register("GET", "/users/:id", func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		id, _ := captures.Get("id")
		resp.WriteString("user:" + id)
	})

	resp := dispatch(r, "GET", "/users/42")
	if string(resp.Body.Bytes()) != "user:42" {
		t.Fatalf("body = %q, want user:42", resp.Body.Bytes())
	}
}

func TestMultiplePlaceholdersInOrder(t *testing.T) {
	r := New()
	r.Register("GET", "/events/:year/:month/:day/:name/visitors", func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		for _, c := range captures {
			resp.WriteString(c.Name + "=" + c.Value + ";")
		}
	})

	resp := dispatch(r, "GET", "/events/2026/07/31/launch/visitors")
	want := "year=2026;month=07;day=31;name=launch;"
	if string(resp.Body.Bytes()) != want {
		t.Fatalf("body = %q, want %q", resp.Body.Bytes(), want)
	}
}

func TestDeepWildcardCapturesRemainder(t *testing.T) {
	r := New()
	r.Register("GET", "/files/*", func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		rest, _ := captures.Get("*")
		resp.WriteString(rest)
	})

	resp := dispatch(r, "GET", "/files/a/b/c.txt")
	if string(resp.Body.Bytes()) != "a/b/c.txt" {
		t.Fatalf("body = %q, want a/b/c.txt", resp.Body.Bytes())
	}
}

func TestDeepWildcardConflictIsRejected(t *testing.T) {
	r := New()
	r.Register("GET", "/files/*", handlerReturning("a"))
	if err := r.Register("GET", "/files/:name", handlerReturning("b")); err != ErrAmbiguousWildcard {
		t.Fatalf("err = %v, want ErrAmbiguousWildcard", err)
	}
}

func TestLiteralBranchSplitOnSharedPrefix(t *testing.T) {
	r := New()
	r.Register("GET", "/team", handlerReturning("team"))
	r.Register("GET", "/teapot", handlerReturning("teapot"))

	if resp := dispatch(r, "GET", "/team"); string(resp.Body.Bytes()) != "team" {
		t.Fatalf("/team body = %q", resp.Body.Bytes())
	}
	if resp := dispatch(r, "GET", "/teapot"); string(resp.Body.Bytes()) != "teapot" {
		t.Fatalf("/teapot body = %q", resp.Body.Bytes())
	}
}

func TestUnmatchedPathIs404(t *testing.T) {
	r := New()
	r.Register("GET", "/users", handlerReturning("ok"))

	resp := dispatch(r, "GET", "/missing")
	if resp.Status != 404 {
		t.Fatalf("Status = %d, want 404", resp.Status)
	}
}

func TestOtherMethodIs405WithAllow(t *testing.T) {
	r := New()
	r.Register("GET", "/users", handlerReturning("ok"))
	r.Register("POST", "/users", handlerReturning("ok"))

	resp := dispatch(r, "DELETE", "/users")
	if resp.Status != 405 {
		t.Fatalf("Status = %d, want 405", resp.Status)
	}
	allow := resp.Headers.GetFirst("Allow")
	if allow == "" {
		t.Fatal("Allow header missing")
	}
}

func TestOptionsRespondsWithAllow(t *testing.T) {
	r := New()
	r.Register("GET", "/users", handlerReturning("ok"))

	resp := dispatch(r, "OPTIONS", "/users")
	if resp.Status != 204 {
		t.Fatalf("Status = %d, want 204", resp.Status)
	}
	allow := resp.Headers.GetFirst("Allow")
	if allow != "OPTIONS, HEAD, GET" {
		t.Fatalf("Allow = %q, want %q", allow, "OPTIONS, HEAD, GET")
	}
}

func TestOptionsOrdersHeadAndGetBeforeOtherMethods(t *testing.T) {
	r := New()
	r.Register("GET", "/items/:id", handlerReturning("ok"))
	r.Register("DELETE", "/items/:id", handlerReturning("ok"))

	resp := dispatch(r, "OPTIONS", "/items/42")
	if resp.Status != 204 {
		t.Fatalf("Status = %d, want 204", resp.Status)
	}
	allow := resp.Headers.GetFirst("Allow")
	if allow != "OPTIONS, HEAD, GET, DELETE" {
		t.Fatalf("Allow = %q, want %q", allow, "OPTIONS, HEAD, GET, DELETE")
	}
}

func TestHeadUsesGetTreeAndDropsBody(t *testing.T) {
	r := New()
	r.Register("GET", "/users", handlerReturning("hello"))

	resp := dispatch(r, "HEAD", "/users")
	if resp.Status != 200 {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("Body.Len() = %d, want 0", resp.Body.Len())
	}
	if resp.Headers.GetFirst("Content-Length") != "5" {
		t.Fatalf("Content-Length = %q, want 5", resp.Headers.GetFirst("Content-Length"))
	}
}

func TestShortMethodIsRejectedAs404(t *testing.T) {
	r := New()
	resp := dispatch(r, "HI", "/users")
	if resp.Status != 404 {
		t.Fatalf("Status = %d, want 404", resp.Status)
	}
}
