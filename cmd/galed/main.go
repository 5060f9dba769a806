// Command galed is an example gale server: it wires a router,
// built-in middleware, and the connection server together using only
// gale's own types.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/galehttp/gale/pkg/gale"
	"github.com/galehttp/gale/pkg/gale/middleware"
	"github.com/galehttp/gale/pkg/gale/router"
	"github.com/galehttp/gale/pkg/gale/server"
)

type user struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func jsonHandler(status int, v any) gale.RoutedHandler {
	return func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		body, err := json.Marshal(v)
		if err != nil {
			resp.Status = 500
			resp.WriteString(err.Error())
			return
		}
		resp.Status = status
		resp.Headers.Set("Content-Type", "application/json")
		resp.Write(body)
	}
}

func main() {
	r := router.New()

	r.Register("GET", "/", jsonHandler(200, map[string]string{
		"message": "Hello, gale!",
	}))

	r.Register("GET", "/health", jsonHandler(200, map[string]string{"status": "healthy"}))

	r.Register("GET", "/users/:id", func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		id, _ := captures.Get("id")
		body, _ := json.Marshal(user{ID: id, Name: "Alice", Email: "alice@example.com"})
		resp.Status = 200
		resp.Headers.Set("Content-Type", "application/json")
		resp.Write(body)
	})

	r.Register("GET", "/files/*", func(req *gale.Request, resp *gale.Response, captures gale.Captures) {
		rest, _ := captures.Get("*")
		resp.WriteString("serving: " + rest)
	})

	registry := prometheus.NewRegistry()

	global := middleware.NewGlobal(r,
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.CORS(),
		middleware.Compress(),
	)

	metricsRouter := router.New()
	metricsRouter.Register("GET", "/metrics", gale.AsRouted(server.MetricsHandler(registry)))
	fullGlobal := middleware.NewGlobal(dispatcherFunc(func(req *gale.Request, resp *gale.Response) {
		if req.Path() == "/metrics" {
			metricsRouter.Dispatch(req, resp)
			return
		}
		global.Dispatch(req, resp)
	}))

	config := server.DefaultConfig()
	config.Addr = ":8080"

	srv := server.New(config, fullGlobal)
	registry.MustRegister(&srv.Stats)

	log.Println("gale listening on :8080")

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("gale: serve error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("gale: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("gale: shutdown error: %v", err)
	}
}

type dispatcherFunc func(req *gale.Request, resp *gale.Response)

func (f dispatcherFunc) Dispatch(req *gale.Request, resp *gale.Response) {
	f(req, resp)
}
