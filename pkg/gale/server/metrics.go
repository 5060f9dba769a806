package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/galehttp/gale/pkg/gale"
)

// MetricsHandler returns a gale.Handler that gathers gatherer's metric
// families and writes them in Prometheus text exposition format. It
// never touches net/http; wire it to a path (e.g. "/metrics") via
// router.Register("GET", ...).
//
// Registering s.Stats and any other prometheus.Collector on gatherer
// before installing this handler is the caller's responsibility, e.g.:
//
//	registry := prometheus.NewRegistry()
//	registry.MustRegister(&srv.Stats)
//	router.Register("GET", "/metrics", gale.AsRouted(server.MetricsHandler(registry)))
func MetricsHandler(gatherer prometheus.Gatherer) gale.Handler {
	return func(req *gale.Request, resp *gale.Response) {
		families, err := gatherer.Gather()
		if err != nil {
			resp.Status = 500
			resp.WriteString("failed to gather metrics: " + err.Error())
			return
		}

		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		encoder := expfmt.NewEncoder(responseWriter{resp}, format)
		for _, mf := range families {
			if err := encoder.Encode(mf); err != nil {
				resp.Status = 500
				resp.WriteString("failed to encode metrics: " + err.Error())
				return
			}
		}
		resp.Status = 200
		resp.Headers.Set("Content-Type", string(format))
	}
}

// responseWriter adapts *gale.Response to io.Writer for callers (like
// expfmt.Encoder) that expect the standard Write(p []byte) (int, error)
// signature instead of gale's void-returning Response.Write.
type responseWriter struct {
	resp *gale.Response
}

func (w responseWriter) Write(p []byte) (int, error) {
	w.resp.Write(p)
	return len(p), nil
}
