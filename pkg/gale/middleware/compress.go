package middleware

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/galehttp/gale/pkg/gale"
)

// CompressConfig configures Compress.
type CompressConfig struct {
	// MinLength is the smallest body size, in bytes, worth compressing.
	// Default 256.
	MinLength int
	// GzipLevel is passed to klauspost/compress/gzip. Default
	// gzip.DefaultCompression.
	GzipLevel int
	// BrotliQuality is passed to andybalholm/brotli. Default 5.
	BrotliQuality int
}

// DefaultCompressConfig returns balanced defaults for both codecs.
func DefaultCompressConfig() CompressConfig {
	return CompressConfig{MinLength: 256, GzipLevel: gzip.DefaultCompression, BrotliQuality: 5}
}

// Compress returns a middleware that runs the rest of the chain, then
// compresses the resulting body with brotli or gzip according to the
// request's Accept-Encoding, preferring brotli when both are
// acceptable. Responses already carrying a Content-Encoding, and
// bodies shorter than config.MinLength, are left untouched.
func Compress() gale.Middleware {
	return CompressWithConfig(DefaultCompressConfig())
}

// CompressWithConfig returns a Compress middleware with custom
// thresholds and codec levels.
func CompressWithConfig(config CompressConfig) gale.Middleware {
	if config.MinLength == 0 {
		config.MinLength = 256
	}

	return func(req *gale.Request, resp *gale.Response, next gale.Next, captures gale.Captures) {
		next(req, resp)

		if resp.Headers.Contains("Content-Encoding") {
			return
		}
		body := resp.Body.Bytes()
		if len(body) < config.MinLength {
			return
		}

		accept := req.Headers.GetFirst("Accept-Encoding")
		switch {
		case strings.Contains(accept, "br"):
			var buf bytes.Buffer
			w := brotli.NewWriterLevel(&buf, config.BrotliQuality)
			if _, err := w.Write(body); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
			resp.Body.Reset()
			resp.Body.Write(buf.Bytes())
			resp.Headers.Set("Content-Encoding", "br")
			resp.Headers.Set("Content-Length", strconv.Itoa(buf.Len()))

		case strings.Contains(accept, "gzip"):
			var buf bytes.Buffer
			w, err := gzip.NewWriterLevel(&buf, config.GzipLevel)
			if err != nil {
				return
			}
			if _, err := w.Write(body); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
			resp.Body.Reset()
			resp.Body.Write(buf.Bytes())
			resp.Headers.Set("Content-Encoding", "gzip")
			resp.Headers.Set("Content-Length", strconv.Itoa(buf.Len()))
		}
	}
}
