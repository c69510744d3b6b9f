// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"net/http"
)

type RateLimitedHTTPResponseWriter interface {
	http.ResponseWriter
	Close() error
}

type rlWriter struct {
	ctx context.Context
	w   http.ResponseWriter
	lim *Limiter
}

func (w *rlWriter) Header() http.Header {
	return w.w.Header()
}

func (w *rlWriter) WriteHeader(code int) {
	w.w.WriteHeader(code)
}

// Write implements http.ResponseWriter.Write with rate limiting.
//
// Data goes out in chunks no larger than the limiter chunk, each chunk
// taking one admission before it is written.
func (w *rlWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		chunk := len(p) - written
		if chunk > w.lim.chunk {
			chunk = w.lim.chunk
		}
		if err := w.lim.Wait(w.ctx); err != nil {
			return written, err
		}
		n, err := w.w.Write(p[written : written+chunk])
		written += n
		if err != nil {
			return written, err
		}
		// flush to reduce buffering latency for streaming
		if f, ok := w.w.(http.Flusher); ok {
			f.Flush()
		}
	}
	return written, nil
}

func (w *rlWriter) Close() error {
	w.lim.SetInUse(false)
	return nil
}
