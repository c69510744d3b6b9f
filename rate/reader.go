// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"io"
)

type RateLimitedReader interface {
	io.ReadCloser
}

type rlReader struct {
	ctx context.Context
	rc  io.ReadCloser
	lim *Limiter
}

// Read implements io.Reader with rate limiting.
//
// Every call is one admission on the limiter's window, taken BEFORE
// reading, and moves at most one chunk of the limiter. A short read
// still consumes the admission.
func (r *rlReader) Read(p []byte) (int, error) {
	chunk := len(p)
	if chunk > r.lim.chunk {
		chunk = r.lim.chunk
	}

	if err := r.lim.Wait(r.ctx); err != nil {
		return 0, err
	}

	return r.rc.Read(p[:chunk])
}

func (r *rlReader) Close() error {
	r.lim.SetInUse(false)
	return r.rc.Close()
}
