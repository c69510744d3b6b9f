// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const rateLimitExceededMessage = "rate limit exceeded, retry later"

// retryAfterSeconds rounds a wait estimate up to whole seconds, as
// expected by the Retry-After header
func retryAfterSeconds(wait time.Duration) int {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// HTTPMiddleware admits every request through the limiter, rejected
// requests get 429 Too Many Requests with a Retry-After header.
func HTTPMiddleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wait := l.Reserve()
			if wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(rateLimitExceededMessage))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UnaryServerInterceptor admits every unary call through the limiter,
// rejected calls fail with codes.ResourceExhausted
func UnaryServerInterceptor(l *Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if wait := l.Reserve(); wait > 0 {
			return nil, status.Errorf(codes.ResourceExhausted, "%s: %s, retry in %s", info.FullMethod, rateLimitExceededMessage, wait)
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor admits every stream through the limiter when
// it is opened, messages within the stream are not limited
func StreamServerInterceptor(l *Limiter) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if wait := l.Reserve(); wait > 0 {
			return status.Errorf(codes.ResourceExhausted, "%s: %s, retry in %s", info.FullMethod, rateLimitExceededMessage, wait)
		}
		return handler(srv, ss)
	}
}
