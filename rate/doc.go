// Package rate provides a lock-free rolling window rate limiter and the
// plumbing to put it in front of request handling code.
//
// # Overview
//
// RateWindow admits at most N events in any trailing span of a window D
// (one second by default). Its state is a ring of N slots, each holding
// the time of the last admission that claimed it, and a cursor naming
// the slot next in line. Admission uses only atomic compare-and-swap:
// no mutex, no blocking call on the fast path.
//
// # Admission
//
// TryAdmit reads the cursor c and the slot c % N. When the slot's last
// admission is older than D the caller advances the cursor from c to
// c+1 and, having won that race, stamps the slot with the current time.
// Only the winner of the cursor advance may stamp the slot; a failed
// stamp after a won advance means two writers own one slot, which is a
// broken invariant and panics. A slot that is still inside the window
// is never skipped, so the budget is handed out in strict ring order
// and the returned wait estimate is that of the least recently used
// slot.
//
// Results are durations: zero means admitted, anything positive is a
// lower bound on how long to wait before trying again.
//
// # Probing
//
// Peek and IsAdmitted only read. They look at the one slot addressed by
// the cursor and reserve nothing, so deciding on their result and then
// calling TryAdmit races with every other caller. WaitAdvisory sleeps
// for the Peek estimate and is a pacing aid only.
//
// # Blocking
//
// AdmitBlocking spins with runtime.Gosched until admitted. Admit does
// the same with timers and honours a context.
//
// # Managed limiters
//
// LimitManager keeps named limiters, each backed by its own RateWindow,
// and hands them to the components needing them:
//
//	mgr := rate.NewLimitManager(rate.WithMetrics(rate.NewMetrics(prometheus.DefaultRegisterer)))
//	api, _ := mgr.NewLimiter("api", 100, time.Second)
//
//	// HTTP and gRPC front doors
//	handler := rate.HTTPMiddleware(api)(mux)
//	srv := grpc.NewServer(grpc.UnaryInterceptor(rate.UnaryServerInterceptor(api)))
//
//	// one admission per chunk moved
//	limitedReader, _ := mgr.WrapReader(ctx, "api", reader)
//	defer limitedReader.Close()
//
// Limiters can also be declared in YAML and loaded with LoadConfig and
// LimitManager.Apply.
package rate
