// Package live serves a stream surface to websocket clients.
//
// A Server owns no reactive state. The runtime, the component and the
// stream.Surface it renders into all belong to a scheduler.Loop; the server
// touches the surface only from tasks submitted to that loop, and from
// FlushFinished, which the scheduler calls on the loop goroutine.
//
// Wiring, in order:
//
//	loop := scheduler.NewLoop()
//	surf := stream.New()
//	srv := live.New(loop, surf)
//	rt := reactive.New(reactive.WithHost(loop), reactive.WithObserver(srv))
//
// A connecting client first receives the patches that rebuild the current
// output (or, with ?mode=html, a snapshot of the HTML), then one frame per
// flush. Clients whose send queue fills up are dropped.
//
// Routes:
//
//	GET /            current HTML
//	GET /healthz     liveness
//	GET /frame       snapshot frames, binary
//	GET <wsPath>     websocket (default /ws)
//	GET <metrics>    Prometheus metrics, when WithGatherer is used
package live
