// Package cvloop implements a video playback loop: frames are acquired
// from a source at a fixed cadence, passed through a user-supplied
// transform, optionally composited with a detector-anchored overlay and
// annotated with time-indexed vector shapes, and pushed to a render
// sink.
//
// The package is the playback controller; frame acquisition, bounding
// box detection, and the surface that actually paints pixels are
// external capabilities supplied through the source, detect, and sink
// packages.
//
// # Getting Started
//
// Create a loop over a frame source and a render sink, then drive it:
//
//	options := cvloop.NewOptions()
//	options.Source = source.NewPattern(640, 480, 0)
//	options.Sink = sink.NewWS()
//	options.Transform = transform.NewInvert(255)
//
//	loop, err := cvloop.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := loop.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Pause, Resume, and Stop are the lifecycle handlers a host UI wires to
// its own events. They are idempotent, and every event delivered after
// the loop finished is a no-op.
//
// # Ticks
//
// Each tick (default every 50 ms) acquires one frame and runs the
// pipeline:
//
//	Read → Channel Order Conversion → Transform → Overlay → Color Policy → Annotations → Sink
//
// Ticks are serialized; a read that blocks on I/O delays the next
// render but never corrupts state. End-of-stream is natural
// termination: the loop releases an owned source exactly once and sends
// a final "Finished" status to the sink.
package cvloop
