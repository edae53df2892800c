// Package sink defines the render sink capability that receives one
// render request per playback tick, plus sinks for discarding output
// and for streaming it to websocket clients.
package sink

import (
	"github.com/opd-ai/cvloop/annotate"
	"github.com/opd-ai/cvloop/video"
)

// Request carries everything a sink needs to paint one tick.
//
// Original is nil unless side-by-side display is enabled. Processed is
// nil only on the terminal "Finished" request. Empty colormap names
// mean natural rendering for that slot.
type Request struct {
	Original          *video.Frame
	Processed         *video.Frame
	ColorMapOriginal  string
	ColorMapProcessed string
	Title             string
	Shapes            []annotate.ShapeDescriptor
}

// RenderSink performs the actual paint. It is invoked once per tick
// from the playback goroutine; implementations that fan out to other
// goroutines must do their own synchronization.
type RenderSink interface {
	Render(req *Request) error
}

// Null discards every request. Useful as a placeholder and in
// benchmarks.
type Null struct{}

// Render does nothing.
func (Null) Render(req *Request) error {
	return nil
}
