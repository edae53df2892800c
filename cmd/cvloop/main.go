// Demo server: plays a synthetic test pattern through the playback loop
// and streams the result to browsers over a websocket.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cvloop"
	"github.com/opd-ai/cvloop/sink"
	"github.com/opd-ai/cvloop/source"
	"github.com/opd-ai/cvloop/transform"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
		}).Debug("No .env file found, using environment defaults")
	}

	addr := flag.String("addr", envOr("CVLOOP_ADDR", ":8080"), "HTTP listen address")
	path := flag.String("path", "", "directory of image files to play instead of the test pattern")
	width := flag.Int("width", 640, "test pattern width")
	height := flag.Int("height", 480, "test pattern height")
	frames := flag.Int("frames", 0, "number of frames to play, 0 for unbounded")
	interval := flag.Duration("interval", cvloop.DefaultInterval, "tick cadence")
	sideBySide := flag.Bool("side-by-side", false, "render the original frame next to the processed one")
	invert := flag.Bool("invert", false, "apply the invert effect")
	quality := flag.Int("quality", 80, "JPEG quality for streamed frames")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ws := sink.NewWSWithQuality(*quality)

	options := cvloop.NewOptions()
	options.Sink = ws
	options.SideBySide = *sideBySide
	options.Interval = *interval
	options.PrintInfo = true
	if *path != "" {
		options.Path = *path
	} else {
		options.Source = source.NewPattern(*width, *height, *frames)
		options.SourceOwned = true
	}
	if *invert {
		options.Transform = transform.NewInvert(255)
	}

	loop, err := cvloop.New(options)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err.Error(),
		}).Fatal("Failed to create playback loop")
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(loop.State().String()))
	})

	server := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"addr":     *addr,
		}).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithFields(logrus.Fields{
				"function": "main",
				"error":    err.Error(),
			}).Fatal("HTTP server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err.Error(),
		}).Error("Playback loop halted")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	logrus.WithFields(logrus.Fields{
		"function": "main",
	}).Info("Shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
