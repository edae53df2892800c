package sink

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cvloop/annotate"
	"github.com/opd-ai/cvloop/video"
)

const (
	wsWriteTimeout  = 10 * time.Second
	wsPingInterval  = 30 * time.Second
	wsReadTimeout   = 60 * time.Second
	wsSendQueueSize = 8
	defaultQuality  = 80
)

// wsShape is the JSON form of a shape descriptor.
type wsShape struct {
	Kind       string `json:"kind"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	HalfWidth  int    `json:"halfWidth,omitempty"`
	HalfHeight int    `json:"halfHeight,omitempty"`
	Radius     int    `json:"radius,omitempty"`
	Color      string `json:"color"`
	Line       int    `json:"line"`
}

// wsMetadata is the JSON message preceding each frame payload.
type wsMetadata struct {
	Title             string    `json:"title"`
	ColorMapOriginal  string    `json:"colormapOriginal,omitempty"`
	ColorMapProcessed string    `json:"colormapProcessed,omitempty"`
	Shapes            []wsShape `json:"shapes,omitempty"`
	Finished          bool      `json:"finished,omitempty"`
	HasFrame          bool      `json:"hasFrame"`
}

type wsEnvelope struct {
	metadata wsMetadata
	frame    []byte // JPEG bytes, nil on the terminal request
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan wsEnvelope
}

// WS streams render requests to connected websocket clients: a JSON
// metadata text message followed by the processed frame as a binary
// JPEG message. Slow clients drop frames rather than stall the
// playback loop.
type WS struct {
	upgrader websocket.Upgrader
	quality  int

	mu      sync.Mutex
	clients map[string]*wsClient
}

// NewWS creates a websocket render sink with default JPEG quality.
func NewWS() *WS {
	return NewWSWithQuality(defaultQuality)
}

// NewWSWithQuality creates a websocket render sink with the given JPEG
// quality (1-100, clamped).
func NewWSWithQuality(quality int) *WS {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}

	return &WS{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		quality: quality,
		clients: make(map[string]*wsClient),
	}
}

// ServeHTTP upgrades the connection and registers the client for frame
// delivery until it disconnects.
func (s *WS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "WS.ServeHTTP",
			"error":    err.Error(),
		}).Error("Websocket upgrade failed")
		return
	}

	client := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan wsEnvelope, wsSendQueueSize),
	}

	s.mu.Lock()
	s.clients[client.id] = client
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":  "WS.ServeHTTP",
		"client_id": client.id,
		"remote":    r.RemoteAddr,
	}).Info("Websocket client connected")

	go s.writePump(client)
	s.readPump(client)
}

// readPump drains incoming messages and detects disconnects.
func (s *WS) readPump(client *wsClient) {
	defer s.dropClient(client)

	client.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithFields(logrus.Fields{
					"function":  "WS.readPump",
					"client_id": client.id,
					"error":     err.Error(),
				}).Debug("Websocket read failed")
			}
			return
		}
	}
}

// writePump delivers queued envelopes and keepalive pings.
func (s *WS) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case env, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(env.metadata); err != nil {
				return
			}
			if env.frame != nil {
				if err := client.conn.WriteMessage(websocket.BinaryMessage, env.frame); err != nil {
					return
				}
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WS) dropClient(client *wsClient) {
	s.mu.Lock()
	if _, ok := s.clients[client.id]; ok {
		delete(s.clients, client.id)
		close(client.send)
	}
	s.mu.Unlock()
	client.conn.Close()

	logrus.WithFields(logrus.Fields{
		"function":  "WS.dropClient",
		"client_id": client.id,
	}).Info("Websocket client disconnected")
}

// ClientCount returns the number of connected clients.
func (s *WS) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Render encodes the request once and broadcasts it to every connected
// client. Clients with a full send queue skip this frame.
func (s *WS) Render(req *Request) error {
	env, err := s.encode(req)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, client := range s.clients {
		select {
		case client.send <- env:
		default:
			logrus.WithFields(logrus.Fields{
				"function":  "WS.Render",
				"client_id": client.id,
			}).Debug("Client queue full, dropping frame")
		}
	}
	return nil
}

// encode builds the shared envelope for one request.
func (s *WS) encode(req *Request) (wsEnvelope, error) {
	meta := wsMetadata{
		Title:             req.Title,
		ColorMapOriginal:  req.ColorMapOriginal,
		ColorMapProcessed: req.ColorMapProcessed,
		Finished:          req.Processed == nil,
		HasFrame:          req.Processed != nil,
	}
	for _, d := range req.Shapes {
		meta.Shapes = append(meta.Shapes, encodeShape(d))
	}

	env := wsEnvelope{metadata: meta}
	if req.Processed != nil {
		data, err := encodeJPEG(req.Processed, s.quality)
		if err != nil {
			return wsEnvelope{}, err
		}
		env.frame = data
	}
	return env, nil
}

func encodeShape(d annotate.ShapeDescriptor) wsShape {
	shape := wsShape{
		X:     d.X,
		Y:     d.Y,
		Color: fmt.Sprintf("#%02X%02X%02X", d.Color.R, d.Color.G, d.Color.B),
		Line:  d.Line,
	}
	switch d.Kind {
	case annotate.KindCircle:
		shape.Kind = "circle"
		shape.Radius = d.Radius
	default:
		shape.Kind = "rect"
		shape.HalfWidth = d.HalfWidth
		shape.HalfHeight = d.HalfHeight
	}
	return shape
}

func encodeJPEG(frame *video.Frame, quality int) ([]byte, error) {
	img, err := video.ToImage(frame)
	if err != nil {
		return nil, fmt.Errorf("frame not encodable: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encoding failed: %v", err)
	}
	return buf.Bytes(), nil
}
