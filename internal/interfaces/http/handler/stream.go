package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// heartbeatFrame is an SSE comment; clients ignore it
const heartbeatFrame = ": heartbeat\n\n"

// Streamer pushes view snapshots to a client as server-sent events
type Streamer struct {
	Heartbeat time.Duration
}

// latest keeps only the newest undelivered value; senders never block
type latest[T any] struct {
	ch chan T
}

func newLatest[T any]() *latest[T] {
	return &latest[T]{ch: make(chan T, 1)}
}

func (l *latest[T]) put(v T) {
	for {
		select {
		case l.ch <- v:
			return
		default:
		}
		select {
		case <-l.ch:
		default:
		}
	}
}

// streamView sends event with render() now and after every change reported
// through subscribe, until the client disconnects. Intermediate snapshots
// are coalesced when the client reads slower than the store changes.
func streamView[T any](c *gin.Context, s Streamer, event string, subscribe func(func(T)) func(), render func() (any, error)) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	// the server's write timeout would otherwise cut the stream
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	log := logger.GetGinLogger(c)
	send := func() bool {
		data, err := render()
		if err != nil {
			c.SSEvent("error", gin.H{"message": err.Error()})
		} else {
			c.SSEvent(event, data)
		}
		c.Writer.Flush()
		return c.Request.Context().Err() == nil
	}

	changes := newLatest[T]()
	cancel := subscribe(changes.put)
	defer cancel()

	log.Debug("SSE client connected", zap.String("event", event))
	if !send() {
		return
	}

	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			log.Debug("SSE client disconnected", zap.String("event", event))
			return
		case <-ticker.C:
			if _, err := c.Writer.WriteString(heartbeatFrame); err != nil {
				return
			}
			c.Writer.Flush()
		case <-changes.ch:
			if !send() {
				return
			}
		}
	}
}
