package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamView_HeartbeatIsComment(t *testing.T) {
	engine := gin.New()
	engine.GET("/stream", func(c *gin.Context) {
		streamView(c, Streamer{Heartbeat: 10 * time.Millisecond}, "tick",
			func(func(int)) func() { return func() {} },
			func() (any, error) { return gin.H{"n": 1}, nil })
	})
	srv := httptest.NewServer(engine)
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, "event:tick\ndata:{\"n\":1}\n", readFrame(t, r))
	assert.Equal(t, ": heartbeat\n", readFrame(t, r))
}

func TestLatest_KeepsNewest(t *testing.T) {
	l := newLatest[int]()
	l.put(1)
	l.put(2)
	l.put(3)

	assert.Equal(t, 3, <-l.ch)
	select {
	case v := <-l.ch:
		t.Fatalf("unexpected buffered value %d", v)
	default:
	}
}
