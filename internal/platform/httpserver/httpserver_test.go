package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idscore/internal/platform/config"
)

func TestRunStopsOnCancel(t *testing.T) {
	srv := New(config.Server{Addr: "127.0.0.1:0"}, http.NotFoundHandler())
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, time.Second) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunReportsListenError(t *testing.T) {
	srv := New(config.Server{Addr: "not-an-address"}, http.NotFoundHandler())
	err := Run(context.Background(), srv, time.Second)
	require.Error(t, err)
}
