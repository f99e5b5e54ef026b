package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carteira/pkg/logger"
)

func TestServer_Run(t *testing.T) {
	config := DefaultServerConfig("0")
	config.Addr = "127.0.0.1:0"
	config.ShutdownTimeout = time.Second

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	server := NewServer(config, handler, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx, ready) }()

	addr := <-ready
	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenError(t *testing.T) {
	server := NewServer(ServerConfig{Addr: "256.0.0.1:bad"}, http.NotFoundHandler(), logger.Nop())
	err := server.Run(context.Background(), nil)
	assert.Error(t, err)
}
