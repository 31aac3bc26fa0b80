package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_RequiresManager(t *testing.T) {
	app := NewApp(testLogger(), nil, nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	m, err := NewManager(ServerOptions{Listen: freeAddr(t)}, Deps{
		Logger:     testLogger(),
		APIHandler: okHandler(),
	})
	require.NoError(t, err)

	app := NewApp(testLogger(), m, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop after context cancellation")
	}
}
