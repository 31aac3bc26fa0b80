package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_GetAndReload(t *testing.T) {
	path := writeConfigFile(t, `
listen: ":9090"
ura:
  accessKey: k
`)
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewHolder(initial, loader, path)
	assert.Equal(t, ":9090", holder.Get().Listen)

	// Rewrite the file and reload manually.
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9191"
ura:
  accessKey: k
`), 0o600))
	require.NoError(t, holder.Reload(context.Background()))
	assert.Equal(t, ":9191", holder.Get().Listen)
}

func TestHolder_ReloadKeepsOldConfigOnFailure(t *testing.T) {
	path := writeConfigFile(t, `
listen: ":9090"
ura:
  accessKey: k
`)
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewHolder(initial, loader, path)

	// Break the file: unknown field fails the strict parse.
	require.NoError(t, os.WriteFile(path, []byte("nonsense: true\n"), 0o600))
	require.Error(t, holder.Reload(context.Background()))
	assert.Equal(t, ":9090", holder.Get().Listen, "old config must stay in effect")
}

func TestHolder_NotifiesListeners(t *testing.T) {
	path := writeConfigFile(t, `
listen: ":9090"
ura:
  accessKey: k
`)
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewHolder(initial, loader, path)
	ch := make(chan AppConfig, 1)
	holder.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9191"
ura:
  accessKey: k
`), 0o600))
	require.NoError(t, holder.Reload(context.Background()))

	select {
	case cfg := <-ch:
		assert.Equal(t, ":9191", cfg.Listen)
	case <-time.After(time.Second):
		t.Fatal("listener was not notified")
	}
}

func TestHolder_WatcherReloadsOnWrite(t *testing.T) {
	path := writeConfigFile(t, `
listen: ":9090"
ura:
  accessKey: k
`)
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewHolder(initial, loader, path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, holder.StartWatcher(ctx))
	defer holder.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9292"
ura:
  accessKey: k
`), 0o600))

	// Debounced reload; give the watcher a moment.
	require.Eventually(t, func() bool {
		return holder.Get().Listen == ":9292"
	}, 5*time.Second, 100*time.Millisecond)
}

func TestHolder_WatcherDisabledWithoutPath(t *testing.T) {
	holder := NewHolder(AppConfig{}, NewLoader("", "test"), "")
	require.NoError(t, holder.StartWatcher(context.Background()))
}
