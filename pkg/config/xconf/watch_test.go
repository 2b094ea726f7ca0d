package xconf

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnChange(t *testing.T) {
	path := writeTemp(t, "guard.yaml", "txn:\n  lock_ttl: 10s\n")
	src, err := NewSource(path)
	require.NoError(t, err)

	var reloads atomic.Int32
	var lastErr atomic.Value
	w, err := Watch(src, func(src *Source, err error) {
		if err != nil {
			lastErr.Store(err)
			return
		}
		reloads.Add(1)
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	w.Start()
	w.Start() // 重复启动无效果

	require.NoError(t, os.WriteFile(path, []byte("txn:\n  lock_ttl: 20s\n"), 0o600))

	require.Eventually(t, func() bool {
		return reloads.Load() >= 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Nil(t, lastErr.Load())

	cfg, err := unmarshalGuard(src)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.Txn.LockTTL)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop()) // 幂等
}

func TestWatchRequiresFileSource(t *testing.T) {
	src, err := NewSourceFromBytes(nil, FormatYAML)
	require.NoError(t, err)

	_, err = Watch(src, nil)
	require.ErrorIs(t, err, ErrNotReloadable)

	_, err = Watch(nil, nil)
	require.ErrorIs(t, err, ErrNotReloadable)
}
