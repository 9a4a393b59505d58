package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// kvVariants runs the same contract checks against every implementation.
func kvVariants(t *testing.T) map[string]KV {
	t.Helper()
	sq, err := OpenSQLite(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]KV{
		"memory": NewMemoryKV(),
		"sqlite": sq,
	}
}

func TestKVRoundTrip(t *testing.T) {
	for name, kv := range kvVariants(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set("a", []byte("1")))
			require.NoError(t, kv.Set("a", []byte("2"))) // overwrite

			v, ok, err := kv.Get("a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("2"), v)

			require.NoError(t, kv.Delete("a"))
			require.NoError(t, kv.Delete("a")) // idempotent
			_, ok, err = kv.Get("a")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestKVKeysPrefix(t *testing.T) {
	for name, kv := range kvVariants(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Set("history/acct1/s1", []byte("x")))
			require.NoError(t, kv.Set("history/acct1/s2", []byte("x")))
			require.NoError(t, kv.Set("history/acct2/s1", []byte("x")))
			require.NoError(t, kv.Set("prefs/theme", []byte("x")))

			keys, err := kv.Keys("history/acct1/")
			require.NoError(t, err)
			assert.Equal(t, []string{"history/acct1/s1", "history/acct1/s2"}, keys)
		})
	}
}

func TestNamespaced(t *testing.T) {
	kv := NewMemoryKV()
	hist := Namespaced(kv, "history")
	prefs := Namespaced(kv, "prefs")

	require.NoError(t, hist.Set("s1", []byte("h")))
	require.NoError(t, prefs.Set("s1", []byte("p")))

	v, ok, err := hist.Get("s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("h"), v)

	keys, err := hist.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, keys)

	// The raw store sees the prefixed form.
	raw, err := kv.Keys("history/")
	require.NoError(t, err)
	assert.Equal(t, []string{"history/s1"}, raw)
}

func TestLikePatternEscaping(t *testing.T) {
	kv, err := OpenSQLite(":memory:", zap.NewNop())
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Set("a_b/1", []byte("x")))
	require.NoError(t, kv.Set("axb/1", []byte("x")))

	keys, err := kv.Keys("a_b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b/1"}, keys)
}
