// Package storage provides the keyed byte store backing all persisted
// chat state. It is a deliberately narrow Memento-style contract: higher
// layers (session history, preferences, endpoint list) each claim a key
// namespace and serialize their own values.
package storage

import "strings"

// KV is a flat keyed byte store. Implementations must be safe for
// concurrent use; writes are last-writer-wins at key granularity.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Keys lists all keys with the given prefix.
	Keys(prefix string) ([]string, error)
}

// Namespaced returns a view of kv confined to one logical concern. Keys
// are prefixed with "<ns>/" so concerns can never collide.
func Namespaced(kv KV, ns string) KV {
	return &nsKV{kv: kv, prefix: ns + "/"}
}

type nsKV struct {
	kv     KV
	prefix string
}

func (n *nsKV) Get(key string) ([]byte, bool, error) { return n.kv.Get(n.prefix + key) }
func (n *nsKV) Set(key string, value []byte) error   { return n.kv.Set(n.prefix+key, value) }
func (n *nsKV) Delete(key string) error              { return n.kv.Delete(n.prefix + key) }

func (n *nsKV) Keys(prefix string) ([]string, error) {
	keys, err := n.kv.Keys(n.prefix + prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, n.prefix))
	}
	return out, nil
}
