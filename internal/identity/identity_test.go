package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountKey(t *testing.T) {
	a := Account{Authenticated: true, Endpoint: "https://example.com/", Username: "alice"}
	assert.Equal(t, "example.com-alice", a.Key())

	b := Account{Authenticated: true, Endpoint: "http://localhost:7080", Username: "bob"}
	assert.Equal(t, "localhost:7080-bob", b.Key())

	assert.Empty(t, Anonymous.Key())
	assert.Empty(t, Account{Endpoint: "https://example.com", Username: "carol"}.Key())
}
