package history

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidekick/internal/identity"
	"sidekick/internal/storage"
	"sidekick/internal/transcript"
)

var alice = identity.Account{Authenticated: true, Endpoint: "https://example.com", Username: "alice"}

func newStore(t *testing.T, budget int) *Store {
	t.Helper()
	return New(storage.NewMemoryKV(), budget, zap.NewNop())
}

func session(t *testing.T, text string) *transcript.Transcript {
	t.Helper()
	tr := transcript.New()
	require.NoError(t, tr.AddHumanMessage(transcript.Message{Text: text}))
	require.NoError(t, tr.AddBotMessage(transcript.Message{Text: "reply to " + text}, "gemini-2.5-pro"))
	return tr
}

func TestSaveAndGetChat(t *testing.T) {
	s := newStore(t, 0)
	tr := session(t, "hello")

	warn, err := s.SaveChat(alice, tr)
	require.NoError(t, err)
	assert.False(t, warn)

	got, ok, err := s.GetChat(alice, tr.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tr.ID, got.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hello", got.Messages[0].Text)

	// Save is idempotent per id: overwrite, never append.
	tr.SetChatTitle("titled")
	_, err = s.SaveChat(alice, tr)
	require.NoError(t, err)
	list, err := s.ListChats(alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "titled", list[0].Title)
}

func TestUnauthenticatedIsNoop(t *testing.T) {
	s := newStore(t, 0)
	tr := session(t, "hello")

	warn, err := s.SaveChat(identity.Anonymous, tr)
	require.NoError(t, err)
	assert.False(t, warn)

	_, ok, err := s.GetChat(identity.Anonymous, tr.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := s.ListChats(identity.Anonymous)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.DeleteChat(identity.Anonymous, tr.ID))
	require.NoError(t, s.ImportHistory(identity.Anonymous, []*transcript.Transcript{tr}, true))
}

func TestAccountsArePartitioned(t *testing.T) {
	s := newStore(t, 0)
	bob := identity.Account{Authenticated: true, Endpoint: "https://example.com", Username: "bob"}

	trA := session(t, "alice chat")
	trB := session(t, "bob chat")
	_, err := s.SaveChat(alice, trA)
	require.NoError(t, err)
	_, err = s.SaveChat(bob, trB)
	require.NoError(t, err)

	_, ok, err := s.GetChat(alice, trB.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := s.ListChats(bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, trB.ID, list[0].ID)
}

func TestDeleteChat(t *testing.T) {
	s := newStore(t, 0)
	tr := session(t, "gone soon")
	_, err := s.SaveChat(alice, tr)
	require.NoError(t, err)

	require.NoError(t, s.DeleteChat(alice, tr.ID))
	_, ok, err := s.GetChat(alice, tr.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.DeleteChat(alice, "never-existed"))
}

func TestSizeBudgetWarning(t *testing.T) {
	s := newStore(t, 64) // tiny budget so one session trips it
	tr := session(t, strings.Repeat("long message ", 20))

	warn, err := s.SaveChat(alice, tr)
	require.NoError(t, err)
	assert.True(t, warn)

	// The save still went through.
	_, ok, err := s.GetChat(alice, tr.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestImportHistory(t *testing.T) {
	s := newStore(t, 0)
	existing := session(t, "existing")
	_, err := s.SaveChat(alice, existing)
	require.NoError(t, err)

	incoming := []*transcript.Transcript{session(t, "one"), session(t, "two"), nil}

	// merge=true keeps the existing session.
	require.NoError(t, s.ImportHistory(alice, incoming, true))
	list, err := s.ListChats(alice)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	// merge=false replaces everything.
	require.NoError(t, s.ImportHistory(alice, incoming[:1], false))
	list, err = s.ListChats(alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "one", list[0].Messages[0].Text)
}

func TestFrequentContextItems(t *testing.T) {
	s := newStore(t, 0)
	user := func(uri string) transcript.ContextItem {
		return transcript.ContextItem{Type: "file", URI: uri, Provenance: transcript.ProvenanceUser}
	}
	inferred := transcript.ContextItem{Type: "file", URI: "auto.go", Provenance: transcript.ProvenanceInferred}

	require.NoError(t, s.RecordContextItems(alice, []transcript.ContextItem{user("a.go"), inferred}))
	require.NoError(t, s.RecordContextItems(alice, []transcript.ContextItem{user("a.go"), user("b.go")}))

	items, err := s.FrequentContextItems(alice, 10)
	require.NoError(t, err)
	require.Len(t, items, 2, "inferred items must never be recorded")
	assert.Equal(t, "a.go", items[0].URI)
	assert.Equal(t, "b.go", items[1].URI)
}
