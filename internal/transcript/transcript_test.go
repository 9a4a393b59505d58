package transcript

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func human(text string) Message {
	return Message{Speaker: SpeakerHuman, Text: text}
}

func TestSpeakerAlternation(t *testing.T) {
	tr := New()

	require.NoError(t, tr.AddHumanMessage(human("hello")))
	assert.ErrorIs(t, tr.AddHumanMessage(human("again")), ErrSpeakerOrder)

	require.NoError(t, tr.AddBotMessage(Message{Text: "hi"}, "gemini-2.5-pro"))
	assert.Equal(t, "gemini-2.5-pro", tr.Messages[1].Model)
	assert.ErrorIs(t, tr.AddBotMessage(Message{Text: "extra"}, "m"), ErrSpeakerOrder)

	// A bot message may never open a transcript.
	empty := New()
	assert.ErrorIs(t, empty.AddBotMessage(Message{Text: "hi"}, "m"), ErrSpeakerOrder)
}

func TestRemoveMessagesFromIndex(t *testing.T) {
	tr := New()
	require.NoError(t, tr.AddHumanMessage(human("one")))
	require.NoError(t, tr.AddBotMessage(Message{Text: "1"}, "m"))
	require.NoError(t, tr.AddHumanMessage(human("two")))
	require.NoError(t, tr.AddBotMessage(Message{Text: "2"}, "m"))

	// Wrong speaker at index: no-op.
	tr.RemoveMessagesFromIndex(1, SpeakerHuman)
	assert.Len(t, tr.Messages, 4)

	// Out of range: no-op.
	tr.RemoveMessagesFromIndex(9, SpeakerHuman)
	tr.RemoveMessagesFromIndex(-1, SpeakerHuman)
	assert.Len(t, tr.Messages, 4)

	// Truncation is inclusive and exact.
	tr.RemoveMessagesFromIndex(2, SpeakerHuman)
	require.Len(t, tr.Messages, 2)
	assert.Equal(t, "one", tr.Messages[0].Text)
}

func TestReplaceInMessage(t *testing.T) {
	tr := New()
	require.NoError(t, tr.AddHumanMessage(human("q")))
	require.NoError(t, tr.AddBotMessage(Message{Text: "use foo(); then foo();"}, "m"))

	assert.False(t, tr.ReplaceInMessage(1, "bar()", "baz()"))
	assert.Equal(t, "use foo(); then foo();", tr.Messages[1].Text)

	assert.False(t, tr.ReplaceInMessage(5, "foo()", "baz()"))
	assert.False(t, tr.ReplaceInMessage(1, "", "baz()"))

	// Exactly one occurrence is replaced.
	assert.True(t, tr.ReplaceInMessage(1, "foo()", "bar()"))
	assert.Equal(t, "use bar(); then foo();", tr.Messages[1].Text)
}

func TestGetLastSpeakerMessageIndex(t *testing.T) {
	tr := New()
	_, ok := tr.GetLastSpeakerMessageIndex(SpeakerHuman)
	assert.False(t, ok)

	require.NoError(t, tr.AddHumanMessage(human("one")))
	require.NoError(t, tr.AddBotMessage(Message{Text: "1"}, "m"))
	require.NoError(t, tr.AddHumanMessage(human("two")))

	i, ok := tr.GetLastSpeakerMessageIndex(SpeakerHuman)
	require.True(t, ok)
	assert.Equal(t, 2, i)

	i, ok = tr.GetLastSpeakerMessageIndex(SpeakerAssistant)
	require.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestStickyTokenUsage(t *testing.T) {
	tr := New()
	tr.SetTokenUsage(&TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	require.NotNil(t, tr.LastTokenUsage)

	// A turn without counters must not clear the previous ones.
	tr.SetTokenUsage(nil)
	tr.SetTokenUsage(&TokenUsage{})
	assert.Equal(t, 15, tr.LastTokenUsage.TotalTokens)

	tr.SetTokenUsage(&TokenUsage{TotalTokens: 30})
	assert.Equal(t, 30, tr.LastTokenUsage.TotalTokens)
}

func TestClone(t *testing.T) {
	tr := New()
	tr.SetChatTitle("original")
	tr.SetSelectedModel("gemini-2.5-flash")
	require.NoError(t, tr.AddHumanMessage(Message{
		Text:         "find usages",
		ContextItems: []ContextItem{{Type: "file", URI: "a.go", Provenance: ProvenanceUser}},
	}))
	require.NoError(t, tr.AddBotMessage(Message{Text: "done"}, "gemini-2.5-flash"))

	c := tr.Clone()
	assert.NotEqual(t, tr.ID, c.ID)
	assert.Equal(t, tr.SelectedModel, c.SelectedModel)
	if diff := cmp.Diff(tr.Messages, c.Messages); diff != "" {
		t.Fatalf("cloned messages differ (-orig +clone):\n%s", diff)
	}

	// Mutating the clone must not leak into the original.
	c.Messages[0].ContextItems[0].URI = "b.go"
	assert.Equal(t, "a.go", tr.Messages[0].ContextItems[0].URI)
}

func TestSetLastMessageProcesses(t *testing.T) {
	tr := New()
	tr.SetLastMessageProcesses([]ProcessingStep{{ID: "s1"}}) // empty: no-op

	require.NoError(t, tr.AddHumanMessage(human("go")))
	require.NoError(t, tr.AddBotMessage(Message{Text: "ok"}, "m"))
	tr.SetLastMessageProcesses([]ProcessingStep{{ID: "s1", Title: "search", Status: StepSuccess}})
	require.Len(t, tr.Messages[1].ProcessingSteps, 1)
	assert.Equal(t, "s1", tr.Messages[1].ProcessingSteps[0].ID)
}
