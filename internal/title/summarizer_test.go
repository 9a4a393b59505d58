package title

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	out   string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.out, f.err
}

func TestShouldSummarize(t *testing.T) {
	s := New(&fakeCompleter{}, "gemini-2.5-flash", 20, false, zap.NewNop())

	long := strings.Repeat("explain recursion ", 3)
	assert.True(t, s.ShouldSummarize(long, true))
	assert.False(t, s.ShouldSummarize(long, false), "never after the first turn")
	assert.False(t, s.ShouldSummarize("short", true), "never below the threshold")

	headless := New(&fakeCompleter{}, "gemini-2.5-flash", 20, true, zap.NewNop())
	assert.False(t, headless.ShouldSummarize(long, true))

	noModel := New(&fakeCompleter{}, "", 20, false, zap.NewNop())
	assert.False(t, noModel.ShouldSummarize(long, true))
}

func TestSummarizeTrimsDecoration(t *testing.T) {
	c := &fakeCompleter{out: "  \"Recursion Explained Simply\"\n"}
	s := New(c, "gemini-2.5-flash", 20, false, zap.NewNop())

	got, err := s.Summarize(context.Background(), "Explain recursion to me")
	require.NoError(t, err)
	assert.Equal(t, "Recursion Explained Simply", got)
	assert.Equal(t, 1, c.calls)
}

func TestSummarizeEmptyAndError(t *testing.T) {
	s := New(&fakeCompleter{out: "   "}, "m", 20, false, zap.NewNop())
	got, err := s.Summarize(context.Background(), "whatever input this is")
	require.NoError(t, err)
	assert.Empty(t, got)

	s = New(&fakeCompleter{err: errors.New("offline")}, "m", 20, false, zap.NewNop())
	_, err = s.Summarize(context.Background(), "whatever input this is")
	assert.Error(t, err)
}
