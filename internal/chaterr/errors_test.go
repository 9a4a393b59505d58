package chaterr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindCancelled, KindOf(context.Canceled))
	assert.Equal(t, KindCancelled, KindOf(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, KindRateLimit, KindOf(New(KindRateLimit, "slow down")))
	assert.Equal(t, KindAgent, KindOf(errors.New("boom")))
}

func TestWrapPreservesExistingKind(t *testing.T) {
	inner := New(KindContextWindow, "too long")
	wrapped := Wrap(fmt.Errorf("send: %w", inner), KindAgent, "agent failed")
	assert.Equal(t, KindContextWindow, wrapped.Kind)
	assert.Equal(t, "too long", wrapped.Message)
}

func TestWrapPlainError(t *testing.T) {
	err := Wrap(errors.New("socket closed"), KindAgent, "stream failed")
	assert.Equal(t, KindAgent, err.Kind)
	assert.ErrorContains(t, err, "stream failed: socket closed")
}

func TestIsCancellation(t *testing.T) {
	assert.False(t, IsCancellation(nil))
	assert.False(t, IsCancellation(errors.New("boom")))
	assert.True(t, IsCancellation(New(KindCancelled, "superseded")))
	assert.True(t, IsCancellation(context.Canceled))
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(New(KindRateLimit, "x")), "rate limited")
	assert.Contains(t, UserMessage(New(KindContextWindow, "x")), "context window")
	assert.Equal(t, "no chat model selected", UserMessage(ErrNoModelSelected))
	assert.Contains(t, UserMessage(errors.New("boom")), "boom")
}
