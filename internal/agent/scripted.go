package agent

import (
	"context"
	"strings"

	"sidekick/internal/transcript"
)

// Scripted is a deterministic Agent used by tests and the offline demo
// mode. It streams its reply word by word and can optionally pause for a
// confirmation or emit structured sub-results first.
type Scripted struct {
	// Reply is the full text streamed for any request. When empty, the
	// request text is echoed back.
	Reply string

	// Steps, SubMessages and Usage are emitted before the text stream
	// when set.
	Steps       []transcript.ProcessingStep
	SubMessages []transcript.SubMessage
	Usage       *transcript.TokenUsage

	// ConfirmStep, when non-empty, makes the agent request confirmation
	// before answering. A "no" produces a short refusal reply.
	ConfirmStep string
	ConfirmID   string
}

func (s *Scripted) Handle(ctx context.Context, req Request, cb Callbacks) error {
	if s.ConfirmStep != "" {
		id := s.ConfirmID
		if id == "" {
			id = req.RequestID
		}
		ok, err := cb.RequestConfirmation(ctx, id, s.ConfirmStep)
		if err != nil {
			return err
		}
		if !ok {
			cb.PostPartialMessage(transcript.Message{
				Speaker: transcript.SpeakerAssistant,
				Text:    "Okay, I won't do that.",
			})
			return nil
		}
	}

	if len(s.Steps) > 0 {
		cb.PostProcessingSteps(s.Steps)
	}
	if len(s.SubMessages) > 0 {
		cb.PostSubMessages(s.SubMessages)
	}

	reply := s.Reply
	if reply == "" {
		reply = "You said: " + req.Text
	}

	var b strings.Builder
	for i, word := range strings.Fields(reply) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		cb.PostPartialMessage(transcript.Message{
			Speaker: transcript.SpeakerAssistant,
			Text:    b.String(),
			Intent:  req.Intent,
		})
	}

	if s.Usage != nil {
		cb.PostUsage(*s.Usage)
	}
	return nil
}

// RegenerateCodeBlock returns the code unchanged apart from a marker
// comment, which is enough for offline demos.
func (s *Scripted) RegenerateCodeBlock(_ context.Context, _, code, _ string) (string, error) {
	return code, nil
}
