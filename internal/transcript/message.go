package transcript

import (
	"encoding/json"
	"time"
)

// Speaker identifies who produced a message.
type Speaker string

const (
	SpeakerHuman     Speaker = "human"
	SpeakerAssistant Speaker = "assistant"
)

// Intent classifies the purpose of a turn. It is either chosen by the user
// or inferred by the agent; the finalize path branches on it.
type Intent string

const (
	IntentChat    Intent = "chat"
	IntentEdit    Intent = "edit"
	IntentSearch  Intent = "search"
	IntentInsert  Intent = "insert"
	IntentAgentic Intent = "agentic"
)

// Provenance records how a context item was attached to a message.
// Only user-attached items feed the frequently-used store.
type Provenance string

const (
	ProvenanceUser     Provenance = "user"
	ProvenanceInferred Provenance = "inferred"
)

// ContextItem is a reference to an external artifact (file, selection,
// repository) mentioned in a message.
type ContextItem struct {
	Type       string     `json:"type"`
	URI        string     `json:"uri"`
	Range      string     `json:"range,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// SubMessage is one structured sub-result of an agentic response.
type SubMessage struct {
	Text        string        `json:"text,omitempty"`
	SearchHits  []ContextItem `json:"searchHits,omitempty"`
	CodeBlockID string        `json:"codeBlockId,omitempty"`
}

// StepStatus is the lifecycle phase of a processing step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
)

// ProcessingStep is one structured progress entry streamed while an
// agentic response is being produced.
type ProcessingStep struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Content string     `json:"content,omitempty"`
	Status  StepStatus `json:"status"`
	Error   string     `json:"error,omitempty"`
}

// TokenUsage carries the token counters reported by the model for a turn.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Message is one entry of a chat transcript. Text may be empty while only
// structured fields (search hits, sub-messages) are populated.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text,omitempty"`
	Intent  Intent  `json:"intent,omitempty"`

	// Model records which model produced an assistant message.
	Model string `json:"model,omitempty"`

	ContextItems    []ContextItem    `json:"contextItems,omitempty"`
	SubMessages     []SubMessage     `json:"subMessages,omitempty"`
	ProcessingSteps []ProcessingStep `json:"processingSteps,omitempty"`

	// EditorState is the serialized rich-text state of the input box at
	// submit time, kept verbatim so an edit can restore it faithfully.
	EditorState json.RawMessage `json:"editorState,omitempty"`

	// Error flags an assistant message that carries a transcript-embedded
	// failure instead of (or alongside) normal content.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// IsError reports whether the message is a transcript-embedded failure.
func (m *Message) IsError() bool { return m.Error != "" }

// clone deep-copies a message so transcript copies never share slices.
func (m Message) clone() Message {
	c := m
	c.ContextItems = append([]ContextItem(nil), m.ContextItems...)
	c.SubMessages = append([]SubMessage(nil), m.SubMessages...)
	c.ProcessingSteps = append([]ProcessingStep(nil), m.ProcessingSteps...)
	c.EditorState = append(json.RawMessage(nil), m.EditorState...)
	return c
}
