package chatclient

import (
	"fmt"
	"sync"
)

// ChatMessage is one entry in the client-side transcript.
type ChatMessage struct {
	ID      string
	Role    string
	Content string
	Pending bool
}

// Transcript holds the visible conversation. Every update targets a message
// by identity, never by position, so late deltas and removals stay correct
// even while new turns are inserted.
type Transcript struct {
	mu     sync.Mutex
	msgs   []ChatMessage
	nextID int
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Begin inserts the user message and an empty pending assistant placeholder
// in one step, so no intermediate state with only half the pair is ever
// observable. It returns both message ids.
func (t *Transcript) Begin(userText string) (userID, assistantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	userID = t.newID()
	assistantID = t.newID()
	t.msgs = append(t.msgs,
		ChatMessage{ID: userID, Role: "user", Content: userText},
		ChatMessage{ID: assistantID, Role: "assistant", Pending: true},
	)
	return userID, assistantID
}

// AppendText appends a streamed delta to the identified message.
func (t *Transcript) AppendText(id, delta string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := t.index(id); i >= 0 {
		t.msgs[i].Content += delta
	}
}

// Complete clears the pending flag on the identified message.
func (t *Transcript) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := t.index(id); i >= 0 {
		t.msgs[i].Pending = false
	}
}

// Fail removes the identified message if it is still pending, keeping the
// user message in place so the student can retry.
func (t *Transcript) Fail(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.index(id)
	if i < 0 || !t.msgs[i].Pending {
		return
	}
	t.msgs = append(t.msgs[:i], t.msgs[i+1:]...)
}

// Messages returns a snapshot of the transcript.
func (t *Transcript) Messages() []ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ChatMessage{}, t.msgs...)
}

func (t *Transcript) index(id string) int {
	for i := range t.msgs {
		if t.msgs[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Transcript) newID() string {
	t.nextID++
	return fmt.Sprintf("msg-%d", t.nextID)
}
