// Package conversation implements the model-facing conversation engine:
// an ordered memory of role-tagged turns plus a thin wrapper that feeds
// the transcript to a hosted model and records its reply.
package conversation

// Role tags who produced a turn in the transcript.
type Role string

const (
	// RoleSystem is the context primer injected at session start.
	RoleSystem Role = "system"
	// RoleUser is an inbound guest message.
	RoleUser Role = "user"
	// RoleModel is a reply produced by the hosted model.
	RoleModel Role = "model"
)

// Turn is a single role-tagged piece of transcript text.
type Turn struct {
	Role Role
	Text string
}

// Memory holds the ordered transcript fed to the model: a system primer
// followed by alternating user and model turns. It is cleared and
// reseeded whenever the active hotel context changes.
//
// Memory is not safe for concurrent use; the owning session serializes
// access to it.
type Memory struct {
	turns []Turn
}

// NewMemory returns an empty memory buffer.
func NewMemory() *Memory {
	return &Memory{}
}

// Reset discards all recorded turns.
func (m *Memory) Reset() {
	m.turns = nil
}

// Prime appends the given turns without clearing existing ones.
func (m *Memory) Prime(turns []Turn) {
	m.turns = append(m.turns, turns...)
}

// Append records a single turn at the end of the transcript.
func (m *Memory) Append(role Role, text string) {
	m.turns = append(m.turns, Turn{Role: role, Text: text})
}

// DropLast removes the most recent turn, if any. It is used to roll an
// unanswered user turn back out of the transcript after a failed model
// call.
func (m *Memory) DropLast() {
	if len(m.turns) > 0 {
		m.turns = m.turns[:len(m.turns)-1]
	}
}

// Turns returns a copy of the recorded transcript in order.
func (m *Memory) Turns() []Turn {
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len reports the number of recorded turns.
func (m *Memory) Len() int {
	return len(m.turns)
}
