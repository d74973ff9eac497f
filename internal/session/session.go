// Package session holds the in-memory state of the active conversation.
// It never touches storage or the display.
package session

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRole  = errors.New("invalid message role")
	ErrAlreadyBound = errors.New("session already bound to a chat id")
)

// Session is the active conversation: an append-only list of messages and,
// once persisted, the id of the record it was saved under.
type Session struct {
	messages []Message
	chatID   string
}

// New returns an empty session with no chat id.
func New() *Session {
	return &Session{}
}

// Reset starts a new conversation.
func (s *Session) Reset() {
	s.messages = nil
	s.chatID = ""
}

// Append adds a message authored by role at the end of the conversation.
func (s *Session) Append(role Role, content string) (Message, error) {
	msg, err := NewMessage(role, content)
	if err != nil {
		return Message{}, err
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

// Replace adopts a previously saved conversation.
func (s *Session) Replace(chatID string, messages []Message) {
	s.messages = append([]Message(nil), messages...)
	s.chatID = chatID
}

// Bind records the id the session was saved under. A session is bound at
// most once; binding again to the same id is a no-op.
func (s *Session) Bind(chatID string) error {
	if s.chatID == "" {
		s.chatID = chatID
		return nil
	}
	if s.chatID != chatID {
		return fmt.Errorf("%w: %s (requested %s)", ErrAlreadyBound, s.chatID, chatID)
	}
	return nil
}

// ChatID returns the persisted id, or "" when the session was never saved.
func (s *Session) ChatID() string {
	return s.chatID
}

// Len returns the number of messages.
func (s *Session) Len() int {
	return len(s.messages)
}

// Messages returns a copy of the conversation in display order.
func (s *Session) Messages() []Message {
	return append([]Message(nil), s.messages...)
}

// Last returns up to n most recent messages, oldest first.
func (s *Session) Last(n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	start := len(s.messages) - n
	if start < 0 {
		start = 0
	}
	return append([]Message{}, s.messages[start:]...)
}

// FirstUserMessage returns the earliest message authored by the user.
func (s *Session) FirstUserMessage() (Message, bool) {
	return FirstUserMessage(s.messages)
}

// FirstUserMessage scans messages for the earliest one authored by the user.
func FirstUserMessage(messages []Message) (Message, bool) {
	for _, m := range messages {
		if m.Role == RoleUser {
			return m, true
		}
	}
	return Message{}, false
}
