package history

import (
	"encoding/json"
	"time"

	"github.com/comigor/bizanalyst/internal/session"
)

const (
	// KeyPrefix marks chat records among the keys of the backing store.
	KeyPrefix = "chat_"
	// TitleMaxLen is the number of characters kept from the first user message.
	TitleMaxLen = 50
	// DefaultTitle is used when a conversation has no user message.
	DefaultTitle = "New Chat"
)

// Record is the persisted form of a conversation, stored under its ID.
type Record struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Messages  []session.Message `json:"messages"`
	Timestamp time.Time         `json:"timestamp"`
}

// wireRecord tolerates timestamps written in any format, on the record and
// on its messages; unparsable ones become the zero time. A record is only
// rejected when it is not JSON or lacks id/messages.
type wireRecord struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []wireMessage `json:"messages"`
	Timestamp string        `json:"timestamp"`
}

type wireMessage struct {
	Role      session.Role `json:"role"`
	Content   string       `json:"content"`
	Timestamp string       `json:"timestamp"`
}

func parseTimestamp(s string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func decodeRecord(data string) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return Record{}, err
	}
	if w.ID == "" {
		return Record{}, errMissingField("id")
	}
	if w.Messages == nil {
		return Record{}, errMissingField("messages")
	}

	messages := make([]session.Message, 0, len(w.Messages))
	for _, m := range w.Messages {
		messages = append(messages, session.Message{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: parseTimestamp(m.Timestamp),
		})
	}
	return Record{
		ID:        w.ID,
		Title:     w.Title,
		Messages:  messages,
		Timestamp: parseTimestamp(w.Timestamp),
	}, nil
}

// Title derives a record title from the first user message.
func Title(messages []session.Message) string {
	first, ok := session.FirstUserMessage(messages)
	if !ok {
		return DefaultTitle
	}
	runes := []rune(first.Content)
	if len(runes) > TitleMaxLen {
		return string(runes[:TitleMaxLen]) + "..."
	}
	return first.Content
}
