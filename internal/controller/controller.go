// Package controller runs one user turn end to end: it updates the session,
// calls the analysis backend, shows the result and saves the conversation.
package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/comigor/bizanalyst/internal/api"
	"github.com/comigor/bizanalyst/internal/history"
	"github.com/comigor/bizanalyst/internal/logger"
	"github.com/comigor/bizanalyst/internal/session"
)

var (
	ErrEmptyInput   = errors.New("empty message")
	ErrTurnInFlight = errors.New("a request is already in progress")
)

// Turn states. Input is only accepted in StateIdle.
const (
	StateIdle          = "Idle"
	StateAwaitingReply = "AwaitingReply"

	triggerSubmit = "Submit"
	triggerSettle = "Settle"
)

const (
	chatAPIFailureText       = "❌ Error: %s\n\nPlease ensure the backend's LLM API key is configured (llm.api_key or BIZANALYST_LLM_API_KEY)."
	chatTransportFailureText = "❌ Unable to connect to the AI service.\n\nPlease check:\n• Backend is running\n• The backend LLM API key is set\n• Network connection is stable"
	fileAPIFailureText       = "❌ Error analyzing file: %s"
	fileTransportFailureText = "❌ Error uploading file. Please ensure the backend is running and try again."
)

// Backend is the remote analysis service.
type Backend interface {
	Chat(ctx context.Context, message string, history []session.Message) (string, error)
	AnalyzeFile(ctx context.Context, name string, content io.Reader) (api.Analysis, error)
}

// View receives display updates.
type View interface {
	// Busy is true while a turn is outstanding; input must be disabled.
	Busy(busy bool)
	Message(m session.Message)
	Charts(name string, data []byte)
	Saved(rec history.Record)
}

// Config holds the tunables of a turn.
type Config struct {
	HistoryWindow     int
	MaxUploadBytes    int64
	AllowedExtensions []string
	ChartDelay        time.Duration
}

// DefaultConfig returns the stock limits: ten messages of context, 5 MiB
// uploads of .txt/.csv/.json, charts drawn half a second after the reply.
func DefaultConfig() Config {
	return Config{
		HistoryWindow:     10,
		MaxUploadBytes:    5 * 1024 * 1024,
		AllowedExtensions: []string{".txt", ".csv", ".json"},
		ChartDelay:        500 * time.Millisecond,
	}
}

// Outcome classifies how a turn ended.
type Outcome int

const (
	OutcomeReplied Outcome = iota
	OutcomeAPIFailure
	OutcomeTransportFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReplied:
		return "replied"
	case OutcomeAPIFailure:
		return "api-failure"
	case OutcomeTransportFailure:
		return "transport-failure"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Turn is the result of one SendText or SendFile call.
type Turn struct {
	Reply   session.Message
	Outcome Outcome
	Saved   bool
	Record  history.Record
}

// Controller orchestrates turns for a single session. Only one turn may be
// outstanding at a time; a second submit fails with ErrTurnInFlight.
type Controller struct {
	cfg     Config
	session *session.Session
	store   history.Store
	backend Backend
	view    View
	fsm     *stateless.StateMachine
	after   func(d time.Duration, f func())
}

// New wires a controller. Zero fields of cfg fall back to DefaultConfig.
func New(sess *session.Session, store history.Store, backend Backend, view View, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = def.AllowedExtensions
	}
	if cfg.ChartDelay < 0 {
		cfg.ChartDelay = def.ChartDelay
	}

	c := &Controller{
		cfg:     cfg,
		session: sess,
		store:   store,
		backend: backend,
		view:    view,
		after:   func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}

	c.fsm = stateless.NewStateMachine(StateIdle)
	c.fsm.Configure(StateIdle).
		Permit(triggerSubmit, StateAwaitingReply).
		OnEntry(func(_ context.Context, _ ...any) error {
			c.view.Busy(false)
			return nil
		})
	c.fsm.Configure(StateAwaitingReply).
		Permit(triggerSettle, StateIdle).
		OnEntry(func(_ context.Context, _ ...any) error {
			c.view.Busy(true)
			return nil
		})

	return c
}

// Session returns the conversation the controller drives.
func (c *Controller) Session() *session.Session {
	return c.session
}

// InFlight reports whether a turn is outstanding.
func (c *Controller) InFlight() bool {
	return c.fsm.MustState() == StateAwaitingReply
}

func (c *Controller) begin(ctx context.Context) error {
	if ok, _ := c.fsm.CanFire(triggerSubmit); !ok {
		return ErrTurnInFlight
	}
	if err := c.fsm.FireCtx(ctx, triggerSubmit); err != nil {
		return fmt.Errorf("%w: %v", ErrTurnInFlight, err)
	}
	return nil
}

func (c *Controller) settle(ctx context.Context) {
	if err := c.fsm.FireCtx(ctx, triggerSettle); err != nil {
		logger.L.Warn("FSM fire error", "trigger", triggerSettle, "error", err)
	}
}

// NewChat starts an empty conversation.
func (c *Controller) NewChat() error {
	if c.InFlight() {
		return ErrTurnInFlight
	}
	c.session.Reset()
	logger.L.Debug("started new chat")
	return nil
}

// LoadChat replaces the conversation with a saved record.
func (c *Controller) LoadChat(id string) (history.Record, error) {
	if c.InFlight() {
		return history.Record{}, ErrTurnInFlight
	}
	rec, err := c.store.Load(id)
	if err != nil {
		return history.Record{}, err
	}
	c.session.Replace(rec.ID, rec.Messages)
	logger.L.Debug("loaded chat", "id", rec.ID, "messages", len(rec.Messages))
	return rec, nil
}

// SendText sends a user message with the most recent conversation context.
// Blank input is rejected with ErrEmptyInput and changes nothing.
func (c *Controller) SendText(ctx context.Context, input string) (Turn, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return Turn{}, ErrEmptyInput
	}
	if err := c.begin(ctx); err != nil {
		return Turn{}, err
	}
	defer c.settle(ctx)

	if err := c.say(session.RoleUser, text); err != nil {
		return Turn{}, err
	}

	reply, err := c.backend.Chat(ctx, text, c.session.Last(c.cfg.HistoryWindow))
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			logger.L.Warn("chat rejected by backend", "error", apiErr.Message)
			return c.finish(fmt.Sprintf(chatAPIFailureText, apiErr.Message), OutcomeAPIFailure)
		}
		logger.L.Error("chat request failed", "error", err)
		return c.finish(chatTransportFailureText, OutcomeTransportFailure)
	}

	return c.finish(reply, OutcomeReplied)
}

// SendFile uploads a file for analysis. Oversized files and unsupported
// extensions are rejected with a *ValidationError before any network call.
func (c *Controller) SendFile(ctx context.Context, up Upload) (Turn, error) {
	if err := c.validateUpload(up); err != nil {
		return Turn{}, err
	}
	data, err := c.readUpload(up)
	if err != nil {
		return Turn{}, err
	}
	if err := c.begin(ctx); err != nil {
		return Turn{}, err
	}
	defer c.settle(ctx)

	notice := fmt.Sprintf("📎 Uploaded file: %s (%.2f KB)", up.Name, float64(len(data))/1024)
	if err := c.say(session.RoleUser, notice); err != nil {
		return Turn{}, err
	}

	analysis, err := c.backend.AnalyzeFile(ctx, up.Name, bytes.NewReader(data))
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			logger.L.Warn("file analysis rejected by backend", "file", up.Name, "error", apiErr.Message)
			return c.finish(fmt.Sprintf(fileAPIFailureText, apiErr.Message), OutcomeAPIFailure)
		}
		logger.L.Error("file upload failed", "file", up.Name, "error", err)
		return c.finish(fileTransportFailureText, OutcomeTransportFailure)
	}

	turn, err := c.finish(analysis.Analysis, OutcomeReplied)
	if err == nil && analysis.HasCharts {
		name := up.Name
		c.after(c.cfg.ChartDelay, func() { c.view.Charts(name, data) })
	}
	return turn, err
}

func (c *Controller) say(role session.Role, content string) error {
	msg, err := c.session.Append(role, content)
	if err != nil {
		return err
	}
	c.view.Message(msg)
	return nil
}

// finish appends the assistant message and, for successful turns only,
// saves the conversation.
func (c *Controller) finish(content string, outcome Outcome) (Turn, error) {
	reply, err := c.session.Append(session.RoleAssistant, content)
	if err != nil {
		return Turn{}, err
	}
	c.view.Message(reply)

	turn := Turn{Reply: reply, Outcome: outcome}
	if outcome != OutcomeReplied {
		return turn, nil
	}
	if rec, ok := c.store.Save(c.session); ok {
		turn.Saved = true
		turn.Record = rec
		c.view.Saved(rec)
	}
	return turn, nil
}
