package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comigor/bizanalyst/internal/api"
	"github.com/comigor/bizanalyst/internal/controller"
	"github.com/comigor/bizanalyst/internal/history"
	"github.com/comigor/bizanalyst/internal/session"
	"github.com/comigor/bizanalyst/internal/view"
)

const helpText = `Commands:
  /new              start a new chat
  /history          list saved chats
  /load <n|id>      resume a saved chat by list number or id
  /upload <path>    analyze a .txt, .csv or .json file
  /health           check the backend
  /help             show this help
  /quit             exit`

func (a *app) chatCmd() *cobra.Command {
	var loadID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, loadID)
		},
	}
	cmd.Flags().StringVar(&loadID, "load", "", "resume the saved chat with this id")
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, loadID string) error {
	store, closeStore := a.openStore()
	defer closeStore()

	client := api.NewClient(a.cfg.API.BaseURL, a.cfg.API.Timeout)
	v := view.NewTerminalView(cmd.OutOrStdout())
	ctrl := controller.New(session.New(), store, client, v, controller.Config{
		HistoryWindow:     a.cfg.Chat.HistoryWindow,
		MaxUploadBytes:    a.cfg.Chat.MaxUploadBytes,
		AllowedExtensions: a.cfg.Chat.AllowedExtensions,
		ChartDelay:        a.cfg.Chat.ChartDelay,
	})

	r := &repl{ctrl: ctrl, store: store, client: client, view: v}
	ctx := cmd.Context()
	r.health(ctx)
	if loadID != "" {
		if err := r.load(loadID); err != nil {
			return err
		}
	} else {
		v.Welcome()
	}
	v.Notice("Type a message, or /help for commands.")

	return r.run(ctx, cmd.InOrStdin())
}

type repl struct {
	ctrl   *controller.Controller
	store  history.Store
	client *api.Client
	view   *view.TerminalView
}

// run reads lines until EOF, /quit or cancellation.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		r.view.Prompt()
		select {
		case <-ctx.Done():
			r.view.Notice("\nGoodbye!")
			return nil
		case line, ok := <-lines:
			if !ok {
				r.view.Notice("\nGoodbye!")
				return nil
			}
			if r.handle(ctx, line) {
				return nil
			}
		}
	}
}

// handle processes one input line and reports whether the user asked to quit.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		if _, err := r.ctrl.SendText(ctx, line); err != nil && !errors.Is(err, controller.ErrEmptyInput) {
			r.view.Error(err)
		}
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		r.view.Notice(helpText)
	case "/new":
		if err := r.ctrl.NewChat(); err != nil {
			r.view.Error(err)
			return false
		}
		r.view.Welcome()
	case "/history":
		r.view.History(r.store.ListAll(), r.ctrl.Session().ChatID())
	case "/load":
		if arg == "" {
			r.view.Error(errors.New("usage: /load <n|id>"))
			return false
		}
		if err := r.load(arg); err != nil {
			r.view.Error(err)
		}
	case "/upload":
		if arg == "" {
			r.view.Error(errors.New("usage: /upload <path>"))
			return false
		}
		r.upload(ctx, arg)
	case "/health":
		r.health(ctx)
	default:
		r.view.Error(fmt.Errorf("unknown command %s (try /help)", name))
	}
	return false
}

// load resumes a chat by id or by its number in the /history listing.
func (r *repl) load(ref string) error {
	id := ref
	if n, err := strconv.Atoi(ref); err == nil {
		records := r.store.ListAll()
		if n < 1 || n > len(records) {
			return fmt.Errorf("no chat number %d (see /history)", n)
		}
		id = records[n-1].ID
	}

	rec, err := r.ctrl.LoadChat(id)
	if err != nil {
		return err
	}
	r.view.Notice("Loaded: " + rec.Title)
	r.view.Transcript(rec.Messages)
	return nil
}

func (r *repl) upload(ctx context.Context, path string) {
	up, err := controller.FileUpload(path)
	if err != nil {
		r.view.Error(err)
		return
	}
	if _, err := r.ctrl.SendFile(ctx, up); err != nil {
		r.view.Error(err)
	}
}

func (r *repl) health(ctx context.Context) {
	h, err := r.client.Health(ctx)
	r.view.Health(h, err)
}
