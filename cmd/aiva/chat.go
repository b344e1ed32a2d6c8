package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/PabloGalante/aiva-chat/internal/app/conversation"
	"github.com/PabloGalante/aiva-chat/internal/app/identity"
	"github.com/PabloGalante/aiva-chat/internal/config"
	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

const chatHelp = `Commands:
  /new           start a new chat
  /list          list your chats
  /select N      open chat N from /list
  /delete N      delete chat N from /list
  /history       print the active chat
  /login         log in
  /signup        create an account
  /cancel        leave the login flow
  /logout        log out
  /quit          exit
Anything else is sent to Aiva.`

func newChatCmd(cfg *config.Config) *cobra.Command {
	logLevel := "error"
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with Aiva in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			observability.SetLevel(logLevel)
			return runChat(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", logLevel, "log level")
	return cmd
}

// consoleNotifier prints notices inline with the conversation.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Notify(message string, kind domain.NoticeKind) {
	observability.Notifications.WithLabelValues(string(kind)).Inc()
	fmt.Fprintf(n.out, "[%s] %s\n", kind, message)
}

type repl struct {
	out  io.Writer
	svc  *conversation.Service
	line *liner.State
	// chats is the order /list printed, so N refers to what the user saw.
	chats []conversation.ChatSummary
}

func runChat(out io.Writer, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg, consoleNotifier{out: out})
	defer a.Close()

	if err := a.svc.Start(ctx); err != nil {
		fmt.Fprintf(out, "Configuration error: %v\n", err)
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	r := &repl{out: out, svc: a.svc, line: line}

	// SIGTERM does not interrupt a blocked prompt.
	go func() {
		<-ctx.Done()
		a.svc.Flush(context.Background())
		line.Close()
		os.Exit(130)
	}()

	fmt.Fprintln(out, "AivaChat. Type /help for commands.")
	r.printHistory()

	for {
		input, err := line.Prompt(r.prompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == "/quit" || input == "/exit" {
			break
		}
		r.handle(ctx, input)
	}

	a.svc.Flush(context.Background())
	return nil
}

func (r *repl) prompt() string {
	st := r.svc.State()
	switch st.Mode {
	case identity.ModeAuthenticated:
		return st.User.Email + "> "
	case identity.ModeAuthPending:
		return "login required (/login, /signup, /cancel)> "
	default:
		return "guest> "
	}
}

func (r *repl) handle(ctx context.Context, input string) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
	case "/new":
		if _, err = r.svc.NewChat(ctx); err == nil {
			r.printHistory()
		}
	case "/list":
		r.list()
	case "/select":
		var id domain.ChatID
		if id, err = r.pick(arg); err == nil {
			if err = r.svc.SelectChat(ctx, id); err == nil {
				r.printHistory()
			}
		}
	case "/delete":
		var id domain.ChatID
		if id, err = r.pick(arg); err == nil {
			err = r.svc.DeleteChat(ctx, id)
		}
	case "/history":
		r.printHistory()
	case "/login":
		err = r.login(ctx, false)
	case "/signup":
		err = r.login(ctx, true)
	case "/cancel":
		if err = r.svc.CancelLogin(ctx); err == nil {
			r.printHistory()
		}
	case "/logout":
		if err = r.svc.Logout(ctx); err == nil {
			r.printHistory()
		}
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Fprintf(r.out, "unknown command %s, try /help\n", cmd)
			return
		}
		r.send(ctx, input)
	}

	// Validation failures already produced a notice.
	if err != nil && !errors.Is(err, domain.ErrValidation) {
		fmt.Fprintf(r.out, "error: %v\n", err)
	}
}

func (r *repl) send(ctx context.Context, text string) {
	printed := 0
	fmt.Fprint(r.out, "Aiva: ")
	res, err := r.svc.SendMessage(ctx, text, func(msg domain.Message) {
		if len(msg.Text) > printed {
			fmt.Fprint(r.out, msg.Text[printed:])
			printed = len(msg.Text)
		}
	})
	if err != nil {
		fmt.Fprintln(r.out)
		return
	}
	if res.Failed {
		if printed > 0 {
			fmt.Fprintln(r.out)
		}
		fmt.Fprint(r.out, res.BotMessage.Text)
	}
	fmt.Fprintln(r.out)
}

func (r *repl) login(ctx context.Context, signup bool) error {
	email, err := r.line.Prompt("email: ")
	if err != nil {
		return err
	}
	password, err := r.line.PasswordPrompt("password: ")
	if err != nil {
		return err
	}

	if signup {
		confirm, err := r.line.PasswordPrompt("confirm password: ")
		if err != nil {
			return err
		}
		_, err = r.svc.Signup(ctx, email, password, confirm)
		if err == nil {
			r.printHistory()
		}
		return err
	}

	_, err = r.svc.Login(ctx, email, password)
	if err == nil {
		r.printHistory()
	}
	return err
}

func (r *repl) list() {
	st := r.svc.State()
	r.chats = st.Chats
	if len(r.chats) == 0 {
		fmt.Fprintln(r.out, "no saved chats")
		return
	}
	for i, c := range r.chats {
		marker := " "
		if c.Active {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %d. %s\n", marker, i+1, c.Title)
	}
}

func (r *repl) pick(arg string) (domain.ChatID, error) {
	if r.chats == nil {
		r.chats = r.svc.State().Chats
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(r.chats) {
		return "", fmt.Errorf("pick a chat number from /list")
	}
	return r.chats[n-1].ID, nil
}

func (r *repl) printHistory() {
	st := r.svc.State()
	for _, m := range st.Messages {
		who := "You"
		if m.Sender == domain.SenderBot {
			who = "Aiva"
		}
		fmt.Fprintf(r.out, "%s: %s\n", who, m.Text)
	}
}
