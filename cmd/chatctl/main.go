// chatctl drives the chat data engine from the command line: account
// lifecycle, contact search, the friend graph, messaging, and live watch
// against whichever substrate backend the environment selects.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"chatdata/internal/config"
	"chatdata/internal/domain"
	"chatdata/internal/kv"
	"chatdata/internal/kv/file"
	"chatdata/internal/kv/memory"
	"chatdata/internal/kv/postgres"
	"chatdata/internal/kv/sqlite"
	"chatdata/internal/service"
	"chatdata/internal/store"
)

const usage = `usage: chatctl <command> [args]

accounts:
  register <username> <password>
  login <username> <password>
  logout
  whoami

contacts:
  search username <username>
  search usercode <usercode>
  friends

friend requests:
  request <uid>
  requests
  accept <request-id>
  decline <request-id>

messaging (peer is the other user's uid):
  send <peer> <text>
  send-image <peer> <uri>
  send-audio <peer> <url>
  messages <peer>
  watch <peer>

other:
  notifications
  mark-read <notification-id>
  reset
`

type app struct {
	store *store.Store

	auth    *service.AuthService
	users   *service.UsersService
	friends *service.FriendsService
	chats   *service.ChatService
	notifs  *service.NotificationsService
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	backend, err := openBackend(cfg)
	if err != nil {
		logger.Error("open substrate failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer backend.Close()

	st := store.New(backend, store.Options{
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		InitialDelay: cfg.SnapshotDelay,
	})

	notifs := &service.NotificationsService{Store: st}
	a := &app{
		store: st,
		auth:  &service.AuthService{Users: st, Sessions: st, Logger: logger},
		users:  &service.UsersService{Store: st},
		friends: &service.FriendsService{
			Graph:         st,
			Users:         st,
			Notifications: notifs,
			Logger:        logger,
		},
		chats:  &service.ChatService{Store: st},
		notifs: notifs,
	}

	if err := a.run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openBackend(cfg config.Config) (kv.Store, error) {
	switch cfg.StoreDriver {
	case kv.DriverMemory:
		return memory.New(), nil
	case kv.DriverFile:
		return file.New(cfg.DataDir)
	case kv.DriverSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return sqlite.Open(filepath.Join(cfg.DataDir, "chatdata.db"))
	case kv.DriverPostgres:
		return postgres.Open(context.Background(), cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		if len(args) != 2 {
			return errors.New("usage: chatctl register <username> <password>")
		}
		sess, err := a.auth.Register(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("registered and signed in as %s (%s)\n", sess.DisplayName, sess.UID)
		return nil

	case "login":
		if len(args) != 2 {
			return errors.New("usage: chatctl login <username> <password>")
		}
		sess, err := a.auth.SignIn(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s (%s)\n", sess.DisplayName, sess.UID)
		return nil

	case "logout":
		return a.auth.SignOut(ctx)

	case "whoami":
		sess, err := a.auth.CurrentSession(ctx)
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Println("signed out")
			return nil
		}
		u, err := a.users.Get(ctx, sess.UID)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s) usercode=%s friends=%d\n", u.DisplayName, u.UID, u.Usercode, len(u.Friends))
		return nil

	case "search":
		if len(args) != 2 {
			return errors.New("usage: chatctl search username|usercode <value>")
		}
		var (
			u   domain.User
			err error
		)
		switch args[0] {
		case "username":
			u, err = a.users.ByUsername(ctx, args[1])
		case "usercode":
			u, err = a.users.ByUsercode(ctx, args[1])
		default:
			return errors.New("usage: chatctl search username|usercode <value>")
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s) usercode=%s\n", u.Username, u.UID, u.Usercode)
		return nil

	case "friends":
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		friends, err := a.friends.Friends(ctx, sess.UID)
		if err != nil {
			return err
		}
		for _, f := range friends {
			fmt.Printf("%s (%s)\n", f.Username, f.UID)
		}
		return nil

	case "request":
		if len(args) != 1 {
			return errors.New("usage: chatctl request <uid>")
		}
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		req, err := a.friends.Request(ctx, sess.UID, args[0])
		if err != nil {
			return err
		}
		if req == nil {
			fmt.Println("request already pending")
			return nil
		}
		fmt.Printf("request sent: %s\n", req.ID)
		return nil

	case "requests":
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		reqs, err := a.friends.List(ctx, sess.UID)
		if err != nil {
			return err
		}
		for _, r := range reqs {
			fmt.Printf("%s from %s (%s) at %s\n", r.ID, r.FromUsername, r.FromUID, r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil

	case "accept":
		if len(args) != 1 {
			return errors.New("usage: chatctl accept <request-id>")
		}
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		return a.friends.Accept(ctx, sess.UID, args[0])

	case "decline":
		if len(args) != 1 {
			return errors.New("usage: chatctl decline <request-id>")
		}
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		return a.friends.Decline(ctx, sess.UID, args[0])

	case "send", "send-image", "send-audio":
		if len(args) != 2 {
			return fmt.Errorf("usage: chatctl %s <peer> <value>", cmd)
		}
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		chatID := domain.ChatID(sess.UID, args[0])
		var m domain.Message
		switch cmd {
		case "send":
			m, err = a.chats.SendText(ctx, chatID, sess.UID, sess.DisplayName, args[1])
		case "send-image":
			m, err = a.chats.SendImage(ctx, chatID, sess.UID, sess.DisplayName, args[1])
		case "send-audio":
			m, err = a.chats.SendAudio(ctx, chatID, sess.UID, sess.DisplayName, args[1])
		}
		if err != nil {
			return err
		}
		fmt.Printf("sent %s\n", m.ID)
		return nil

	case "messages":
		if len(args) != 1 {
			return errors.New("usage: chatctl messages <peer>")
		}
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		msgs, err := a.chats.History(ctx, domain.ChatID(sess.UID, args[0]))
		if err != nil {
			return err
		}
		for _, m := range msgs {
			printMessage(m)
		}
		return nil

	case "watch":
		if len(args) != 1 {
			return errors.New("usage: chatctl watch <peer>")
		}
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		return a.watch(domain.ChatID(sess.UID, args[0]))

	case "notifications":
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		list, err := a.notifs.List(ctx, sess.UID)
		if err != nil {
			return err
		}
		for _, n := range list {
			marker := " "
			if !n.Read {
				marker = "*"
			}
			fmt.Printf("%s %s [%s] %s\n", marker, n.ID, n.Type, n.Text)
		}
		return nil

	case "mark-read":
		if len(args) != 1 {
			return errors.New("usage: chatctl mark-read <notification-id>")
		}
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		return a.notifs.MarkRead(ctx, sess.UID, args[0])

	case "reset":
		return a.store.Reset(ctx)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// watch prints each snapshot of the chat until SIGINT.
func (a *app) watch(chatID string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	cancel := a.chats.Watch(chatID, func(msgs []domain.Message) {
		fmt.Printf("--- %d message(s)\n", len(msgs))
		for _, m := range msgs {
			printMessage(m)
		}
	})
	defer cancel()

	<-stop
	return nil
}

func (a *app) requireSession(ctx context.Context) (*domain.Session, error) {
	sess, err := a.auth.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("not signed in: run chatctl login first")
	}
	return sess, nil
}

func printMessage(m domain.Message) {
	body := m.Text
	switch m.Type {
	case domain.MessageImage:
		body = "[image] " + m.ImageURI
	case domain.MessageAudio:
		body = "[audio] " + m.AudioURL
	}
	fmt.Printf("%s %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"), m.SenderName, body)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
