package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erauner12/daycare-client/internal/apiclient"
	"github.com/erauner12/daycare-client/internal/config"
	"github.com/erauner12/daycare-client/internal/daycare"
	"github.com/erauner12/daycare-client/internal/notifications"
	"github.com/erauner12/daycare-client/internal/notify"
	"github.com/erauner12/daycare-client/internal/session"
	"github.com/erauner12/daycare-client/internal/tokenstore"
	"github.com/rs/zerolog/log"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmds := map[string]func(*app, []string) error{
		"login":         cmdLogin,
		"register":      cmdRegister,
		"logout":        cmdLogout,
		"whoami":        cmdWhoami,
		"get":           cmdGet,
		"children":      cmdChildren,
		"notifications": cmdNotifications,
	}
	run, ok := cmds[os.Args[1]]
	if !ok {
		printUsage()
		os.Exit(2)
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}
	defer a.close()

	if err := run(a, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", os.Args[1], err)
		a.close()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: daycarectl <command> [flags]

commands:
  login -email E -password P
  register -name N -email E -password P
  logout
  whoami
  get <path>
  children
  notifications [-watch] [-mark ID]`)
}

// app wires the client stack the same way the console does
type app struct {
	cfg     *config.Config
	store   tokenstore.Store
	closeFn func()
	sess    *session.Manager
	client  *apiclient.Client
	api     *daycare.API
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.SetupLogging("daycarectl")

	ctx := context.Background()
	store, closeFn, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	notices := notify.Dedupe(notify.Func(func(_ context.Context, n notify.Notice) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
	}), 3*time.Second)

	sess := session.NewManager(cfg.APIURL, store,
		session.WithTimeout(cfg.RequestTimeout),
		session.WithNotifier(notices),
		session.WithNavigator(session.NavigatorFunc(func(path string) {
			log.Debug().Str("path", path).Msg("navigation requested")
			fmt.Fprintln(os.Stderr, "run `daycarectl login` to sign in again")
		})),
	)
	if err := sess.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore session")
	}

	client := apiclient.New(cfg.APIURL,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithCredentials(sess),
		apiclient.WithNotifier(notices),
	)

	return &app{
		cfg:     cfg,
		store:   store,
		closeFn: closeFn,
		sess:    sess,
		client:  client,
		api:     daycare.New(client),
	}, nil
}

func (a *app) close() {
	if a.closeFn != nil {
		a.closeFn()
		a.closeFn = nil
	}
}

func (a *app) requireSession() (*session.User, error) {
	u := a.sess.Current()
	if u == nil {
		return nil, errors.New("not signed in")
	}
	return u, nil
}

func cmdLogin(a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("email and password are required")
	}

	res := a.sess.Login(context.Background(), *email, *password)
	if !res.Success {
		return errors.New(res.Error)
	}
	fmt.Printf("signed in as %s (%s)\n", res.User.Name, res.User.Role)
	return nil
}

func cmdRegister(a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.sess.Register(context.Background(), session.RegisterRequest{
		Name:     *name,
		Email:    *email,
		Password: *password,
	})
	if err != nil {
		if msg := apiclient.UserMessage(err); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	fmt.Printf("registered %s (%s)\n", u.Name, u.Role)
	return nil
}

func cmdLogout(a *app, _ []string) error {
	a.sess.Logout(context.Background())
	fmt.Println("signed out")
	return nil
}

func cmdWhoami(a *app, _ []string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	resp, err := a.api.Auth.CurrentUser(context.Background())
	if err != nil {
		return err
	}
	return printBody(os.Stdout, resp)
}

func cmdGet(a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: get <path>")
	}
	resp, err := a.client.Get(context.Background(), args[0], nil)
	if err != nil {
		return err
	}
	return printBody(os.Stdout, resp)
}

func cmdChildren(a *app, _ []string) error {
	u, err := a.requireSession()
	if err != nil {
		return err
	}

	ctx := context.Background()
	var resp *apiclient.Response
	switch u.Role {
	case session.RoleAdmin:
		resp, err = a.api.Admin.Children(ctx)
	case session.RoleBabysitter:
		resp, err = a.api.Babysitter.Children(ctx)
	default:
		return fmt.Errorf("role %s has no children listing", u.Role)
	}
	if err != nil {
		return err
	}
	return printBody(os.Stdout, resp)
}

func cmdNotifications(a *app, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "keep polling until interrupted")
	mark := fs.String("mark", "", "mark one notification read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	poller := notifications.NewPoller(a.api, a.sess,
		notifications.WithSchedule(a.cfg.NotifySchedule),
		notifications.WithOnUpdate(printSnapshot),
	)

	ctx := context.Background()
	if err := poller.Refresh(ctx); err != nil {
		return err
	}
	if *mark != "" {
		if err := poller.MarkRead(ctx, *mark); err != nil {
			return err
		}
	}
	if !*watch {
		return nil
	}

	if err := poller.Start(); err != nil {
		return err
	}
	defer poller.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	return nil
}

func printSnapshot(s notifications.Snapshot) {
	fmt.Printf("%d notifications, %d unread\n", len(s.Items), s.Unread)
	for _, n := range s.Items {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		title := n.Title
		if title == "" {
			title = n.Message
		}
		fmt.Printf(" %s %s  %s\n", mark, n.ID, title)
	}
	if s.Err != nil {
		fmt.Printf(" (last poll failed: %v)\n", s.Err)
	}
}

// printBody pretty-prints JSON and copies anything else through
func printBody(w io.Writer, resp *apiclient.Response) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Body, "", "  "); err != nil {
		_, err := w.Write(resp.Body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
