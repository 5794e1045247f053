package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/navid4x/ghesta/internal/auth"
	"github.com/navid4x/ghesta/internal/jalali"
	"github.com/navid4x/ghesta/internal/notify"
	"github.com/navid4x/ghesta/internal/remote"
	"github.com/navid4x/ghesta/internal/storage"
	"github.com/navid4x/ghesta/internal/syncer"
	"github.com/navid4x/ghesta/internal/tui"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "auth":
			if err := runAuth(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "auth error: %v\n", err)
				os.Exit(1)
			}
			return
		case "notify":
			if err := runNotify(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "notify error: %v\n", err)
				os.Exit(1)
			}
			return
		case "reset":
			if err := runReset(); err != nil {
				fmt.Fprintf(os.Stderr, "reset error: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			usage()
			return
		}
	}

	if err := runTUI(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`usage: ghesta [command]

  (no command)        open the installments dashboard
  auth set            store the remote API token in the system keychain
  auth user <email>   record which user this device belongs to
  notify run          run one reminder scan now
  notify serve        run the reminder scheduler daemon
  reset               delete the local cache and queue database`)
}

func runReset() error {
	cfg, err := storage.Wipe()
	if err != nil {
		return err
	}
	if err := auth.DeleteDBKey(); err != nil {
		return err
	}
	fmt.Printf("Local database removed (%s). It will be recreated on next start.\n", cfg.Path)
	return nil
}

func runAuth(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: ghesta auth set | ghesta auth user <email>")
	}

	switch args[0] {
	case "set":
		fmt.Print("Enter API token: ")
		token, err := readSecret()
		if err != nil {
			return err
		}
		fmt.Println()
		if strings.TrimSpace(token) == "" {
			return errors.New("empty token")
		}
		if err := auth.SaveToken(token); err != nil {
			return err
		}
		fmt.Println("Token saved to your system credential store.")
		return nil

	case "user":
		if len(args) != 2 {
			return errors.New("usage: ghesta auth user <email>")
		}
		email := strings.TrimSpace(args[1])
		if email == "" || !strings.Contains(email, "@") {
			return fmt.Errorf("%q does not look like an email address", args[1])
		}

		ctx := context.Background()
		db, _, err := storage.Open(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := storage.NewAppConfigRepo(db).SaveAuthUser(ctx, email, email); err != nil {
			return err
		}
		fmt.Printf("This device now tracks installments for %s.\n", email)
		return nil
	}
	return fmt.Errorf("unknown auth command %q", args[0])
}

func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		value, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(value), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		if len(line) == 0 {
			return "", err
		}
	}
	return strings.TrimSpace(line), nil
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

func runNotify(args []string) error {
	if len(args) != 1 || (args[0] != "run" && args[0] != "serve") {
		return errors.New("usage: ghesta notify run | ghesta notify serve")
	}

	logger := newLogger()
	cfg := notify.ConfigFromEnv()

	token, err := auth.LoadToken()
	if err != nil {
		return err
	}
	client := remote.New(token)

	var email *notify.EmailSender
	if cfg.EmailEnabled() {
		email = notify.NewEmailSender(cfg, logger)
	}
	scanner := notify.NewScanner(client, notify.NewHTTPPusher(), email, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args[0] == "run" {
		result, err := scanner.Run(ctx, jalali.Today())
		if err != nil {
			return err
		}
		fmt.Printf("scan done: %d due, %d delivered, %d failed, %d endpoints deregistered\n",
			result.Due, result.Delivered, result.Failed, result.Deregistered)
		return nil
	}

	return notify.NewServer(cfg, scanner, logger).Run(ctx)
}

func runTUI() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, _, err := storage.Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	token, err := auth.LoadToken()
	if err != nil {
		return err
	}
	client := remote.New(token)

	userID, err := resolveUser(ctx, db)
	if err != nil {
		return err
	}

	events := make(chan syncer.Event, 8)
	stack := syncer.NewStack(db, client, func(evt syncer.Event) {
		select {
		case events <- evt:
		default:
		}
	})

	// Monitor.Start blocks until ctx is done; run it alongside the engine.
	go stack.Monitor.Start(ctx)
	stack.Engine.Start(ctx)
	defer stack.Engine.Stop()

	if purged, err := stack.Service.SweepExpired(ctx); err == nil && purged > 0 {
		fmt.Fprintf(os.Stderr, "purged %d installment(s) past the deletion retention window\n", purged)
	}

	program := tea.NewProgram(
		tui.New(stack.Service, stack.Engine, stack.Monitor, userID, events),
		tea.WithAltScreen(),
	)
	_, err = program.Run()
	return err
}

func resolveUser(ctx context.Context, db *sql.DB) (string, error) {
	if envUser := strings.TrimSpace(os.Getenv("GHESTA_USER")); envUser != "" {
		return envUser, nil
	}

	userID, _, found, err := storage.NewAppConfigRepo(db).AuthUser(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.New("no user configured for this device; run: ghesta auth user <email>")
	}
	return userID, nil
}
