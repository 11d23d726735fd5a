package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wolfman30/leadflow/cmd/mainconfig"
	"github.com/wolfman30/leadflow/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadflow/internal/config"
	"github.com/wolfman30/leadflow/internal/conversation"
	"github.com/wolfman30/leadflow/pkg/logging"
)

// chatService is the part of conversation.Service the terminal loop drives.
type chatService interface {
	StartSession(ctx context.Context) (*conversation.Session, error)
	Begin(ctx context.Context, sessionID string) (conversation.TurnResult, error)
	Submit(ctx context.Context, sessionID, text string) (conversation.TurnResult, error)
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	// keep log lines off the transcript unless asked for
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "error"
	}
	logger := logging.NewWithWriter(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("load AWS config", "error", err)
		os.Exit(1)
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	engine, err := bootstrap.BuildEngine(ctx, cfg, bootstrap.Deps{AWS: awsCfg, Redis: redisClient}, logger)
	if err != nil {
		logger.Error("build engine", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = engine.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	if err := chat(ctx, engine.Service, os.Stdin, os.Stdout); err != nil {
		logger.Error("chat ended", "error", err)
		os.Exit(1)
	}
}

// chat runs one session against in, echoing assistant turns to out until the
// capture completes, the input ends, or the visitor types /quit.
func chat(ctx context.Context, svc chatService, in io.Reader, out io.Writer) error {
	session, err := svc.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("leadchat: start session: %w", err)
	}
	for _, msg := range session.Messages {
		fmt.Fprintf(out, "bot> %s\n", msg.Content)
	}

	started, err := svc.Begin(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("leadchat: begin: %w", err)
	}
	printTurn(out, started)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}

		result, err := svc.Submit(ctx, session.ID, line)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("leadchat: submit: %w", err)
		}
		printTurn(out, result)
		if result.Completed || result.Limited {
			return nil
		}
	}
}

func printTurn(out io.Writer, result conversation.TurnResult) {
	fmt.Fprintf(out, "bot> %s\n", result.Reply)
	for _, action := range result.Actions {
		fmt.Fprintf(out, "     [%s] %s\n", action.Label, action.URL)
	}
	if !result.Handled {
		fmt.Fprintln(out, "     (not handled by the capture flow)")
	}
	if result.Tier != "" {
		fmt.Fprintf(out, "     step=%s tier=%s\n", result.Step, result.Tier)
	}
}
