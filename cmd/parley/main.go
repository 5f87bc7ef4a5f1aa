// ABOUTME: Terminal chat client: one session against a conversation backend over stdio JSON-RPC.
// ABOUTME: Provides readline-style input, slash commands, and a git-backed code review flow.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/2389/parley/internal/chat"
	"github.com/2389/parley/internal/config"
	"github.com/2389/parley/internal/memory"
	"github.com/2389/parley/internal/model"
	"github.com/2389/parley/internal/progress"
	"github.com/2389/parley/internal/provider"
	"github.com/2389/parley/internal/review"
	"github.com/2389/parley/internal/session"
	"github.com/2389/parley/internal/status"
	"github.com/2389/parley/internal/store"
	"github.com/2389/parley/internal/tool"
)

var (
	promptColor   = color.New(color.FgCyan, color.Bold)
	replyColor    = color.New(color.FgGreen)
	errorColor    = color.New(color.FgRed)
	noticeColor   = color.New(color.FgYellow)
	followUpColor = color.New(color.Faint)
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

// newLogger builds the slog handler the config asks for. Logs go to stderr so
// they never interleave with chat output.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// backendProcess adapts a child process's stdio to io.ReadWriteCloser.
type backendProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func startBackend(cfg config.BackendConfig, logger *slog.Logger) (*backendProcess, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening backend stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening backend stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting backend %q: %w", cfg.Command, err)
	}
	logger.Info("backend started", "command", cfg.Command, "pid", cmd.Process.Pid)
	return &backendProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

func (b *backendProcess) Read(p []byte) (int, error)  { return b.stdout.Read(p) }
func (b *backendProcess) Write(p []byte) (int, error) { return b.stdin.Write(p) }

func (b *backendProcess) Close() error {
	b.stdin.Close()
	b.stdout.Close()
	if b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
	}
	return b.cmd.Wait()
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	backend, err := startBackend(cfg.Backend, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	dispatcher := progress.NewDispatcher(logger)
	tracker := status.NewTracker()
	client := provider.NewClient(backend, dispatcher, tracker, logger)
	go func() {
		if err := client.Serve(); err != nil {
			logger.Error("backend connection closed", "error", err)
		}
	}()
	defer client.Close()

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer db.Close()

	manifest := tool.DefaultManifest()
	if cfg.Tools.ManifestPath != "" {
		manifest, err = tool.LoadManifest(cfg.Tools.ManifestPath)
		if err != nil {
			return err
		}
	}
	registry := tool.NewRegistry(manifest)
	registry.Register(tool.InsertEditIntoFile{})
	registry.Register(tool.CreateFile{})
	registry.Register(tool.RunInTerminal{})

	catalog := model.NewCatalog(nil)
	shared := session.NewSharedService(client, catalog, logger)

	svc := session.NewService(session.Deps{
		Tab: session.TabInfo{
			ID:            uuid.NewString(),
			WorkspacePath: cfg.Workspace.Path,
			Username:      cfg.Workspace.Username,
		},
		Provider:   client,
		Memory:     memory.New(logger),
		Store:      db,
		Dispatcher: dispatcher,
		Registry:   registry,
		Catalog:    catalog,
		Tracker:    tracker,
		Comments:   review.NewCommentService(),
		Diffs:      review.NewDiffCollector(),
		Logger:     logger,
	})
	client.SetToolHandler(svc)

	if err := svc.RestoreIfNeeded(ctx); err != nil {
		logger.Warn("could not restore history", "error", err)
	}

	startCtx, cancelStart := context.WithTimeout(ctx, cfg.Backend.StartupTimeout)
	if _, err := shared.Models(startCtx); err != nil {
		logger.Warn("could not fetch model catalog", "error", err)
	}
	cancelStart()

	tracker.Watch(func(s status.Snapshot) {
		if s.Level != status.LevelNormal && s.Message != "" {
			noticeColor.Printf("[status] %s\n", s.Message)
		}
	})

	fmt.Printf("parley: workspace %s\n", cfg.Workspace.Path)
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	return repl(ctx, svc, shared, catalog)
}

func repl(ctx context.Context, svc *session.Service, shared *session.SharedService, catalog *model.Catalog) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		promptColor.Print("> ")

		input, err := readLine(ctx, scanner)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if strings.HasPrefix(input, "/") && !strings.HasPrefix(input, "/releaseNotes") {
			if err := handleCommand(ctx, svc, shared, catalog, scanner, input); err != nil {
				errorColor.Printf("[error] %v\n", err)
			}
			fmt.Println()
			continue
		}

		if err := sendAndPrint(ctx, svc, input); err != nil {
			errorColor.Printf("[error] %v\n", err)
		}
		fmt.Println()
	}
}

// readLine reads one line of input, honoring context cancellation.
func readLine(ctx context.Context, scanner *bufio.Scanner) (string, error) {
	inputCh := make(chan string, 1)
	errCh := make(chan error, 1)

	go func() {
		if scanner.Scan() {
			inputCh <- scanner.Text()
			return
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
			return
		}
		errCh <- io.EOF
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errCh:
		return "", err
	case input := <-inputCh:
		return input, nil
	}
}

func handleCommand(ctx context.Context, svc *session.Service, shared *session.SharedService, catalog *model.Catalog, scanner *bufio.Scanner, input string) error {
	cmd, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "/help":
		printHelp()
		return nil

	case "/models":
		return listModels(ctx, shared, catalog)

	case "/model":
		if args == "" {
			return fmt.Errorf("usage: /model <id>")
		}
		catalog.Select(args)
		fmt.Printf("Now using %s\n", args)
		return nil

	case "/templates":
		return listTemplates(ctx, shared)

	case "/agents":
		return listAgents(ctx, shared)

	case "/stop":
		svc.StopReceivingMessage(ctx)
		return nil

	case "/clear":
		svc.ClearHistory(ctx)
		fmt.Println("History cleared")
		return nil

	case "/up", "/down":
		turnID := args
		if turnID == "" {
			last, ok := svc.Memory().LastWhere(func(m chat.ChatMessage) bool { return m.Role == chat.RoleAssistant })
			if !ok {
				return fmt.Errorf("nothing to rate yet")
			}
			turnID = last.TurnID
		}
		if cmd == "/up" {
			svc.Upvote(ctx, turnID)
		} else {
			svc.Downvote(ctx, turnID)
		}
		fmt.Println("Thanks for the feedback")
		return nil

	case "/export":
		if args == "" {
			return fmt.Errorf("usage: /export <file.html>")
		}
		html, err := svc.ExportTranscriptHTML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(args, []byte(html), 0o644); err != nil {
			return err
		}
		fmt.Printf("Transcript written to %s\n", args)
		return nil

	case "/review":
		group := review.DiffGroupUnstaged
		if args == "staged" {
			group = review.DiffGroupStaged
		}
		return runReview(ctx, svc, scanner, group)

	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /models            List available language models")
	fmt.Println("  /model <id>        Select a model for future messages")
	fmt.Println("  /templates         List slash-command templates")
	fmt.Println("  /agents            List addressable backend agents")
	fmt.Println("  /review [staged]   Review working-tree changes (unstaged by default)")
	fmt.Println("  /up, /down [turn]  Rate the latest (or given) reply")
	fmt.Println("  /export <file>     Export the transcript as HTML")
	fmt.Println("  /releaseNotes      Show what's new in this release")
	fmt.Println("  /stop              Cancel the in-flight request")
	fmt.Println("  /clear             Wipe this tab's history")
	fmt.Println("  /help              Show this help")
	fmt.Println("  /quit              Exit")
}

func listModels(ctx context.Context, shared *session.SharedService, catalog *model.Catalog) error {
	models, err := shared.Models(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("No models advertised by the backend")
		return nil
	}
	selected := catalog.Selected()
	fmt.Println("Models:")
	for _, m := range models {
		marker := "  "
		if m.ID == selected {
			marker = "* "
		}
		billing := ""
		if m.Billing.IsPremium {
			billing = " [premium]"
		}
		fmt.Printf("%s%s: %s%s\n", marker, m.ID, m.Name, billing)
	}
	return nil
}

func listTemplates(ctx context.Context, shared *session.SharedService) error {
	templates, err := shared.Templates(ctx)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		fmt.Println("No templates available")
		return nil
	}
	fmt.Println("Templates:")
	for _, t := range templates {
		fmt.Printf("  /%s  %s\n", t.ID, t.Description)
	}
	return nil
}

func listAgents(ctx context.Context, shared *session.SharedService) error {
	agents, err := shared.Agents(ctx)
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents available")
		return nil
	}
	fmt.Println("Agents:")
	for _, a := range agents {
		fmt.Printf("  @%s  %s\n", a.Slug, a.Description)
	}
	return nil
}

// sendAndPrint dispatches a message and renders the settled reply.
func sendAndPrint(ctx context.Context, svc *session.Service, content string) error {
	reply, err := svc.SendAndWait(ctx, uuid.NewString(), content)
	if errors.Is(err, context.Canceled) {
		// Ctrl+C while waiting: tell the backend and keep the REPL alive.
		svc.StopReceivingMessage(context.Background())
		noticeColor.Println("[cancelled]")
		return nil
	}
	if err != nil {
		return err
	}

	last, ok := svc.Memory().LastWhere(func(m chat.ChatMessage) bool { return m.Role == chat.RoleAssistant })
	if !ok {
		return nil
	}

	for _, panel := range last.PanelMessages {
		noticeColor.Printf("[%s %s] %s\n", panel.Type, panel.Title, panel.Message)
	}
	for _, errText := range last.ErrorMessages {
		errorColor.Printf("[error] %s\n", errText)
	}
	if reply != "" {
		replyColor.Println(reply)
	}
	if last.FollowUp != nil && last.FollowUp.Message != "" {
		followUpColor.Printf("(follow-up: %s)\n", last.FollowUp.Message)
	}
	return nil
}

// runReview walks the confirmation flow for a code review round.
func runReview(ctx context.Context, svc *session.Service, scanner *bufio.Scanner, group review.DiffGroup) error {
	if err := svc.RequestCodeReview(ctx, group); err != nil {
		return err
	}

	last, ok := svc.Memory().Last()
	if !ok || last.CodeReviewRound == nil {
		return nil
	}
	round := *last.CodeReviewRound

	if round.Status == chat.ReviewStatusError {
		errorColor.Printf("[error] %s\n", round.ErrorMessage)
		return nil
	}
	if round.Request == nil {
		return nil
	}

	fmt.Printf("%d file(s) to review:\n", len(round.Request.Changes))
	uris := make([]string, 0, len(round.Request.Changes))
	for _, change := range round.Request.Changes {
		fmt.Printf("  %s\n", change.Path)
		uris = append(uris, change.URI)
	}

	fmt.Print("Review all? [y/N] ")
	answer, err := readLine(ctx, scanner)
	if err != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
		svc.CancelCodeReview(round.TurnID)
		noticeColor.Println("[review cancelled]")
		return nil
	}

	svc.AcceptCodeReview(ctx, round.TurnID, uris)

	last, ok = svc.Memory().Last()
	if !ok || last.CodeReviewRound == nil {
		return nil
	}
	final := *last.CodeReviewRound
	if final.Status == chat.ReviewStatusError {
		errorColor.Printf("[error] %s\n", final.ErrorMessage)
		return nil
	}
	if final.Response == nil || len(final.Response.FileComments) == 0 {
		fmt.Println("No findings. Nice work.")
		return nil
	}

	fmt.Printf("%d finding(s):\n", len(final.Response.FileComments))
	for _, comment := range final.Response.FileComments {
		severity := comment.Severity
		if severity == "" {
			severity = "info"
		}
		fmt.Printf("  [%s/%s] %s:%d  %s\n", comment.Kind, severity,
			strings.TrimPrefix(comment.URI, "file://"), comment.Range.Start.Line+1, comment.Message)
		if comment.Suggestion != "" {
			followUpColor.Printf("    suggestion: %s\n", comment.Suggestion)
		}
	}
	return nil
}
