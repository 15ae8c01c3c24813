package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"

	"github.com/benreeve1984/ronin/internal/agent"
	"github.com/benreeve1984/ronin/internal/config"
	"github.com/benreeve1984/ronin/internal/llm"
	"github.com/benreeve1984/ronin/internal/prompt"
	"github.com/benreeve1984/ronin/internal/sandbox"
	"github.com/benreeve1984/ronin/internal/tools"
)

// Version info set by ldflags at build time
var (
	version    = "dev"
	commitHash = "dev"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: built-in settings)")
	root := flag.String("root", "", "workspace root directory (overrides config)")
	model := flag.String("model", "", "override model name")
	maxSteps := flag.Int("max-steps", 0, "override max agent steps per turn")
	logFile := flag.String("log", "", "log file path (empty to disable)")
	execPrompt := flag.String("p", "", "exec mode: run with this prompt and exit after completion")
	autoApprove := flag.Bool("yes", false, "apply all changes without asking")
	dryRun := flag.Bool("plan", false, "dry run: show what would change without writing anything")
	showVersion := flag.Bool("version", false, "show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ronin %s (%s)\n", version, commitHash)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flag overrides win over config values.
	if *root != "" {
		cfg.Workspace.Root = *root
	}
	if *model != "" {
		cfg.LLM.Model = *model
	}
	if *maxSteps > 0 {
		cfg.Agent.MaxSteps = *maxSteps
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	policy, err := resolvePolicy(cfg, *autoApprove, *dryRun)
	if err != nil {
		log.Fatalf("%v", err)
	}

	workspaceRoot, err := cfg.ResolveRoot()
	if err != nil {
		log.Fatalf("%v", err)
	}

	guard, err := sandbox.NewGuard(workspaceRoot, cfg.Workspace.AllowedExtensions)
	if err != nil {
		log.Fatalf("Failed to set up workspace: %v", err)
	}

	workspaceLock, err := sandbox.AcquireLock(guard.Root())
	if err != nil {
		log.Fatalf("Failed to acquire workspace lock: %v", err)
	}
	defer workspaceLock.Release()

	logger, err := agent.NewLogger(cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	apiKey := cfg.APIKey()
	if apiKey == "" {
		log.Fatalf("No API key: set %s in the environment", cfg.LLM.APIKeyEnv)
	}
	client, err := llm.NewClient(apiKey, cfg.LLM.Model, cfg.LLM.MaxTokens)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	var provider tools.DecisionProvider
	if policy == tools.PolicyInteractive {
		provider = newTerminalConfirmer(os.Stdin, os.Stdout)
	}

	executor := tools.NewExecutor(tools.Session{
		Guard:       guard,
		Policy:      policy,
		MaxFileSize: cfg.MaxFileSizeBytes(),
		Provider:    provider,
		Logger:      logger.Zap(),
	})

	interactive := *execPrompt == "" && flag.NArg() == 0
	systemPrompt := prompt.System(prompt.Options{
		Interactive:   interactive,
		DryRun:        policy == tools.PolicyDryRun,
		WorkspaceRoot: guard.Root(),
	})

	runner := agent.NewRunner(agent.Options{
		Client:   client,
		Executor: executor,
		Logger:   logger,
		System:   systemPrompt,
		MaxSteps: cfg.Agent.MaxSteps,
		Out:      os.Stdout,
	})

	printBanner(cfg, guard, policy)

	ctx := context.Background()
	if !interactive {
		text := *execPrompt
		if text == "" {
			text = strings.Join(flag.Args(), " ")
		}
		if err := runOnce(ctx, runner, text); err != nil {
			logger.Error("run failed", err)
			log.Fatalf("%v", err)
		}
		return
	}

	if err := runChat(ctx, runner, guard.Root()); err != nil {
		logger.Error("chat failed", err)
		log.Fatalf("%v", err)
	}
}

// loadConfig reads the config file when one is given or exists at the default
// location, and falls back to built-in defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.Load("ronin.yaml")
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}

// resolvePolicy combines the config policy with the --yes/--plan flags. Flags
// win; using both at once is a contradiction worth refusing.
func resolvePolicy(cfg *config.Config, autoApprove, dryRun bool) (tools.Policy, error) {
	if autoApprove && dryRun {
		return "", fmt.Errorf("--yes and --plan are mutually exclusive")
	}
	if autoApprove {
		return tools.PolicyAutoApprove, nil
	}
	if dryRun {
		return tools.PolicyDryRun, nil
	}
	return tools.ParsePolicy(cfg.Policy)
}

func printBanner(cfg *config.Config, guard *sandbox.Guard, policy tools.Policy) {
	bold := color.New(color.Bold)
	bold.Printf("ronin %s\n", version)
	fmt.Printf("Model: %s\n", cfg.LLM.Model)
	fmt.Printf("Workspace: %s (%s)\n", guard.Root(), strings.Join(guard.AllowedExtensions(), ", "))
	switch policy {
	case tools.PolicyAutoApprove:
		color.Yellow("Changes are applied without confirmation (--yes)")
	case tools.PolicyDryRun:
		color.Yellow("Dry run: nothing will be written to disk (--plan)")
	}
	fmt.Println()
}

// runOnce handles exec mode: a single prompt, then exit.
func runOnce(ctx context.Context, runner *agent.Runner, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty prompt")
	}
	messages := []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(text))}
	_, err := runner.Run(ctx, messages)
	if err != nil {
		return err
	}
	usage := runner.Usage()
	fmt.Printf("\n%s\n", color.HiBlackString("tokens: %d in, %d out", usage.InputTokens, usage.OutputTokens))
	return nil
}
