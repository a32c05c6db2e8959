// Package main is the quill command line coding assistant: a line-oriented
// shell around the agent loop, with provider selection, quota limits, and
// tool approval wired from ~/.quill/config.yaml.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/quillhq/quill/pkg/agent"
	"github.com/quillhq/quill/pkg/agent/approval"
	"github.com/quillhq/quill/pkg/agent/quota"
	"github.com/quillhq/quill/pkg/agent/tools"
	"github.com/quillhq/quill/pkg/config"
	"github.com/quillhq/quill/pkg/llm"
	"github.com/quillhq/quill/pkg/llm/cerebras"
	"github.com/quillhq/quill/pkg/llm/openai"
	"github.com/quillhq/quill/pkg/security/workspace"
	"github.com/quillhq/quill/pkg/tools/coding"
)

const version = "0.1.0"

type cliFlags struct {
	configPath  string
	providerSel string
	model       string
	workspace   string
	stream      bool
	showVersion bool
}

func main() {
	flags := parseFlags()
	if flags.showVersion {
		fmt.Printf("quill %s\n", version)
		return
	}

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "quill: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}
	flag.StringVar(&flags.configPath, "config", "", "path to config file (default ~/.quill/config.yaml)")
	flag.StringVar(&flags.providerSel, "provider", "", "LLM provider: openai or cerebras (overrides config)")
	flag.StringVar(&flags.model, "model", "", "model name (overrides config)")
	flag.StringVar(&flags.workspace, "workspace", "", "workspace directory (default current directory)")
	flag.BoolVar(&flags.stream, "stream", false, "stream raw model output as it arrives")
	flag.BoolVar(&flags.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return flags
}

func run(flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	workDir := flags.workspace
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
	}
	guard, err := workspace.NewGuard(workDir)
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	if err := coding.RegisterAll(registry, guard); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	shell := newShell(os.Stdin, os.Stdout)
	gate := approval.NewAutoGate(cfg.AutoApproval, shell.promptApproval)

	opts := []agent.Option{
		agent.WithExecutor(registry),
		agent.WithApprovalGate(gate),
		agent.WithQuotaTracker(quota.NewTracker(cfg.Quota)),
	}
	if cfg.Agent.MaxIterations > 0 {
		opts = append(opts, agent.WithMaxIterations(cfg.Agent.MaxIterations))
	}
	if cfg.Agent.OutputReservation > 0 {
		opts = append(opts, agent.WithOutputReservation(cfg.Agent.OutputReservation))
	}
	if cfg.Agent.SystemPrompt != "" {
		opts = append(opts, agent.WithSystemPrompt(cfg.Agent.SystemPrompt))
	}
	if flags.stream {
		opts = append(opts, agent.WithSink(shell.printChunk))
	}

	loop, err := agent.New(provider, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("quill %s: %s/%s in %s (type /help for commands)\n",
		version, provider.GetModelInfo().Provider, provider.GetModel(), guard.Root())
	return shell.repl(loop)
}

func loadConfig(flags *cliFlags) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flags.providerSel != "" {
		cfg.LLM.Provider = flags.providerSel
	}
	if flags.model != "" {
		cfg.LLM.Model = flags.model
	}
	return cfg, nil
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	var opts []openai.ProviderOption
	if cfg.LLM.Model != "" {
		opts = append(opts, openai.WithModel(cfg.LLM.Model))
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
	}
	if cfg.Quota.MaxContextTokens > 0 {
		opts = append(opts, openai.WithMaxContextTokens(cfg.Quota.MaxContextTokens))
	}

	switch cfg.LLM.Provider {
	case "cerebras":
		return cerebras.NewProvider(cfg.LLM.APIKey, opts...)
	default:
		return openai.NewProvider(cfg.LLM.APIKey, opts...)
	}
}
