// Package cli is the tarikchat terminal client. It drives the same session
// store and turn orchestrator as the HTTP API, persisting to a local bolt
// file or, for signed-in users, to the shared Mongo document store.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"tarik-chat-be/internal/config"
	"tarik-chat-be/pkg/llm"
	"tarik-chat-be/pkg/llm/factory"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// GeneratorFunc builds the reply generator and image analyzer used by send.
type GeneratorFunc func(ctx context.Context, cfg *config.Config) (llm.ReplyGenerator, llm.ImageAnalyzer, error)

type app struct {
	dbPath  string
	token   string
	verbose bool

	cfg          *config.Config
	newGenerator GeneratorFunc
}

func defaultGenerator(ctx context.Context, cfg *config.Config) (llm.ReplyGenerator, llm.ImageAnalyzer, error) {
	model := cfg.Ai.GeminiModel
	if cfg.Ai.LLMProvider == "ollama" {
		model = cfg.Ai.LLMModel
	}
	g, err := factory.NewReplyGenerator(ctx, factory.Config{
		Provider:     cfg.Ai.LLMProvider,
		Model:        model,
		GeminiAPIKey: cfg.Ai.GoogleGemini,
		OllamaURL:    cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		return nil, nil, err
	}
	return g, g, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tarikchat.db"
	}
	return filepath.Join(home, ".tarikchat", "tarikchat.db")
}

// NewRootCommand builds the command tree. cfg and gen may be nil to use the
// environment and the configured LLM provider.
func NewRootCommand(cfg *config.Config, gen GeneratorFunc) *cobra.Command {
	a := &app{cfg: cfg, newGenerator: gen}
	if a.newGenerator == nil {
		a.newGenerator = defaultGenerator
	}

	root := &cobra.Command{
		Use:   "tarikchat",
		Short: "Chat with Tarik from the terminal",
		Long: `Tarik Chat in the terminal.

Sessions are kept in a local database file. Pass --token (or set
TARIK_TOKEN) to chat as a signed-in user; with MONGO_URI and JWT_SECRET
configured, sessions are shared with the web app.

Quick Start:
  tarikchat sessions                 # List sessions
  tarikchat send "Selam!"            # Ask in the active session
  tarikchat export --format yaml     # Export every session`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.cfg == nil {
				a.cfg = config.Load()
			}
			if a.token == "" {
				a.token = os.Getenv("TARIK_TOKEN")
			}
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", defaultDBPath(), "Path of the local session database")
	root.PersistentFlags().StringVar(&a.token, "token", "", "Access token of a signed-in user (default $TARIK_TOKEN)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		a.sessionsCmd(),
		a.newCmd(),
		a.useCmd(),
		a.renameCmd(),
		a.deleteCmd(),
		a.clearCmd(),
		a.showCmd(),
		a.sendCmd(),
		a.exportCmd(),
		a.languageCmd(),
		a.eventsCmd(),
	)
	return root
}

// Execute runs the client against the environment's configuration.
func Execute() {
	if err := NewRootCommand(nil, nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
