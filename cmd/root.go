package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timvw/screen-patrol/internal/config"
	"github.com/timvw/screen-patrol/internal/evaluator"
	"github.com/timvw/screen-patrol/internal/logging"
	"github.com/timvw/screen-patrol/internal/navigator"
	telem "github.com/timvw/screen-patrol/internal/otel"
	"github.com/timvw/screen-patrol/internal/screen"
	"github.com/timvw/screen-patrol/internal/session"
	"github.com/timvw/screen-patrol/internal/store"
)

var (
	// Global flags. Each one overrides the matching config key when set.
	flagSession   string
	flagHost      string
	flagScreens   string
	flagProvider  string
	flagModel     string
	flagBaseURL   string
	flagAPIKey    string
	flagMaxTokens int64
	flagLLMLabels bool
	flagLogLevel  string
)

var (
	cfg *config.Config
	tel *telem.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "screen-patrol",
	Short: "Read and fill 3270 screens by field label",
	Long: `screen-patrol rebuilds the fields of a 3270 terminal screen from an s3270
emulator session and names them after the captions printed next to them.

Every snapshot is split into fields at the start-of-field markers of the
screen buffer. A label pattern then pairs each field with the caption in
the field before or after it, so forms can be read and filled by label
("User", "Password") instead of by row and column.

Screens can be captured to a YAML file and replayed offline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tel != nil {
			tel.Shutdown(context.Background())
		}
		logging.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagSession, "session", "", "terminal session: s3270, replay (default from config: s3270)")
	pf.StringVar(&flagHost, "host", "", "mainframe host for the s3270 session")
	pf.StringVar(&flagScreens, "screens", "", "captured screens file")
	pf.StringVar(&flagProvider, "provider", "", "LLM provider for label fallback: anthropic, openai")
	pf.StringVar(&flagModel, "model", "", "LLM model name (default: claude-sonnet-4-5 for anthropic, gpt-4o-mini for openai)")
	pf.StringVar(&flagBaseURL, "base-url", "", "override LLM API base URL")
	pf.StringVar(&flagAPIKey, "api-key", "", "override LLM API key")
	pf.Int64Var(&flagMaxTokens, "max-tokens", 0, "max completion tokens for label fallback")
	pf.BoolVar(&flagLLMLabels, "llm-labels", false, "ask the LLM to label editable fields the pattern missed")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default: silent)")
}

// setup loads the configuration, applies flag overrides and starts
// logging and telemetry.
func setup(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	applyFlags(cmd, cfg)

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if cfg.ConfigFile != "" {
		logging.Debug("config loaded", zap.String("path", cfg.ConfigFile))
	}

	// Wire build version into OTEL service metadata
	telem.Version = Version

	// Initialize OTEL (no-op if no endpoint configured)
	tel, err = telem.Init(cmd.Context(), telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		logging.Warn("otel init failed", zap.Error(err))
	}
	return nil
}

func applyFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("session") {
		c.Session = flagSession
	}
	if f.Changed("host") {
		c.Host = flagHost
	}
	if f.Changed("screens") {
		c.ScreensFile = flagScreens
	}
	if f.Changed("provider") {
		c.Provider = flagProvider
	}
	if f.Changed("model") {
		c.Model = flagModel
	}
	if f.Changed("base-url") {
		c.BaseURL = flagBaseURL
	}
	if f.Changed("api-key") {
		c.APIKey = flagAPIKey
	}
	if f.Changed("max-tokens") {
		c.MaxTokens = flagMaxTokens
	}
	if f.Changed("llm-labels") {
		c.LLMLabels = flagLLMLabels
	}
	if f.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
}

func metrics() *telem.Metrics {
	if tel == nil {
		return nil
	}
	return tel.Metrics
}

// screenOptions builds reconstructor options from the config.
func screenOptions() (screen.Options, error) {
	matcher, err := screen.NewDefaultRegistry(cfg.LabelPattern)
	if err != nil {
		return screen.Options{}, err
	}
	return screen.Options{
		Filler:       cfg.Filler,
		Matcher:      matcher,
		KeepTrailing: cfg.KeepTrailing,
		Logger:       logging.GetLogger(),
	}, nil
}

// navigatorOptions wires the reconstructor, cache, LLM fallback and metrics.
func navigatorOptions() (navigator.Options, error) {
	so, err := screenOptions()
	if err != nil {
		return navigator.Options{}, err
	}
	opts := navigator.Options{
		Screen:  so,
		Cache:   navigator.NewLabelCache(cfg.CacheTTLDuration),
		Metrics: metrics(),
		Logger:  logging.GetLogger(),
	}
	if cfg.LLMLabels {
		ev, err := getEvaluator()
		if err != nil {
			return navigator.Options{}, err
		}
		opts.Evaluator = ev
	}
	return opts, nil
}

// openSession opens the configured session. With names, a replay of those
// stored screens is opened instead.
func openSession(ctx context.Context, names ...string) (session.Session, error) {
	name := cfg.Session
	if len(names) > 0 {
		name = "replay"
	}
	return session.FromName(ctx, session.Options{
		Name:        name,
		S3270Path:   cfg.S3270Path,
		Host:        cfg.Host,
		ScreensFile: cfg.ScreensFile,
		Screens:     names,
		Logger:      logging.GetLogger(),
	})
}

// openNavigator opens a session and wraps it in a Navigator. The caller
// closes the session.
func openNavigator(ctx context.Context, names ...string) (*navigator.Navigator, error) {
	opts, err := navigatorOptions()
	if err != nil {
		return nil, err
	}
	sess, err := openSession(ctx, names...)
	if err != nil {
		return nil, err
	}
	return navigator.New(sess, opts), nil
}

func loadStore() (*store.Store, error) {
	st, err := store.Load(cfg.ScreensFile)
	if err != nil {
		return nil, fmt.Errorf("loading screens: %w", err)
	}
	return st, nil
}

// getEvaluator returns the configured LLM evaluator.
func getEvaluator() (evaluator.Evaluator, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicEvaluator()
	case "openai":
		return newOpenAIEvaluator()
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: anthropic, openai)", cfg.Provider)
	}
}

// newAnthropicEvaluator creates an Anthropic evaluator with the resolved config.
func newAnthropicEvaluator() (evaluator.Evaluator, error) {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key found. Set %sAPI_KEY or ANTHROPIC_API_KEY", config.EnvPrefix)
	}

	// Azure AI Foundry needs both "api-key" (Azure) and "x-api-key" (Anthropic SDK default) headers.
	extraHeaders := map[string]string{}
	if config.IsAzureEndpoint(cfg.BaseURL) {
		extraHeaders["api-key"] = cfg.APIKey
	}

	return evaluator.NewAnthropicEvaluator(evaluator.AnthropicConfig{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        model,
		MaxTokens:    cfg.MaxTokens,
		ExtraHeaders: extraHeaders,
	}), nil
}

// newOpenAIEvaluator creates an OpenAI evaluator with the resolved config.
func newOpenAIEvaluator() (evaluator.Evaluator, error) {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key found. Set %sAPI_KEY, OPENAI_API_KEY, or AZURE_OPENAI_API_KEY", config.EnvPrefix)
	}

	extraHeaders := map[string]string{}
	if config.IsAzureEndpoint(cfg.BaseURL) {
		extraHeaders["api-key"] = cfg.APIKey
	}

	return evaluator.NewOpenAIEvaluator(evaluator.OpenAIConfig{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        model,
		MaxTokens:    cfg.MaxTokens,
		ExtraHeaders: extraHeaders,
	}), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
