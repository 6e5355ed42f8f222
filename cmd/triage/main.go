package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deniom/triage/pkg/config"
	"github.com/deniom/triage/pkg/github"
	"github.com/deniom/triage/pkg/invoker"
	"github.com/deniom/triage/pkg/logging"
	"github.com/deniom/triage/pkg/oracle"
	"github.com/deniom/triage/pkg/pipeline"
	"github.com/deniom/triage/pkg/prompt"
	"github.com/deniom/triage/pkg/report"
	"github.com/deniom/triage/pkg/store"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Staged triage of newly created GitHub repositories",
	Long: `Triage moves newly created GitHub repositories through four
increasingly expensive judgment stages so only a small high-confidence
subset reaches final review.

Stages run independently: 'triage screen' ingests and screens a day's
repositories, later stages drain whatever the previous stage promoted.
'triage run' chains all of them in order.`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "triage.yaml", "path to config file")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	for _, c := range []*cobra.Command{screenCmd, runCmd} {
		c.Flags().String("date", "", "batch date (YYYY-MM-DD, default yesterday UTC)")
	}
	validateIdeaCmd.Flags().String("context", "", "extra background for the idea")

	rootCmd.AddCommand(screenCmd, filterCmd, evaluateCmd, marketCmd, runCmd, validateIdeaCmd)
}

// --- stage commands ---

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Ingest and screen a day's new repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := batchDate(cmd)
		if err != nil {
			return err
		}
		return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			stats, err := p.RunIngestionAndScreening(ctx, day)
			if err != nil {
				return err
			}
			fmt.Printf("fetched %d, added %d, purged %d, screened %d: %d passed, %d rejected\n",
				stats.Fetched, stats.NewlyAdded, stats.Purged,
				stats.Screened, stats.Passed, stats.Rejected)
			return nil
		})
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter screened candidates on core idea quality",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			stats, err := p.RunCoreIdeaFilter(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("processed %d: %d passed, %d rejected\n",
				stats.Processed, stats.Passed, stats.Rejected)
			return nil
		})
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run the deep README evaluation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			stats, err := p.RunEvaluation(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("processed %d: %d passed, %d rejected (%d without readme)\n",
				stats.Processed, stats.Passed, stats.Rejected, stats.NoReadme)
			return nil
		})
	},
}

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Run the market analysis over the top evaluated candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			stats, err := p.RunMarketInsight(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("processed %d: %d passed, %d rejected\n",
				stats.Processed, stats.Passed, stats.Rejected)
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage in order for a batch date",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := batchDate(cmd)
		if err != nil {
			return err
		}
		noColor, _ := cmd.Flags().GetBool("no-color")
		return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			sum, runErr := p.RunAll(ctx, day)
			report.PrintRunSummary(os.Stdout, &sum, !noColor)
			return runErr
		})
	},
}

var validateIdeaCmd = &cobra.Command{
	Use:   "validate-idea <description>",
	Short: "Run a free-form idea through the triage gates",
	Long: `Validate a submitted idea against the same four gates a repository
candidate passes through. Nothing is persisted; the verdict and the
per-stage judgments are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userContext, _ := cmd.Flags().GetString("context")
		noColor, _ := cmd.Flags().GetBool("no-color")
		return withEphemeralPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			r, err := p.ValidateIdea(ctx, args[0], userContext)
			if err != nil {
				return err
			}
			report.PrintIdeaReport(os.Stdout, r, !noColor)
			return nil
		})
	},
}

// --- wiring ---

// withPipeline builds the full dependency graph from config, runs fn,
// and tears the store down afterwards.
func withPipeline(cmd *cobra.Command, fn func(context.Context, *pipeline.Pipeline) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	p, err := buildPipeline(cfg, st)
	if err != nil {
		return err
	}
	return fn(ctx, p)
}

// withEphemeralPipeline wires the pipeline over an in-memory store for
// commands that persist nothing.
func withEphemeralPipeline(cmd *cobra.Command, fn func(context.Context, *pipeline.Pipeline) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg, store.NewMemory())
	if err != nil {
		return err
	}
	return fn(cmd.Context(), p)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func buildPipeline(cfg *config.Config, st store.Store) (*pipeline.Pipeline, error) {
	log := logging.New(cfg.LogLevel)

	apiKey, err := cfg.ResolveOracleKey()
	if err != nil {
		return nil, err
	}

	client := oracle.NewGeminiClient(apiKey, oracle.WithBaseURL(cfg.Oracle.BaseURL))
	fetcher := github.NewFetcher(cfg.ResolveGitHubToken(),
		github.WithBaseURL(cfg.GitHub.BaseURL),
		github.WithMinStars(cfg.GitHub.MinStars))

	screen, err := newJudge(client, cfg.Oracle.FlashModel, cfg.Stages.Screening, cfg.Retry, prompt.ScreeningSchema)
	if err != nil {
		return nil, err
	}
	core, err := newJudge(client, cfg.Oracle.FlashModel, cfg.Stages.CoreIdea, cfg.Retry, prompt.CoreIdeaSchema)
	if err != nil {
		return nil, err
	}
	deep, err := newJudge(client, cfg.Oracle.ProModel, cfg.Stages.Evaluation, cfg.Retry, prompt.EvaluationSchema)
	if err != nil {
		return nil, err
	}
	market, err := newJudge(client, cfg.Oracle.ProModel, cfg.Stages.MarketInsight, cfg.Retry, prompt.MarketSchema, invoker.WithSearch())
	if err != nil {
		return nil, err
	}

	return pipeline.New(st, fetcher, fetcher, screen, core, deep, market, cfg, log), nil
}

func newJudge(client oracle.Client, model string, sc config.StageConfig, retry config.RetryConfig, schemaSrc string, extra ...invoker.Option) (*invoker.Invoker, error) {
	schema, err := invoker.CompileSchema(schemaSrc)
	if err != nil {
		return nil, fmt.Errorf("compiling judgment schema: %w", err)
	}
	opts := []invoker.Option{
		invoker.WithModel(model),
		invoker.WithConcurrency(sc.Concurrency),
		invoker.WithTimeout(sc.Timeout),
		invoker.WithRetry(retry.MaxAttempts, retry.BaseDelay),
		invoker.WithSchema(schema),
	}
	opts = append(opts, extra...)
	return invoker.New(client, opts...), nil
}

// batchDate parses the --date flag, defaulting to yesterday UTC since
// a day's repositories are only fully searchable once the day is over.
func batchDate(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("date")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", raw, err)
	}
	return day, nil
}
