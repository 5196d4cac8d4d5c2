package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jonathan/bullet-ranker/internal/config"
	"github.com/jonathan/bullet-ranker/internal/experience"
	"github.com/jonathan/bullet-ranker/internal/ingest"
	"github.com/jonathan/bullet-ranker/internal/llm"
	"github.com/jonathan/bullet-ranker/internal/logger"
	"github.com/jonathan/bullet-ranker/internal/observability"
	"github.com/jonathan/bullet-ranker/internal/pipeline"
	"github.com/jonathan/bullet-ranker/internal/settings"
	"github.com/jonathan/bullet-ranker/internal/types"
	"github.com/jonathan/bullet-ranker/internal/worker"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank experience bullets against a job posting",
	Long:  "Loads an experience bank, analyzes the job posting, and prints the highest-scoring diverse bullets per role.",
	RunE:  runRecommend,
}

var (
	recommendConfig  string
	recommendJob     string
	recommendJobURL  string
	recommendTitle   string
	recommendBank    string
	recommendBias    string
	recommendLimit   int
	recommendOutput  string
	recommendTimeout time.Duration
)

func init() {
	recommendCmd.Flags().StringVarP(&recommendConfig, "config", "c", "", "Path to JSON config file with defaults")
	recommendCmd.Flags().StringVar(&recommendJob, "job", "", "Path to job posting text file")
	recommendCmd.Flags().StringVar(&recommendJobURL, "job-url", "", "URL to fetch the job posting from")
	recommendCmd.Flags().StringVarP(&recommendTitle, "title", "t", "", "Job title")
	recommendCmd.Flags().StringVarP(&recommendBank, "bank", "b", "", "Path to experience bank JSON file (required)")
	recommendCmd.Flags().StringVar(&recommendBias, "bias", "", "Weight profile override (technical, marketing, consulting, leadership)")
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "l", 0, "Candidate pool size for the prefilter")
	recommendCmd.Flags().StringVarP(&recommendOutput, "out", "o", "", "Path to output JSON file (default stdout)")
	recommendCmd.Flags().DurationVar(&recommendTimeout, "timeout", 2*time.Minute, "Overall operation timeout")

	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	cfg := config.Config{
		Job:            recommendJob,
		JobURL:         recommendJobURL,
		Bank:           recommendBank,
		FunctionBias:   recommendBias,
		CandidateLimit: recommendLimit,
	}
	if recommendConfig != "" {
		fileCfg, err := config.LoadConfig(recommendConfig)
		if err != nil {
			return err
		}
		cfg = cfg.MergeWithDefaults(*fileCfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Job == "" && cfg.JobURL == "" {
		return fmt.Errorf("one of --job or --job-url is required")
	}
	if cfg.Bank == "" {
		return fmt.Errorf("--bank is required")
	}

	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	jobText, err := loadJobText(ctx, cfg)
	if err != nil {
		return err
	}
	log.Debug("job posting loaded",
		zap.Int("chars", len(jobText)),
		zap.String("preview", logger.TruncateForLog(jobText, 120)))

	bank, err := experience.LoadExperienceBank(cfg.Bank)
	if err != nil {
		return err
	}
	log.Info("experience bank loaded",
		zap.Int("roles", len(bank.Roles)),
		zap.Int("bullets", len(bank.Bullets)))

	store, closeStore, err := openStore(ctx, cfg.SettingsFile, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	engine, err := buildEngine(ctx, cfg, store, bank, log)
	if err != nil {
		return err
	}

	w := worker.New(engine, log)
	go w.Run(ctx)

	msg := worker.NewMessage(worker.TypeRecommendation, map[string]any{
		"job_title":       recommendTitle,
		"job_description": jobText,
		"function_bias":   cfg.FunctionBias,
		"limit":           cfg.CandidateLimit,
	})
	resp, err := w.Call(ctx, msg, recommendTimeout)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("ranking failed: %s", resp.Error)
	}
	log.Info("ranking finished", zap.Duration("took", resp.ProcessingTime))

	if rec, ok := resp.Data.(*pipeline.Recommendation); ok && viper.GetBool("debug") {
		printer := observability.NewPrinter(os.Stderr)
		printer.PrintJobAnalysis(rec.Analysis)
		printer.PrintRecommendation(rec)
	}

	return writeResult(resp.Data, recommendOutput)
}

// buildEngine wires the provider stack and pipeline from configuration.
func buildEngine(ctx context.Context, cfg config.Config, store settings.Store, bank *types.ExperienceBank, log *zap.Logger) (*pipeline.Engine, error) {
	keys, err := llm.NewKeyring(ctx, store)
	if err != nil {
		return nil, err
	}
	if envKey := viper.GetString("api-key"); envKey != "" && keys.Get() == "" {
		if err := keys.Set(ctx, envKey); err != nil {
			return nil, err
		}
	}

	providerCfg := llm.DefaultConfig()
	if cfg.Provider != "" {
		providerCfg.Provider = llm.ProviderName(cfg.Provider)
	}
	if cfg.Model != "" {
		providerCfg.Model = cfg.Model
	}
	if cfg.EmbeddingModel != "" {
		providerCfg.EmbeddingModel = cfg.EmbeddingModel
	}
	if cfg.Dimensions > 0 {
		providerCfg.Dimensions = cfg.Dimensions
	}

	provider, err := llm.NewProvider(providerCfg, keys)
	if err != nil {
		return nil, err
	}
	embedder := llm.NewEmbedder(provider, keys, llm.EmbedderConfig{}, log)

	// Skill extraction runs only when a key is available; without it the
	// prefilter works off the raw job text.
	var extractor pipeline.JobExtractor
	if keys.Get() != "" {
		extractor = llm.NewExtractor(provider)
	}

	engineCfg := pipeline.Config{CandidateLimit: cfg.CandidateLimit}
	return pipeline.NewEngine(embedder, extractor, bank, engineCfg, log), nil
}

func loadJobText(ctx context.Context, cfg config.Config) (string, error) {
	if cfg.Job != "" {
		return ingest.FromFile(cfg.Job)
	}
	fetcher := ingest.NewFetcher(ingest.DefaultTimeout)
	return fetcher.FromURL(ctx, cfg.JobURL)
}

// writeResult marshals the recommendation to the output file or stdout.
func writeResult(data any, outPath string) error {
	jsonOutput, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation to JSON: %w", err)
	}

	if outPath == "" {
		fmt.Println(string(jsonOutput))
		return nil
	}

	outputDir := filepath.Dir(outPath)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
	}
	if err := os.WriteFile(outPath, jsonOutput, 0o644); err != nil {
		return fmt.Errorf("failed to write recommendation to %s: %w", outPath, err)
	}
	return nil
}
