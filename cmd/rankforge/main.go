// Package main provides the rankforge command line interface. It runs one
// experiment phase per invocation: seeding the memory namespace, replaying
// the training feed through the memory update loop, materializing group
// memory, or scoring the held-out feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/rankforge/pkg/agent"
	"github.com/entrhq/rankforge/pkg/agent/memory"
	appconfig "github.com/entrhq/rankforge/pkg/config"
	"github.com/entrhq/rankforge/pkg/dataset"
	"github.com/entrhq/rankforge/pkg/eval"
	"github.com/entrhq/rankforge/pkg/llm"
	"github.com/entrhq/rankforge/pkg/llm/openai"
	"github.com/entrhq/rankforge/pkg/logging"
	"github.com/entrhq/rankforge/pkg/types"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigFile  string
	Mode        string
	APIKey      string
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("rankforge v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		log.Printf("Execution failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags.
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to experiment configuration file (YAML, required)")
	flag.StringVar(&cli.Mode, "mode", "train", "Run mode: seed, train, groupmem, or eval")
	flag.StringVar(&cli.APIKey, "api-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rankforge - LLM-driven recommendation memory simulator\n\n")
		fmt.Fprintf(os.Stderr, "Usage: rankforge [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Seed the memory namespace, then train\n")
		fmt.Fprintf(os.Stderr, "  rankforge -config experiment.yaml -mode seed\n")
		fmt.Fprintf(os.Stderr, "  rankforge -config experiment.yaml -mode train\n\n")
		fmt.Fprintf(os.Stderr, "  # Score the held-out interactions\n")
		fmt.Fprintf(os.Stderr, "  rankforge -config experiment.yaml -mode eval\n\n")
	}

	flag.Parse()
	return cli
}

// run loads the experiment and dispatches on mode.
func run(ctx context.Context, cli *CLIConfig) error {
	if cli.ConfigFile == "" {
		return fmt.Errorf("config file is required (use -config)")
	}
	cfg, err := appconfig.Load(cli.ConfigFile)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.LogDir, "rankforge")
	if err != nil {
		// The fallback logger writes to stderr; keep going.
		log.Printf("file logging unavailable: %v", err)
	}
	defer logger.Close()

	logger.Infof("experiment %q mode %s variant %s", cfg.ExperimentName(), cli.Mode, cfg.Variant)

	catalog, err := dataset.LoadCatalog(cfg.Data.Catalog)
	if err != nil {
		return err
	}
	resolver := dataset.NewResolver(cfg.Domains, cfg.MainCategory)
	store := memory.NewStore(cfg.MemoryRoot, cfg.ExperimentName())

	switch cli.Mode {
	case "seed":
		return runSeed(cfg, store, catalog, resolver, logger)
	case "train":
		return runTrain(ctx, cli, cfg, store, catalog, resolver, logger)
	case "groupmem":
		return runGroupMem(cfg, store, catalog, resolver, logger)
	case "eval":
		return runEval(ctx, cli, cfg, store, catalog, resolver, logger)
	default:
		return fmt.Errorf("invalid mode: %s (must be seed, train, groupmem, or eval)", cli.Mode)
	}
}

// newProvider builds the retry-wrapped LLM provider from the experiment's
// settings.
func newProvider(cli *CLIConfig, cfg *appconfig.Config) (llm.Provider, error) {
	opts := []openai.ProviderOption{openai.WithModel(cfg.LLM.Model)}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
	}
	base, err := openai.NewProvider(cli.APIKey, opts...)
	if err != nil {
		return nil, err
	}
	return llm.NewRetryProvider(base), nil
}

// loadSampler builds the negative sampler over every configured candidate
// pool.
func loadSampler(cfg *appconfig.Config, resolver *dataset.Resolver) (*dataset.Sampler, error) {
	pools := make(map[string]*dataset.CandidatePool, len(cfg.Domains))
	for _, domain := range cfg.Domains {
		pool, err := dataset.LoadCandidatePool(cfg.Data.CandidatePools[domain])
		if err != nil {
			return nil, err
		}
		pools[domain] = pool
	}
	return dataset.NewSampler(resolver, pools, cfg.Seed), nil
}

// runSeed writes the initial memory files for every catalog item and every
// user appearing in either feed.
func runSeed(cfg *appconfig.Config, store *memory.Store, catalog *dataset.Catalog,
	resolver *dataset.Resolver, logger *logging.Logger) error {
	train, err := dataset.LoadInteractions(cfg.Data.InteractionsTrain)
	if err != nil {
		return err
	}
	test, err := dataset.LoadInteractions(cfg.Data.InteractionsTest)
	if err != nil {
		return err
	}
	feed := append(train, test...)

	if cfg.Variant == types.VariantCrossDomain {
		userDomains := make(map[string][]string)
		for _, inter := range feed {
			item, ok := catalog.Item(inter.ItemID)
			if !ok {
				continue
			}
			domain, err := resolver.Domain(item.MainCategory)
			if err != nil {
				continue
			}
			if !containsString(userDomains[inter.UserID], domain) {
				userDomains[inter.UserID] = append(userDomains[inter.UserID], domain)
			}
		}
		if err := store.SeedCrossDomain(catalog.Items(), userDomains); err != nil {
			return err
		}
		logger.Infof("seeded cross-domain memory for %d users", len(userDomains))
		return nil
	}

	seen := make(map[string]bool)
	var userIDs []string
	for _, inter := range feed {
		if !seen[inter.UserID] {
			seen[inter.UserID] = true
			userIDs = append(userIDs, inter.UserID)
		}
	}
	if err := store.SeedBase(catalog.Items(), userIDs, cfg.Domains); err != nil {
		return err
	}
	logger.Infof("seeded base memory for %d users", len(userIDs))
	return nil
}

// runTrain replays the training feed through the memory update loop.
func runTrain(ctx context.Context, cli *CLIConfig, cfg *appconfig.Config, store *memory.Store,
	catalog *dataset.Catalog, resolver *dataset.Resolver, logger *logging.Logger) error {
	feed, err := dataset.LoadInteractions(cfg.Data.InteractionsTrain)
	if err != nil {
		return err
	}
	sampler, err := loadSampler(cfg, resolver)
	if err != nil {
		return err
	}
	provider, err := newProvider(cli, cfg)
	if err != nil {
		return err
	}

	var audit *agent.AuditLog
	if cfg.Variant == types.VariantCrossDomain {
		audit, err = agent.NewAuditLog(cfg.CaseStudyLogPath())
		if err != nil {
			return err
		}
	}

	trainer := agent.NewTrainer(cfg, store, catalog, sampler, resolver, provider, logger, audit)
	stats, err := trainer.Run(ctx, feed)
	if err != nil {
		return err
	}
	logger.Infof("training complete: %d/%d done, %d skipped, %d snapshots",
		stats.Done, stats.Total, stats.Skipped, stats.Snapshots)
	fmt.Printf("training complete: %d/%d done, %d skipped\n", stats.Done, stats.Total, stats.Skipped)
	return nil
}

// runGroupMem materializes the shared group memory files from the training
// feed and the cluster table.
func runGroupMem(cfg *appconfig.Config, store *memory.Store, catalog *dataset.Catalog,
	resolver *dataset.Resolver, logger *logging.Logger) error {
	if cfg.Data.GroupTable == "" {
		return fmt.Errorf("groupmem mode requires data.group_table in the config")
	}
	groups, err := dataset.LoadGroupTable(cfg.Data.GroupTable)
	if err != nil {
		return err
	}
	feed, err := dataset.LoadInteractions(cfg.Data.InteractionsTrain)
	if err != nil {
		return err
	}
	if err := eval.MaterializeGroupMemory(store, groups, catalog, resolver, feed, cfg.Domains); err != nil {
		return err
	}
	logger.Infof("materialized group memory for %d groups", len(groups.Names()))
	return nil
}

// runEval scores the held-out feed and appends the aggregates to the result
// log.
func runEval(ctx context.Context, cli *CLIConfig, cfg *appconfig.Config, store *memory.Store,
	catalog *dataset.Catalog, resolver *dataset.Resolver, logger *logging.Logger) error {
	feed, err := dataset.LoadInteractions(cfg.Data.InteractionsTest)
	if err != nil {
		return err
	}
	sampler, err := loadSampler(cfg, resolver)
	if err != nil {
		return err
	}
	provider, err := newProvider(cli, cfg)
	if err != nil {
		return err
	}
	results, err := logging.NewResultLog(cfg.ResultLogPath())
	if err != nil {
		return err
	}

	var groups *dataset.GroupTable
	if cfg.Data.GroupTable != "" {
		groups, err = dataset.LoadGroupTable(cfg.Data.GroupTable)
		if err != nil {
			return err
		}
	}

	evaluator := eval.NewEvaluator(cfg, store, catalog, sampler, resolver, provider, logger, results, groups)
	summary, err := evaluator.Run(ctx, feed)
	if err != nil {
		return err
	}
	logger.Infof("evaluation complete: %d evaluated, %d skipped", summary.Evaluated, summary.Skipped)
	fmt.Printf("NDCG@10: %v\nNDCG@5: %v\nNDCG@1: %v\nMRR: %v\n",
		summary.NDCG10, summary.NDCG5, summary.NDCG1, summary.MRR)
	return nil
}

func containsString(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}
