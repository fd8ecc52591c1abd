// Command etl runs the comment pipeline once without the HTTP server or the
// run ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/artifact"
	"github.com/youtube-comments-etl/internal/config"
	"github.com/youtube-comments-etl/internal/etl"
	"github.com/youtube-comments-etl/internal/youtube"
	"github.com/youtube-comments-etl/pkg/logger"
)

func main() {
	stage := flag.String("stage", "all", "stage to run: extract, transform, load or all")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-stage extract|transform|load|all]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Configuration is read from the environment (YOUTUBE_API_KEY, YOUTUBE_VIDEO_ID, DATA_DIR, ...)")
		fmt.Fprintln(flag.CommandLine.Output(), "and the optional YAML file named by ETL_CONFIG_FILE.")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*stage)
	if err != nil {
		log := logger.New("info", os.Getenv("LOG_FORMAT"))
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
	defer cancel()

	if err := run(ctx, cfg, *stage, log); err != nil {
		log.Error().Err(err).Str("stage", *stage).Msg("Pipeline failed")
		os.Exit(1)
	}
}

// needsAPI reports whether stage calls the YouTube API
func needsAPI(stage string) bool {
	return stage == "all" || stage == etl.StageExtract
}

// loadConfig requires the YouTube settings only for stages that fetch
func loadConfig(stage string) (*config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, err
	}
	if needsAPI(stage) {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateLocal()
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, stage string, log zerolog.Logger) error {
	store, err := artifact.NewStore(cfg.Pipeline.DataDir, log)
	if err != nil {
		return err
	}

	var fetcher etl.CommentFetcher
	if needsAPI(stage) {
		client, err := youtube.NewClient(ctx, cfg.YouTube, log)
		if err != nil {
			return err
		}
		fetcher = client
	}

	workflow, err := etl.New(fetcher, store, cfg.YouTube.VideoID, log)
	if err != nil {
		return err
	}

	if stage == "all" {
		return workflow.Run(ctx, nil)
	}

	result, err := workflow.RunUnit(ctx, stage)
	if err != nil {
		return err
	}
	log.Info().
		Str("stage", stage).
		Int("records_in", result.RecordsIn).
		Int("records_out", result.RecordsOut).
		Int("dropped", result.Dropped).
		Msg("Stage finished")
	return nil
}
