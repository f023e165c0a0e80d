package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/klimeurt/repo-harvester/internal/collector"
	"github.com/klimeurt/repo-harvester/internal/config"
	"github.com/klimeurt/repo-harvester/internal/downloader"
	"github.com/klimeurt/repo-harvester/internal/publisher"
	"github.com/klimeurt/repo-harvester/internal/words"
	"github.com/robfig/cron/v3"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create publisher (nil when NATS is not configured)
	pub, err := publisher.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	// Without a schedule, run a single harvest and exit
	if cfg.CronSchedule == "" {
		if err := harvest(context.Background(), cfg, pub); err != nil {
			log.Fatalf("Harvest failed: %v", err)
		}
		return
	}

	// Create cron scheduler
	c := cron.New()

	// Add job
	_, err = c.AddFunc(cfg.CronSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()

		if err := harvest(ctx, cfg, pub); err != nil {
			log.Printf("Harvest failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to add cron job: %v", err)
	}

	// Start cron scheduler
	c.Start()
	log.Printf("Cron scheduler started with schedule: %s", cfg.CronSchedule)

	// Run immediately on startup if configured
	if cfg.RunOnStartup {
		log.Println("Running initial harvest on startup...")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		if err := harvest(ctx, cfg, pub); err != nil {
			log.Printf("Initial harvest failed: %v", err)
		}
		cancel()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	c.Stop()
}

// harvest runs one full collection: keyword-sampled search until the target
// repository count is reached, then archive download and extraction.
func harvest(ctx context.Context, cfg *config.Config, pub *publisher.Publisher) error {
	start := time.Now()
	log.Printf("***** Getting %d repositories *****", cfg.TargetRepoCount)
	log.Printf("Target directory is %s", cfg.OutputDir)

	src := words.New(cfg.WordAPIURL)
	searcher := collector.NewSearcher(cfg, collector.NewFilter(cfg.AcceptedYears))
	orch := collector.NewOrchestrator(cfg, src, searcher, pub)

	repos, err := orch.Collect(ctx)
	if err != nil {
		return err
	}
	log.Printf("Retrieval completed. Total time taken is %s", time.Since(start).Round(time.Second))

	results := downloader.New(cfg).DownloadAll(ctx, repos)
	for _, res := range results {
		if err := pub.PublishDownload(res); err != nil {
			log.Printf("Failed to publish download result for %s: %v", res.FullName, err)
		}
	}
	log.Printf("Download completed. Total time taken is %s", time.Since(start).Round(time.Second))
	log.Printf("***** Finished getting repositories *****")
	return nil
}
