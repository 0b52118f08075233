package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"miim/internal/app"
	"miim/internal/config"
	"miim/internal/database"
	"miim/internal/extraction"
	"miim/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	scrape := flag.Bool("scrape", false, "Scrape configured news sources into pending articles")
	extract := flag.Bool("extract", false, "Extract pending articles and route them into the graph")
	limit := flag.Int("limit", 50, "Maximum number of pending articles to extract")
	full := flag.Bool("full", false, "Scrape, then extract")
	reprocess := flag.Bool("reprocess", false, "Reset every non-pending article to pending, then extract")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [--scrape] [--extract] [--full] [--reprocess] [--limit N]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	opts := services.RunOptions{
		Scrape:    *scrape || *full,
		Extract:   *extract || *full,
		Reprocess: *reprocess,
		Limit:     *limit,
	}
	if !opts.Scrape && !opts.Extract && !opts.Reprocess {
		flag.Usage()
		os.Exit(2)
	}

	os.Exit(run(opts))
}

// run owns every deferred cleanup and returns the process exit code
func run(opts services.RunOptions) int {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	if err := database.Connect(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Println("Failed to run migrations:", err)
		return 1
	}

	application, err := app.New(database.DB, cfg)
	if err != nil {
		log.Println("Failed to initialize services:", err)
		return 1
	}

	var extractor extraction.Extractor
	if opts.Extract || opts.Reprocess {
		if extractor, err = application.Extractor(); err != nil {
			log.Printf("❌ Cannot extract: %v (set OPENAI_API_KEY)", err)
			return 1
		}
	}

	pipeline, err := application.Pipeline(extractor)
	if err != nil {
		log.Println("Failed to build pipeline:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := pipeline.Run(ctx, opts)
	if err != nil {
		log.Printf("❌ Pipeline stopped: %v", err)
	}
	if stats != nil {
		fmt.Printf("Processed:             %d\n", stats.Processed)
		fmt.Printf("Companies upserted:    %d\n", stats.EntitiesUpserted)
		fmt.Printf("Events created:        %d\n", stats.EventsCreated)
		fmt.Printf("Relationships created: %d\n", stats.RelationshipsCreated)
		fmt.Printf("Auto-approved:         %d\n", stats.Approved)
		fmt.Printf("Review queue:          %d\n", stats.ReviewQueue)
		fmt.Printf("Skipped:               %d\n", stats.Skipped)
		fmt.Printf("Failed:                %d\n", stats.Failed)
		fmt.Printf("Cost (USD):            %.4f\n", stats.TotalCostUSD)
	}

	if counts, cerr := application.Articles.StatusCounts(context.Background()); cerr == nil {
		fmt.Printf("Articles by status:    %v\n", counts)
	}
	if total, cerr := pipeline.TotalCost(context.Background()); cerr == nil {
		fmt.Printf("Total LLM spend (USD): %.4f\n", total)
	}

	if err != nil {
		return 1
	}
	return 0
}
