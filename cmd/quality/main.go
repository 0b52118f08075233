package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"miim/internal/app"
	"miim/internal/config"
	"miim/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	commit := flag.Bool("commit", false, "Apply merges, fills and normalizations (default is a dry run)")
	export := flag.String("export", "", "Write the report as an XLSX workbook to this path")
	markdown := flag.String("markdown", "", "Write the report as Markdown to this path")
	flag.Parse()

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
		log.Fatal("Failed to run migrations:", err)
	}

	application, err := app.New(database.DB, cfg)
	if err != nil {
		log.Fatal("Failed to initialize services:", err)
	}

	qs := application.Quality(*commit || cfg.Quality.Commit)
	summary, err := qs.Run(context.Background())
	if err != nil {
		log.Fatalf("❌ QA sweep failed: %v", err)
	}

	fmt.Printf("Run %s (%s)\n", summary.RunID, summary.Mode)
	fmt.Printf("Duplicate pairs:   %d\n", summary.DuplicatesFound)
	fmt.Printf("Merges:            %d\n", summary.MergesApplied)
	fmt.Printf("Nulls filled:      %d\n", summary.NullsFilled)
	fmt.Printf("Names normalized:  %d\n", summary.NamesNormalized)
	fmt.Println()
	fmt.Print(summary.Report.Markdown())

	if *markdown != "" {
		if err := os.WriteFile(*markdown, []byte(summary.Report.Markdown()), 0o644); err != nil {
			log.Fatalf("❌ Failed to write %s: %v", *markdown, err)
		}
		log.Printf("📝 Markdown report written to %s", *markdown)
	}
	if *export != "" {
		if err := summary.Report.SaveXLSX(*export); err != nil {
			log.Fatalf("❌ Failed to export %s: %v", *export, err)
		}
		log.Printf("📊 XLSX report written to %s", *export)
	}
}
