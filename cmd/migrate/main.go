package main

import (
	"log"

	"miim/internal/config"
	"miim/internal/database"
	"miim/internal/models"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	// Connect to database
	log.Printf("🔍 Database: %s", &cfg.Database)
	if err := database.Connect(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	var sectors int64
	if err := database.DB.Model(&models.Sector{}).Count(&sectors).Error; err != nil {
		log.Fatal("Failed to count sectors:", err)
	}
	log.Printf("✅ Migrations complete: %d tables, %d canonical sectors", len(models.AllModels()), sectors)
}
