package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"exachat_go_backend/cmd/api/config"
	"exachat_go_backend/internal/api"
	"exachat_go_backend/internal/auth"
	"exachat_go_backend/internal/database"
	"exachat_go_backend/internal/services"
	"exachat_go_backend/internal/stream"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	genaiAPIKey := os.Getenv("GOOGLE_AI_STUDIO_API_KEY")
	if genaiAPIKey == "" {
		log.Fatal("GOOGLE_AI_STUDIO_API_KEY is not set in the environment")
	}

	exaAPIKey := os.Getenv("EXA_API_KEY")
	if exaAPIKey == "" {
		log.Fatal("EXA_API_KEY is not set in the environment")
	}

	firecrawlAPIKey := os.Getenv("FIRE_CRAWL_KEY")
	if firecrawlAPIKey == "" {
		log.Fatal("FIRE_CRAWL_KEY is not set in the environment")
	}

	ctx := context.Background()

	database.InitDB()

	cfg := config.NewConfig()

	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(genaiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}
	defer genaiClient.Close()

	// Initialize internal services
	chatStore := services.NewChatStoreDB(database.DB)
	entitlementService := services.NewEntitlementService(chatStore, cfg.EntitlementWindow)
	titleService := services.NewTitleService(genaiClient, cfg.TitleModel)

	exaClient := services.NewExaClient(exaAPIKey)
	firecrawlClient := services.NewFirecrawlClient(firecrawlAPIKey)
	toolRegistry := services.NewToolRegistry(exaClient, firecrawlClient)

	generationService := services.NewGenerationService(
		genaiClient,
		cfg.ChatModel,
		toolRegistry,
		chatStore,
		cfg.MaxGenerationSteps,
		cfg.GenerationTimeout,
	)

	// Resumable streaming is an injected capability: disable it and the
	// chat endpoint falls back to direct streaming.
	var streamRegistry *stream.Registry
	if os.Getenv("RESUMABLE_STREAMS") != "disabled" {
		streamRegistry = stream.NewRegistry()
	} else {
		log.Println("Resumable streams are disabled")
	}

	chatHandler := api.NewChatHandler(
		chatStore,
		entitlementService,
		titleService,
		generationService,
		toolRegistry,
		streamRegistry,
		cfg.ResumeStaleness,
	)

	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	// CORS middleware configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(allowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r, chatHandler)
	auth.SetupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
