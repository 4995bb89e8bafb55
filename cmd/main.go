package main

import (
	"fmt"
	"os"

	"github.com/teachback/teachback-backend/internal/data/store"
	teachhttp "github.com/teachback/teachback-backend/internal/http"
	"github.com/teachback/teachback-backend/internal/http/handlers"
	"github.com/teachback/teachback-backend/internal/platform/envutil"
	"github.com/teachback/teachback-backend/internal/platform/keylock"
	"github.com/teachback/teachback-backend/internal/platform/logger"
	"github.com/teachback/teachback-backend/internal/platform/openai"
	"github.com/teachback/teachback-backend/internal/services"
)

func main() {
	// Logger
	log, err := logger.New(envutil.Str("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables...")
	port := envutil.Str("PORT", "8080")
	maxDocChars := envutil.Int("MAX_DOCUMENT_CHARS", services.DefaultMaxDocumentChars)
	mockUploadFlow := envutil.Bool("MOCK_UPLOAD_FLOW", false)

	// Store
	var convStore store.ConversationStore
	driver := envutil.Str("STORE_DRIVER", "file")
	switch driver {
	case "sqlite":
		convStore, err = store.NewSQLiteStore(envutil.Str("SQLITE_PATH", "teachback.db"), log)
	case "file":
		convStore, err = store.NewFileStore(envutil.Str("DATABASE_DIR", "database"), log)
	default:
		log.Fatal("Unknown STORE_DRIVER", "driver", driver)
	}
	if err != nil {
		log.Error("Could not init conversation store", "driver", driver, "error", err)
		os.Exit(1)
	}
	log.Info("Conversation store ready", "driver", driver)

	// Language model
	var llm openai.Client
	llm, err = openai.NewClient(log)
	if err != nil {
		log.Warn("OpenAI client unavailable, falling back to static replies", "error", err)
		llm = openai.NewStaticClient("That makes sense so far. Can you walk me through it once more in your own words?")
	}

	// Services
	log.Info("Setting up services...")
	locks := keylock.New()
	conversationService := services.NewConversationService(log, convStore, llm, services.NewRandomScorer(), locks)
	extractionService := services.NewExtractionService(log, convStore, llm, conversationService, locks, mockUploadFlow)
	documentService := services.NewDocumentService(log, convStore, maxDocChars)

	// HTTP
	server := teachhttp.NewServer(teachhttp.RouterConfig{
		ExtractionHandler:   handlers.NewExtractionHandler(log, documentService, extractionService),
		ConversationHandler: handlers.NewConversationHandler(log, conversationService),
	})

	log.Info("Starting server", "port", port)
	if err := server.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
