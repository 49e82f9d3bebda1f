// DeFi Portfolio Guardian: risk and opportunity agent for token portfolios.
// Serves a WebSocket API for the dashboard; answers token metric lookups,
// portfolio risk assessments and liquidity pool scans via Masa data APIs
// and a Claude agent loop.
package main

import (
	"log"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/joho/godotenv"

	"github.com/defiguardian/guardian/agent"
	"github.com/defiguardian/guardian/engine"
	"github.com/defiguardian/guardian/guardian"
	"github.com/defiguardian/guardian/masa"
	"github.com/defiguardian/guardian/memory"
	"github.com/defiguardian/guardian/memory/store/chromem"
	"github.com/defiguardian/guardian/server"
)

func main() {
	_ = godotenv.Load()

	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		log.Fatal("ANTHROPIC_API_KEY environment variable is required")
	}

	masaKey := os.Getenv("MASA_API_KEY")
	if masaKey == "" {
		log.Fatal("MASA_API_KEY environment variable is required")
	}

	masaBaseURL := os.Getenv("MASA_BASE_URL")
	if masaBaseURL == "" {
		masaBaseURL = masa.DefaultBaseURL
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Masa data client feeds every upstream read: price pages, tweet
	// searches, sentiment analysis, pool listings.
	masaClient := masa.NewClient(masa.Config{
		BaseURL: masaBaseURL,
		APIKey:  masaKey,
	})

	aggregator, err := guardian.NewAggregator(masaClient)
	if err != nil {
		log.Fatal(err)
	}
	evaluator := guardian.NewRiskEvaluator(aggregator, 0)
	scanner := guardian.NewPoolScanner(masaClient, guardian.DefaultPoolSources()...)

	deps := &agent.Deps{
		Metrics: aggregator,
		Risk:    evaluator,
		Pools:   scanner,
	}

	registry := engine.NewToolRegistry()
	for _, tool := range agent.CreateTools(deps) {
		registry.Register(tool)
	}
	log.Printf("Registered %d guardian tools", len(registry.Names()))

	client := anthropic.NewClient(option.WithAPIKey(anthropicKey))

	opts := []engine.Option{
		engine.WithGuardrails(engine.NewRateLimiter(30, time.Minute)),
		engine.WithAudit(engine.LogAuditLogger{}),
	}

	if os.Getenv("MEMORY_ENABLED") == "true" {
		store, err := chromem.New()
		if err != nil {
			log.Fatal(err)
		}
		embedder, err := newEmbedder()
		if err != nil {
			log.Fatal(err)
		}
		manager := memory.NewSimpleManager(store, embedder, &memory.Config{
			Enabled:            true,
			RetrievalLimit:     10,
			MaxMemoriesPerUser: 1000,
		})
		opts = append(opts, engine.WithMemory(manager))
		log.Println("Memory enabled (chromem store)")
	}

	eng := engine.NewEngine(&client, registry, opts...)
	srv := server.New(eng, deps)

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("DeFi Portfolio Guardian Running")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("WebSocket endpoint: ws://localhost:%s/ws", port)
	log.Printf("Health check: http://localhost:%s/health", port)
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("Masa data API: %s", masaBaseURL)
	log.Println("Operations: token metrics, portfolio risk, pool discovery")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := srv.ListenAndServe(":" + port); err != nil {
		log.Fatal(err)
	}
}
