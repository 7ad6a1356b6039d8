package main

import (
	"flag"
	"fmt"
	"os"

	"llm-app-lab/filter"
	"llm-app-lab/llm"
	"llm-app-lab/memory"
	"llm-app-lab/search"
	"llm-app-lab/session"
	"llm-app-lab/ui"
	"llm-app-lab/utils"
)

var (
	version = "0.1.0"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("LLM App Lab v%s\n", version)
		os.Exit(0)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.GetLogPath())
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("Starting LLM App Lab v%s", version)

	// Load configuration from the environment / .env file. A missing API
	// key is fatal: the main interface never opens without a credential.
	config, err := utils.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		fmt.Fprintf(os.Stderr, "配置错误: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Configuration loaded, model %s at %s", config.Model, config.BaseURL)

	// Sensitive-word filter
	wordFilter := filter.New(config.WordsFile, logger)

	// Conversation store
	store, err := memory.NewStore(config.ConversationDir, logger)
	if err != nil {
		logger.Error("Failed to open conversation store: %v", err)
		os.Exit(1)
	}

	// Full-text search index, rebuilt from the JSON records at startup.
	index, err := search.Open(config.IndexPath)
	if err != nil {
		logger.Error("Failed to open search index: %v", err)
		os.Exit(1)
	}
	defer index.Close()

	if err := index.Rebuild(store.All()); err != nil {
		logger.Error("Failed to rebuild search index: %v", err)
		os.Exit(1)
	}
	store.SetIndexer(index)
	logger.Info("Search index ready: %s", config.IndexPath)

	// LLM client and the three session types
	client := llm.NewClient(llm.Config{
		APIKey:  config.APIKey,
		BaseURL: config.BaseURL,
		Model:   config.Model,
	})

	chatSession := session.NewChatSession(store, client, wordFilter, logger)
	debateSession := session.NewDebateSession(client, wordFilter, logger)
	codeGenSession := session.NewCodeGenSession(client, wordFilter, logger)

	// Create and run application
	app := ui.NewApp(store, wordFilter, index, chatSession, debateSession, codeGenSession, logger)

	logger.Info("Application started")
	app.Run()
	logger.Info("Application stopped")
}
