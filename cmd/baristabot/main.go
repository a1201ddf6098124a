// Package main is the entrypoint of the coffee shop assistant: HTTP API,
// optional Telegram bot and background maintenance.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/redis/go-redis/v9"

	"github.com/edgard/baristabot/internal/assistant"
	"github.com/edgard/baristabot/internal/bot"
	"github.com/edgard/baristabot/internal/bot/handlers"
	"github.com/edgard/baristabot/internal/bot/tasks"
	"github.com/edgard/baristabot/internal/catalog"
	"github.com/edgard/baristabot/internal/chat"
	"github.com/edgard/baristabot/internal/config"
	"github.com/edgard/baristabot/internal/database"
	"github.com/edgard/baristabot/internal/gemini"
	"github.com/edgard/baristabot/internal/httpapi"
	"github.com/edgard/baristabot/internal/logger"
	"github.com/edgard/baristabot/internal/retrieval"
	"github.com/edgard/baristabot/internal/telegram"

	_ "modernc.org/sqlite"
)

var commandDescriptions = map[string]string{
	"start": "Greeting and what I can help with",
	"help":  "How to use the assistant",
	"reset": "Clear this chat's history (admin)",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until shutdown and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	importOnly := flag.Bool("import-only", false, "Import the catalog, rebuild the retrieval index and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	if cfg.Catalog.Path != "" {
		stats, err := catalog.ImportFile(ctx, store, cfg.Catalog.Path, log)
		if err != nil {
			log.Error("Failed to import catalog", "path", cfg.Catalog.Path, "error", err)
			return 1
		}
		log.Info("Catalog imported", "categories", stats.Categories, "products", stats.Products)
	}

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	var cache retrieval.EmbeddingCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("Error closing redis client", "error", err)
			}
		}()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable, embedding cache will miss until it recovers", "addr", cfg.Redis.Addr, "error", err)
		}
		cache = retrieval.NewRedisEmbeddingCache(rdb, cfg.Gemini.EmbeddingModel, cfg.Redis.TTL, log)
	}

	indexer := retrieval.NewIndexer(store, gemClient, retrieval.IndexerOptions{
		DocumentsDir: cfg.Retrieval.DocumentsDir,
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
		BatchSize:    cfg.Retrieval.EmbedBatchSize,
		Logger:       log,
	})
	retriever := retrieval.NewVectorRetriever(store, gemClient, cache, log)

	if err := ensureIndex(ctx, log, store, indexer, cfg.Retrieval.RebuildOnStart || *importOnly); err != nil {
		log.Error("Failed to build retrieval index", "error", err)
		return 1
	}
	if *importOnly {
		log.Info("Import finished, exiting")
		return 0
	}

	asst, err := assistant.New(assistant.Options{
		Retriever: retriever,
		Completer: gemClient,
		Context: &assistant.ConversationProvider{
			MaxTurns: cfg.Assistant.HistoryTurns,
			Lookup:   catalog.Lookup{Store: store},
			Logger:   log,
		},
		TopK:   cfg.Retrieval.TopK,
		Logger: log,
	})
	if err != nil {
		log.Error("Failed to create assistant", "error", err)
		return 1
	}

	chatSvc := chat.NewService(asst, store, chat.Options{
		HistoryTurns:   cfg.Assistant.HistoryTurns,
		BlockedMessage: cfg.Messages.Blocked,
		Logger:         log,
	})

	tDeps := tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Config:   cfg,
		Indexer:  indexer,
		Reloader: retriever,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var httpServer bot.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = httpapi.NewServer(cfg.HTTP, httpapi.Deps{
			Logger:         log,
			Store:          store,
			Chat:           chatSvc,
			RequestTimeout: cfg.Assistant.RequestTimeout,
		})
	}

	var tg *tgbot.Bot
	if cfg.Telegram.Token != "" {
		tg, err = newTelegram(ctx, log, cfg, handlers.HandlerDeps{
			Logger: log,
			Config: cfg,
			Store:  store,
			Chat:   chatSvc,
		})
		if err != nil {
			log.Error("Failed to set up Telegram bot", "error", err)
			return 1
		}
	}

	app := bot.NewBot(log, httpServer, tg, sched)

	log.Info("Starting BaristaBot...")
	runErr := app.Run(ctx)
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("BaristaBot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("BaristaBot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

// ensureIndex rebuilds the retrieval index when forced or when it is empty.
func ensureIndex(ctx context.Context, log *slog.Logger, store database.Store, indexer *retrieval.Indexer, force bool) error {
	if !force {
		n, err := store.CountChunks(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("Using existing retrieval index", "chunks", n)
			return nil
		}
	}

	n, err := indexer.Rebuild(ctx)
	if err != nil {
		return err
	}
	log.Info("Retrieval index built", "chunks", n)
	return nil
}

// newTelegram creates the Telegram bot and registers its handlers.
func newTelegram(ctx context.Context, log *slog.Logger, cfg *config.Config, hDeps handlers.HandlerDeps) (*tgbot.Bot, error) {
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		return nil, err
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		return nil, err
	}
	if err := telegram.SetCommands(ctx, tg, telegram.CommandList(cmdHandlers, commandDescriptions)); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}
	return tg, nil
}
