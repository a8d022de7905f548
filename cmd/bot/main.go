package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookiebot/internal/api"
	"bookiebot/internal/bets"
	"bookiebot/internal/commands"
	"bookiebot/internal/database"
	"bookiebot/internal/logger"
	"bookiebot/internal/metrics"
	"bookiebot/internal/stats"
	"bookiebot/internal/store"
	"bookiebot/internal/webhook"
	"bookiebot/pkg/config"
)

func main() {
	_ = godotenv.Load()

	config.Load()

	zlog, err := logger.New("bookiebot", config.Env)
	if err != nil {
		log.Fatal("Error building logger: ", err)
	}
	defer zlog.Sync()

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		log.Fatal("DISCORD_TOKEN not found in environment variables")
	}

	db, err := database.Initialize(config.DBType, config.ConnString)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()
	zlog.Info("database initialized", zap.String("type", config.DBType))

	st := store.NewSQLStore(db, config.Economy.StartingBalance)

	policy, err := bets.ParseStatPolicy(config.Economy.StatWinRule)
	if err != nil {
		log.Fatal("Invalid stat_win_rule: ", err)
	}

	// Create Discord session
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatal("Error creating Discord session: ", err)
	}

	notifier := commands.NewDiscordNotifier(dg, config.Bot.BetChannelID, zlog)
	oracle := stats.NewClient(config.Bot.StatAPIURL)

	engine := bets.New(st, notifier, oracle, policy, zlog)
	engine.ResolveHook = webhook.NewSender(st, zlog).NotifyResolved

	handler := commands.New(st, engine, config.Bot.CommandPrefix, zlog)
	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.ReactionAdd)

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions | discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	// Open websocket
	if err := dg.Open(); err != nil {
		log.Fatal("Error opening connection: ", err)
	}

	// Start expiry sweep
	sweeper := bets.NewSweeper(engine, time.Duration(config.Economy.SweepIntervalSeconds)*time.Second, zlog)
	sweeper.Start()

	// Start API server
	if config.Bot.EnableAPI {
		go func() {
			if err := api.NewServer(st, zlog).Start(config.Bot.ApiPort); err != nil {
				zlog.Error("API server failed", zap.Error(err))
			}
		}()
	} else {
		zlog.Info("API is disabled in config.json")
	}

	metrics.StartServer(config.Bot.MetricsPort, func(ctx context.Context) error {
		return db.Ping()
	})

	zlog.Info("bot is now running, press CTRL-C to exit")

	// Wait here until CTRL-C or other term signal is received.
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	sweeper.Stop()
	dg.Close()
}
