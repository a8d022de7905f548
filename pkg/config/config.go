package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
)

type EconomyConfig struct {
	StartingBalance      int    `json:"starting_balance"`
	BegAmount            int    `json:"beg_amount"`
	BegCooldownMinutes   int    `json:"beg_cooldown_minutes"`
	SweepIntervalSeconds int    `json:"sweep_interval_seconds"`
	StatWinRule          string `json:"stat_win_rule"`
}

type DatabaseConfig struct {
	Type string `json:"type"` // "sqlite" or "postgres"
}

type GeneralConfig struct {
	BotName       string         `json:"bot_name"`
	CurrencyName  string         `json:"currency_name"`
	CommandPrefix string         `json:"command_prefix"`
	BetChannelID  string         `json:"bet_channel_id"`
	EnableAPI     bool           `json:"enable_api"`
	ApiPort       string         `json:"api_port"`
	MetricsPort   string         `json:"metrics_port"`
	StatAPIURL    string         `json:"stat_api_url"`
	Database      DatabaseConfig `json:"database"`
}

var (
	Economy    EconomyConfig
	Bot        GeneralConfig
	Env        string
	DBType     string
	ConnString string
)

func Load() {
	loadJSON("economy.json", &Economy)
	loadJSON("config.json", &Bot)

	applyDefaults()
	setupDatabaseConfig()

	Env = os.Getenv("ENV")
	if Env == "" {
		Env = "local"
	}
}

func applyDefaults() {
	if Economy.StartingBalance <= 0 {
		Economy.StartingBalance = 6900
	}
	if Economy.BegAmount <= 0 {
		Economy.BegAmount = 100
	}
	if Economy.BegCooldownMinutes <= 0 {
		Economy.BegCooldownMinutes = 60
	}
	if Economy.SweepIntervalSeconds <= 0 {
		Economy.SweepIntervalSeconds = 5
	}
	if Bot.CommandPrefix == "" {
		Bot.CommandPrefix = "!b"
	}
	if Bot.CurrencyName == "" {
		Bot.CurrencyName = "coins"
	}
	if Bot.ApiPort == "" {
		Bot.ApiPort = "8080"
	}
	if Bot.MetricsPort == "" {
		Bot.MetricsPort = "9095"
	}
}

func setupDatabaseConfig() {
	// DB_TYPE from .env overrides config.json
	DBType = os.Getenv("DB_TYPE")
	if DBType == "" {
		DBType = Bot.Database.Type
	}
	if DBType == "" {
		DBType = "sqlite"
	}

	switch DBType {
	case "postgres":
		ConnString = buildPostgresConnectionString()
	case "sqlite":
		fallthrough
	default:
		ConnString = os.Getenv("SQLITE_PATH")
		if ConnString == "" {
			ConnString = "./bookiebot.db"
		}
		DBType = "sqlite"
	}
}

func buildPostgresConnectionString() string {
	// A full DATABASE_URL wins if available (works with pgx)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		log.Println("Using DATABASE_URL from environment")
		return dbURL
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		log.Fatal("DB_HOST is required for PostgreSQL. Set it in .env file or use DATABASE_URL")
	}

	portStr := os.Getenv("DB_PORT")
	port := 5432
	if portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	user := os.Getenv("DB_USER")
	if user == "" {
		log.Fatal("DB_USER is required for PostgreSQL. Set it in .env file")
	}

	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		log.Fatal("DB_PASSWORD is required for PostgreSQL. Set it in .env file")
	}

	dbname := os.Getenv("DB_NAME")
	if dbname == "" {
		dbname = "postgres"
	}

	sslmode := os.Getenv("DB_SSLMODE")
	if sslmode == "" {
		sslmode = "require"
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func loadJSON(filename string, target interface{}) {
	file, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return // defaults apply
		}
		log.Fatalf("Error reading %s: %v", filename, err)
	}

	err = json.Unmarshal(file, target)
	if err != nil {
		log.Fatalf("Error parsing %s: %v", filename, err)
	}
}
