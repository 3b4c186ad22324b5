package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Telegram TelegramConfig
	Sheets   SheetsConfig
	Drive    DriveConfig
	Recap    RecapConfig
	MongoDB  MongoDBConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// TelegramConfig contains credentials and options for the Telegram Bot API.
type TelegramConfig struct {
	BotToken      string
	BaseURL       string
	WebhookSecret string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// DriveConfig holds Google Drive photo storage settings. Folders maps an
// item detail (e.g. "Simplex") to a dedicated Drive folder id; uploads for
// details without a mapping land in ParentFolderID.
type DriveConfig struct {
	ParentFolderID string
	Folders        map[string]string
}

// RecapConfig holds the scheduled stock recap settings. ChatID may be empty,
// in which case no broadcast is scheduled.
type RecapConfig struct {
	CronSchedule string
	ChatID       string
	Timezone     string
}

// MongoDBConfig holds settings for the optional audit archive. An empty URI
// disables archiving.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Telegram: TelegramConfig{
			BotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
			BaseURL:       getenvWithDefault("TELEGRAM_BASE_URL", "https://api.telegram.org"),
			WebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Drive: DriveConfig{
			ParentFolderID: os.Getenv("GOOGLE_DRIVE_PARENT_FOLDER_ID"),
			Folders:        parseFolderMap(os.Getenv("GOOGLE_DRIVE_FOLDERS")),
		},
		Recap: RecapConfig{
			CronSchedule: getenvWithDefault("RECAP_CRON_SCHEDULE", "0 8 * * 1"),
			ChatID:       os.Getenv("RECAP_CHAT_ID"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Jakarta"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "gudangbot"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.Telegram.BotToken == "":
		return errors.New("TELEGRAM_BOT_TOKEN must be provided")
	case c.Telegram.BaseURL == "":
		return errors.New("TELEGRAM_BASE_URL must not be empty")
	}

	if c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
	}

	if c.Drive.ParentFolderID == "" {
		return errors.New("GOOGLE_DRIVE_PARENT_FOLDER_ID must be provided")
	}

	if c.Recap.CronSchedule == "" {
		return errors.New("RECAP_CRON_SCHEDULE must be provided")
	}

	if c.Recap.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if c.MongoDB.URI != "" && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided when MONGODB_URI is set")
	}

	return nil
}

// parseFolderMap decodes a "Detail=folderID,Detail2=folderID" list.
func parseFolderMap(raw string) map[string]string {
	folders := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			folders[key] = value
		}
	}
	return folders
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
