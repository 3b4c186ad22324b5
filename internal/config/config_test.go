package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/etc/creds.json")
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "sheet-id")
	t.Setenv("GOOGLE_DRIVE_PARENT_FOLDER_ID", "folder-id")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.BaseURL)
	assert.Equal(t, "0 8 * * 1", cfg.Recap.CronSchedule)
	assert.Equal(t, "Asia/Jakarta", cfg.Recap.Timezone)
	assert.Equal(t, "gudangbot", cfg.MongoDB.DBName)
	assert.Empty(t, cfg.MongoDB.URI, "archive is opt-in")
}

func TestLoadFailsWithoutBotToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestLoadFailsWithoutSpreadsheet(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_SHEET_DATABASE_ID")
}

func TestLoadRequiresDBNameWithMongoURI(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DB_NAME", "")

	// The default DB name still applies; clearing it via env alone is not
	// possible, so validate directly.
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.MongoDB.DBName = ""
	assert.Error(t, cfg.Validate())
}

func TestParseFolderMap(t *testing.T) {
	folders := parseFolderMap("SFP=abc123, Duplex = def456 ,broken,=x,y=")
	assert.Equal(t, map[string]string{"SFP": "abc123", "Duplex": "def456"}, folders)

	assert.Empty(t, parseFolderMap(""))
}

func TestFolderMapFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GOOGLE_DRIVE_FOLDERS", "SFP+=folder-a,Simplex=folder-b")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "folder-a", cfg.Drive.Folders["SFP+"])
	assert.Equal(t, "folder-b", cfg.Drive.Folders["Simplex"])
}
