package main

import (
	"path/filepath"
	"testing"

	"github.com/Veraticus/osm-powerplants/internal/sheets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func clearSheetsEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET", "GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_SPREADSHEET_ID", "GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestSheetsConfig_TokenFileFallback(t *testing.T) {
	clearSheetsEnv(t)
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "client")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "secret")

	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, sheets.SaveToken(tokenFile, &oauth2.Token{RefreshToken: "saved"}))

	cfg, err := sheetsConfig(tokenFile, "sheet-1", "Plants")
	require.NoError(t, err)
	assert.Equal(t, "saved", cfg.RefreshToken)
	assert.Equal(t, "sheet-1", cfg.SpreadsheetID)
	assert.Equal(t, "Plants", cfg.SpreadsheetName)
}

func TestSheetsConfig_MissingCredentials(t *testing.T) {
	clearSheetsEnv(t)

	_, err := sheetsConfig(filepath.Join(t.TempDir(), "none.json"), "", "")
	assert.Error(t, err)
}
