package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/osm-powerplants/internal/cli"
	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/config"
	"github.com/Veraticus/osm-powerplants/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func defaultTokenPath() string {
	return filepath.Join(config.DefaultConfigDir(), "sheets-token.json")
}

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Publish stored runs to Google Sheets",
		Long: `Publish the units and rejections of a stored run to a Google Sheets
spreadsheet.

Credentials come from GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH, or from
GOOGLE_SHEETS_CLIENT_ID and GOOGLE_SHEETS_CLIENT_SECRET together with a
refresh token obtained by 'osmpp sheets auth'.`,
	}
	cmd.PersistentFlags().String("token-file", defaultTokenPath(), "where the OAuth2 token is kept")
	_ = viper.BindPFlag("sheets.token_file", cmd.PersistentFlags().Lookup("token-file"))

	cmd.AddCommand(sheetsAuthCmd())
	cmd.AddCommand(sheetsPublishCmd())
	return cmd
}

func sheetsAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Sheets in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			tokenFile := config.ExpandPath(viper.GetString("sheets.token_file"))

			token, err := sheets.Authorize(cmd.Context(), sheets.OAuth2Config{
				ClientID:     os.Getenv("GOOGLE_SHEETS_CLIENT_ID"),
				ClientSecret: os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"),
				TokenFile:    tokenFile,
			}, func(authURL string) {
				fmt.Fprintln(out, cli.FormatInfo("Open this URL to authorize access:"))
				fmt.Fprintln(out, authURL)
			})
			if err != nil {
				return err
			}
			if token.RefreshToken == "" {
				fmt.Fprintln(out, cli.FormatWarning("No refresh token was issued; revoke access and authorize again"))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess("Token saved to "+tokenFile))
			return nil
		},
	}
}

func sheetsPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish RUN_ID",
		Short: "Write a stored run to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := sheetsConfig(
				viper.GetString("sheets.token_file"),
				viper.GetString("sheets.spreadsheet_id"),
				viper.GetString("sheets.name"),
			)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx, viper.GetString("sheets.db"))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			units, err := store.GetUnits(ctx, run.ID)
			if err != nil {
				return err
			}
			rejections, err := store.GetRejections(ctx, run.ID)
			if err != nil {
				return err
			}

			writer, err := sheets.NewWriter(ctx, cfg, slog.Default())
			if err != nil {
				return common.NewUserError("Google Sheets is not configured", err)
			}
			id, err := writer.Write(ctx, sheets.Report{
				GeneratedAt: run.StartedAt,
				Title:       strings.Join(run.Regions, ", "),
				RunID:       run.ID,
				Units:       units,
				Rejections:  rejections,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Published %d units to https://docs.google.com/spreadsheets/d/%s", len(units), id)))
			return nil
		},
	}

	cmd.Flags().String("db", defaultDatabasePath(), "run database")
	cmd.Flags().String("spreadsheet-id", "", "update this spreadsheet instead of creating one")
	cmd.Flags().String("name", "", "title for a new spreadsheet")
	_ = viper.BindPFlag("sheets.db", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("spreadsheet-id"))
	_ = viper.BindPFlag("sheets.name", cmd.Flags().Lookup("name"))
	return cmd
}

// sheetsConfig reads credentials from the environment and falls back to
// the saved token for the refresh token.
func sheetsConfig(tokenFile, spreadsheetID, name string) (sheets.Config, error) {
	cfg := sheets.DefaultConfig()
	envErr := cfg.LoadFromEnv()

	if cfg.ServiceAccountPath == "" && cfg.RefreshToken == "" && tokenFile != "" {
		token, err := sheets.LoadToken(config.ExpandPath(tokenFile))
		switch {
		case err == nil:
			cfg.RefreshToken = token.RefreshToken
		case !errors.Is(err, os.ErrNotExist):
			return cfg, err
		}
	}

	if spreadsheetID != "" {
		cfg.SpreadsheetID = spreadsheetID
	}
	if name != "" {
		cfg.SpreadsheetName = name
	}

	if err := cfg.Validate(); err != nil {
		if envErr != nil {
			err = envErr
		}
		return cfg, common.NewUserError("Google Sheets credentials are missing; see 'osmpp sheets --help'", err)
	}
	return cfg, nil
}
