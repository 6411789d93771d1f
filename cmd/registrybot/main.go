package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shohabbosdev/registrybot/internal/bot"
	"github.com/shohabbosdev/registrybot/internal/config"
	"github.com/shohabbosdev/registrybot/internal/sheets"
)

var rootCmd = &cobra.Command{
	Use:   "registrybot",
	Short: "registrybot - Telegram search bot over the student registry sheet",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot (polling until SIGINT/SIGTERM)",
	RunE:  runBot,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize the config file",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registrybot configuration status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(runCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()

	client, err := sheets.NewClient(ctx, cfg.Sheet.CredentialsFile)
	if err != nil {
		return fmt.Errorf("create sheets client: %w", err)
	}

	svc, err := bot.New(cfg, client, client)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	return svc.Run(ctx)
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set the bot token and spreadsheet id\n", cfgPath)
	fmt.Println("  2. Or set BOT_TOKEN / SHEET_ID environment variables")
	fmt.Println("  3. Provide service account credentials via GOOGLE_CREDENTIALS (base64) or credentials.json")
	fmt.Println("  4. Run 'registrybot run' to start the bot")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	if cfg.Telegram.Token != "" {
		fmt.Println("Bot token: set")
	} else {
		fmt.Println("Bot token: not set")
	}
	fmt.Printf("Spreadsheet: %s\n", displayOr(cfg.Sheet.SpreadsheetID, "not set"))
	fmt.Printf("Worksheet: %s\n", cfg.Sheet.Worksheet)
	fmt.Printf("Required status: %s\n", cfg.Registry.RequiredStatus)
	fmt.Printf("Page size: %d\n", cfg.Registry.PageSize)
	fmt.Printf("Cache TTL: %s\n", cfg.CacheTTL())
	if cfg.Cache.RefreshSpec != "" {
		fmt.Printf("Warm refresh: %s\n", cfg.Cache.RefreshSpec)
	}
	fmt.Printf("Admins: %d\n", len(cfg.Telegram.AdminIDs))
	fmt.Printf("Action log: %s\n", cfg.Registry.ActionLogPath)

	if os.Getenv("GOOGLE_CREDENTIALS") != "" {
		fmt.Println("Credentials: GOOGLE_CREDENTIALS env")
	} else if cred := cfg.Sheet.CredentialsFile; cred != "" {
		fmt.Printf("Credentials: %s\n", cred)
	} else {
		fmt.Println("Credentials: credentials.json (default)")
	}

	return nil
}

func displayOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
