package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/dataviz-ai/dataviz-go/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DataViz configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("listen_addr: %s\n", cfg.ListenAddr)
		fmt.Printf("allowed_origins: %s\n", strings.Join(cfg.AllowedOrigins, ","))
		fmt.Printf("max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Printf("history_db_path: %s\n", cfg.HistoryDBPath)
		fmt.Printf("gemini_api_key: %s\n", mask(cfg.GeminiAPIKey))
		fmt.Printf("gemini_model: %s\n", cfg.GeminiModel)
		fmt.Printf("http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Printf("retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Printf("retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Printf("retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "listen_addr":
			cfg.ListenAddr = val
		case "allowed_origins":
			cfg.AllowedOrigins = strings.Split(val, ",")
		case "max_upload_mb":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for max_upload_mb: %v", val)
			}
			cfg.MaxUploadMB = i
		case "history_db_path":
			cfg.HistoryDBPath = val
		case "gemini_api_key":
			cfg.GeminiAPIKey = val
		case "gemini_model":
			cfg.GeminiModel = val
		case "http_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
			}
			cfg.HTTPTimeoutSec = i
		case "retry_max_attempts":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for retry_max_attempts: %v", val)
			}
			cfg.RetryMaxAttempts = i
		case "retry_base_delay_ms":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for retry_base_delay_ms: %v", val)
			}
			cfg.RetryBaseDelayMs = i
		case "retry_max_delay_ms":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for retry_max_delay_ms: %v", val)
			}
			cfg.RetryMaxDelayMs = i
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func mask(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
