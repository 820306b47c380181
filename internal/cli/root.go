// Package cli implements the hotel command line.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/belindacoding/liminal-hotel/internal/config"
)

var (
	dbPath   string
	logLevel string
	logJSON  bool
	apiURL   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "hotel",
	Short: "The Liminal Hotel",
	Long:  "A small world where guests trade memories through conversation and slowly stop being who they were.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $HOTEL_DB_PATH or data/hotel.db)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $HOTEL_LOG_LEVEL or info)")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")
	RootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Hotel API base URL for client commands (default: $HOTEL_API_URL or http://localhost:8080)")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg
}

func setupLogging() {
	level := slog.LevelInfo
	if logLevel == "" {
		logLevel = os.Getenv("HOTEL_LOG_LEVEL")
	}
	if logLevel != "" {
		level = config.Config{LogLevel: logLevel}.SlogLevel()
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if logJSON {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func baseURL() string {
	if apiURL != "" {
		return strings.TrimRight(apiURL, "/")
	}
	if env := os.Getenv("HOTEL_API_URL"); env != "" {
		return strings.TrimRight(env, "/")
	}
	return "http://localhost:8080"
}

var httpClient = &http.Client{Timeout: 60 * time.Second}

// request calls the hotel API and returns the raw body of a 2xx response.
func request(method, path, token string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, baseURL()+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(out)))
	}
	return out, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
