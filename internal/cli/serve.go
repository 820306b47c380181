package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/belindacoding/liminal-hotel/internal/api"
	"github.com/belindacoding/liminal-hotel/internal/config"
	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/ledger"
	"github.com/belindacoding/liminal-hotel/internal/llm"
	"github.com/belindacoding/liminal-hotel/internal/narrative"
	"github.com/belindacoding/liminal-hotel/internal/persistence"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

const currentsSeedKey = "currents_seed"

var (
	servePort   int
	openOnStart bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hotel simulation and its HTTP API",
		Run:   runServe,
	}
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (default: $HOTEL_PORT or 8080)")
	cmd.Flags().BoolVar(&openOnStart, "open", false, "Open the hotel on start if it is not already open")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		exitErr("parse HOTEL_PORT", err)
	}
	if servePort != 0 {
		port = servePort
	}

	tuning, err := config.LoadTuning(cfg.TuningPath, engine.DefaultConfig())
	if err != nil {
		exitErr("load tuning", err)
	}
	fee, err := cfg.EntryFee()
	if err != nil {
		exitErr("entry fee", err)
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		os.MkdirAll(dir, 0o755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Randomness ────────────────────────────────────────────────────
	src := entropy.New()
	if cfg.Seed != 0 {
		src = entropy.NewSeeded(cfg.Seed)
	}
	currentsSeed, err := loadCurrentsSeed(db, cfg.Seed)
	if err != nil {
		exitErr("currents seed", err)
	}

	// ── Collaborators ─────────────────────────────────────────────────
	local := narrative.NewLocal(src)
	var teller narrative.Teller = local
	client := llm.NewClient(cfg.AnthropicKey)
	if client.Enabled() {
		teller = narrative.NewRemote(client, local, tuning.NarrativeTimeout)
		slog.Info("narrative generation enabled")
	} else {
		slog.Info("no ANTHROPIC_API_KEY, using local narrative templates")
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		exitErr("payment verifier", err)
	}

	hotel := engine.New(tuning, engine.Deps{
		Store:    db,
		Teller:   teller,
		Verifier: verifier,
		Source:   src,
		Currents: world.NewCurrents(currentsSeed),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if openOnStart {
		if _, err := hotel.Open(ctx); err != nil && !errors.Is(err, engine.ErrHotelOpen) {
			exitErr("open hotel", err)
		}
	}

	scheduler := engine.NewScheduler(hotel)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	srv := &api.Server{
		Hotel:       hotel,
		Port:        port,
		AdminKey:    cfg.AdminKey,
		Wallet:      cfg.Wallet,
		EntryFee:    fee,
		DevMode:     cfg.DevMode,
		CORSOrigins: cfg.CORSOrigins,
	}
	slog.Info("The Liminal Hotel is running", "tick_interval", tuning.TickInterval, "dev_mode", cfg.DevMode)
	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("HTTP server error", "error", err)
	}
	slog.Info("shutting down")
}

// loadCurrentsSeed keeps the room currents stable across restarts: an
// explicit seed wins, then the stored one, then a fresh random seed.
func loadCurrentsSeed(db *persistence.DB, explicit int64) (int64, error) {
	if explicit != 0 {
		return explicit, nil
	}
	stored, err := db.GetMeta(currentsSeedKey)
	if err != nil {
		return 0, err
	}
	if stored != "" {
		return strconv.ParseInt(stored, 10, 64)
	}
	seed := entropy.CryptoSeed()
	if err := db.SaveMeta(currentsSeedKey, strconv.FormatInt(seed, 10)); err != nil {
		return 0, err
	}
	return seed, nil
}

func newVerifier(cfg config.Config) (ledger.Verifier, error) {
	if cfg.DevMode {
		slog.Warn("dev mode: entry payments are not verified")
		return ledger.DevVerifier{}, nil
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("HOTEL_RPC_URL is required unless HOTEL_DEV_MODE is set")
	}
	fee, err := cfg.EntryFee()
	if err != nil {
		return nil, err
	}
	return ledger.NewRPCVerifier(cfg.RPCURL, cfg.Wallet, fee), nil
}
