package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"attendance-scanner/bot"
	"attendance-scanner/config"
	"attendance-scanner/internal/feedback"
	"attendance-scanner/internal/handlers"
	"attendance-scanner/internal/models"
	"attendance-scanner/internal/reader"
	"attendance-scanner/internal/repository"
	"attendance-scanner/internal/services"
	"attendance-scanner/internal/session"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Config loaded successfully")

	// Create application context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, initiating graceful shutdown...")
		cancel()
	}()

	// Initialize record store
	participants, closeStore, err := initRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to init store: %v", err)
	}
	defer closeStore()

	attendanceService := services.NewAttendanceService(participants, cfg.StoreTimeout)

	// Initialize Telegram Bot
	sinks := []feedback.Sink{feedback.NewConsoleSink(os.Stdout)}
	botReady := false
	if cfg.TelegramBotToken != "" {
		if err := initBot(cfg, attendanceService); err != nil {
			log.Printf("Warning: Failed to init Telegram Bot: %v", err)
		} else {
			botReady = true
			sinks = append(sinks, bot.NewNotifier())
		}
	}

	toasts := feedback.NewChannel(sinks, feedback.WithDuration(cfg.ToastDuration))
	go toasts.Run(ctx)

	// Scan session controller
	scans := initScanController(ctx, cfg, attendanceService, toasts)
	bot.SetScanController(scans)
	if botReady {
		bot.StartPolling(ctx)
	}

	// Setup HTTP server
	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: handlers.NewRouter(
			handlers.NewParticipantHandler(attendanceService),
			handlers.NewSessionHandler(scans),
			handlers.NewToastHandler(toasts),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Start scanning with the configured category
	if _, err := scans.Begin(cfg.Category()); err != nil {
		if errors.Is(err, session.ErrCameraUnavailable) {
			log.Printf("❌ Scanner not running: %v (POST /api/session or /scan to retry)", err)
		} else {
			log.Printf("❌ Failed to start scan session: %v", err)
		}
	}

	// Wait for shutdown signal
	<-ctx.Done()

	if err := scans.End(); err != nil {
		log.Printf("Scan session shutdown error: %v", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped gracefully")
}

// initRepository builds the configured record store and waits for it to answer
func initRepository(ctx context.Context, cfg *config.Config) (repository.ParticipantRepository, func(), error) {
	noop := func() {}

	var (
		repo      repository.ParticipantRepository
		closeRepo = noop
	)

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		log.Printf("Using SQLite store at %s", cfg.SQLitePath)
		repo = db
		closeRepo = logClose("SQLite", db.Close)

	case config.BackendMemory:
		log.Println("⚠️  Using in-memory store, data is lost on exit")
		repo = repository.NewMemoryParticipantRepository()

	default:
		pb := repository.NewPocketBaseRESTParticipantRepository(cfg.PocketBaseURL,
			repository.WithAuthToken(cfg.PocketBaseToken),
			repository.WithRateLimit(cfg.PocketBaseRPS, cfg.PocketBaseBurst),
		)
		if err := repository.WaitHealthy(ctx, pb, cfg.StoreWait); err != nil {
			return nil, noop, fmt.Errorf("pocketbase at %s: %w", cfg.PocketBaseURL, err)
		}
		log.Printf("Using PocketBase store at %s", cfg.PocketBaseURL)
		repo = pb
	}

	if seeds := cfg.Seeds(); len(seeds) > 0 {
		p, ok := repo.(repository.Provisioner)
		if !ok {
			log.Printf("⚠️  SEED_SRNS ignored for %s store, use scripts/setup_collections", cfg.StoreBackend)
			return repo, closeRepo, nil
		}
		if err := p.Provision(ctx, seeds...); err != nil {
			closeRepo()
			return nil, noop, err
		}
		log.Printf("Registered %d participants", len(seeds))
	}

	return repo, closeRepo, nil
}

// logClose wraps a closer so its error is logged rather than dropped
func logClose(name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			log.Printf("%s close error: %v", name, err)
		}
	}
}

// initBot initializes the Telegram bot; polling starts once the scan
// controller is wired
func initBot(cfg *config.Config, svc bot.AttendanceService) error {
	if err := bot.Init(cfg.TelegramBotToken, cfg.AuthorizedChatID); err != nil {
		return err
	}

	bot.SetAttendanceService(svc)

	log.Println("Telegram Bot Initialized")
	return nil
}

// initScanController builds the scan session controller. Sessions started
// without a category run as a lookup station that shows the scanned
// participant's status.
func initScanController(ctx context.Context, cfg *config.Config, svc *services.AttendanceService, toasts *feedback.Channel) *session.Controller {
	var camera reader.Camera
	if cfg.ScannerDevice != "" {
		camera = reader.NewDeviceCamera(cfg.ScannerDevice)
	} else {
		camera = reader.NewLineCamera(os.Stdin)
	}

	return session.NewController(ctx, camera, svc, toasts, session.ControllerConfig{
		Reader:      cfg.ReaderConfig(),
		SettleDelay: cfg.SettleDelay,
		OnRawScan:   lookupStation(svc, toasts),
	})
}

func lookupStation(svc *services.AttendanceService, toasts feedback.Notifier) session.RawScanFunc {
	return func(srn string) {
		p, err := svc.Status(context.Background(), srn)
		switch {
		case errors.Is(err, repository.ErrParticipantNotFound):
			toasts.Error(services.MsgParticipantNotFound)
		case err != nil:
			log.Printf("❌ Lookup failed for %s: %v", srn, err)
			toasts.Error(services.MsgFetchFailed)
		default:
			toasts.Info(statusLine(p.Status()))
		}
	}
}

func statusLine(s models.ParticipantStatus) string {
	var b strings.Builder
	b.WriteString(s.SRN)
	for _, f := range []struct {
		name string
		done bool
	}{
		{"entry", s.Entry},
		{"dinner", s.Dinner},
		{"snacks", s.Snacks},
		{"breakfast", s.Breakfast},
	} {
		mark := "✖"
		if f.done {
			mark = "✔"
		}
		fmt.Fprintf(&b, " %s %s", f.name, mark)
	}
	return b.String()
}
