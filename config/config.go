package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"attendance-scanner/internal/models"
	"attendance-scanner/internal/reader"
)

// Store backends
const (
	BackendPocketBase = "pocketbase"
	BackendSQLite     = "sqlite"
	BackendMemory     = "memory"
)

type Config struct {
	// Record store
	StoreBackend    string        `env:"STORE_BACKEND"    envDefault:"pocketbase"`
	PocketBaseURL   string        `env:"POCKETBASE_URL"   envDefault:"http://127.0.0.1:8090"`
	PocketBaseToken string        `env:"POCKETBASE_TOKEN"`
	PocketBaseRPS   float64       `env:"POCKETBASE_RPS"   envDefault:"10"`
	PocketBaseBurst int           `env:"POCKETBASE_BURST" envDefault:"5"`
	SQLitePath      string        `env:"SQLITE_PATH"      envDefault:"attendance.db"`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT"    envDefault:"10s"`
	StoreWait       time.Duration `env:"STORE_WAIT"       envDefault:"30s"`

	// SeedSRNs are registered at startup on the sqlite and memory backends
	SeedSRNs []string `env:"SEED_SRNS" envSeparator:","`

	// Scanner
	ScanCategory       string        `env:"SCAN_CATEGORY"`
	ScannerDevice      string        `env:"SCANNER_DEVICE"`
	ScannerFPS         float64       `env:"SCANNER_FPS"          envDefault:"5"`
	ScannerBoxWidth    int           `env:"SCANNER_BOX_WIDTH"    envDefault:"300"`
	ScannerBoxHeight   int           `env:"SCANNER_BOX_HEIGHT"   envDefault:"300"`
	ScannerAspectRatio float64       `env:"SCANNER_ASPECT_RATIO" envDefault:"1.0"`
	ScannerFacing      string        `env:"SCANNER_FACING"       envDefault:"environment"`
	ScannerFormats     string        `env:"SCANNER_FORMATS"      envDefault:"qr_code,data_matrix,ean_13,ean_8,code_39"`
	SettleDelay        time.Duration `env:"SETTLE_DELAY"         envDefault:"1500ms"`
	ToastDuration      time.Duration `env:"TOAST_DURATION"       envDefault:"3s"`

	// HTTP manual entry API
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Telegram Bot
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AuthorizedChatID string `env:"AUTHORIZED_CHAT_ID"`
}

// LoadConfig reads an optional .env file and then the process environment
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("godotenv.Load() error: %v", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPocketBase, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: must be %s, %s or %s", c.StoreBackend, BackendPocketBase, BackendSQLite, BackendMemory)
	}
	if c.ScanCategory != "" {
		if _, err := models.ParseCategory(c.ScanCategory); err != nil {
			return fmt.Errorf("invalid SCAN_CATEGORY: %w", err)
		}
	}
	if c.PocketBaseRPS <= 0 || c.PocketBaseBurst <= 0 {
		return fmt.Errorf("invalid POCKETBASE_RPS/POCKETBASE_BURST: must be > 0")
	}
	if c.StoreTimeout <= 0 || c.SettleDelay <= 0 || c.ToastDuration <= 0 {
		return fmt.Errorf("invalid config: STORE_TIMEOUT, SETTLE_DELAY and TOAST_DURATION must be > 0")
	}
	if c.ScannerFPS <= 0 {
		return fmt.Errorf("invalid SCANNER_FPS: must be > 0")
	}
	switch reader.Facing(c.ScannerFacing) {
	case reader.FacingEnvironment, reader.FacingUser:
	default:
		return fmt.Errorf("invalid SCANNER_FACING %q", c.ScannerFacing)
	}
	if _, err := reader.ParseFormats(c.ScannerFormats); err != nil {
		return fmt.Errorf("invalid SCANNER_FORMATS: %w", err)
	}
	return nil
}

// Seeds returns SEED_SRNS with blanks and surrounding spaces removed
func (c *Config) Seeds() []string {
	var out []string
	for _, s := range c.SeedSRNs {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Category returns the preset scan category, empty when none is selected
func (c *Config) Category() models.Category {
	if c.ScanCategory == "" {
		return ""
	}
	cat, _ := models.ParseCategory(c.ScanCategory)
	return cat
}

// ReaderConfig builds the capture configuration
func (c *Config) ReaderConfig() reader.Config {
	formats, _ := reader.ParseFormats(c.ScannerFormats)
	return reader.Config{
		FPS:         c.ScannerFPS,
		Box:         reader.Box{Width: c.ScannerBoxWidth, Height: c.ScannerBoxHeight},
		AspectRatio: c.ScannerAspectRatio,
		Facing:      reader.Facing(c.ScannerFacing),
		Formats:     formats,
	}
}
