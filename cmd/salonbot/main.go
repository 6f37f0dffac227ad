package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/ezoncs/salonbot/internal/api"
	"github.com/ezoncs/salonbot/internal/booking"
	"github.com/ezoncs/salonbot/internal/bot"
	"github.com/ezoncs/salonbot/internal/catalog"
	"github.com/ezoncs/salonbot/internal/compose"
	"github.com/ezoncs/salonbot/internal/intent"
	"github.com/ezoncs/salonbot/internal/menu"
	"github.com/ezoncs/salonbot/internal/messaging"
	"github.com/ezoncs/salonbot/internal/scheduler"
	"github.com/ezoncs/salonbot/internal/session"
	"github.com/ezoncs/salonbot/internal/store"
	"github.com/ezoncs/salonbot/internal/twiliowhatsapp"
	"github.com/ezoncs/salonbot/internal/util"
	"github.com/ezoncs/salonbot/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for salonbot state data
	DefaultStateDir = "/var/lib/salonbot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "salonbot.db"
	// DefaultTipSchedule broadcasts daily tips at 09:00
	DefaultTipSchedule = "0 9 * * *"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(flags); err != nil {
		slog.Error("salonbot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("salonbot exited successfully")
}

// Config holds environment configuration
type Config struct {
	BookingAPIURL string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration
	StateDir      string
	APIAddr       string
	TipSchedule   string
	Transport     string
	WhatsAppDSN   string
}

// Flags holds command line flag values
type Flags struct {
	bookingURL  *string
	dbDSN       *string
	redisAddr   *string
	sessionTTL  *time.Duration
	apiAddr     *string
	tipSchedule *string
	transport   *string
	waDSN       *string
	qrOutput    *string
	numeric     *bool

	config Config
}

// initializeLogger sets up structured logging. Debug output is opt-in via
// the DEBUG_LOG environment variable.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("DEBUG_LOG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		BookingAPIURL: os.Getenv("BOOKING_API_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		StateDir:      os.Getenv("SALONBOT_STATE_DIR"),
		APIAddr:       os.Getenv("API_ADDR"),
		TipSchedule:   os.Getenv("TIP_SCHEDULE"),
		Transport:     os.Getenv("TRANSPORT"),
		WhatsAppDSN:   os.Getenv("WHATSAPP_DB_DSN"),
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.RedisDB = n
		} else {
			slog.Warn("Invalid REDIS_DB, using 0", "value", v)
		}
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.SessionTTL = d
		} else {
			slog.Warn("Invalid SESSION_TTL, using default", "value", v)
		}
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.TipSchedule == "" {
		config.TipSchedule = DefaultTipSchedule
	}
	if config.Transport == "" {
		config.Transport = "twilio"
	}

	slog.Debug("environment variables loaded",
		"BOOKING_API_URL_SET", config.BookingAPIURL != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"REDIS_ADDR_SET", config.RedisAddr != "",
		"SALONBOT_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"TIP_SCHEDULE", config.TipSchedule,
		"TRANSPORT", config.Transport)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		bookingURL:  flag.String("booking-url", config.BookingAPIURL, "booking platform base URL (overrides $BOOKING_API_URL)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the conversation log (overrides $DATABASE_URL)"),
		redisAddr:   flag.String("redis-addr", config.RedisAddr, "Redis address for session storage (overrides $REDIS_ADDR)"),
		sessionTTL:  flag.Duration("session-ttl", config.SessionTTL, "idle session lifetime (overrides $SESSION_TTL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		tipSchedule: flag.String("tip-schedule", config.TipSchedule, "cron expression for the daily tips broadcast (overrides $TIP_SCHEDULE)"),
		transport:   flag.String("transport", config.Transport, "message transport: twilio or whatsmeow (overrides $TRANSPORT)"),
		waDSN:       flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "whatsmeow device database DSN (overrides $WHATSAPP_DB_DSN)"),
		qrOutput:    flag.String("qr-output", "", "path to write login QR code"),
		numeric:     flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		config:      config,
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"bookingURL_set", *flags.bookingURL != "",
		"dbDSN_set", *flags.dbDSN != "",
		"redisAddr_set", *flags.redisAddr != "",
		"apiAddr", *flags.apiAddr,
		"transport", *flags.transport)

	return flags
}

// buildSessionStore selects Redis when configured, in-memory otherwise.
func buildSessionStore(flags Flags) session.Store {
	if *flags.redisAddr != "" {
		slog.Info("Using Redis session store", "addr", *flags.redisAddr)
		var opts []session.RedisOption
		if flags.config.SessionTTL > 0 {
			opts = append(opts, session.WithRedisTTL(flags.config.SessionTTL))
		}
		return session.NewRedisStore(*flags.redisAddr, flags.config.RedisPassword, flags.config.RedisDB, opts...)
	}
	slog.Info("Using in-memory session store")
	var opts []session.Option
	if flags.config.SessionTTL > 0 {
		opts = append(opts, session.WithTTL(flags.config.SessionTTL))
	}
	return session.NewMemoryStore(opts...)
}

// buildStore selects the conversation-log backend by DSN type.
func buildStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Info("Using in-memory conversation log")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Info("Using Postgres conversation log")
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Info("Using SQLite conversation log", "path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := catalog.Default()
	slog.Info("Catalog loaded", "companies", len(cat.Companies()))

	var bookingOpts []booking.Option
	if *flags.bookingURL != "" {
		bookingOpts = append(bookingOpts, booking.WithBaseURL(*flags.bookingURL))
	}
	fetcher := booking.NewClient(bookingOpts...)

	sessions := buildSessionStore(flags)
	defer sessions.Close()

	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := bot.NewEngine(
		intent.NewMatcher(),
		sessions,
		menu.NewEngine(cat, fetcher),
		st,
		compose.New(cat),
	)

	// Transport selection. Twilio replies synchronously through the webhook;
	// whatsmeow keeps a live connection and replies through the responder loop.
	var svc messaging.Service
	switch *flags.transport {
	case "whatsmeow":
		waOpts := []whatsapp.Option{}
		if *flags.waDSN != "" {
			waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.waDSN))
		}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		waClient, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return err
		}
		waService := messaging.NewWhatsAppService(waClient)
		if err := waService.Start(ctx); err != nil {
			return err
		}
		go messaging.NewResponder(waService, engine.HandleMessage).Run(ctx)
		svc = waService
	default:
		twilioClient, err := twiliowhatsapp.NewClient()
		if err != nil {
			return err
		}
		svc = messaging.NewTwilioService(twilioClient)
	}
	defer svc.Stop()

	// Daily tips broadcast.
	sched := scheduler.NewScheduler()
	defer sched.Stop()
	broadcaster := bot.NewTipBroadcaster(st, svc, catalog.DailyTips, nil)
	if err := sched.AddJob(*flags.tipSchedule, func() {
		if err := broadcaster.Broadcast(context.Background()); err != nil {
			slog.Error("Tip broadcast failed", "error", err)
		}
	}); err != nil {
		return err
	}

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(engine.HandleMessage, apiOpts...)

	slog.Info("salonbot starting", "transport", *flags.transport)
	return server.Start(ctx)
}
