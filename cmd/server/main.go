package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/config"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/database"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/handlers"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/logger"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/middleware"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/routes"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/services"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/store"
	"github.com/AnshRaj112/kanjou-nikki-backend/pkg/utils"
)

func main() {
	configPath := flag.String("config", os.Getenv("KANJOU_CONFIG"), "path to a TOML config file")
	flag.Parse()

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.MustLoad(*configPath)
	logger.Setup(cfg.Log)

	cipher, err := utils.NewCipher(cfg.EncryptionKey)
	switch {
	case err != nil:
		log.Printf("⚠️  WARNING: ENCRYPTION_KEY is invalid: %v", err)
		log.Println("   Consent IP addresses will be stored in plain text.")
		log.Println("   Key must be base64-encoded 32 bytes. Generate with: openssl rand -base64 32")
	case cipher == nil:
		log.Println("⚠️  WARNING: ENCRYPTION_KEY not set. Consent IP addresses will be stored in plain text.")
	default:
		log.Println("✅ Encryption key configured")
	}

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// MongoDB holds activity history and backup archives; the API still
	// serves entries without it.
	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Printf("⚠️  WARNING: MongoDB unavailable, activity history and backup archives disabled: %v", err)
	}
	defer database.Disconnect()

	db := database.PostgresDB
	entries := store.NewEntryStore(db)
	admins := store.NewAdminStore(db)

	seedAdmin(cfg, admins)

	feed := services.NewActivityFeed(services.NewActivityHub(), database.RedisClient, database.DB)
	if err := feed.EnsureIndexes(context.Background()); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure MongoDB activity indexes: %v", err)
	} else if database.DB != nil {
		log.Println("✅ MongoDB activity indexes ensured")
	}

	var uploader services.Uploader
	if cfg.CloudinaryEnabled() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
		} else {
			uploader = cld
			log.Println("✅ Cloudinary backup uploads enabled")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Backups are archived in MongoDB only")
	}
	backups := services.NewBackupService(entries, database.DB, uploader, feed)

	keywords, err := services.NewKeywordAnalyzer()
	if err != nil {
		log.Printf("⚠️  WARNING: keyword analyzer unavailable: %v", err)
	}

	var notifier handlers.Notifier
	if cfg.AMQPURL != "" {
		notifier = services.NewUrgentNotifier(cfg.AMQPURL)
		log.Println("✅ Urgent-entry notifications enabled")
	}

	h := &handlers.Handler{
		Entries:  entries,
		Users:    store.NewUserStore(db),
		Admins:   admins,
		Consents: store.NewConsentStore(db),
		Backups:  backups,
		Activity: feed,
		Hub:      feed.Hub(),
		Sessions: services.NewAdminSessions(cfg.JWTSecret, database.RedisClient),
		Keywords: keywords,
		Cache:    services.NewCacheService(database.RedisClient),
		Notifier: notifier,
		Cipher:   cipher,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed.StartSubscriber(ctx)

	if cfg.BackupSchedule != "" {
		c, err := backups.StartSchedule(cfg.BackupSchedule)
		if err != nil {
			log.Printf("⚠️  WARNING: %v", err)
		} else {
			defer c.Stop()
			log.Printf("✅ Scheduled backups enabled (%s)", cfg.BackupSchedule)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, host check, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.RedisRateLimit(database.RedisClient))
	}

	routes.SetupRoutes(r, h, services.NewRBAC(), registry)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Kanjou Nikki backend running on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Failed to start server:", err)
	}
	log.Println("Server stopped")
}

// seedAdmin creates or refreshes the configured first admin account.
func seedAdmin(cfg *config.Config, admins *store.AdminStore) {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return
	}
	if err := utils.ValidateUsername(cfg.AdminUsername); err != nil {
		log.Printf("⚠️  WARNING: admin seed skipped: %v", err)
		return
	}
	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Printf("⚠️  WARNING: admin seed failed: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = admins.Create(ctx, models.Admin{
		Username:     utils.NormalizeUsername(cfg.AdminUsername),
		Email:        strings.TrimSpace(cfg.AdminEmail),
		DisplayName:  cfg.AdminUsername,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		log.Printf("⚠️  WARNING: admin seed failed: %v", err)
		return
	}
	log.Printf("✅ Admin account %q ready", cfg.AdminUsername)
}
