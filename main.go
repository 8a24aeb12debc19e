package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/mansatask/mansatask-api/config"
	"github.com/mansatask/mansatask-api/controllers"
	"github.com/mansatask/mansatask-api/events"
	"github.com/mansatask/mansatask-api/gateways"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/routes"
	"github.com/mansatask/mansatask-api/services"
	"github.com/mansatask/mansatask-api/storage"
	"github.com/mansatask/mansatask-api/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mansatask",
		Short: "MANSATASK payment links API",
		RunE:  runServe,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(expireLinksCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			if err := config.Migrate(db); err != nil {
				return err
			}
			utils.LogInfo("Database %s migrated", cfg.DBName)
			fmt.Println("Migration complete")
			return nil
		},
	}
}

func expireLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-links",
		Short: "Deactivate expired payment links and purge expired revoked tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			links := services.NewPaymentLinkService(repository.NewPaymentLinkRepository(db), repository.NewProductRepository(db), cfg.FrontendURL)
			deactivated, err := links.ExpireLinks(ctx)
			if err != nil {
				return err
			}

			purged, err := repository.NewTokenRepository(db).PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("failed to purge revoked tokens: %w", err)
			}

			utils.LogInfo("Deactivated %d payment links, purged %d revoked tokens", deactivated, purged)
			fmt.Printf("Deactivated %d payment links, purged %d revoked tokens\n", deactivated, purged)
			return nil
		},
	}
}

// bootstrap loads configuration, starts logging and opens the database
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := utils.InitLogger(cfg.LogDir); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.LogError("Database connection failed: %v", err)
		return nil, nil, err
	}
	return cfg, db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	if err := config.Migrate(db); err != nil {
		utils.LogError("Migration failed: %v", err)
		return err
	}
	if cfg.WebhookSecret == "" {
		log.Println("WEBHOOK_SECRET is not set, every provider webhook will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis only backs idempotency locks and status throttling; payments
	// keep working while it is down.
	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		utils.LogError("Redis unavailable, continuing degraded: %v", err)
		log.Println("Redis unavailable:", err)
	}
	defer redisClient.Close()
	redisStore := services.NewRedisStore(redisClient)

	files, err := newObjectStorage(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	var razorpay gateways.Gateway
	if cfg.RazorpayKey != "" {
		razorpay = gateways.NewRazorpayGateway(cfg.RazorpayKey, cfg.RazorpaySecret)
	}
	registry := gateways.NewRegistry(gateways.NewMobileMoneyGateway(), razorpay)

	mailer := utils.NewSMTPMailer(utils.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	tokens := utils.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	links := repository.NewPaymentLinkRepository(db)
	txns := repository.NewTransactionRepository(db)

	receiptService := services.NewReceiptService(repository.NewReceiptRepository(db), txns, users, files, services.PDFReceiptRenderer{}, mailer, cfg.PublicBaseURL)
	paymentDeps := services.PaymentServiceDeps{
		Links:         links,
		Transactions:  txns,
		Webhooks:      repository.NewWebhookRepository(db),
		Gateways:      registry,
		Locks:         redisStore,
		Throttle:      redisStore,
		Receipts:      receiptService,
		Publisher:     publisher,
		WebhookSecret: cfg.WebhookSecret,
	}

	router := routes.SetupRouter(routes.Dependencies{
		Tokens:       tokens,
		CORSOrigins:  cfg.CORSOrigins,
		Auth:         controllers.NewAuthController(services.NewAuthService(users, repository.NewTokenRepository(db), tokens, mailer, cfg.FrontendURL)),
		Users:        controllers.NewUserController(services.NewUserService(users)),
		Products:     controllers.NewProductController(services.NewProductService(products, files)),
		PaymentLinks: controllers.NewPaymentLinkController(services.NewPaymentLinkService(links, products, cfg.FrontendURL)),
		Payments:     controllers.NewPaymentController(services.NewPaymentService(paymentDeps)),
		Transactions: controllers.NewTransactionController(services.NewTransactionService(txns)),
		Receipts:     controllers.NewReceiptController(receiptService),
		Health:       controllers.NewHealthController(db, redisStore),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		utils.LogInfo("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			utils.LogError("Graceful shutdown failed: %v", err)
		}
	}()

	utils.LogInfo("Server starting on port %s", cfg.Port)
	log.Printf("Server starting on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		utils.LogError("Error starting server: %v", err)
		return err
	}
	return nil
}

func newObjectStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	if cfg.UsesS3() {
		s3, err := storage.NewS3Storage(ctx, storage.S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
		})
		if err != nil {
			utils.LogError("S3 storage setup failed: %v", err)
			return nil, err
		}
		utils.LogInfo("Using S3 bucket %s", cfg.S3Bucket)
		return s3, nil
	}

	local, err := storage.NewLocalStorage(cfg.UploadDir, cfg.PublicBaseURL+"/v1/products/image")
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Using local storage at %s", cfg.UploadDir)
	return local, nil
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NoopPublisher{}, nil
	}
	publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		utils.LogError("Kafka producer setup failed: %v", err)
		return nil, err
	}
	utils.LogInfo("Publishing transaction events to %s", cfg.KafkaTopic)
	return publisher, nil
}
