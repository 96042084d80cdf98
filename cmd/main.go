package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/KAsare1/socialfeed-server/cmd/api"
	"github.com/KAsare1/socialfeed-server/config"
	"github.com/KAsare1/socialfeed-server/db"
	"github.com/KAsare1/socialfeed-server/service/media"
	"github.com/KAsare1/socialfeed-server/service/realtime"
	"github.com/KAsare1/socialfeed-server/service/user"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	assumeYes   bool
	clearTables []string
)

var rootCmd = &cobra.Command{
	Use:   "socialfeed",
	Short: "Social feed API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(config.Load())
	},
}

var clearDBCmd = &cobra.Command{
	Use:   "clear-db",
	Short: "Drop tables",
	Long: `Drop every table, or only those named with --tables.

Examples:
  socialfeed clear-db --yes
  socialfeed clear-db --tables PostLike,PostShare`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDatabaseClear(cmd, config.Load())
	},
}

func init() {
	clearDBCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	clearDBCmd.Flags().StringSliceVar(&clearTables, "tables", nil, "Model names to drop (default: all)")
	rootCmd.AddCommand(serveCmd, migrateCmd, clearDBCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	DB, err := db.NewPSQLStorage(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database initialization error: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
		log.Println("Database connection closed")
	}
	log.Println("Connected to the database")
	return DB, closeFn, nil
}

func runMigrations(cfg *config.Config) error {
	DB, closeFn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := db.Migrate(DB); err != nil {
		return err
	}
	if cfg.BlobDriver == config.BlobDriverLocal {
		if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
			return fmt.Errorf("could not create directory %s: %w", cfg.UploadDir, err)
		}
		log.Printf("Directory %s created/verified", cfg.UploadDir)
	}
	return nil
}

func runDatabaseClear(cmd *cobra.Command, cfg *config.Config) error {
	var tables []interface{}
	for _, name := range clearTables {
		table, ok := db.TableByName(strings.TrimSpace(name))
		if !ok {
			return fmt.Errorf("unknown table: %s", name)
		}
		tables = append(tables, table)
	}

	if !assumeYes {
		fmt.Fprint(cmd.OutOrStdout(), "Are you sure you want to clear the database? (yes/no): ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			log.Println("Database clearing cancelled.")
			return nil
		}
	}

	DB, closeFn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := db.DropTables(DB, tables); err != nil {
		return fmt.Errorf("error clearing database: %w", err)
	}
	log.Println("Database cleared successfully")
	return nil
}

func openStore(cfg *config.Config) (db.Store, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Println("Using in-memory storage; data is lost on exit")
		return db.NewMemoryStore(), func() {}, nil
	case config.StorageDriverPostgres:
		DB, closeFn, err := openDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		return db.NewGormStore(DB), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

func openBlobs(ctx context.Context, cfg *config.Config) (media.Store, func(), error) {
	switch cfg.BlobDriver {
	case config.BlobDriverLocal:
		baseURL := cfg.PublicBaseURL + "/uploads"
		store, err := media.NewLocalStore(cfg.UploadDir, baseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case config.BlobDriverGCS:
		store, err := media.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile, cfg.GCSPublicURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown BLOB_DRIVER %q", cfg.BlobDriver)
	}
}

func startServer(ctx context.Context) error {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		return fmt.Errorf("SECRET_KEY is not set")
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, closeBlobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBlobs()

	var mailer user.Mailer
	if cfg.SMTPHost != "" {
		mailer = user.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	server := api.NewApiServer(cfg, store, blobs, mailer, hub)
	return server.Run(ctx)
}
