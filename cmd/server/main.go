package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iamrudi/AgentDash-sub003/internal/api"
	"github.com/iamrudi/AgentDash-sub003/internal/cache"
	"github.com/iamrudi/AgentDash-sub003/internal/config"
	"github.com/iamrudi/AgentDash-sub003/internal/database"
	"github.com/iamrudi/AgentDash-sub003/internal/repository"
	"github.com/iamrudi/AgentDash-sub003/internal/services/scheduler"
	"github.com/iamrudi/AgentDash-sub003/internal/services/sla"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPathFlag string

var rootCmd = &cobra.Command{
	Use:     "sla-server",
	Short:   "SLA breach detection and escalation engine",
	Long:    "Monitors agency SLA policies, detects response and resolution deadline breaches, and escalates them through configured chains.",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and background scanner",
	RunE:  runServe,
}

var scanCmd = &cobra.Command{
	Use:   "scan [agency-id]",
	Short: "Run one detection and escalation pass for an agency and exit",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", ".", "Directory containing config.yaml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return database.Connect(ctx, database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

func buildEngine(cfg *config.Config, db *sql.DB, logger *log.Logger) (*sla.Service, repository.ProfileRepository, *cache.PolicyCache) {
	slaRepo := repository.NewSQLSlaRepository(db)
	breachRepo := repository.NewSQLBreachRepository(db)
	taskRepo := repository.NewSQLTaskRepository(db)
	profileRepo := repository.NewSQLProfileRepository(db)

	var policyCache *cache.PolicyCache
	if cfg.Redis.Enabled {
		pc, err := cache.NewPolicyCache(&cache.Config{
			Addr:       cfg.Redis.Addr(),
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			KeyPrefix:  cfg.Redis.Cache.Prefix,
			DefaultTTL: cfg.Redis.Cache.TTL,
		})
		if err != nil {
			logger.Printf("main: policy cache unavailable, continuing without: %v", err)
		} else {
			policyCache = pc
		}
	}

	opts := []sla.Option{sla.WithLogger(logger)}
	if policyCache != nil {
		opts = append(opts, sla.WithPolicyCache(policyCache))
	}
	service := sla.NewService(slaRepo, breachRepo, taskRepo, profileRepo, opts...)
	return service, profileRepo, policyCache
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.Load(configPathFlag); err != nil {
		return err
	}
	cfg := config.Get()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	service, profileRepo, policyCache := buildEngine(cfg, db, logger)
	if policyCache != nil {
		defer policyCache.Close()
	}

	if cfg.Scheduler.Enabled {
		location := time.UTC
		if cfg.Scheduler.Timezone != "" {
			loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
			if err != nil {
				return fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
			}
			location = loc
		}

		schedOpts := []scheduler.Option{
			scheduler.WithLogger(logger),
			scheduler.WithLocation(location),
		}
		if cfg.Scheduler.JobsFile != "" {
			jobs, err := scheduler.LoadJobsFromFile(cfg.Scheduler.JobsFile)
			if err != nil {
				return fmt.Errorf("failed to load jobs file: %w", err)
			}
			schedOpts = append(schedOpts, scheduler.WithJobs(jobs))
		}

		sched := scheduler.NewService(service, profileRepo, schedOpts...)
		go func() {
			if err := sched.Run(ctx); err != nil {
				logger.Printf("main: scheduler stopped: %v", err)
			}
		}()
	}

	handlers := api.NewSlaHandlers(service, logger)
	router := api.NewRouter(cfg, handlers)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("main: listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Printf("main: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := config.Load(configPathFlag); err != nil {
		return err
	}
	cfg := config.Get()
	logger := log.New(os.Stdout, "", log.LstdFlags)
	agencyID := args[0]

	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	service, _, policyCache := buildEngine(cfg, db, logger)
	if policyCache != nil {
		defer policyCache.Close()
	}

	result, err := service.RunManualScan(ctx, agencyID)
	if err != nil {
		return err
	}

	fmt.Printf("agency %s: %d breaches detected, %d escalations triggered\n",
		agencyID, result.BreachesDetected, result.EscalationsTriggered)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := config.Load(configPathFlag); err != nil {
		return err
	}
	cfg := config.Get()

	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	fmt.Println("schema applied")
	return nil
}
