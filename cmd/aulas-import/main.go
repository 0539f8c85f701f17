package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"aulas/internal/amqp"
	"aulas/internal/cli"
	"aulas/internal/config"
	"aulas/internal/core"
	applog "aulas/internal/log"
	"aulas/internal/sources/memory"
	"aulas/internal/storage"
)

// importer is implemented by storage.SQLRepository.
type importer interface {
	ImportLessons(ctx context.Context, records []core.RawRecord) (int, error)
	ImportClients(ctx context.Context, records []core.RawRecord) (int, error)
	Close() error
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	var (
		lessonsPath = flag.String("lessons", "", "JSON array file of lessons")
		clientsPath = flag.String("clients", "", "JSON array file of clients")
		target      = flag.String("target", "sqlite", "database to import into: sqlite or mysql")
		dbPath      = flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
		mysqlDSN    = flag.String("mysql-dsn", cfg.MySQLDSN, "MySQL DSN or mysql:// URL")
		notify      = flag.Bool("notify", cfg.AMQPURL != "", "publish a refresh request after importing")
	)
	flag.Parse()

	logger := cli.SetupLogger(cfg, applog.ComponentImport, os.Stderr)

	if *lessonsPath == "" && *clientsPath == "" {
		fmt.Fprintln(os.Stderr, "at least one of -lessons or -clients is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	if err := run(ctx, logger, cfg, *target, *dbPath, *mysqlDSN, *lessonsPath, *clientsPath, *notify); err != nil {
		logger.Error("Import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *applog.Logger, cfg *config.Config, target, dbPath, mysqlDSN, lessonsPath, clientsPath string, notify bool) error {
	repo, err := openTarget(target, dbPath, mysqlDSN)
	if err != nil {
		return err
	}
	defer repo.Close()

	start := time.Now()
	if lessonsPath != "" {
		records, err := memory.ReadRecords(lessonsPath)
		if err != nil {
			return err
		}
		n, err := repo.ImportLessons(ctx, records)
		if err != nil {
			return fmt.Errorf("import lessons: %w", err)
		}
		logger.InfoContext(ctx, "Imported lessons", "file", lessonsPath, "count", n)
	}
	if clientsPath != "" {
		records, err := memory.ReadRecords(clientsPath)
		if err != nil {
			return err
		}
		n, err := repo.ImportClients(ctx, records)
		if err != nil {
			return fmt.Errorf("import clients: %w", err)
		}
		logger.InfoContext(ctx, "Imported clients", "file", clientsPath, "count", n)
	}
	logger.InfoContext(ctx, "Import completed",
		"target", target,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if !notify {
		return nil
	}
	if cfg.AMQPURL == "" {
		return fmt.Errorf("-notify requires AMQP_URL")
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()
	if err := client.PublishRefreshRequest(ctx, "import"); err != nil {
		return fmt.Errorf("publish refresh request: %w", err)
	}
	return nil
}

func openTarget(target, dbPath, mysqlDSN string) (importer, error) {
	var (
		repo *storage.SQLRepository
		err  error
	)
	switch storage.Dialect(target) {
	case storage.DialectSQLite:
		repo, err = storage.NewSQLiteRepository(dbPath)
	case storage.DialectMySQL:
		if mysqlDSN == "" {
			return nil, fmt.Errorf("-mysql-dsn or MYSQL_DSN is required for the mysql target")
		}
		repo, err = storage.NewMySQLRepository(mysqlDSN)
	default:
		return nil, fmt.Errorf("unknown target %q: want sqlite or mysql", target)
	}
	if err != nil {
		return nil, err
	}
	return repo, nil
}
