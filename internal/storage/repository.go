package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aulas/internal/core"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// SQLRepository stores lessons and clients in a relational database and
// serves them back as raw records, so the engine normalizes database rows
// exactly like JSON or sheet rows.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY while an import transaction is open.
	db.SetMaxOpenConns(1)

	return openRepository(db, DialectSQLite)
}

// NewMySQLRepository connects to MySQL or MariaDB. dsn may be a native
// go-sql-driver DSN or a mysql:// / mariadb:// URL.
func NewMySQLRepository(dsn string) (*SQLRepository, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	return openRepository(db, DialectMySQL)
}

func openRepository(db *sql.DB, d Dialect) (*SQLRepository, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{db: db, dialect: d}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Dialect() Dialect { return r.dialect }

// FetchLessons implements sources.LessonSource
func (r *SQLRepository) FetchLessons(ctx context.Context) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id_cliente, date, price, tipo FROM lessons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	out := make([]core.RawRecord, 0)
	for rows.Next() {
		var (
			clientID, date, tipo string
			price                sql.NullFloat64
		)
		if err := rows.Scan(&clientID, &date, &price, &tipo); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		rec := core.RawRecord{
			"id_cliente": clientID,
			"date":       date,
			"price":      nil,
			"tipo":       tipo,
		}
		if price.Valid {
			rec["price"] = price.Float64
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return out, nil
}

// FetchClients implements sources.ClientSource
func (r *SQLRepository) FetchClients(ctx context.Context) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id_cliente, nps, attributes FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	out := make([]core.RawRecord, 0)
	for rows.Next() {
		var (
			clientID string
			nps      sql.NullFloat64
			attrs    []byte
		)
		if err := rows.Scan(&clientID, &nps, &attrs); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		rec, err := decodeAttributes(attrs)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed client attributes",
				"client_id", clientID,
				"error", err)
			rec = core.RawRecord{}
		}
		rec["ID_Cliente"] = clientID
		rec["NPS"] = nil
		if nps.Valid {
			rec["NPS"] = nps.Float64
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return out, nil
}

// ImportLessons replaces the lessons table with records. Prices that are not
// numbers are stored as NULL.
func (r *SQLRepository) ImportLessons(ctx context.Context, records []core.RawRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons`); err != nil {
		return 0, fmt.Errorf("clear lessons: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lessons (id_cliente, date, price, tipo) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare lesson insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		var price sql.NullFloat64
		if p, ok := core.CoerceFloat(rec.First(core.LessonPriceKeys...)); ok {
			price = sql.NullFloat64{Float64: p, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			core.CoerceString(rec.First(core.LessonClientKeys...)),
			core.CoerceString(rec.First(core.LessonDateKeys...)),
			price,
			core.CoerceString(rec.First(core.LessonTypeKeys...)),
		)
		if err != nil {
			return 0, fmt.Errorf("insert lesson %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit lessons: %w", err)
	}

	slog.InfoContext(ctx, "Lessons imported",
		"dialect", r.dialect,
		"count", len(records))
	return len(records), nil
}

// ImportClients replaces the clients table with records. Fields other than
// the id and score are kept as a JSON attributes document.
func (r *SQLRepository) ImportClients(ctx context.Context, records []core.RawRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM clients`); err != nil {
		return 0, fmt.Errorf("clear clients: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clients (id_cliente, nps, attributes) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare client insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		var nps sql.NullFloat64
		if s, ok := core.CoerceFloat(rec.First(core.ClientScoreKeys...)); ok {
			nps = sql.NullFloat64{Float64: s, Valid: true}
		}
		attrs := core.ClientAttributes(rec)
		if attrs == nil {
			attrs = map[string]any{}
		}
		doc, err := json.Marshal(attrs)
		if err != nil {
			return 0, fmt.Errorf("encode attributes for client %d: %w", i, err)
		}
		_, err = stmt.ExecContext(ctx,
			core.CoerceString(rec.First(core.ClientIDKeys...)),
			nps,
			string(doc),
		)
		if err != nil {
			return 0, fmt.Errorf("insert client %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clients: %w", err)
	}

	slog.InfoContext(ctx, "Clients imported",
		"dialect", r.dialect,
		"count", len(records))
	return len(records), nil
}

func decodeAttributes(doc []byte) (core.RawRecord, error) {
	rec := core.RawRecord{}
	if len(bytes.TrimSpace(doc)) == 0 {
		return rec, nil
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = core.RawRecord{}
	}
	return rec, nil
}

// toMySQLDSN converts mysql:// and mariadb:// URLs into a go-sql-driver DSN.
// Anything else is assumed to be a native DSN already.
func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}

	cfg := mysql.NewConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
		return "", fmt.Errorf("incomplete dsn: user, host and database are required")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.InterpolateParams = true
	return cfg.FormatDSN(), nil
}
