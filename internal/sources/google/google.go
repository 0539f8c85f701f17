// Package google reads the lesson and client collections from two tabs of a
// Google spreadsheet. The first row of each tab holds the field names.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"aulas/internal/core"
	"aulas/internal/sources"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultLessonsSheet = "Aulas"
	DefaultClientsSheet = "Base"
)

var _ sources.Source = (*Client)(nil)

// Config selects the spreadsheet and how to authenticate. Credentials are
// taken from CredentialsJSON, then CredentialsFile, then
// GOOGLE_APPLICATION_CREDENTIALS.
type Config struct {
	SpreadsheetID   string
	LessonsSheet    string
	ClientsSheet    string
	CredentialsJSON string
	CredentialsFile string
}

// valuesGetter is the single Sheets call this package needs.
type valuesGetter interface {
	getValues(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

type Client struct {
	values        valuesGetter
	spreadsheetID string
	lessonsSheet  string
	clientsSheet  string
}

// New creates a Sheets client using service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceGetter{svc: svc}, cfg), nil
}

func newClient(v valuesGetter, cfg Config) *Client {
	lessons := strings.TrimSpace(cfg.LessonsSheet)
	if lessons == "" {
		lessons = DefaultLessonsSheet
	}
	clients := strings.TrimSpace(cfg.ClientsSheet)
	if clients == "" {
		clients = DefaultClientsSheet
	}
	return &Client{
		values:        v,
		spreadsheetID: cfg.SpreadsheetID,
		lessonsSheet:  lessons,
		clientsSheet:  clients,
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if cfg.CredentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

type serviceGetter struct {
	svc *gsheet.Service
}

func (g serviceGetter) getValues(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// FetchLessons implements sources.LessonSource
func (c *Client) FetchLessons(ctx context.Context) ([]core.RawRecord, error) {
	return c.readSheet(ctx, c.lessonsSheet)
}

// FetchClients implements sources.ClientSource
func (c *Client) FetchClients(ctx context.Context) ([]core.RawRecord, error) {
	return c.readSheet(ctx, c.clientsSheet)
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([]core.RawRecord, error) {
	if c.values == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.values.getValues(ctx, c.spreadsheetID, quoteSheet(sheet))
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rowsToRecords(values), nil
}

// quoteSheet turns a tab name into an A1 range covering the whole tab.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
