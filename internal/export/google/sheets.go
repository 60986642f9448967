package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fintrack/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and service account used for exports.
type Config struct {
	SpreadsheetID   string
	SheetBase       string // default "Summary"
	CredentialsFile string
	CredentialsJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

// Ensure interface conformance
var _ export.SummaryWriter = (*Client)(nil)

func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	svc, err := newSheetsService(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: cfg.SheetBase}, nil
}

// newSheetsService initializes a Sheets service from service account
// credentials. Extra options (endpoint, HTTP client) take precedence.
func newSheetsService(ctx context.Context, cfg Config, extra ...goption.ClientOption) (*gsheet.Service, error) {
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}

	switch {
	case len(extra) > 0:
		// caller supplies transport and auth
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsJSON(b))
	default:
		return nil, errors.New("missing service account credentials")
	}

	opts = append(opts, extra...)

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteSummary replaces the month block of the yearly summary tab. Each
// month owns a fixed block of rows so re-exports overwrite in place.
func (c *Client) WriteSummary(ctx context.Context, r export.Report) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("invalid report month %d", r.Month)
	}

	sheet := export.SheetName(c.sheetBase, r.Year)
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	rows := export.BuildRows(r)
	if len(rows) > monthBlockRows {
		rows = rows[:monthBlockRows]
	}
	first := (r.Month-1)*monthBlockRows + 1
	block := fmt.Sprintf("'%s'!A%d:E%d", sheet, first, first+monthBlockRows-1)

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, block, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", block, err)
	}

	target := fmt.Sprintf("'%s'!A%d", sheet, first)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", target, err)
	}

	slog.InfoContext(ctx, "Exported monthly summary",
		"sheet", sheet,
		"month", r.Month,
		"rows", len(rows))
	return nil
}

// monthBlockRows is the number of rows reserved per month.
const monthBlockRows = 60

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created summary sheet", "sheet", title)
	return nil
}
