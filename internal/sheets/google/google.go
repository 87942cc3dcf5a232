package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client writes transaction rows to one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	// mu serializes find-then-write so concurrent upserts of new ids do not
	// land on the same empty row.
	mu sync.Mutex
}

// Ensure interface conformance
var _ ports.TransactionExporter = (*Client)(nil)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheet string) (*Client, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheet) == "" {
		sheet = "Transactions"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

// NewFromEnv creates a client authenticated with service account credentials
// taken from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, sheet string) (*Client, error) {
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheet)
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Upsert implements ports.TransactionExporter
func (c *Client) Upsert(ctx context.Context, r ports.Row) (string, error) {
	if r.TransactionID == "" {
		return "", errors.New("row without transaction id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.read(ctx, "A:A")
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		if err := c.writeHeader(ctx); err != nil {
			return "", err
		}
		ids = [][]string{{ports.Header[0]}}
	}

	n := ports.FindRow(ids, r.TransactionID)
	if n == 0 {
		n = len(ids) + 1
	}
	rng := ports.RowRange(c.sheet, n)
	vr := &gsheet.ValueRange{Values: [][]any{r.Values()}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rng, nil
}

// Clear implements ports.TransactionExporter
func (c *Client) Clear(ctx context.Context, transactionID core.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.read(ctx, "A:A")
	if err != nil {
		return err
	}
	n := ports.FindRow(ids, transactionID)
	if n == 0 {
		slog.DebugContext(ctx, "No sheet row for transaction", "transaction_id", transactionID)
		return nil
	}
	rng := ports.RowRange(c.sheet, n)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// ClearUserYear implements ports.TransactionExporter
func (c *Client) ClearUserYear(ctx context.Context, userID core.ID, year int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.read(ctx, ports.Columns)
	if err != nil {
		return 0, err
	}
	rows := ports.RowsOfUserYear(values, userID, year)
	if len(rows) == 0 {
		return 0, nil
	}
	ranges := make([]string, len(rows))
	for i, n := range rows {
		ranges[i] = ports.RowRange(c.sheet, n)
	}
	req := &gsheet.BatchClearValuesRequest{Ranges: ranges}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("batch clear %d rows: %w", len(ranges), err)
	}
	return len(rows), nil
}

func (c *Client) writeHeader(ctx context.Context) error {
	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	rng := ports.RowRange(c.sheet, 1)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (c *Client) read(ctx context.Context, cols string) ([][]string, error) {
	rng := fmt.Sprintf("%s!%s", ports.QuoteSheet(c.sheet), cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = ports.ToStrings(row)
	}
	return out, nil
}
