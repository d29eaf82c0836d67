package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	// Appends and deletes both depend on row positions.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var _ ports.RecordMirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}
	if logger == nil {
		logger = log.Default(log.ComponentSheets)
	}

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		credentialsJSON, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// AppendRecord implements ports.RecordMirror.
func (c *Client) AppendRecord(ctx context.Context, userID string, kind core.Kind, r core.Record) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	if findRowByID(ids, r.ID) >= 0 {
		c.logger.DebugContext(ctx, "Record already mirrored", log.FieldRecordID, r.ID)
		return nil
	}

	values := [][]any{recordRow(userID, kind, r)}
	if len(ids) == 0 {
		values = append([][]any{headerRow()}, values...)
	}

	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	c.logger.InfoContext(ctx, "Mirrored record", log.FieldRecordID, r.ID, log.FieldUserID, userID, log.FieldKind, kind.String())
	return nil
}

// DeleteRecord implements ports.RecordMirror.
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRowByID(ids, recordID)
	if row < 0 {
		c.logger.WarnContext(ctx, "Record not found in sheet, nothing to delete", log.FieldRecordID, recordID)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", row+1, c.sheetName, err)
	}
	c.logger.InfoContext(ctx, "Deleted mirrored record", log.FieldRecordID, recordID, "row", row+1)
	return nil
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
