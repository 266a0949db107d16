package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ErrRowNotFound is reported when a row lookup by natural key fails.
var ErrRowNotFound = errors.New("sheet row not found")

// Row is one data row keyed by the header cell of each column. The
// source enforces no schema, so every value stays a string until the
// consumer parses it.
type Row map[string]string

// Client talks to one spreadsheet. Sheet (tab) names select the subject.
type Client struct {
	service       *sheetsapi.Service
	spreadsheetID string
	rowCache      map[string][]Row
	cacheMu       sync.RWMutex
}

func NewClient(ctx context.Context, credentialsFile, spreadsheetID string) (*Client, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheetsapi.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &Client{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string][]Row),
	}, nil
}

// TestConnection verifica o acesso à planilha lendo a primeira célula.
func (c *Client) TestConnection(ctx context.Context, sheetName string) error {
	_, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// ServiceAccountEmail returns the service-account email from the
// credentials file, for sharing instructions.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// Rows fetches every data row of a sheet. Row 1 is treated as the
// header row; returned rows map header → cell text.
func (c *Client) Rows(ctx context.Context, sheetName string) ([]Row, error) {
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, sheetName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}

	rows := RowsFromValues(resp.Values)

	c.cacheMu.Lock()
	c.rowCache[sheetName] = rows
	c.cacheMu.Unlock()

	return rows, nil
}

// RowsFromValues converts the raw value grid into header-keyed rows.
func RowsFromValues(values [][]interface{}) []Row {
	if len(values) < 1 {
		return nil
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = strings.TrimSpace(CellString(h))
	}

	var rows []Row
	for _, raw := range values[1:] {
		row := make(Row, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(raw) {
				row[header] = CellString(raw[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// CellString renders a spreadsheet cell value as its textual form.
func CellString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Append adds one row to the end of a sheet.
func (c *Client) Append(ctx context.Context, sheetName string, values []interface{}) error {
	valueRange := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, sheetName+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err == nil {
		c.invalidate(sheetName)
	}
	return err
}

// UpdateRow overwrites one data row in place. rowIdx is 1-based and
// counts the header row, matching what FindRow returns.
func (c *Client) UpdateRow(ctx context.Context, sheetName string, rowIdx int, values []interface{}) error {
	if rowIdx < 2 {
		return fmt.Errorf("row index %d would overwrite the header", rowIdx)
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", sheetName, rowIdx, columnLetter(len(values)), rowIdx)
	valueRange := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err == nil {
		c.invalidate(sheetName)
	}
	return err
}

// DeleteRow clears one data row. The cached snapshot for the sheet is
// dropped because row indexes shift underneath it.
func (c *Client) DeleteRow(ctx context.Context, sheetName string, rowIdx int) error {
	if rowIdx < 2 {
		return fmt.Errorf("row index %d would clear the header", rowIdx)
	}

	rangeData := fmt.Sprintf("%s!A%d:Z%d", sheetName, rowIdx, rowIdx)
	_, err := c.service.Spreadsheets.Values.Clear(c.spreadsheetID, rangeData, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err == nil {
		c.invalidate(sheetName)
	}
	return err
}

// FindRow locates the first data row matching the predicate and returns
// its 1-based sheet index (the header is row 1, data starts at row 2).
// It serves from the cached snapshot when one exists; any row mutation
// invalidates that snapshot, so a hit is as fresh as the last fetch.
func (c *Client) FindRow(ctx context.Context, sheetName string, match func(Row) bool) (int, Row, error) {
	rows, ok := c.CachedRows(sheetName)
	if !ok {
		var err error
		rows, err = c.Rows(ctx, sheetName)
		if err != nil {
			return 0, nil, err
		}
	}

	for i, row := range rows {
		if match(row) {
			return i + 2, row, nil
		}
	}
	return 0, nil, ErrRowNotFound
}

// CachedRows returns the last snapshot fetched for a sheet, if any.
func (c *Client) CachedRows(sheetName string) ([]Row, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	rows, ok := c.rowCache[sheetName]
	return rows, ok
}

func (c *Client) invalidate(sheetName string) {
	c.cacheMu.Lock()
	delete(c.rowCache, sheetName)
	c.cacheMu.Unlock()
}

func columnLetter(n int) string {
	if n < 1 {
		return "A"
	}
	letter := ""
	for n > 0 {
		n--
		letter = string(rune('A'+n%26)) + letter
		n /= 26
	}
	return letter
}
