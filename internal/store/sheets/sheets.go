// Package sheets stores assignments in one tab of a Google spreadsheet via the
// Sheets API. Row 1 is a header; data starts at row 2 in store.Fields order.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"topicspin-api/internal/models"
	"topicspin-api/internal/store"
)

type Store struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	tab           string
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Deleter = (*Store)(nil)
)

func New(ctx context.Context, spreadsheetID, tab string, opts ...option.ClientOption) (*Store, error) {
	if spreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if tab == "" {
		tab = "Assignments"
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &Store{svc: svc, spreadsheetID: spreadsheetID, tab: tab}, nil
}

// ClientOptionsFromEnv picks credentials from GOOGLE_APPLICATION_CREDENTIALS_JSON
// (inline) or GOOGLE_APPLICATION_CREDENTIALS (path). Nil means ADC.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (s *Store) dataRange() string { return s.tab + "!A2:H" }

func (s *Store) FetchAll(ctx context.Context) ([]models.Assignment, error) {
	rows, err := s.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Assignment, 0, len(rows))
	for _, rec := range rows {
		if rec.Empty() {
			continue
		}
		if a, ok := store.DecodeRecord(rec); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, a models.Assignment) (string, error) {
	rec := store.EncodeRecord(a)
	row := make([]interface{}, 0, len(store.Fields))
	for _, v := range rec.Row() {
		row = append(row, v)
	}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.tab+"!A:H", &sheetsapi.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("sheets: append: %w", err)
	}
	return rec[store.FieldID], nil
}

// Delete removes the first data row whose id column matches.
func (s *Store) Delete(ctx context.Context, id string) error {
	rows, err := s.rows(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, rec := range rows {
		if rec[store.FieldID] == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}
	sheetID, err := s.sheetID(ctx)
	if err != nil {
		return err
	}
	// Data row i sits at zero-based grid row i+1, below the header.
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: []*sheetsapi.Request{{
		DeleteDimension: &sheetsapi.DeleteDimensionRequest{Range: &sheetsapi.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(idx + 1),
			EndIndex:   int64(idx + 2),
			// The first tab usually has id 0, which omitempty would drop.
			ForceSendFields: []string{"SheetId"},
		}},
	}}}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: delete row: %w", err)
	}
	return nil
}

// Clear blanks every data row and keeps the header.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.svc.Spreadsheets.Values.
		Clear(s.spreadsheetID, s.dataRange(), &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: clear: %w", err)
	}
	return nil
}

func (s *Store) rows(ctx context.Context) ([]store.Record, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: get values: %w", err)
	}
	out := make([]store.Record, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		out = append(out, store.RecordFromRow(row))
	}
	return out, nil
}

func (s *Store) sheetID(ctx context.Context) (int64, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets: get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.tab {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheets: tab %q not found", s.tab)
}
