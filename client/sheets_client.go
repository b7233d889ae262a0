package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/Aashish23092/runlog-ocr/dto"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ParseSpreadsheetID accepts a spreadsheet URL or a bare id.
func ParseSpreadsheetID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("spreadsheet reference is empty")
	}
	if m := spreadsheetURLPattern.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if strings.ContainsAny(ref, "/:?") {
		return "", fmt.Errorf("cannot find a spreadsheet id in %q", ref)
	}
	return ref, nil
}

// ColumnLetter converts a 1-based column number to A1 letters (1 -> A, 27 -> AA).
func ColumnLetter(column int) string {
	if column < 1 {
		return ""
	}
	var b []byte
	for column > 0 {
		column--
		b = append([]byte{byte('A' + column%26)}, b...)
		column /= 26
	}
	return string(b)
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// SheetsClient stores log entries in one Google spreadsheet. Each month is
// a worksheet titled with its label.
type SheetsClient struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewSheetsClient(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsClient, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsClient{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (sc *SheetsClient) HasSheet(ctx context.Context, sheetID string) (bool, error) {
	ss, err := sc.svc.Spreadsheets.Get(sc.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == sheetID {
			return true, nil
		}
	}
	return false, nil
}

// ReadColumn returns the column from row 1 down to the last non-empty cell.
func (sc *SheetsClient) ReadColumn(ctx context.Context, sheetID string, column int) ([]string, error) {
	letter := ColumnLetter(column)
	rng := fmt.Sprintf("%s!%s:%s", quoteSheet(sheetID), letter, letter)
	vr, err := sc.svc.Spreadsheets.Values.Get(sc.spreadsheetID, rng).MajorDimension("COLUMNS").Context(ctx).Do()
	if err != nil {
		return nil, sc.wrap(sheetID, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}
	out := make([]string, len(vr.Values[0]))
	for i, v := range vr.Values[0] {
		out[i] = fmt.Sprint(v)
	}
	return out, nil
}

// FindRow returns the 1-based row holding exactly value.
func (sc *SheetsClient) FindRow(ctx context.Context, sheetID string, column int, value string) (int, bool, error) {
	values, err := sc.ReadColumn(ctx, sheetID, column)
	if err != nil {
		return 0, false, err
	}
	for i, v := range values {
		if strings.TrimSpace(v) == value {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (sc *SheetsClient) WriteCell(ctx context.Context, sheetID string, row, column int, value string) error {
	if row < 1 || column < 1 {
		return fmt.Errorf("invalid cell %d,%d", row, column)
	}
	rng := fmt.Sprintf("%s!%s%d", quoteSheet(sheetID), ColumnLetter(column), row)
	_, err := sc.svc.Spreadsheets.Values.Update(sc.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return sc.wrap(sheetID, err)
	}
	return nil
}

// wrap maps the API's unknown-range error to dto.ErrSheetNotFound.
func (sc *SheetsClient) wrap(sheetID string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range") {
		return fmt.Errorf("%w: %s", dto.ErrSheetNotFound, sheetID)
	}
	return fmt.Errorf("sheets request for %s failed: %w", sheetID, err)
}
