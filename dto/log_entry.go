package dto

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var datePattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

// Date is a calendar date without normalisation, so an out-of-range
// day such as 32 survives until it is validated.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts YYYY-MM-DD without rolling invalid days over.
func ParseDate(s string) (Date, error) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Date{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, s)
	}
	// at most four digits each, so Atoi cannot fail
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// SheetMonth identifies the one calendar month a worksheet covers.
type SheetMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func SheetMonthOf(t time.Time) SheetMonth {
	return SheetMonth{Year: t.Year(), Month: t.Month()}
}

// Label formats the month with a Go time layout, "2006-01" by default.
func (m SheetMonth) Label(layout string) string {
	if layout == "" {
		layout = "2006-01"
	}
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format(layout)
}

// LastDay returns the number of days in the month.
func (m SheetMonth) LastDay() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m SheetMonth) Contains(d Date) bool {
	return d.Year == m.Year && d.Month == m.Month && d.Day >= 1 && d.Day <= m.LastDay()
}

type LogEntryKey struct {
	UserID string `json:"user_id"`
	Date   Date   `json:"date"`
}

type RosterEntry struct {
	UserID string `json:"user_id"`
	Row    int    `json:"row"`
}

// UserRoster is a snapshot of the user column of one month sheet.
type UserRoster struct {
	SheetID string        `json:"sheet_id"`
	Month   SheetMonth    `json:"month"`
	Column  int           `json:"column"`
	Entries []RosterEntry `json:"entries"`
}

// NewUserRoster builds a roster from raw column values. The first
// headerRows values are skipped, as are blank cells. Ids are trimmed and
// every entry keeps its 1-based row in the store.
func NewUserRoster(sheetID string, month SheetMonth, column, headerRows int, values []string) UserRoster {
	r := UserRoster{SheetID: sheetID, Month: month, Column: column}
	for i, v := range values {
		if i < headerRows {
			continue
		}
		id := strings.TrimSpace(v)
		if id == "" {
			continue
		}
		r.Entries = append(r.Entries, RosterEntry{UserID: id, Row: i + 1})
	}
	return r
}

// Users lists the user ids in roster order.
func (r UserRoster) Users() []string {
	out := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.UserID)
	}
	return out
}

// RowOf returns the store row of an exact user id match.
func (r UserRoster) RowOf(userID string) (int, bool) {
	for _, e := range r.Entries {
		if e.UserID == userID {
			return e.Row, true
		}
	}
	return 0, false
}

func (r UserRoster) Empty() bool {
	return len(r.Entries) == 0
}

type SheetCoordinate struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}
