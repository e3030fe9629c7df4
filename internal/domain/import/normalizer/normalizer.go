// Package normalizer converts raw statement rows into candidate transactions.
// Failures are per-row values, never errors that abort the batch.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/import/schema"
)

// Kind classifies a transaction by the source column that held its amount.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Candidate is a normalized row ready for staging.
type Candidate struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal // positive magnitude
	Kind        Kind
}

// RowError describes why a single row was rejected. The import continues
// with the next row; rejections are counted and reported in the summary.
type RowError struct {
	Row     int    // 1-indexed row number in the source file
	Field   string // canonical field that failed
	Message string
	Raw     string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d, field %s: %s", e.Row, e.Field, e.Message)
}

// Options configures row normalization.
type Options struct {
	DateFormat string    // preferred Go layout, tried before the built-in formats
	Now        time.Time // reference for year inference on day/month-name dates
}

// Statement footer rows carrying totals or bank disclaimers, not transactions.
var noiseMarkers = []string{"subtotal", "notas:", "información referencial", "informacion referencial"}

// NormalizeRow extracts date, description, amount, and kind from one raw row.
// The kind derives from which amount column is populated: debit means expense,
// credit means income. Both or neither populated rejects the row.
func NormalizeRow(record []string, mapping schema.ColumnMapping, rowNum int, opts Options) (*Candidate, *RowError) {
	getValue := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	dateStr := getValue(mapping.DateCol)
	if dateStr == "" {
		return nil, &RowError{Row: rowNum, Field: schema.FieldDate, Message: "empty date"}
	}

	date, err := ParseDate(dateStr, opts.DateFormat, opts.Now)
	if err != nil {
		return nil, &RowError{
			Row:     rowNum,
			Field:   schema.FieldDate,
			Message: fmt.Sprintf("invalid date: %v", err),
			Raw:     dateStr,
		}
	}

	desc := cleanDescription(getValue(mapping.DescCol))
	if desc == "" {
		return nil, &RowError{Row: rowNum, Field: schema.FieldDescription, Message: "empty description"}
	}
	if isStatementNote(desc) {
		return nil, &RowError{
			Row:     rowNum,
			Field:   schema.FieldDescription,
			Message: "statement note, not a transaction",
			Raw:     desc,
		}
	}

	debit, debitSet, err := parseOptionalAmount(getValue(mapping.DebitCol))
	if err != nil {
		return nil, &RowError{
			Row:     rowNum,
			Field:   schema.FieldAmount,
			Message: fmt.Sprintf("invalid debit amount: %v", err),
			Raw:     getValue(mapping.DebitCol),
		}
	}
	credit, creditSet, err := parseOptionalAmount(getValue(mapping.CreditCol))
	if err != nil {
		return nil, &RowError{
			Row:     rowNum,
			Field:   schema.FieldAmount,
			Message: fmt.Sprintf("invalid credit amount: %v", err),
			Raw:     getValue(mapping.CreditCol),
		}
	}

	switch {
	case debitSet && creditSet:
		return nil, &RowError{Row: rowNum, Field: schema.FieldAmount, Message: "both debit and credit populated"}
	case !debitSet && !creditSet:
		return nil, &RowError{Row: rowNum, Field: schema.FieldAmount, Message: "no amount populated"}
	}

	candidate := &Candidate{Date: date, Description: desc}
	if debitSet {
		candidate.Amount = debit
		candidate.Kind = KindExpense
	} else {
		candidate.Amount = credit
		candidate.Kind = KindIncome
	}
	return candidate, nil
}

// parseOptionalAmount parses an amount cell. Empty or zero cells count as
// not populated; a populated but unparsable cell is an error.
func parseOptionalAmount(s string) (decimal.Decimal, bool, error) {
	if s == "" {
		return decimal.Zero, false, nil
	}
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, false, err
	}
	if d.IsZero() {
		return decimal.Zero, false, nil
	}
	return d, true, nil
}

// ParseAmount parses a Chilean-format amount: '.' thousands separator and
// ',' decimal separator. Currency symbols and whitespace are stripped, and
// the sign is dropped since the column already encodes direction.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			return r
		case r == '$', r == ' ', r == ' ':
			return -1
		default:
			return r // keep unexpected runes so parsing fails loudly
		}
	}, strings.TrimSpace(s))

	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", s)
	}
	return d.Abs(), nil
}

// Spanish month abbreviations and full names as they appear in statements.
var spanishMonths = map[string]time.Month{
	"ene": time.January, "enero": time.January,
	"feb": time.February, "febrero": time.February,
	"mar": time.March, "marzo": time.March,
	"abr": time.April, "abril": time.April,
	"may": time.May, "mayo": time.May,
	"jun": time.June, "junio": time.June,
	"jul": time.July, "julio": time.July,
	"ago": time.August, "agosto": time.August,
	"sep": time.September, "septiembre": time.September,
	"oct": time.October, "octubre": time.October,
	"nov": time.November, "noviembre": time.November,
	"dic": time.December, "diciembre": time.December,
}

// ParseDate parses a statement date. Accepted forms, in order:
// the configured layout, ISO 8601, day/month-name ("02/Ene", "02/Ene/2026"),
// and day-first numeric dates whose day exceeds 12. Numeric dates where both
// day and month could swap (e.g. "01/02/2026") are rejected as ambiguous.
func ParseDate(s, layout string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if layout != "" {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	for _, format := range []string{"2006-01-02", "2006/01/02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	if t, ok := parseSpanishMonthDate(s, now); ok {
		return t, nil
	}

	if t, err := parseNumericDate(s); err == nil {
		return t, nil
	} else if err != errNotNumericDate {
		return time.Time{}, err
	}

	return time.Time{}, fmt.Errorf("unrecognized format: %q", s)
}

// parseSpanishMonthDate handles "dd/mon" and "dd/mon/yyyy" values. Yearless
// dates infer the year from now, shifting across the December/January boundary
// so a statement imported in early January still lands December rows correctly.
func parseSpanishMonthDate(s string, now time.Time) (time.Time, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' || r == ' ' })
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, false
	}

	day, ok := parseDigits(parts[0])
	if !ok || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := spanishMonths[strings.ToLower(parts[1])]
	if !ok {
		return time.Time{}, false
	}

	year := 0
	if len(parts) == 3 {
		year, ok = parseDigits(parts[2])
		if !ok || year < 1900 {
			return time.Time{}, false
		}
	} else {
		if now.IsZero() {
			now = time.Now()
		}
		year = now.Year()
		if month == time.December && now.Month() == time.January {
			year--
		} else if month == time.January && now.Month() == time.December {
			year++
		}
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false // e.g. 31/Feb rolled over
	}
	return t, true
}

var errNotNumericDate = fmt.Errorf("not a numeric date")

// parseNumericDate accepts dd/mm/yyyy or mm/dd/yyyy only when the value is
// unambiguous, i.e. one component exceeds 12. Anything else is rejected
// rather than guessed by locale.
func parseNumericDate(s string) (time.Time, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' || r == '.' })
	if len(parts) != 3 {
		return time.Time{}, errNotNumericDate
	}

	first, ok1 := parseDigits(parts[0])
	second, ok2 := parseDigits(parts[1])
	year, ok3 := parseDigits(parts[2])
	if !ok1 || !ok2 || !ok3 || year < 1900 || year > 9999 {
		return time.Time{}, errNotNumericDate
	}

	var day, month int
	switch {
	case first > 12 && second <= 12:
		day, month = first, second
	case second > 12 && first <= 12:
		day, month = second, first
	default:
		return time.Time{}, fmt.Errorf("ambiguous date %q: day and month are interchangeable", s)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("invalid calendar date %q", s)
	}
	return t, nil
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// cleanDescription trims and collapses whitespace.
func cleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isStatementNote(desc string) bool {
	lower := strings.ToLower(desc)
	for _, marker := range noiseMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
