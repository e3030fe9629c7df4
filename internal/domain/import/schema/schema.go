// Package schema maps bank statement header rows to canonical transaction columns.
// Detection is alias-based: each canonical field carries a list of known header
// spellings across the Spanish bank formats we ingest.
package schema

import (
	"fmt"
	"strings"
)

// Canonical field names used in detection failures.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
)

// Header aliases per canonical field. Matching is case-insensitive containment,
// so "Fecha Movimiento" still resolves the date column.
var (
	dateAliases        = []string{"fecha", "date"}
	descriptionAliases = []string{"descripción", "descripcion", "description", "glosa", "detalle"}
	debitAliases       = []string{"cargo", "debe", "egreso", "gasto"}
	creditAliases      = []string{"abono", "haber", "ingreso", "depósito", "deposito"}
)

// ColumnMapping holds the source column index for each canonical field.
// An index of -1 means the column is absent.
type ColumnMapping struct {
	DateCol   int
	DescCol   int
	DebitCol  int
	CreditCol int
}

// HasDebit reports whether a debit/expense column was found.
func (m ColumnMapping) HasDebit() bool { return m.DebitCol >= 0 }

// HasCredit reports whether a credit/income column was found.
func (m ColumnMapping) HasCredit() bool { return m.CreditCol >= 0 }

// DetectionError reports which required fields could not be resolved.
// It is structural: the whole import aborts before any row is read.
type DetectionError struct {
	Missing []string
	Headers []string
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("could not detect columns for %s in headers %v",
		strings.Join(e.Missing, ", "), e.Headers)
}

// Detect resolves a header row to a column mapping. Date and description are
// mandatory; at least one of debit/credit must be present (both may coexist).
func Detect(headers []string) (*ColumnMapping, error) {
	mapping := &ColumnMapping{
		DateCol:   -1,
		DescCol:   -1,
		DebitCol:  -1,
		CreditCol: -1,
	}

	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		if h == "" {
			continue
		}

		switch {
		case mapping.DateCol < 0 && containsAny(h, dateAliases):
			mapping.DateCol = i
		case mapping.DescCol < 0 && containsAny(h, descriptionAliases):
			mapping.DescCol = i
		case mapping.DebitCol < 0 && containsAny(h, debitAliases):
			mapping.DebitCol = i
		case mapping.CreditCol < 0 && containsAny(h, creditAliases):
			mapping.CreditCol = i
		}
	}

	var missing []string
	if mapping.DateCol < 0 {
		missing = append(missing, FieldDate)
	}
	if mapping.DescCol < 0 {
		missing = append(missing, FieldDescription)
	}
	if !mapping.HasDebit() && !mapping.HasCredit() {
		missing = append(missing, FieldAmount)
	}

	if len(missing) > 0 {
		return nil, &DetectionError{Missing: missing, Headers: headers}
	}
	return mapping, nil
}

func containsAny(s string, aliases []string) bool {
	for _, alias := range aliases {
		if strings.Contains(s, alias) {
			return true
		}
	}
	return false
}
