package normalizer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/import/schema"
)

func fullMapping() schema.ColumnMapping {
	return schema.ColumnMapping{DateCol: 0, DescCol: 1, DebitCol: 2, CreditCol: 3}
}

func TestNormalizeRow(t *testing.T) {
	opts := Options{Now: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name     string
		record   []string
		wantDate time.Time
		wantDesc string
		wantAmt  string
		wantKind Kind
	}{
		{
			name:     "debit row becomes expense",
			record:   []string{"2026-01-15", "COMPRA SUPERMERCADO LIDER", "45.000", ""},
			wantDate: time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
			wantDesc: "COMPRA SUPERMERCADO LIDER",
			wantAmt:  "45000",
			wantKind: KindExpense,
		},
		{
			name:     "credit row becomes income",
			record:   []string{"2026-01-31", "TRANSFERENCIA SUELDO", "", "1.500.000"},
			wantDate: time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
			wantDesc: "TRANSFERENCIA SUELDO",
			wantAmt:  "1500000",
			wantKind: KindIncome,
		},
		{
			name:     "decimal comma amount",
			record:   []string{"2026-02-01", "PAGO CUENTA", "12.345,67", ""},
			wantDate: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
			wantDesc: "PAGO CUENTA",
			wantAmt:  "12345.67",
			wantKind: KindExpense,
		},
		{
			name:     "spanish month date infers year",
			record:   []string{"02/Ene", "COMPRA FARMACIA", "9.990", ""},
			wantDate: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC),
			wantDesc: "COMPRA FARMACIA",
			wantAmt:  "9990",
			wantKind: KindExpense,
		},
		{
			name:     "unambiguous day-first numeric date",
			record:   []string{"25/01/2026", "RETIRO CAJERO", "20.000", ""},
			wantDate: time.Date(2026, time.January, 25, 0, 0, 0, 0, time.UTC),
			wantDesc: "RETIRO CAJERO",
			wantAmt:  "20000",
			wantKind: KindExpense,
		},
		{
			name:     "negative debit keeps positive magnitude",
			record:   []string{"2026-01-10", "COMPRA ONLINE", "-15.000", ""},
			wantDate: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
			wantDesc: "COMPRA ONLINE",
			wantAmt:  "15000",
			wantKind: KindExpense,
		},
		{
			name:     "whitespace collapsed in description",
			record:   []string{"2026-01-10", "  PAGO   AUTOMATICO   LUZ ", "", "5.000"},
			wantDate: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
			wantDesc: "PAGO AUTOMATICO LUZ",
			wantAmt:  "5000",
			wantKind: KindIncome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate, rowErr := NormalizeRow(tt.record, fullMapping(), 1, opts)
			require.Nil(t, rowErr)
			require.NotNil(t, candidate)
			assert.Equal(t, tt.wantDate, candidate.Date)
			assert.Equal(t, tt.wantDesc, candidate.Description)
			assert.True(t, candidate.Amount.Equal(decimal.RequireFromString(tt.wantAmt)),
				"amount: got %s want %s", candidate.Amount, tt.wantAmt)
			assert.Equal(t, tt.wantKind, candidate.Kind)
		})
	}
}

func TestNormalizeRow_Rejections(t *testing.T) {
	opts := Options{Now: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name      string
		record    []string
		wantField string
	}{
		{
			name:      "empty date",
			record:    []string{"", "COMPRA", "1.000", ""},
			wantField: schema.FieldDate,
		},
		{
			name:      "ambiguous numeric date",
			record:    []string{"01/02/2026", "COMPRA", "1.000", ""},
			wantField: schema.FieldDate,
		},
		{
			name:      "garbage date",
			record:    []string{"no es fecha", "COMPRA", "1.000", ""},
			wantField: schema.FieldDate,
		},
		{
			name:      "empty description",
			record:    []string{"2026-01-15", "", "1.000", ""},
			wantField: schema.FieldDescription,
		},
		{
			name:      "subtotal noise row",
			record:    []string{"2026-01-15", "SUBTOTAL", "99.000", ""},
			wantField: schema.FieldDescription,
		},
		{
			name:      "referencial note row",
			record:    []string{"2026-01-15", "Información Referencial", "", "1.000"},
			wantField: schema.FieldDescription,
		},
		{
			name:      "both amounts populated",
			record:    []string{"2026-01-15", "COMPRA", "1.000", "2.000"},
			wantField: schema.FieldAmount,
		},
		{
			name:      "no amount populated",
			record:    []string{"2026-01-15", "COMPRA", "", ""},
			wantField: schema.FieldAmount,
		},
		{
			name:      "zero amounts count as empty",
			record:    []string{"2026-01-15", "COMPRA", "0", "0"},
			wantField: schema.FieldAmount,
		},
		{
			name:      "unparsable debit",
			record:    []string{"2026-01-15", "COMPRA", "N/A", ""},
			wantField: schema.FieldAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate, rowErr := NormalizeRow(tt.record, fullMapping(), 7, opts)
			require.Nil(t, candidate)
			require.NotNil(t, rowErr)
			assert.Equal(t, 7, rowErr.Row)
			assert.Equal(t, tt.wantField, rowErr.Field)
			assert.NotEmpty(t, rowErr.Message)
		})
	}
}

func TestNormalizeRow_ShortRecord(t *testing.T) {
	// Credit column index past the end of the record reads as empty.
	mapping := schema.ColumnMapping{DateCol: 0, DescCol: 1, DebitCol: 2, CreditCol: 5}
	candidate, rowErr := NormalizeRow([]string{"2026-01-15", "COMPRA", "3.500"}, mapping, 1, Options{})
	require.Nil(t, rowErr)
	assert.Equal(t, KindExpense, candidate.Kind)
}

func TestParseDate_YearInference(t *testing.T) {
	tests := []struct {
		name  string
		input string
		now   time.Time
		want  time.Time
	}{
		{
			name:  "december row imported in january belongs to prior year",
			input: "28/Dic",
			now:   time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2025, time.December, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "january row imported in december belongs to next year",
			input: "03/Ene",
			now:   time.Date(2026, time.December, 30, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2027, time.January, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "explicit year wins over inference",
			input: "28/Dic/2024",
			now:   time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, time.December, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "full month name",
			input: "15/Marzo/2026",
			now:   time.Time{},
			want:  time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input, "", tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_ConfiguredLayoutFirst(t *testing.T) {
	got, err := ParseDate("15-01-2026", "02-01-2006", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDate_RejectsInvalidCalendarDate(t *testing.T) {
	_, err := ParseDate("31/Feb/2026", "", time.Time{})
	require.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"45.000", "45000"},
		{"$ 45.000", "45000"},
		{"1.234.567", "1234567"},
		{"1.234,56", "1234.56"},
		{"-99.990", "99990"},
		{"500", "500"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"input %q: got %s want %s", tt.input, got, tt.want)
	}

	_, err := ParseAmount("abc")
	assert.Error(t, err)
	_, err = ParseAmount("$")
	assert.Error(t, err)
}
