package sync

import (
	"testing"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellValueAliases(t *testing.T) {
	row := sheets.Row{
		"Veículo":    "ESC-01",
		"DATA":       "15/08/2026",
		"Hor. Atual": "1.520,5",
		"Motorista":  "João",
	}

	code, ok := CellValue(row, FieldVehicle)
	require.True(t, ok)
	assert.Equal(t, "ESC-01", code)

	date, ok := CellValue(row, FieldDate)
	require.True(t, ok)
	assert.Equal(t, "15/08/2026", date)

	hor, ok := CellValue(row, FieldHorimeterCurrent)
	require.True(t, ok)
	assert.Equal(t, "1.520,5", hor)

	op, ok := CellValue(row, FieldOperator)
	require.True(t, ok)
	assert.Equal(t, "João", op)

	_, ok = CellValue(row, FieldLiters)
	assert.False(t, ok)
}

func TestCellValueTrimsWhitespace(t *testing.T) {
	row := sheets.Row{"Veiculo": "  CAM-07  "}
	code, ok := CellValue(row, FieldVehicle)
	require.True(t, ok)
	assert.Equal(t, "CAM-07", code)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"15/08/2026", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"2026-08-15", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"15.08.2026", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"15/08/26", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"15-08-2026", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		// Datetime cells keep only the date part.
		{"15/08/2026 14:32", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"  15/08/2026  ", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		got, err := ParseDate(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.True(t, got.Equal(tc.want), "input %q: got %v", tc.in, got)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "amanhã", "32/13/2026"} {
		_, err := ParseDate(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1234.56", 1234.56},
		{"1234,56", 1234.56},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1.234.567", 1234567},
		{"1,234,567", 1234567},
		{"1520", 1520},
		{"0", 0},
		{"", 0},
		{"-", 0},
		{" 45 210,3 ", 45210.3},
	}

	for _, tc := range tests {
		got, err := ParseDecimal(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.InDelta(t, tc.want, got, 0.0001, "input %q", tc.in)
	}
}

func TestParseDecimalRejectsGarbage(t *testing.T) {
	for _, in := range []string{"abc", "12x3", "--"} {
		_, err := ParseDecimal(in)
		assert.Error(t, err, "input %q", in)
	}
}
