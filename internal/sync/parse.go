package sync

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/sheets"
)

// Logical fields resolved from sheet columns.
const (
	FieldVehicle           = "vehicle"
	FieldDate              = "date"
	FieldHorimeterCurrent  = "horimeter_current"
	FieldHorimeterPrevious = "horimeter_previous"
	FieldOdometerCurrent   = "odometer_current"
	FieldOdometerPrevious  = "odometer_previous"
	FieldOperator          = "operator"
	FieldObservation       = "observation"
	FieldDescription       = "description"
	FieldCategory          = "category"
	FieldCompany           = "company"
	FieldUnit              = "unit"
	FieldLiters            = "liters"
	FieldFuelType          = "fuel_type"
	FieldUnitPrice         = "unit_price"
)

// FieldAliases lists the accepted column-header spellings per logical
// field, in resolution order. The spreadsheet schema drifts over time;
// keeping the aliases as data keeps that drift auditable.
var FieldAliases = map[string][]string{
	FieldVehicle:           {"Veiculo", "VEICULO", "Veículo", "Cod_Veiculo", "Codigo"},
	FieldDate:              {"Data", "DATA", "Dt", "Date"},
	FieldHorimeterCurrent:  {"Hor_Atual", "HOR_ATUAL", "Hor. Atual", "Horimetro_Atual", "Horimetro Atual"},
	FieldHorimeterPrevious: {"Hor_Anterior", "HOR_ANTERIOR", "Hor. Anterior", "Horimetro_Anterior"},
	FieldOdometerCurrent:   {"Km_Atual", "KM_ATUAL", "Km. Atual", "Odometro_Atual", "Odometro Atual"},
	FieldOdometerPrevious:  {"Km_Anterior", "KM_ANTERIOR", "Km. Anterior", "Odometro_Anterior"},
	FieldOperator:          {"Operador", "OPERADOR", "Motorista"},
	FieldObservation:       {"Observacao", "Observação", "Obs", "OBS"},
	FieldDescription:       {"Descricao", "Descrição", "DESCRICAO"},
	FieldCategory:          {"Categoria", "CATEGORIA", "Tipo"},
	FieldCompany:           {"Empresa", "EMPRESA", "Obra"},
	FieldUnit:              {"Unidade", "UNIDADE", "Und", "UM"},
	FieldLiters:            {"Litros", "LITROS", "Qtd_Litros", "Quantidade"},
	FieldFuelType:          {"Combustivel", "Combustível", "COMBUSTIVEL", "Tipo_Combustivel"},
	FieldUnitPrice:         {"Valor_Unitario", "Valor Unitário", "VALOR_UNITARIO", "Preco"},
}

// CellValue resolves a logical field against a row by trying its aliases
// in order. The second return reports whether any alias column existed.
func CellValue(row sheets.Row, field string) (string, bool) {
	for _, alias := range FieldAliases[field] {
		if v, ok := row[alias]; ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02.01.2006",
	"02/01/06",
	"02-01-2006",
}

// ParseDate accepts the textual date formats that show up in the
// spreadsheets and returns a canonical date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Datetime cells: keep only the date part.
	if idx := strings.IndexByte(s, ' '); idx > 0 {
		s = s[:idx]
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// ParseDecimal is the single source of truth for reading numbers out of
// sheet cells. It accepts comma or dot as the decimal separator and
// strips thousands separators, so "1.234,56" and "1234.56" both yield
// 1234.56. Empty cells parse as zero.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || s == "-" {
		return 0, nil
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		// The rightmost separator is the decimal one.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case hasDot:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized number: %q", s)
	}
	return v, nil
}
