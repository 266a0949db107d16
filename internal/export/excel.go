package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/config"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/database"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter writes mirror data to Excel workbooks for the office staff.
type Exporter struct {
	store  *database.Store
	cfg    config.ExportConfig
	logger zerolog.Logger
}

func NewExporter(store *database.Store, cfg config.ExportConfig, logger *zerolog.Logger) *Exporter {
	var l zerolog.Logger
	if logger != nil {
		l = logger.With().Str("component", "export").Logger()
	}
	return &Exporter{store: store, cfg: cfg, logger: l}
}

// ExportReadings creates a workbook with one row per horimeter reading
// in the given period and returns the file path.
func (e *Exporter) ExportReadings(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	readings, codes, err := e.store.ReadingsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting readings: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Horimetros"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Período: %s - %s",
		startDate.Format("02/01/2006"), endDate.Format("02/01/2006")))

	headers := []string{
		"Veículo", "Data", "Hor. Anterior", "Hor. Atual",
		"Km Anterior", "Km Atual", "Operador", "Observação", "Origem",
	}
	writeHeaderRow(f, sheetName, headers)

	for i, r := range readings {
		row := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), codes[r.VehicleID])
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.ReadingDate.Format("02/01/2006"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.HorimeterPrevious)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.HorimeterCurrent)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.OdometerPrevious)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.OdometerCurrent)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), r.Operator)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), r.Observation)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), r.Source)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 15)
	_ = f.SetColWidth(sheetName, "B", "F", 14)
	_ = f.SetColWidth(sheetName, "G", "H", 25)

	mergeTitle(f, sheetName, len(headers))
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("horimetros_%s_a_%s.xlsx",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.cfg.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(readings)).Msg("Excel file created")
	return filePath, nil
}

// ExportFuel creates a workbook with the fuel supplies in the period.
func (e *Exporter) ExportFuel(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	records, err := e.store.FuelRecordsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting fuel records: %v", err)
	}

	codes, err := e.vehicleCodes(ctx)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Abastecimento"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Período: %s - %s",
		startDate.Format("02/01/2006"), endDate.Format("02/01/2006")))

	headers := []string{
		"Veículo", "Data", "Litros", "Combustível", "Preço Unit.",
		"Total", "Horímetro", "Odômetro", "Operador", "Observação",
	}
	writeHeaderRow(f, sheetName, headers)

	for i, r := range records {
		row := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), codes[r.VehicleID])
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.SupplyDate.Format("02/01/2006"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.Liters)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.FuelType)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.UnitPrice)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.Liters*r.UnitPrice)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), r.Horimeter)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), r.Odometer)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), r.Operator)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), r.Observation)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 15)
	_ = f.SetColWidth(sheetName, "B", "H", 14)
	_ = f.SetColWidth(sheetName, "I", "J", 25)

	mergeTitle(f, sheetName, len(headers))
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("abastecimento_%s_a_%s.xlsx",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.cfg.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(records)).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) vehicleCodes(ctx context.Context) (map[int64]string, error) {
	vehicles, err := e.store.AllVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting vehicles: %v", err)
	}
	codes := make(map[int64]string, len(vehicles))
	for _, v := range vehicles {
		codes[v.ID] = v.Code
	}
	return codes, nil
}

func writeHeaderRow(f *excelize.File, sheetName string, headers []string) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
	}
}

func mergeTitle(f *excelize.File, sheetName string, colCount int) {
	lastCell, _ := excelize.CoordinatesToCellName(colCount, 1)
	_ = f.MergeCell(sheetName, "A1", lastCell)

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)
}
