package report

import (
	"bytes"
	"fmt"
	"strings"

	"mediwatch-vitals/internal/models"

	"github.com/xuri/excelize/v2"
)

// ReadingsExportHeader 读数导出表头
var ReadingsExportHeader = []string{
	"Recorded At",
	"Heart Rate (bpm)",
	"SpO2 (%)",
	"Temperature (°C)",
	"Blood Pressure",
	"Resp Rate",
	"Source",
	"Critical",
	"Conditions",
}

const readingsSheetName = "Vital Readings"

// BuildReadingsWorkbook 生成患者读数的 Excel 导出
// One row per reading, newest first (as listed); the patient identity goes
// into the first rows above the header.
func BuildReadingsWorkbook(patient *models.Patient, readings []*models.StoredReading) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	index, err := f.NewSheet(readingsSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	// Patient block
	if err := f.SetCellValue(readingsSheetName, "A1", "Patient"); err != nil {
		return nil, fmt.Errorf("failed to write patient label: %w", err)
	}
	if err := f.SetCellValue(readingsSheetName, "B1", patient.FullName); err != nil {
		return nil, fmt.Errorf("failed to write patient name: %w", err)
	}
	if err := f.SetCellValue(readingsSheetName, "A2", "MRN"); err != nil {
		return nil, fmt.Errorf("failed to write mrn label: %w", err)
	}
	if err := f.SetCellValue(readingsSheetName, "B2", patient.MRN); err != nil {
		return nil, fmt.Errorf("failed to write mrn: %w", err)
	}

	// Header row
	const headerRow = 4
	for col, header := range ReadingsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(readingsSheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	// Data rows
	for i, reading := range readings {
		row := headerRow + 1 + i
		values := []interface{}{
			reading.RecordedAt.Format("2006-01-02 15:04:05"),
			reading.HeartRate,
			reading.SpO2,
			reading.Temperature,
			formatBP(reading),
			formatOptional(reading.RespiratoryRate),
			reading.Source,
			reading.IsCritical,
			strings.Join(reading.Conditions, "; "),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to compute data cell: %w", err)
			}
			if err := f.SetCellValue(readingsSheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write reading row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func formatBP(r *models.StoredReading) string {
	if r.Systolic == nil || r.Diastolic == nil {
		return ""
	}
	return fmt.Sprintf("%g/%g", *r.Systolic, *r.Diastolic)
}

func formatOptional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
