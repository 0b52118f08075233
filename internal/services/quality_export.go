package services

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes the report as a workbook with one sheet per section
func (r *QualityReport) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{"Summary", r.summaryRows()},
		{"Completeness", r.completenessRows()},
		{"Sectors", r.sectorRows()},
		{"Orphaned Parents", r.orphanRows()},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet.name, err)
		}

		for rowIdx, row := range sheet.rows {
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return fmt.Errorf("writing %s row %d: %w", sheet.name, rowIdx+1, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path
func (r *QualityReport) SaveXLSX(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return r.WriteXLSX(f)
}

func (r *QualityReport) summaryRows() [][]interface{} {
	return [][]interface{}{
		{"Metric", "Value"},
		{"Generated at", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Companies", r.TotalCompanies},
		{"Events", r.TotalEvents},
		{"Relationships", r.TotalRelationships},
		{"Pending reviews", r.PendingReviews},
		{"Duplicate candidates", r.DuplicatesFound},
	}
}

func (r *QualityReport) completenessRows() [][]interface{} {
	rows := [][]interface{}{{"Field", "Filled", "Percent"}}
	for _, fc := range r.Completeness {
		rows = append(rows, []interface{}{fc.Field, fc.Filled, fc.Percent})
	}
	return rows
}

func (r *QualityReport) sectorRows() [][]interface{} {
	rows := [][]interface{}{{"Sector", "Companies"}}
	for _, s := range r.Sectors {
		rows = append(rows, []interface{}{s.Sector, s.Count})
	}
	return rows
}

func (r *QualityReport) orphanRows() [][]interface{} {
	rows := [][]interface{}{{"Company", "Parent reference"}}
	for _, o := range r.OrphanedParents {
		rows = append(rows, []interface{}{o.Company, o.ParentReference})
	}
	return rows
}
