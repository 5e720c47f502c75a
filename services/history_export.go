package services

import (
	"fmt"
	"io"

	"docchat-service/models"

	"github.com/xuri/excelize/v2"
)

const historySheet = "Chat History"

// WriteHistoryWorkbook writes a tenant's turns as an Excel workbook with
// one row per turn.
func WriteHistoryWorkbook(w io.Writer, tenantID string, turns []models.Turn) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	rows := [][]interface{}{{"Company", tenantID}, {"#", "Message", "Answer"}}
	for i, turn := range turns {
		rows = append(rows, []interface{}{i + 1, turn.Message, turn.Answer})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(historySheet, "B", "C", 60); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
