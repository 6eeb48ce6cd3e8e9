// Package export renders the event table as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/briefings/internal/application"
)

// SheetName is the single sheet written by Workbook.
const SheetName = "Events"

// Columns is the header row.
var Columns = []string{
	"date", "warmup", "speaker", "affiliation", "title", "host", "conf_link", "recording_link", "announced",
}

const dateLayout = "2006-01-02 15:04"

// Workbook builds a workbook with one row per event. Dates are written in loc.
// The caller owns the returned file and must Close it.
func Workbook(events []application.Event, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(SheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export: create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export: drop default sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export: write header: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, bold)
	}

	for i, event := range events {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		row := []any{
			event.Date.In(loc).Format(dateLayout),
			boolCell(event.Warmup),
			event.Speaker,
			event.Affiliation,
			event.Title,
			event.Host,
			deref(event.ConfLink),
			deref(event.RecordingLink),
			event.Announced,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("export: write row %d: %w", i+2, err)
		}
	}
	return f, nil
}

// Write renders events into w as an xlsx document.
func Write(w io.Writer, events []application.Event, loc *time.Location) error {
	f, err := Workbook(events, loc)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func boolCell(b bool) int {
	if b {
		return 1
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
