package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/briefings/internal/application"
)

func TestWrite(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	link := "https://zoom.example/j/42"
	events := []application.Event{
		{Date: time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC), Speaker: "Ada", Title: "Engines", Host: "Grace", ConfLink: &link, Announced: 2},
		{Date: time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC), Warmup: true, Speaker: "Alan", Affiliation: "NPL", Title: "Machines"},
	}

	var buf bytes.Buffer
	if err := Write(&buf, events, tokyo); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader returned error: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("expected only the %s sheet, got %v", SheetName, sheets)
	}

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and two rows, got %d", len(rows))
	}
	for i, name := range Columns {
		if rows[0][i] != name {
			t.Fatalf("header column %d: expected %q, got %q", i, name, rows[0][i])
		}
	}

	first := rows[1]
	if first[0] != "2024-03-01 14:00" {
		t.Fatalf("expected date in the configured zone, got %q", first[0])
	}
	if first[1] != "0" || first[2] != "Ada" || first[6] != link || first[8] != "2" {
		t.Fatalf("unexpected first row: %v", first)
	}
	second := rows[2]
	if second[1] != "1" || second[3] != "NPL" {
		t.Fatalf("unexpected second row: %v", second)
	}
}

func TestWriteEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, nil, nil); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader returned error: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the header row, got %d", len(rows))
	}
}
