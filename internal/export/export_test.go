package export

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shohabbosdev/registrybot/internal/registry"
)

func readRows(t *testing.T, results []registry.Record) [][]string {
	t.Helper()
	buf, err := ResultsToXLSX(results)
	if err != nil {
		t.Fatalf("ResultsToXLSX: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	return rows
}

func TestResultsToXLSX_ColumnLayout(t *testing.T) {
	rows := readRows(t, []registry.Record{
		{
			UID: "1", HemisID: "h1", FullName: "Aliyev Ali",
			Faculty: "Fizika", Specialty: "Informatika", Group: "101",
			PersonalNo: "12345678901234", Status: "faol mehnat shartnomasiga ega",
			Contract: &registry.Contract{Position: "Muhandis", Organization: "ABC", Date: "2023-10-01"},
		},
	})

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	wantHeader := []string{
		"hemisuid", "hemis", "fio", "fakultet", "mutaxassislik",
		"guruh", "jshshir", "status", "lavozim", "tashkilot", "sanasi",
	}
	for i, want := range wantHeader {
		if rows[0][i] != want {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], want)
		}
	}
	want := []string{
		"1", "h1", "Aliyev Ali", "Fizika", "Informatika",
		"101", "12345678901234", "faol mehnat shartnomasiga ega",
		"Muhandis", "ABC", "2023-10-01",
	}
	for i, w := range want {
		if rows[1][i] != w {
			t.Errorf("row[%d] = %q, want %q", i, rows[1][i], w)
		}
	}
}

func TestResultsToXLSX_RedactedContractColumnsStayBlank(t *testing.T) {
	rows := readRows(t, []registry.Record{
		{UID: "2", HemisID: "h2", FullName: "Karimov", Status: "nofaol"},
	})

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	// excelize trims trailing empty cells on read.
	for i := 8; i < len(rows[1]); i++ {
		if rows[1][i] != "" {
			t.Errorf("contract column %d = %q, want blank", i, rows[1][i])
		}
	}
}

func TestResultsToXLSX_RowOrderMatchesResults(t *testing.T) {
	rows := readRows(t, []registry.Record{
		{UID: "3", FullName: "Birinchi"},
		{UID: "1", FullName: "Ikkinchi"},
		{UID: "2", FullName: "Uchinchi"},
	})

	wantNames := []string{"Birinchi", "Ikkinchi", "Uchinchi"}
	for i, want := range wantNames {
		if rows[i+1][2] != want {
			t.Errorf("row %d name = %q, want %q", i+1, rows[i+1][2], want)
		}
	}
}

func TestResultsToXLSX_EmptyResults(t *testing.T) {
	rows := readRows(t, nil)
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}

func TestFilename(t *testing.T) {
	ts := time.Date(2024, 3, 15, 9, 30, 5, 0, time.UTC)
	if got, want := Filename(ts), "Result-2024_03_15_09_30_05.xlsx"; got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}
}
