package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"salonpost/internal/apperrors"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "styles.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "画像名,スタイル名,カテゴリ,ハッシュタグ\n"+
		"style1.jpg,ナチュラルボブ,レディース,ボブ、透明感カラー\n"+
		"style2.jpg,ツーブロック,メンズ,\n"+
		",,,\n")

	rows, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (blank trailing row dropped)", len(rows))
	}

	if got := rows[0].Get(ColStyleName); got != "ナチュラルボブ" {
		t.Errorf("row 0 style name = %q", got)
	}
	if rows[0].IsMens() {
		t.Error("row 0 should be ladies")
	}
	if !rows[1].IsMens() {
		t.Error("row 1 should be mens")
	}

	tags := rows[0].Hashtags()
	if len(tags) != 2 || tags[0] != "ボブ" || tags[1] != "透明感カラー" {
		t.Errorf("Hashtags() = %v", tags)
	}
	if got := rows[1].Hashtags(); got != nil {
		t.Errorf("empty hashtag column produced %v", got)
	}
}

func TestLoadXLSXRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "styles.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := [][]string{
		{"画像名", "スタイル名", "クーポン名"},
		{"a.jpg", "ショート", "カット+カラー"},
		{"b.jpg", "ロング", ""},
	}
	for i, rec := range cells {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	rows, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if got := rows[0].Get(ColCouponName); got != "カット+カラー" {
		t.Errorf("row 0 coupon = %q", got)
	}
	if rows[1].Has(ColCouponName) {
		t.Error("row 1 coupon should be absent")
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	_, err := Load("styles.txt")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("Load() error = %v, want validation error", err)
	}
}

func TestLoadCSVValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "画像名,スタイル名\n"},
		{"wrong header", "name,title\nx,y\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadCSV(writeCSV(t, tt.content))
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("LoadCSV() error = %v, want validation error", err)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		row  Row
		want string
	}{
		{"style name wins", Row{ColStyleName: "ボブ", ColImageName: "a.jpg"}, "ボブ"},
		{"image name fallback", Row{ColImageName: "a.jpg"}, "a.jpg"},
		{"row number fallback", Row{}, "行3"},
	}
	for _, tt := range tests {
		if got := tt.row.DisplayName(2); got != tt.want {
			t.Errorf("%s: DisplayName() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
