// Package dataset reads ordered posting datasets from CSV and XLSX files.
//
// A dataset is a header row of Japanese column names followed by one row
// per style entry. Row order is significant: the resume offset of an
// interrupted job indexes into this order.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"salonpost/internal/apperrors"
)

// Column names as they appear in the dataset header.
const (
	ColImageName   = "画像名"
	ColStyleName   = "スタイル名"
	ColStylistName = "スタイリスト名"
	ColComment     = "コメント"
	ColCategory    = "カテゴリ"
	ColLength      = "長さ"
	ColMenuDetail  = "メニュー内容"
	ColCouponName  = "クーポン名"
	ColHashtags    = "ハッシュタグ"
)

// CategoryMens is the category value that selects the mens branch of the
// style form. Any other value (including empty) selects ladies.
const CategoryMens = "メンズ"

// Row is one dataset row. Values are keyed by header column name and
// already whitespace-trimmed.
type Row map[string]string

// Get returns the value of a column, empty when absent.
func (r Row) Get(col string) string {
	return r[col]
}

// Has reports whether a column is present and non-empty.
func (r Row) Has(col string) bool {
	return r[col] != ""
}

// Hashtags splits the hashtag column on commas (ASCII and full-width).
func (r Row) Hashtags() []string {
	raw := r[ColHashtags]
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(c rune) bool {
		return c == ',' || c == '、'
	})
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// IsMens reports whether the row's category selects the mens form branch.
func (r Row) IsMens() bool {
	return r[ColCategory] == CategoryMens
}

// DisplayName returns a human-readable identifier for logs and error
// records: the style name, falling back to the image name, falling back
// to the 1-based row number.
func (r Row) DisplayName(index int) string {
	if name := r[ColStyleName]; name != "" {
		return name
	}
	if name := r[ColImageName]; name != "" {
		return name
	}
	return fmt.Sprintf("行%d", index+1)
}

// Load reads a dataset, dispatching on the file extension.
func Load(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, apperrors.Validation("datasetPath", fmt.Sprintf("unsupported dataset format %q (want .csv or .xlsx)", filepath.Ext(path)))
	}
}

// LoadCSV reads a CSV dataset. The first record is the header.
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Internal("dataset.open", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows happen in hand-edited files

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.Internal("dataset.read", err)
	}
	return fromRecords(records)
}

// LoadXLSX reads the first sheet of an XLSX workbook. The first row is
// the header.
func LoadXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.Internal("dataset.open", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.Validation("datasetPath", "workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.Internal("dataset.read", err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, apperrors.Validation("datasetPath", "dataset is empty")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	if !contains(header, ColStyleName) && !contains(header, ColImageName) {
		return nil, apperrors.Validation("datasetPath", fmt.Sprintf("header has neither %q nor %q column", ColStyleName, ColImageName))
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		empty := true
		for i, col := range header {
			if col == "" || i >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[i])
			if v != "" {
				empty = false
			}
			row[col] = v
		}
		if empty {
			continue // trailing blank rows are common in exported sheets
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, apperrors.Validation("datasetPath", "dataset has a header but no rows")
	}
	return rows, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
