package classifier

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mikey/ransomware-scanner/internal/features"
)

const (
	// LabelColumn holds the 0/1 class of each training row
	LabelColumn = "label"
	// ExtensionColumn holds the raw file extension of each training row
	ExtensionColumn = "extension"
)

// Dataset is a labelled training table. Rows expose numeric columns by name;
// the raw extension column is encoded into the extension_code feature.
type Dataset struct {
	Columns    []string
	Rows       []features.Row
	Labels     []int
	Extensions *CategoryEncoder
}

// LoadCSVFile reads a dataset from a CSV file
func LoadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	return LoadCSV(f)
}

// LoadCSV reads a dataset with a header row and a required label column.
// Cells that are not numeric are read as 0.
func LoadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	labelIdx, extIdx := -1, -1
	for i, col := range header {
		switch col {
		case LabelColumn:
			labelIdx = i
		case ExtensionColumn:
			extIdx = i
		}
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("dataset must contain a %q column indicating ransomware (1) or benign (0)", LabelColumn)
	}

	ds := &Dataset{Columns: header}
	var extensions []string

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset line %d: %w", line, err)
		}

		label, err := parseLabel(record[labelIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make(features.Row, len(header))
		for i, col := range header {
			if i == labelIdx || i == extIdx {
				continue
			}
			row[col] = parseCell(record[i])
		}

		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
		if extIdx >= 0 {
			extensions = append(extensions, features.NormalizeExtension(record[extIdx]))
		}
	}

	if len(ds.Rows) == 0 {
		return nil, errors.New("dataset has no rows")
	}

	if extIdx >= 0 {
		ds.Extensions = FitCategoryEncoder(extensions)
		for i, ext := range extensions {
			ds.Rows[i][features.ExtensionCode] = float64(ds.Extensions.Encode(ext))
		}
	}

	return ds, nil
}

// ClassCounts returns the number of benign and ransomware rows
func (d *Dataset) ClassCounts() (benign, ransomware int) {
	for _, l := range d.Labels {
		if l == 1 {
			ransomware++
		} else {
			benign++
		}
	}
	return benign, ransomware
}

func parseLabel(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || (v != 0 && v != 1) {
		return 0, fmt.Errorf("invalid label %q, expected 0 or 1", s)
	}
	return int(v), nil
}

func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	if b, err := strconv.ParseBool(s); err == nil && b {
		return 1
	}
	return 0
}
