package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-product-parser/models"
)

// DualWriter exports the same product rows to a CSV file and to a JSONL file
// sharing its base name, e.g. products_20250101_120000.csv and
// products_20250101_120000.jsonl.
type DualWriter struct {
	csv  *CSVWriter
	json *JSONWriter

	csvPath  string
	jsonPath string
	rows     int
}

// PairedJSONPath returns the JSONL path written alongside a CSV export.
func PairedJSONPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".jsonl"
}

// NewDualWriter opens csvPath and its paired JSONL file. If the JSONL file
// cannot be created the CSV file is closed again.
func NewDualWriter(csvPath string) (*DualWriter, error) {
	jsonPath := PairedJSONPath(csvPath)
	if jsonPath == csvPath {
		return nil, fmt.Errorf("dual export needs a non-.jsonl csv path, got %q", csvPath)
	}

	csvWriter, err := NewCSVWriter(csvPath)
	if err != nil {
		return nil, err
	}
	jsonWriter, err := NewJSONWriter(jsonPath)
	if err != nil {
		csvWriter.Close()
		return nil, err
	}

	return &DualWriter{
		csv:      csvWriter,
		json:     jsonWriter,
		csvPath:  csvPath,
		jsonPath: jsonPath,
	}, nil
}

// Paths returns the CSV and JSONL destinations.
func (dw *DualWriter) Paths() (csvPath, jsonPath string) {
	return dw.csvPath, dw.jsonPath
}

// Write sends one batch of products to both files.
func (dw *DualWriter) Write(products []models.Product) error {
	if err := dw.csv.Write(products); err != nil {
		return fmt.Errorf("%s: %w", dw.csvPath, err)
	}
	if err := dw.json.Write(products); err != nil {
		return fmt.Errorf("%s: %w", dw.jsonPath, err)
	}
	dw.rows += len(products)
	return nil
}

// Close closes both files and reports every failure.
func (dw *DualWriter) Close() error {
	return errors.Join(dw.csv.Close(), dw.json.Close())
}

// Validate checks both files. The JSONL file is allowed to be empty only
// when no product rows were written.
func (dw *DualWriter) Validate() error {
	if err := dw.csv.Validate(); err != nil {
		return fmt.Errorf("%s: %w", dw.csvPath, err)
	}
	if err := dw.json.Validate(); err != nil {
		return fmt.Errorf("%s: %w", dw.jsonPath, err)
	}
	if dw.rows > 0 {
		info, err := dw.json.file.Stat()
		if err != nil {
			return fmt.Errorf("stat %s: %w", dw.jsonPath, err)
		}
		if info.Size() == 0 {
			return fmt.Errorf("%s: no records after %d rows", dw.jsonPath, dw.rows)
		}
	}
	return nil
}
