package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-product-parser/models"
)

// IOFailure reports that an export destination could not be written. Products
// already collected are unaffected.
type IOFailure struct {
	Path string
	Err  error
}

func (e *IOFailure) Error() string {
	return fmt.Sprintf("export to %s: %v", e.Path, e.Err)
}

func (e *IOFailure) Unwrap() error {
	return e.Err
}

// Export writes products to path as CSV, one header row then one row per
// product in order. Any file-system failure is returned as *IOFailure.
func Export(products []models.Product, path string) error {
	_, err := ExportFormat(products, "csv", path, DefaultOptions())
	return err
}

// ExportFormat writes products through a Pipeline into the given format and
// returns the number of records written.
func ExportFormat(products []models.Product, format, path string, opts Options) (int, error) {
	writer, err := NewWriter(format, path)
	if err != nil {
		return 0, &IOFailure{Path: path, Err: err}
	}

	written, err := writeAll(writer, products, opts)
	if closeErr := writer.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("close writer: %w", closeErr))
	}
	if err != nil {
		return written, &IOFailure{Path: path, Err: err}
	}

	slog.Info("products exported",
		slog.String("path", path),
		slog.String("format", format),
		slog.Int("rows", written),
	)
	return written, nil
}

func writeAll(writer OutputWriter, products []models.Product, opts Options) (int, error) {
	p, err := NewPipeline(writer, opts)
	if err != nil {
		return 0, err
	}
	if err := p.Process(products...); err != nil {
		return 0, err
	}
	if err := p.Close(); err != nil {
		return 0, err
	}
	if err := writer.Validate(); err != nil {
		return 0, fmt.Errorf("validate output: %w", err)
	}

	return p.Written(), nil
}
