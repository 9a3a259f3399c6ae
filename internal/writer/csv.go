package writer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/factory"
	"Go2NetProfile/internal/model"
	"Go2NetProfile/internal/report"

	"go.uber.org/zap"
)

func init() {
	factory.RegisterWriter("csv", func(def config.WriterDef, logger *zap.Logger) (model.Writer, error) {
		return NewCSVWriter(def.CSV, logger)
	})
}

// CSVWriter writes the summary table to a flat file, replacing it on every run.
type CSVWriter struct {
	path   string
	logger *zap.Logger
}

// NewCSVWriter creates a CSV summary writer.
func NewCSVWriter(cfg config.CSVConfig, logger *zap.Logger) (*CSVWriter, error) {
	if cfg.Path == "" {
		return nil, errors.New("csv writer requires a path")
	}
	return &CSVWriter{path: cfg.Path, logger: logger}, nil
}

func (w *CSVWriter) Name() string { return "csv" }

// Write truncates the file and writes the header followed by one row per summary.
func (w *CSVWriter) Write(_ context.Context, _ model.Run, summaries []model.FlowSummary) error {
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}

	cw := csv.NewWriter(file)
	records := make([][]string, 0, len(summaries)+1)
	records = append(records, report.Header)
	for _, s := range summaries {
		records = append(records, report.Row(s))
	}
	if err := cw.WriteAll(records); err != nil {
		file.Close()
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close csv file: %w", err)
	}

	w.logger.Info("Summary written", zap.String("writer", w.Name()), zap.String("path", w.path), zap.Int("rows", len(summaries)))
	return nil
}

func (w *CSVWriter) Close() error { return nil }
