package experiment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// CSVSink writes <dir>/<name>/<name>_performance.csv and
// <name>_data.csv. Existing files are truncated; every row is flushed as
// it is written.
type CSVSink struct {
	perfFile *os.File
	dataFile *os.File
	perf     *csv.Writer
	data     *csv.Writer
}

var _ Sink = (*CSVSink)(nil)

// CSVPaths returns the two file paths used for experiment name under root.
func CSVPaths(root, name string) (perf, data string) {
	dir := filepath.Join(root, name)
	return filepath.Join(dir, name+"_performance.csv"), filepath.Join(dir, name+"_data.csv")
}

// OpenCSV creates the experiment directory and both files, writing headers.
func OpenCSV(root, name string) (*CSVSink, error) {
	perfPath, dataPath := CSVPaths(root, name)
	if err := os.MkdirAll(filepath.Dir(perfPath), 0o755); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	s := &CSVSink{}
	var err error
	if s.perfFile, err = os.Create(perfPath); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	if s.dataFile, err = os.Create(dataPath); err != nil {
		s.perfFile.Close()
		return nil, fmt.Errorf("csv: %w", err)
	}
	s.perf = csv.NewWriter(s.perfFile)
	s.data = csv.NewWriter(s.dataFile)

	if err := errors.Join(write(s.perf, PerformanceHeader), write(s.data, DataHeader)); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// CSVFactory opens a CSVSink under root for every new experiment.
func CSVFactory(root string) SinkFactory {
	return func(_ uuid.UUID, name string) (Sink, error) {
		return OpenCSV(root, name)
	}
}

func write(w *csv.Writer, record []string) error {
	if err := w.Write(record); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}

func (s *CSVSink) AppendPerformance(r PerformanceRow) error {
	return write(s.perf, r.Record())
}

func (s *CSVSink) AppendData(r DataRow) error {
	return write(s.data, r.Record())
}

func (s *CSVSink) Close() error {
	s.perf.Flush()
	s.data.Flush()
	return errors.Join(s.perf.Error(), s.data.Error(), s.perfFile.Close(), s.dataFile.Close())
}
