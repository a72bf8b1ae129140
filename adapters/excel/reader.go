package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
)

// DataReader loads CSV and XLSX tables into frames. It exists for
// dashboard uploads and fixtures; the survey release itself ships as
// Stata files.
type DataReader struct{}

// NewDataReader creates a new tabular file reader
func NewDataReader() *DataReader {
	return &DataReader{}
}

// ReadTable reads a CSV or XLSX file into a frame. The first row is
// the header; blank and unparseable cells become missing values.
func (r *DataReader) ReadTable(ctx context.Context, path string) (*dataset.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, core.NewDataLoadError(path, fmt.Errorf("file not found"))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return r.readCSV(path)
	case ".xlsx":
		return r.readXLSX(path)
	default:
		return nil, core.NewDataLoadError(path, fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
	}
}

func (r *DataReader) readCSV(path string) (*dataset.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, core.NewDataLoadError(path, err)
	}
	defer file.Close()

	readStart := time.Now()
	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, core.NewDataLoadError(path, err)
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)",
		float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.framesFromRows(path, rows)
}

func (r *DataReader) readXLSX(path string) (*dataset.Frame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, core.NewDataLoadError(path, err)
	}
	defer f.Close()

	readStart := time.Now()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, core.NewDataLoadError(path, fmt.Errorf("failed to read Sheet1: %w", err))
	}
	log.Printf("[DataReader] Sheet1 read in %.2fms (%d rows)",
		float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.framesFromRows(path, rows)
}

// framesFromRows converts header + string rows into a numeric frame.
func (r *DataReader) framesFromRows(path string, rows [][]string) (*dataset.Frame, error) {
	if len(rows) < 1 {
		return nil, core.NewDataLoadError(path, fmt.Errorf("file has no header row"))
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	dataRows := rows[1:]
	frame := dataset.NewFrame(len(dataRows))
	for j, header := range headers {
		if header == "" {
			continue
		}
		col := make([]float64, len(dataRows))
		for i, row := range dataRows {
			col[i] = dataset.Missing()
			if j < len(row) {
				cell := strings.TrimSpace(row[j])
				if cell == "" {
					continue
				}
				if v, err := strconv.ParseFloat(cell, 64); err == nil {
					col[i] = v
				}
			}
		}
		if err := frame.AddColumn(header, col); err != nil {
			return nil, core.NewDataLoadError(path, err)
		}
	}

	log.Printf("[DataReader] Table processed (%d columns, %d rows)", frame.ColumnCount(), frame.RowCount())
	return frame, nil
}

// Checksum returns the sha256 of the file for the run manifest.
func (r *DataReader) Checksum(path string) (core.FileChecksum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", core.NewDataLoadError(path, err)
	}
	return core.FileChecksum(core.NewHash(data)), nil
}
