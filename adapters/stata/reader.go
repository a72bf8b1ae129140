package stata

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/kshedden/datareader"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
)

// Reader loads Stata .dta files into frames. CHFS releases use dta
// formats the decoder handles natively (115 through 117).
type Reader struct{}

// NewReader creates a Stata file reader
func NewReader() *Reader {
	return &Reader{}
}

// ReadTable reads the whole .dta file into a column-oriented frame.
// Numeric columns convert directly; string columns are parsed as
// numbers where possible and dropped otherwise.
func (r *Reader) ReadTable(ctx context.Context, path string) (*dataset.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewDataLoadError(path, fmt.Errorf("file not found"))
		}
		return nil, core.NewDataLoadError(path, err)
	}
	defer f.Close()

	rdr, err := datareader.NewStataReader(f)
	if err != nil {
		return nil, core.NewDataLoadError(path, fmt.Errorf("failed to parse dta header: %w", err))
	}

	series, err := rdr.Read(-1)
	if err != nil {
		return nil, core.NewDataLoadError(path, fmt.Errorf("failed to read dta records: %w", err))
	}

	rows := 0
	if len(series) > 0 {
		rows = series[0].Length()
	}
	frame := dataset.NewFrame(rows)

	skipped := 0
	for _, ser := range series {
		col, ok := seriesToFloats(ser, rows)
		if !ok {
			skipped++
			continue
		}
		if err := frame.AddColumn(ser.Name, col); err != nil {
			return nil, core.NewDataLoadError(path, err)
		}
	}
	if skipped > 0 {
		log.Printf("[StataReader] Skipped %d non-numeric columns in %s.", skipped, path)
	}

	log.Printf("[StataReader] Loaded %s -> %d rows x %d cols in %.2fms",
		path, frame.RowCount(), frame.ColumnCount(),
		float64(time.Since(startTime).Nanoseconds())/1e6)
	return frame, nil
}

// seriesToFloats converts one dta column to float64 with NaN for
// missing. String columns go through strconv; a column where nothing
// parses is reported unusable.
func seriesToFloats(ser *datareader.Series, rows int) ([]float64, bool) {
	vals, missing, err := ser.AsFloat64Slice()
	if err == nil {
		col := make([]float64, rows)
		for i := 0; i < rows && i < len(vals); i++ {
			if missing != nil && missing[i] {
				col[i] = dataset.Missing()
			} else {
				col[i] = vals[i]
			}
		}
		return col, true
	}

	strs, missing, err := ser.AsStringSlice()
	if err != nil {
		return nil, false
	}
	col := make([]float64, rows)
	parsed := 0
	for i := 0; i < rows && i < len(strs); i++ {
		if missing != nil && missing[i] {
			col[i] = dataset.Missing()
			continue
		}
		v, perr := strconv.ParseFloat(strs[i], 64)
		if perr != nil {
			col[i] = dataset.Missing()
			continue
		}
		col[i] = v
		parsed++
	}
	return col, parsed > 0
}

// Checksum returns the sha256 of the file for the run manifest.
func (r *Reader) Checksum(path string) (core.FileChecksum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", core.NewDataLoadError(path, err)
	}
	return core.FileChecksum(core.NewHash(data)), nil
}
