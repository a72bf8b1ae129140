package pipeline

import (
	"log"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
)

// MergeHeadIntoHousehold left-joins head-level columns onto the
// household frame on hhid. The head frame must already be one row per
// hhid; unmatched households get missing head columns.
func MergeHeadIntoHousehold(hh, head *dataset.Frame) (*dataset.Frame, error) {
	hhIDs, ok := hh.Column("hhid")
	if !ok {
		return nil, core.NewMissingColumnError("household", "hhid")
	}
	headIDs, ok := head.Column("hhid")
	if !ok {
		return nil, core.NewMissingColumnError("heads", "hhid")
	}

	rowByID := make(map[float64]int, len(headIDs))
	for i, id := range headIDs {
		if dataset.IsMissing(id) {
			continue
		}
		if _, dup := rowByID[id]; dup {
			return nil, core.NewRowCountError(hh.RowCount(), hh.RowCount()+1)
		}
		rowByID[id] = i
	}

	merged := hh.Clone()
	var firstHeadCol string
	for _, name := range head.ColumnNames() {
		if name == "hhid" {
			continue
		}
		if firstHeadCol == "" {
			firstHeadCol = name
		}
		src, _ := head.Column(name)
		col := make([]float64, hh.RowCount())
		for i, id := range hhIDs {
			if pos, ok := rowByID[id]; ok && !dataset.IsMissing(id) {
				col[i] = src[pos]
			} else {
				col[i] = dataset.Missing()
			}
		}
		if err := merged.SetColumn(name, col); err != nil {
			return nil, err
		}
	}

	// A left join on a unique key cannot change the row count; the
	// duplicate check above enforces the key side.
	if merged.RowCount() != hh.RowCount() {
		return nil, core.NewRowCountError(hh.RowCount(), merged.RowCount())
	}

	if firstHeadCol != "" {
		joined, _ := merged.Column(firstHeadCol)
		matched := dataset.CountDefined(joined)
		log.Printf("[Merge] Merged head info: %d/%d households matched (%.1f%%).",
			matched, merged.RowCount(), float64(matched)/float64(merged.RowCount())*100)
	}
	return merged, nil
}
