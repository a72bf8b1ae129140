package pipeline

import (
	"log"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/survey"
	"sibdebt/internal/config"
)

// ExtractHeads filters the individual file down to household heads
// (the questionnaire respondent proxies) and derives head_age and
// head_siblings. Returns a de-duplicated frame keyed on hhid with the
// analysis column names.
func ExtractHeads(ind *dataset.Frame, cfg config.StudyConfig) (*dataset.Frame, error) {
	role, ok := ind.Column("a2001")
	if !ok {
		return nil, core.NewMissingColumnError("individual", "a2001")
	}

	keep := make([]bool, ind.RowCount())
	for i, v := range role {
		keep[i] = v == 1
	}
	heads, err := ind.FilterRows(keep)
	if err != nil {
		return nil, err
	}
	log.Printf("[Heads] Identified %d household heads.", heads.RowCount())

	birth, ok := heads.Column("a2005")
	if !ok {
		return nil, core.NewMissingColumnError("individual", "a2005")
	}
	age := make([]float64, heads.RowCount())
	for i, b := range birth {
		if dataset.IsMissing(b) {
			age[i] = dataset.Missing()
		} else {
			age[i] = float64(cfg.SurveyYear) - b
		}
	}
	if err := heads.AddColumn("head_age", age); err != nil {
		return nil, err
	}

	// Heads with a missing birth year fail the comparison and drop out
	// with the underage ones.
	before := heads.RowCount()
	keepAge := make([]bool, before)
	for i, a := range age {
		keepAge[i] = a >= float64(cfg.MinHeadAge)
	}
	heads, err = heads.FilterRows(keepAge)
	if err != nil {
		return nil, err
	}
	if dropped := before - heads.RowCount(); dropped > 0 {
		log.Printf("[Heads] Dropped %d heads aged < %d.", dropped, cfg.MinHeadAge)
	}

	if err := deriveSiblings(heads, cfg); err != nil {
		return nil, err
	}

	result, err := renameHeadColumns(heads)
	if err != nil {
		return nil, err
	}

	result, err = dedupeByHHID(result)
	if err != nil {
		return nil, err
	}
	log.Printf("[Heads] Prepared %d head records for merge.", result.RowCount())
	return result, nil
}

// deriveSiblings computes head_siblings as the sum of brother and
// sister counts, with missing counts treated as zero. Heads above the
// sibling ceiling get an undefined count: the questionnaire only asks
// younger respondents.
func deriveSiblings(heads *dataset.Frame, cfg config.StudyConfig) error {
	brothers := columnOrMissing(heads, "a2028")
	sisters := columnOrMissing(heads, "a2029")
	age, _ := heads.Column("head_age")

	siblings := make([]float64, heads.RowCount())
	for i := range siblings {
		raw := zeroIfMissing(brothers[i]) + zeroIfMissing(sisters[i])
		if age[i] <= float64(cfg.MaxSiblingAge) {
			siblings[i] = raw
		} else {
			siblings[i] = dataset.Missing()
		}
	}
	return heads.AddColumn("head_siblings", siblings)
}

// renameHeadColumns projects the head frame down to the analysis
// columns, skipping raw columns the release does not carry.
func renameHeadColumns(heads *dataset.Frame) (*dataset.Frame, error) {
	out := dataset.NewFrame(heads.RowCount())
	for _, hc := range survey.HeadColumns() {
		col, ok := heads.Column(hc.Raw)
		if !ok {
			continue
		}
		if err := out.AddColumn(hc.Renamed, col); err != nil {
			return nil, err
		}
	}
	if !out.HasColumn("hhid") {
		return nil, core.NewMissingColumnError("individual", "hhid")
	}
	return out, nil
}

// dedupeByHHID keeps the first row per household id.
func dedupeByHHID(f *dataset.Frame) (*dataset.Frame, error) {
	hhid, ok := f.Column("hhid")
	if !ok {
		return nil, core.NewMissingColumnError("heads", "hhid")
	}
	seen := make(map[float64]bool, len(hhid))
	seenMissing := false
	positions := make([]int, 0, len(hhid))
	for i, id := range hhid {
		// NaN map keys never match themselves, so missing ids are
		// tracked separately and collapse to one row like any other
		// duplicate.
		if dataset.IsMissing(id) {
			if seenMissing {
				continue
			}
			seenMissing = true
		} else {
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		positions = append(positions, i)
	}
	return f.TakeRows(positions)
}

func columnOrMissing(f *dataset.Frame, name string) []float64 {
	if col, ok := f.Column(name); ok {
		return col
	}
	return dataset.MissingColumn(f.RowCount())
}

func zeroIfMissing(x float64) float64 {
	if dataset.IsMissing(x) {
		return 0
	}
	return x
}
