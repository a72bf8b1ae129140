package pipeline

import (
	"log"
	"math"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/survey"
	"sibdebt/internal/config"
)

// CoalesceAll builds one "<exact>_val" column per debt and asset
// variable, preferring the exact response and falling back to the
// bracket midpoint. Returns the new debt and asset column names.
func CoalesceAll(hh *dataset.Frame) (debtCols, assetCols []string, err error) {
	ensureColumns(hh, survey.DebtSpecs())
	ensureColumns(hh, survey.AssetSpecs())
	ensureColumns(hh, []survey.VarSpec{survey.BusinessVehicleSpec()})

	for _, spec := range survey.DebtSpecs() {
		name := spec.CoalescedName()
		if err := hh.SetColumn(name, coalesceVar(hh, spec)); err != nil {
			return nil, nil, err
		}
		debtCols = append(debtCols, name)
	}
	for _, spec := range survey.AssetSpecs() {
		name := spec.CoalescedName()
		if err := hh.SetColumn(name, coalesceVar(hh, spec)); err != nil {
			return nil, nil, err
		}
		assetCols = append(assetCols, name)
	}

	log.Printf("[Features] Coalesced %d debt + %d asset variables.", len(debtCols), len(assetCols))
	return debtCols, assetCols, nil
}

// ensureColumns adds missing raw columns as all-missing so later
// stages can index them unconditionally.
func ensureColumns(hh *dataset.Frame, specs []survey.VarSpec) {
	for _, spec := range specs {
		for _, col := range []string{spec.Exact, spec.Interval} {
			if col != "" && !hh.HasColumn(col) {
				// the frame owns the new column, errors are impossible here
				_ = hh.AddColumn(col, dataset.MissingColumn(hh.RowCount()))
			}
		}
	}
}

// coalesceVar returns the exact value where present, otherwise the
// midpoint of the interval response.
func coalesceVar(hh *dataset.Frame, spec survey.VarSpec) []float64 {
	exact, ok := hh.Column(spec.Exact)
	if !ok {
		exact = dataset.MissingColumn(hh.RowCount())
	}
	if !spec.HasInterval() {
		return exact
	}
	interval, ok := hh.Column(spec.Interval)
	if !ok {
		return exact
	}
	midpoints := survey.ResolveColumn(interval, spec.Interval)
	out := make([]float64, len(exact))
	for i, v := range exact {
		if dataset.IsMissing(v) {
			out[i] = midpoints[i]
		} else {
			out[i] = v
		}
	}
	return out
}

// ComputeTotals sums the coalesced columns into total_debt and
// total_assets, netting out vehicles already counted inside business
// assets.
func ComputeTotals(hh *dataset.Frame, debtCols, assetCols []string) error {
	if err := hh.SetColumn("total_debt", rowSums(hh, debtCols)); err != nil {
		return err
	}

	raw := rowSums(hh, assetCols)
	if err := hh.SetColumn("total_assets_raw", raw); err != nil {
		return err
	}

	vib := coalesceVar(hh, survey.BusinessVehicleSpec())
	total := make([]float64, len(raw))
	for i := range total {
		total[i] = raw[i] - zeroIfMissing(vib[i])
		if total[i] < 0 {
			total[i] = 0
		}
	}
	if err := hh.SetColumn("total_assets", total); err != nil {
		return err
	}
	log.Printf("[Features] Computed total_debt and total_assets.")
	return nil
}

// rowSums adds the named columns per row, treating missing as zero.
func rowSums(hh *dataset.Frame, cols []string) []float64 {
	sums := make([]float64, hh.RowCount())
	for _, name := range cols {
		col, ok := hh.Column(name)
		if !ok {
			continue
		}
		for i, v := range col {
			sums[i] += zeroIfMissing(v)
		}
	}
	return sums
}

// ComputeDebtRatio derives the dependent variables: the raw ratio, its
// winsorised version, and the log of the winsorised version.
//
// Two boundary rules are deliberate and asymmetric: a household with
// no debt and no assets gets ratio 0, while positive debt on zero
// assets is undefined and excluded from estimation.
func ComputeDebtRatio(hh *dataset.Frame, cfg config.StudyConfig) error {
	debt, ok := hh.Column("total_debt")
	if !ok {
		return core.NewMissingColumnError("household", "total_debt")
	}
	assets, ok := hh.Column("total_assets")
	if !ok {
		return core.NewMissingColumnError("household", "total_assets")
	}

	ratio := make([]float64, len(debt))
	for i := range ratio {
		switch {
		case debt[i] == 0 && assets[i] == 0:
			ratio[i] = 0
		case debt[i] > 0 && assets[i] == 0:
			ratio[i] = dataset.Missing()
		default:
			ratio[i] = debt[i] / (assets[i] + cfg.RatioEpsilon)
		}
	}
	if err := hh.SetColumn("debt_ratio", ratio); err != nil {
		return err
	}

	winsorized := Winsorize(ratio, cfg.WinsorLower, cfg.WinsorUpper)
	if n := dataset.CountDefined(winsorized); n > 0 {
		log.Printf("[Features] Winsorised debt_ratio at (%g, %g) limits. N = %d.",
			cfg.WinsorLower, cfg.WinsorUpper, n)
	} else {
		log.Printf("[Features] debt_ratio column is empty after cleaning - cannot winsorise.")
	}
	if err := hh.SetColumn("debt_ratio_winsorized", winsorized); err != nil {
		return err
	}

	logRatio := make([]float64, len(winsorized))
	for i, v := range winsorized {
		shifted := v + cfg.LogOffset
		if dataset.IsMissing(v) || shifted <= 0 {
			logRatio[i] = dataset.Missing()
		} else {
			logRatio[i] = math.Log(shifted)
		}
	}
	if err := hh.SetColumn("log_debt_ratio_winsorized", logRatio); err != nil {
		return err
	}

	log.Printf("[Features] Debt ratio (raw, winsorised, log) computed.")
	return nil
}
