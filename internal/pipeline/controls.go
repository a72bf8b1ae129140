package pipeline

import (
	"log"
	"math"

	"sibdebt/domain/dataset"
)

// BuildControls derives the model covariates from raw survey codes:
//
//	head_is_male     1 if head_sex == 1
//	head_is_married  1 if head_marital in {2, 3, 7}
//	has_business     1 if b2000b == 1
//	num_houses       c2002 with missing as 0
//	log_total_assets ln(total_assets + 1)
func BuildControls(hh *dataset.Frame) error {
	if err := hh.SetColumn("head_is_male", binaryFromCodes(hh, "head_sex", 1)); err != nil {
		return err
	}
	if err := hh.SetColumn("head_is_married", binaryFromCodes(hh, "head_marital", 2, 3, 7)); err != nil {
		return err
	}
	if err := hh.SetColumn("has_business", binaryFromCodes(hh, "b2000b", 1)); err != nil {
		return err
	}

	houses, ok := hh.Column("c2002")
	if ok {
		for i, v := range houses {
			if dataset.IsMissing(v) {
				houses[i] = 0
			}
		}
	} else {
		houses = make([]float64, hh.RowCount())
		log.Printf("[Controls] 'c2002' missing - 'num_houses' set to 0.")
	}
	if err := hh.SetColumn("num_houses", houses); err != nil {
		return err
	}

	assets, ok := hh.Column("total_assets")
	logAssets := dataset.MissingColumn(hh.RowCount())
	if ok {
		for i, v := range assets {
			if !dataset.IsMissing(v) {
				logAssets[i] = math.Log(v + 1)
			}
		}
	} else {
		log.Printf("[Controls] 'total_assets' missing - cannot compute log_total_assets.")
	}
	if err := hh.SetColumn("log_total_assets", logAssets); err != nil {
		return err
	}

	log.Printf("[Controls] Control variables constructed.")
	return nil
}

// binaryFromCodes maps a coded column to a 0/1 indicator: 1 when the
// value is in the code set, 0 otherwise, missing stays missing. An
// absent column yields all missing.
func binaryFromCodes(hh *dataset.Frame, name string, codes ...float64) []float64 {
	col, ok := hh.Column(name)
	if !ok {
		log.Printf("[Controls] '%s' missing - indicator set to missing.", name)
		return dataset.MissingColumn(hh.RowCount())
	}
	out := make([]float64, len(col))
	for i, v := range col {
		if dataset.IsMissing(v) {
			out[i] = dataset.Missing()
			continue
		}
		out[i] = 0
		for _, c := range codes {
			if v == c {
				out[i] = 1
				break
			}
		}
	}
	return out
}
