package survey

import "fmt"

// VarSpec describes one survey variable: the exact-value column as
// reported, optionally twinned with an interval-code column used when
// the respondent declined to give an exact figure.
type VarSpec struct {
	Exact    string `json:"exact"`
	Interval string `json:"interval,omitempty"`
}

// CoalescedName is the column produced by exact/interval coalescing.
func (v VarSpec) CoalescedName() string {
	return v.Exact + "_val"
}

// HasInterval reports whether the variable carries an interval twin.
func (v VarSpec) HasInterval() bool {
	return v.Interval != ""
}

// indexedSpecs expands repeated-item questions (house 1..n etc.) into
// one VarSpec per instance.
func indexedSpecs(exact, interval string, from, to int) []VarSpec {
	specs := make([]VarSpec, 0, to-from+1)
	for i := from; i <= to; i++ {
		specs = append(specs, VarSpec{
			Exact:    fmt.Sprintf("%s_%d", exact, i),
			Interval: fmt.Sprintf("%s_%d", interval, i),
		})
	}
	return specs
}

// Debt-side catalogue. The category grouping is documentation only;
// aggregation consumes the flat set from DebtSpecs.
var (
	debtBusinessBank    = []VarSpec{{Exact: "b3005b_2"}}
	debtBusinessPrivate = []VarSpec{{Exact: "b3031a_2", Interval: "b3031ait_2"}}

	debtHouseBank       = indexedSpecs("c2064", "c2064it", 1, 6)
	debtHouseOther      = indexedSpecs("c3002a", "c3002ait", 1, 6)
	debtHouseAggOther   = []VarSpec{{Exact: "c2023e", Interval: "c2023eit"}}
	debtHouseCollateral = []VarSpec{{Exact: "c3017ca", Interval: "c3017cait"}}

	debtShopBank  = []VarSpec{{Exact: "c3019c", Interval: "c3019cit"}}
	debtShopOther = []VarSpec{{Exact: "c3019e", Interval: "c3019eit"}}

	debtCar          = []VarSpec{{Exact: "c7060", Interval: "c7060it"}}
	debtVehicleOther = []VarSpec{{Exact: "c7061", Interval: "c7061it"}}

	debtDurable = []VarSpec{{Exact: "c8007", Interval: "c8007it"}}

	debtStock        = []VarSpec{{Exact: "d3116b"}}
	debtFinanceOther = []VarSpec{{Exact: "d9108", Interval: "d9108it"}}

	debtEduBank    = []VarSpec{{Exact: "e1006", Interval: "e1006it"}}
	debtEduPrivate = []VarSpec{{Exact: "e1022", Interval: "e1022it"}}

	debtMedical = []VarSpec{{Exact: "e4003", Interval: "e4003it"}}
	debtOther   = []VarSpec{{Exact: "e3003c", Interval: "e3003cit"}}
)

// Asset-side catalogue.
var (
	assetBusiness = []VarSpec{{Exact: "b2003d", Interval: "b2003dit"}}

	assetHouse         = indexedSpecs("c2016", "c2016it", 1, 6)
	assetHouseAggOther = []VarSpec{{Exact: "c2023d", Interval: "c2023dit"}}
	assetShop          = []VarSpec{{Exact: "c3019a", Interval: "c3019ait"}}

	assetCar          = []VarSpec{{Exact: "c7052b", Interval: "c7052bit"}}
	assetVehicleComm  = []VarSpec{{Exact: "c7059"}}
	assetVehicleOther = []VarSpec{{Exact: "c7058"}}

	assetDurable     = []VarSpec{{Exact: "c8002"}}
	assetOtherNonfin = []VarSpec{{Exact: "c8005"}}

	assetDepositChecking = []VarSpec{{Exact: "d1105", Interval: "d1105it"}}
	assetDepositSavings  = []VarSpec{{Exact: "d2104", Interval: "d2104it"}}

	assetStockCash      = []VarSpec{{Exact: "d3103", Interval: "d3103it"}}
	assetStockValue     = []VarSpec{{Exact: "d3109", Interval: "d3109it"}}
	assetStockNonpublic = []VarSpec{{Exact: "d3116", Interval: "d3116it"}}

	assetFund             = []VarSpec{{Exact: "d5107", Interval: "d5107it"}}
	assetInternetFinance  = []VarSpec{{Exact: "d7106h", Interval: "d7106hit"}}
	assetOtherFinanceProd = []VarSpec{{Exact: "d7110a", Interval: "d7110ait"}}

	assetBond = indexedSpecs("d4103", "d4103it", 1, 5)

	assetDerivative = []VarSpec{{Exact: "d6100a", Interval: "d6100ait"}}
	assetNonRMB     = []VarSpec{{Exact: "d8104", Interval: "d8104it"}}
	assetGold       = []VarSpec{{Exact: "d9103", Interval: "d9103it"}}
	assetOtherFin   = []VarSpec{{Exact: "d9110a", Interval: "d9110ait"}}

	assetCash       = []VarSpec{{Exact: "k1101", Interval: "k1101it"}}
	assetReceivable = []VarSpec{{Exact: "k2102c", Interval: "k2102cit"}}
)

// assetVehicleInBusiness is tracked under business assets elsewhere in
// the questionnaire and is subtracted from the asset total so the
// vehicle is not counted twice.
var assetVehicleInBusiness = VarSpec{Exact: "c7062", Interval: "c7062it"}

var allDebtVars = flatten(
	debtBusinessBank, debtBusinessPrivate,
	debtHouseBank, debtHouseOther, debtHouseAggOther, debtHouseCollateral,
	debtShopBank, debtShopOther,
	debtCar, debtVehicleOther,
	debtDurable,
	debtStock, debtFinanceOther,
	debtEduBank, debtEduPrivate,
	debtMedical, debtOther,
)

var allAssetVars = flatten(
	assetBusiness,
	assetHouse, assetHouseAggOther, assetShop,
	assetCar, assetVehicleComm, assetVehicleOther,
	assetDurable, assetOtherNonfin,
	assetDepositChecking, assetDepositSavings,
	assetStockCash, assetStockValue, assetStockNonpublic,
	assetFund, assetInternetFinance, assetOtherFinanceProd,
	assetBond,
	assetDerivative, assetNonRMB, assetGold, assetOtherFin,
	assetCash, assetReceivable,
)

func flatten(groups ...[]VarSpec) []VarSpec {
	var out []VarSpec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// DebtSpecs returns every debt variable in catalogue order.
func DebtSpecs() []VarSpec {
	out := make([]VarSpec, len(allDebtVars))
	copy(out, allDebtVars)
	return out
}

// AssetSpecs returns every asset variable in catalogue order.
func AssetSpecs() []VarSpec {
	out := make([]VarSpec, len(allAssetVars))
	copy(out, allAssetVars)
	return out
}

// BusinessVehicleSpec returns the double-counting adjustment variable.
// It is not part of AssetSpecs; it only reduces the asset total.
func BusinessVehicleSpec() VarSpec {
	return assetVehicleInBusiness
}

// AllSpecs returns debt, asset, and adjustment variables for bulk
// operations such as coalescing.
func AllSpecs() []VarSpec {
	out := make([]VarSpec, 0, len(allDebtVars)+len(allAssetVars)+1)
	out = append(out, allDebtVars...)
	out = append(out, allAssetVars...)
	out = append(out, assetVehicleInBusiness)
	return out
}

// HeadColumn is one raw-to-analysis rename for a head-level column.
type HeadColumn struct {
	Raw     string
	Renamed string
}

// headColumns renames raw individual-table columns to head-info names
// carried into the merged analysis table, in output order.
var headColumns = []HeadColumn{
	{"hhid", "hhid"},
	{"head_age", "head_age"}, // derived from a2005
	{"a2003", "head_sex"},    // 1=male, 2=female
	{"a2012", "head_educ"},
	{"a2024", "head_marital"},
	{"a2025b", "head_health"}, // 1=very good .. 5=very poor
	{"head_siblings", "head_siblings"},
}

// HeadColumns returns the head-level rename list in output order.
func HeadColumns() []HeadColumn {
	out := make([]HeadColumn, len(headColumns))
	copy(out, headColumns)
	return out
}
