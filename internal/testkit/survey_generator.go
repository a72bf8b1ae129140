package testkit

import (
	"math"
	"math/rand"

	"sibdebt/domain/dataset"
)

// SurveyConfig configures the synthetic survey generator.
type SurveyConfig struct {
	Households        int     `json:"households"`
	SurveyYear        int     `json:"survey_year"`
	AvgMembers        float64 `json:"avg_members"`
	MissingRate       float64 `json:"missing_rate"`
	IntervalRate      float64 `json:"interval_rate"`       // share of balances reported as interval codes
	DebtChance        float64 `json:"debt_chance"`         // chance a household carries housing debt
	DuplicateHeadRate float64 `json:"duplicate_head_rate"` // chance a household reports two head rows
	Seed              int64   `json:"seed"`
}

// DefaultSurveyConfig returns defaults that yield a usable analysis
// sample: plenty of complete cases, realistic missingness, a mix of
// exact and interval answers.
func DefaultSurveyConfig() SurveyConfig {
	return SurveyConfig{
		Households:   500,
		SurveyYear:   2017,
		AvgMembers:   2.8,
		MissingRate:  0.05,
		IntervalRate: 0.3,
		DebtChance:   0.4,
		Seed:         42,
	}
}

// SurveyGenerator produces household and individual tables in the raw
// release layout the pipeline ingests: interval-coded balances, coded
// demographics, survey skip patterns as missing values.
type SurveyGenerator struct {
	config SurveyConfig
	rng    *rand.Rand
}

// NewSurveyGenerator creates a generator. The same config always
// produces the same tables.
func NewSurveyGenerator(config SurveyConfig) *SurveyGenerator {
	return &SurveyGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateTables produces the household table and the individual table.
func (g *SurveyGenerator) GenerateTables() (*dataset.Frame, *dataset.Frame, error) {
	hh, heads, err := g.generateHouseholds()
	if err != nil {
		return nil, nil, err
	}
	ind, err := g.generateIndividuals(heads)
	if err != nil {
		return nil, nil, err
	}
	return hh, ind, nil
}

// headProfile carries what the individual table needs to know about a
// generated household.
type headProfile struct {
	hhid        float64
	age         float64
	hasBusiness bool
}

func (g *SurveyGenerator) generateHouseholds() (*dataset.Frame, []headProfile, error) {
	n := g.config.Households
	heads := make([]headProfile, n)

	cols := map[string][]float64{}
	names := []string{
		"hhid", "b2000b", "c2002",
		"c2016_1", "c2016it_1", "d1105", "d1105it", "c8002",
		"c7052b", "c7052bit", "b2003d", "b2003dit", "c7062", "c7062it",
		"c2064_1", "c2064it_1", "c7060", "c7060it", "e4003", "e4003it",
	}
	for _, name := range names {
		cols[name] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		hhid := float64(1001 + i)
		age := 22 + math.Floor(g.rng.Float64()*54)
		hasBusiness := g.rng.Float64() < 0.15
		heads[i] = headProfile{hhid: hhid, age: age, hasBusiness: hasBusiness}

		cols["hhid"][i] = hhid
		cols["b2000b"][i] = g.maybeMissing(codeFor(hasBusiness))
		cols["c2002"][i] = g.maybeMissing(math.Floor(g.rng.Float64() * 3))

		ownsHouse := g.rng.Float64() < 0.85
		cols["c2016_1"][i], cols["c2016it_1"][i] = g.askBalance(ownsHouse, 600_000, 13)

		cols["d1105"][i], cols["d1105it"][i] = g.askBalance(g.rng.Float64() < 0.9, 30_000, 11)
		cols["c8002"][i] = g.maybeMissing(g.amount(20_000))

		ownsCar := g.rng.Float64() < 0.3
		cols["c7052b"][i], cols["c7052bit"][i] = g.askBalance(ownsCar, 90_000, 11)

		cols["b2003d"][i], cols["b2003dit"][i] = g.askBalance(hasBusiness, 250_000, 11)
		cols["c7062"][i], cols["c7062it"][i] = g.askBalance(hasBusiness && ownsCar && g.rng.Float64() < 0.5, 60_000, 11)

		hasHouseDebt := ownsHouse && g.rng.Float64() < g.config.DebtChance
		cols["c2064_1"][i], cols["c2064it_1"][i] = g.askBalance(hasHouseDebt, 200_000, 11)

		cols["c7060"][i], cols["c7060it"][i] = g.askBalance(ownsCar && g.rng.Float64() < 0.3, 50_000, 11)
		cols["e4003"][i], cols["e4003it"][i] = g.askBalance(g.rng.Float64() < 0.08, 40_000, 11)
	}

	hh := dataset.NewFrame(n)
	for _, name := range names {
		if err := hh.AddColumn(name, cols[name]); err != nil {
			return nil, nil, err
		}
	}
	return hh, heads, nil
}

func (g *SurveyGenerator) generateIndividuals(heads []headProfile) (*dataset.Frame, error) {
	names := []string{"hhid", "a2001", "a2003", "a2005", "a2012", "a2024", "a2025b", "a2028", "a2029"}
	cols := map[string][]float64{}
	for _, name := range names {
		cols[name] = []float64{}
	}

	appendRow := func(hhid, role float64, h headProfile, isHead bool) {
		age := h.age
		if !isHead {
			age = 5 + math.Floor(g.rng.Float64()*70)
		}
		cols["hhid"] = append(cols["hhid"], hhid)
		cols["a2001"] = append(cols["a2001"], role)
		cols["a2003"] = append(cols["a2003"], float64(1+g.rng.Intn(2)))
		cols["a2005"] = append(cols["a2005"], g.maybeMissing(float64(g.config.SurveyYear)-age))
		cols["a2012"] = append(cols["a2012"], g.maybeMissing(float64(1+g.rng.Intn(9))))
		cols["a2024"] = append(cols["a2024"], g.maybeMissing(g.maritalCode()))
		cols["a2025b"] = append(cols["a2025b"], g.maybeMissing(float64(1+g.rng.Intn(5))))
		cols["a2028"] = append(cols["a2028"], g.maybeMissing(math.Floor(g.rng.Float64()*4)))
		cols["a2029"] = append(cols["a2029"], g.maybeMissing(math.Floor(g.rng.Float64()*4)))
	}

	for _, h := range heads {
		appendRow(h.hhid, 1, h, true)
		if g.rng.Float64() < g.config.DuplicateHeadRate {
			appendRow(h.hhid, 1, h, true)
		}

		members := int(math.Round(g.config.AvgMembers + g.rng.NormFloat64()*0.8))
		for m := 1; m < members; m++ {
			appendRow(h.hhid, float64(2+g.rng.Intn(4)), h, false)
		}
	}

	ind := dataset.NewFrame(len(cols["hhid"]))
	for _, name := range names {
		if err := ind.AddColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}
	return ind, nil
}

// askBalance answers a balance question the way respondents do: not
// applicable (missing twice), an exact yuan figure, or an interval
// code from 1..codes.
func (g *SurveyGenerator) askBalance(has bool, mean float64, codes int) (exact, interval float64) {
	if !has {
		return dataset.Missing(), dataset.Missing()
	}
	if g.rng.Float64() < g.config.IntervalRate {
		return dataset.Missing(), float64(1 + g.rng.Intn(codes))
	}
	return g.amount(mean), dataset.Missing()
}

// amount draws a right-skewed positive balance around the given mean.
func (g *SurveyGenerator) amount(mean float64) float64 {
	return math.Round(mean * math.Exp(g.rng.NormFloat64()*0.7-0.245))
}

func (g *SurveyGenerator) maybeMissing(v float64) float64 {
	if g.rng.Float64() < g.config.MissingRate {
		return dataset.Missing()
	}
	return v
}

// maritalCode draws from the questionnaire's marital codes, mostly
// married (2).
func (g *SurveyGenerator) maritalCode() float64 {
	r := g.rng.Float64()
	switch {
	case r < 0.65:
		return 2 // first marriage
	case r < 0.72:
		return 3 // remarried
	case r < 0.80:
		return 1 // never married
	case r < 0.88:
		return 5 // divorced
	case r < 0.96:
		return 6 // widowed
	default:
		return 7 // cohabiting
	}
}

func codeFor(yes bool) float64 {
	if yes {
		return 1
	}
	return 2
}
