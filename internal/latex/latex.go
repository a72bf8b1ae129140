// Package latex renders analysis tables as LaTeX fragments ready for
// inclusion in the paper.
package latex

import (
	"fmt"
	"math"
	"strings"

	"sibdebt/domain/study"
)

// Star returns the significance marker for a p-value at the 1%, 5% and
// 10% levels. Undefined p-values get no marker.
func Star(p float64) string {
	switch {
	case math.IsNaN(p):
		return ""
	case p < 0.01:
		return "***"
	case p < 0.05:
		return "**"
	case p < 0.10:
		return "*"
	default:
		return ""
	}
}

// Escape protects underscores, the only special character our variable
// names contain.
func Escape(s string) string {
	return strings.ReplaceAll(s, "_", `\_`)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}

// RegressionTable renders the fitted battery side by side: one column
// per model, coefficient rows with significance stars and standard
// errors in parentheses underneath, then the fit statistics footer.
func RegressionTable(results []study.ModelResult, caption, label, note string) string {
	if len(results) == 0 {
		return "% No results to display."
	}

	// Union of terms across models, in first-seen order.
	var terms []string
	seen := map[string]bool{}
	for _, res := range results {
		for _, t := range res.Terms {
			if !seen[t] {
				seen[t] = true
				terms = append(terms, t)
			}
		}
	}

	colSpec := "l" + strings.Repeat("c", len(results))
	lines := []string{
		`\begin{table}[htbp]`,
		`\centering`,
		`\small`,
		fmt.Sprintf(`\caption{%s}`, caption),
		fmt.Sprintf(`\label{%s}`, label),
		fmt.Sprintf(`\begin{tabular}{%s}`, colSpec),
		`\hline\hline`,
	}

	header := []string{""}
	depRow := []string{"Dep. Variable"}
	for _, res := range results {
		header = append(header, res.Spec.Name)
		depRow = append(depRow, Escape(res.Spec.DepVar))
	}
	lines = append(lines,
		strings.Join(header, " & ")+` \\`,
		strings.Join(depRow, " & ")+` \\`,
		`\hline`,
	)

	for _, term := range terms {
		coefCells := []string{Escape(term)}
		seCells := []string{""}
		for _, res := range results {
			coef, se, p, ok := lookupTerm(&res, term)
			if !ok {
				coefCells = append(coefCells, "")
				seCells = append(seCells, "")
				continue
			}
			coefCells = append(coefCells, formatValue(coef)+Star(p))
			if math.IsNaN(se) {
				seCells = append(seCells, "")
			} else {
				seCells = append(seCells, fmt.Sprintf("(%.4f)", se))
			}
		}
		lines = append(lines,
			strings.Join(coefCells, " & ")+` \\`,
			strings.Join(seCells, " & ")+` \\[3pt]`,
		)
	}

	lines = append(lines, `\hline`)
	nRow := []string{"N"}
	r2Row := []string{`$R^2$`}
	adjRow := []string{`Adj. $R^2$`}
	seRow := []string{"Robust SE"}
	for _, res := range results {
		nRow = append(nRow, fmt.Sprintf("%d", res.NObs))
		r2Row = append(r2Row, formatValue(res.RSquared))
		adjRow = append(adjRow, formatValue(res.AdjRSquared))
		robust := res.Spec.RobustSE
		if robust == "" {
			robust = study.RobustNone
		}
		seRow = append(seRow, string(robust))
	}
	lines = append(lines,
		strings.Join(nRow, " & ")+` \\`,
		strings.Join(r2Row, " & ")+` \\`,
		strings.Join(adjRow, " & ")+` \\`,
		strings.Join(seRow, " & ")+` \\`,
		`\hline\hline`,
	)

	width := len(results) + 1
	if note != "" {
		lines = append(lines, fmt.Sprintf(`\multicolumn{%d}{l}{\footnotesize %s}`, width, note))
	}
	lines = append(lines,
		fmt.Sprintf(`\multicolumn{%d}{l}{\footnotesize $^{***}p<0.01$; $^{**}p<0.05$; $^{*}p<0.10$}`, width),
		`\end{tabular}`,
		`\end{table}`,
	)

	return strings.Join(lines, "\n")
}

func lookupTerm(res *study.ModelResult, term string) (coef, se, p float64, ok bool) {
	for i, t := range res.Terms {
		if t == term {
			return res.Coefficients[i], res.StdErrors[i], res.PValues[i], true
		}
	}
	return 0, 0, 0, false
}

// Table renders a plain table: a left-aligned label column followed by
// right-aligned value columns. Cells arrive preformatted.
func Table(caption, label string, headers []string, rows [][]string) string {
	colSpec := "l" + strings.Repeat("r", len(headers)-1)
	lines := []string{
		`\begin{table}[htbp]`,
		`\centering`,
		`\small`,
		fmt.Sprintf(`\caption{%s}`, caption),
		fmt.Sprintf(`\label{%s}`, label),
		fmt.Sprintf(`\begin{tabular}{%s}`, colSpec),
		`\hline\hline`,
	}

	escaped := make([]string, len(headers))
	for i, h := range headers {
		escaped[i] = Escape(h)
	}
	lines = append(lines, strings.Join(escaped, " & ")+` \\`, `\hline`)

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = Escape(c)
		}
		lines = append(lines, strings.Join(cells, " & ")+` \\`)
	}

	lines = append(lines,
		`\hline\hline`,
		`\end{tabular}`,
		`\end{table}`,
	)
	return strings.Join(lines, "\n")
}
