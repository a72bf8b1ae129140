package stats

import (
	"sibdebt/domain/dataset"
	"sibdebt/domain/study"
)

// Engine exposes the package's diagnostic functions behind the
// DiagnosticsEngine port.
type Engine struct{}

// NewEngine creates a diagnostics engine.
func NewEngine() *Engine {
	return &Engine{}
}

func (Engine) Describe(frame *dataset.Frame, columns []string) []study.DescriptiveRow {
	return Describe(frame, columns)
}

func (Engine) ComputeVIF(names []string, cols [][]float64, threshold float64) ([]study.VIFEntry, error) {
	return ComputeVIF(names, cols, threshold)
}

func (Engine) MissingAudit(frame *dataset.Frame) []study.MissingEntry {
	return MissingAudit(frame)
}
