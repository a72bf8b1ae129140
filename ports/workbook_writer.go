package ports

import "sibdebt/domain/run"

// WorkbookWriter renders a study result into a spreadsheet workbook
// with one sheet per output table.
type WorkbookWriter interface {
	WriteWorkbook(path string, result *run.StudyResult) error
}
