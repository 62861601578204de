// Package output provides utilities for formatting and exporting statistics
// results.
package output

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/zxyuan/guarantee-stats/internal/engine"
	"github.com/zxyuan/guarantee-stats/pkg/mathutil"
)

// Indicator is one flat name/value pair with the section it belongs to.
type Indicator struct {
	Section string
	Name    string
	Value   float64
}

// Flatten produces the exportable indicator table: per-line metrics in their
// declared order, then the formula targets in evaluation order.
func Flatten(out *engine.Output) []Indicator {
	var indicators []Indicator
	for _, line := range out.Lines {
		for _, name := range line.Names {
			indicators = append(indicators, Indicator{
				Section: line.Line,
				Name:    name,
				Value:   line.Values[name],
			})
		}
	}
	for _, rule := range out.Formula.Rules {
		indicators = append(indicators, Indicator{
			Section: "report",
			Name:    rule.Target,
			Value:   out.Report[rule.Target],
		})
	}
	return indicators
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(out *engine.Output) {
	p := message.NewPrinter(language.English)

	for _, line := range out.Lines {
		fmt.Printf("--- %s ---\n", line.Line)
		for _, name := range line.Names {
			_, _ = p.Printf("%-60s %14.2f\n", name, line.Values[name])
		}
		for _, metricErr := range line.Errors {
			fmt.Printf("%-60s failed: %v\n", metricErr.Metric, metricErr.Err)
		}
		fmt.Printf("\n")
	}

	if len(out.Formula.Rules) > 0 {
		fmt.Printf("--- report ---\n")
		for _, rule := range out.Formula.Rules {
			_, _ = p.Printf("%-60s %14.2f\n", rule.Target, out.Report[rule.Target])
		}
		fmt.Printf("\n")
	}

	for _, line := range out.Lines {
		if od, ok := out.Overdue[line.Line]; ok && od.Count > 0 {
			fmt.Printf("%s: %d overdue rows with uncleared balances\n", line.Line, od.Count)
		}
	}
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(out *engine.Output) {
	fmt.Printf("\"section\",\"indicator\",\"value\"\n")
	for _, ind := range Flatten(out) {
		fmt.Printf("\"%s\",\"%s\",\"%.2f\"\n", ind.Section, ind.Name, ind.Value)
	}
}

// AuditFormat prints the formula trace: every operand's resolved value with
// subtraction and division marked.
func AuditFormat(out *engine.Output) {
	for _, rule := range out.Formula.Rules {
		parts := make([]string, 0, len(rule.Operands))
		for _, op := range rule.Operands {
			sign := "+"
			if op.Negative {
				sign = "-"
			}
			token := op.Token
			if token == "" {
				token = "(empty)"
			}
			parts = append(parts, fmt.Sprintf("%s %s=%.2f", sign, token, op.Value))
		}
		fmt.Printf("%s = %.2f  [%s]\n", rule.Target, rule.Value, strings.Join(parts, " "))
	}
}

// WriteXlsx exports the results as a workbook: an indicator sheet, an
// overdue-rows sheet, and the formula audit trace.
func WriteXlsx(path string, out *engine.Output) error {
	f := excelize.NewFile()
	defer f.Close()

	const indicatorSheet = "Indicators"
	if err := f.SetSheetName("Sheet1", indicatorSheet); err != nil {
		return fmt.Errorf("error naming indicator sheet, %s", err)
	}
	if err := writeRow(f, indicatorSheet, 1, "section", "indicator", "value"); err != nil {
		return err
	}
	for i, ind := range Flatten(out) {
		if err := writeRow(f, indicatorSheet, i+2, ind.Section, ind.Name, mathutil.Round(ind.Value)); err != nil {
			return err
		}
	}

	const overdueSheet = "Overdue"
	if _, err := f.NewSheet(overdueSheet); err != nil {
		return fmt.Errorf("error creating overdue sheet, %s", err)
	}
	if err := writeRow(f, overdueSheet, 1, "line", "customer", "maturityDate", "outstandingBalance"); err != nil {
		return err
	}
	rowIdx := 2
	for _, line := range out.Lines {
		od, ok := out.Overdue[line.Line]
		if !ok {
			continue
		}
		for _, row := range od.Rows {
			if err := writeRow(f, overdueSheet, rowIdx,
				line.Line, row.Customer, row.MaturityDate.Format("2006-01-02"), row.OutstandingBalance); err != nil {
				return err
			}
			rowIdx++
		}
	}

	const auditSheet = "Audit"
	if _, err := f.NewSheet(auditSheet); err != nil {
		return fmt.Errorf("error creating audit sheet, %s", err)
	}
	if err := writeRow(f, auditSheet, 1, "target", "value", "operands"); err != nil {
		return err
	}
	for i, rule := range out.Formula.Rules {
		parts := make([]string, 0, len(rule.Operands))
		for _, op := range rule.Operands {
			sign := "+"
			if op.Negative {
				sign = "-"
			}
			parts = append(parts, fmt.Sprintf("%s%s=%.2f", sign, op.Token, op.Value))
		}
		if err := writeRow(f, auditSheet, i+2, rule.Target, rule.Value, strings.Join(parts, " ")); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error writing workbook %s, %s", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	for i, value := range values {
		axis, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("error addressing cell, %s", err)
		}
		if err := f.SetCellValue(sheet, axis, value); err != nil {
			return fmt.Errorf("error writing cell %s!%s, %s", sheet, axis, err)
		}
	}
	return nil
}
