package formula

import (
	"strings"
	"testing"
)

func evalOne(t *testing.T, line string, ns Namespace, opts Options) RuleResult {
	t.Helper()
	rule, ok := ParseRule(line)
	if !ok {
		t.Fatalf("ParseRule(%q) rejected a parseable rule", line)
	}
	return rule.Eval(ns, opts)
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		rule     string
		seed     Namespace
		expected float64
	}{
		{name: "Precedence", rule: "A = 1 + 2 * 3", expected: 7},
		{name: "Left associative division", rule: "A = 8 / 2 / 2", expected: 2},
		{name: "Division by zero", rule: "A = 10 / 0", expected: 0},
		{name: "Division by zero inside product", rule: "A = 10 / 0 * 5", expected: 0},
		{name: "Division by small denominator", rule: "A = 2 / 0.0078125", expected: 256},
		{name: "Unknown name is zero", rule: "A = X", expected: 0},
		{name: "Unary minus", rule: "A = -B + C", seed: Namespace{"B": 5, "C": 2}, expected: -3},
		{name: "Unary plus", rule: "A = +B", seed: Namespace{"B": 5}, expected: 5},
		{name: "Namespace lookup", rule: "A = B * C - D", seed: Namespace{"B": 3, "C": 4, "D": 2}, expected: 10},
		{name: "Literal decimal", rule: "A = 0.5 * 10", expected: 5},
		{name: "Subtraction chain", rule: "A = 10 - 3 - 2", expected: 5},
		{name: "Mixed names and literals", rule: "A = B + 100", seed: Namespace{"B": 1}, expected: 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := tt.seed
			if ns == nil {
				ns = Namespace{}
			}
			got := evalOne(t, tt.rule, ns, Options{})
			if got.Value != tt.expected {
				t.Errorf("%q = %v, expected %v", tt.rule, got.Value, tt.expected)
			}
			if ns[got.Target] != tt.expected {
				t.Errorf("namespace[%s] = %v, expected %v", got.Target, ns[got.Target], tt.expected)
			}
		})
	}
}

func TestMalformedRules(t *testing.T) {
	tests := []struct {
		name     string
		rule     string
		seed     Namespace
		expected float64
	}{
		{name: "Trailing operator dropped", rule: "A = B + ", seed: Namespace{"B": 4}, expected: 4},
		{name: "Double operator treats gap as zero", rule: "A = B + + C", seed: Namespace{"B": 4, "C": 1}, expected: 5},
		{name: "Adjacent operands implicitly summed", rule: "A = B C", seed: Namespace{"B": 4, "C": 1}, expected: 5},
		{name: "Empty expression", rule: "A =", expected: 0},
		{name: "Leading star cannot be unary", rule: "A = *B", seed: Namespace{"B": 4}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := tt.seed
			if ns == nil {
				ns = Namespace{}
			}
			got := evalOne(t, tt.rule, ns, Options{})
			if got.Value != tt.expected {
				t.Errorf("%q = %v, expected %v", tt.rule, got.Value, tt.expected)
			}
		})
	}
}

func TestParseRuleRejections(t *testing.T) {
	for _, line := range []string{"no equals sign", "= 1 + 2", "   = X"} {
		if _, ok := ParseRule(line); ok {
			t.Errorf("ParseRule(%q) = ok, expected rejection", line)
		}
	}
}

func TestStrictModeReportsUnresolved(t *testing.T) {
	ns := Namespace{"known": 1}
	got := evalOne(t, "A = known + missing + 5 + alsoMissing", ns, Options{Strict: true})

	if len(got.Unresolved) != 2 {
		t.Fatalf("Unresolved = %v, expected two entries", got.Unresolved)
	}
	if got.Unresolved[0] != "missing" || got.Unresolved[1] != "alsoMissing" {
		t.Errorf("Unresolved = %v, expected [missing alsoMissing]", got.Unresolved)
	}
	if got.Value != 6 {
		t.Errorf("strict mode changed the computed value: %v, expected 6", got.Value)
	}
}

func TestTraceSigns(t *testing.T) {
	ns := Namespace{"B": 5, "C": 2, "D": 4}
	got := evalOne(t, "A = B - C / D", ns, Options{})

	if len(got.Operands) != 3 {
		t.Fatalf("trace has %d operands, expected 3", len(got.Operands))
	}
	if got.Operands[0].Negative {
		t.Errorf("first operand marked negative")
	}
	if !got.Operands[1].Negative {
		t.Errorf("subtracted operand not marked negative")
	}
	if !got.Operands[2].Negative {
		t.Errorf("divisor operand not marked negative")
	}
	if got.Operands[1].Value != 2 {
		t.Errorf("trace value = %v, expected 2", got.Operands[1].Value)
	}
}

func TestStageOrderingAndOverwrite(t *testing.T) {
	stages := []Stage{
		{Name: "first", Rules: mustRules(t,
			"base = 10",
			"derived = base * 2",
		)},
		{Name: "second", Rules: mustRules(t,
			"total = derived + 1",
			"base = 99", // later write wins
		)},
	}

	ns := Namespace{}
	report := EvalStages(stages, ns, Options{})

	if ns["derived"] != 20 {
		t.Errorf("derived = %v, expected 20 (same-stage forward reference)", ns["derived"])
	}
	if ns["total"] != 21 {
		t.Errorf("total = %v, expected 21 (cross-stage reference sees updated value)", ns["total"])
	}
	if ns["base"] != 99 {
		t.Errorf("base = %v, expected 99 (overwrite semantics)", ns["base"])
	}
	if len(report.Rules) != 4 {
		t.Errorf("report has %d rule results, expected 4", len(report.Rules))
	}
}

func TestNamespaceDefaultsToZero(t *testing.T) {
	ns := Namespace{}
	if ns.Value("anything") != 0 {
		t.Errorf("Value() on absent name = %v, expected 0", ns.Value("anything"))
	}
}

func TestReadTemplate(t *testing.T) {
	src := `
stages:
  - name: volumes
    rules:
      - "newGuaranteeTotal = traditional.currentYear + batch.currentYear"
      - "not a rule"
  - name: ratios
    rules:
      - "growth = newGuaranteeTotal - prior.yearEndBalance"
`
	stages, err := ReadTemplate(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadTemplate() error = %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("ReadTemplate() returned %d stages, expected 2", len(stages))
	}
	if len(stages[0].Rules) != 1 {
		t.Errorf("first stage kept %d rules, expected 1 (unparseable line skipped)", len(stages[0].Rules))
	}

	ns := Namespace{
		"traditional.currentYear": 600,
		"batch.currentYear":       400,
		"prior.yearEndBalance":    900,
	}
	EvalStages(stages, ns, Options{})
	if ns["newGuaranteeTotal"] != 1000 {
		t.Errorf("newGuaranteeTotal = %v, expected 1000", ns["newGuaranteeTotal"])
	}
	if ns["growth"] != 100 {
		t.Errorf("growth = %v, expected 100", ns["growth"])
	}
}

func TestReadTemplateBadYAML(t *testing.T) {
	if _, err := ReadTemplate(strings.NewReader("stages: [unclosed")); err == nil {
		t.Errorf("ReadTemplate() with invalid YAML returned nil error")
	}
}

func mustRules(t *testing.T, lines ...string) []Rule {
	t.Helper()
	var rules []Rule
	for _, line := range lines {
		rule, ok := ParseRule(line)
		if !ok {
			t.Fatalf("ParseRule(%q) failed", line)
		}
		rules = append(rules, rule)
	}
	return rules
}
