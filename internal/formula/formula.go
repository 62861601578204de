// Package formula evaluates the staged arithmetic rules that combine the
// per-line metric scalars into the derived indicators the report templates
// consume. Rules are text ("target = expression") parsed once into a
// structured form; evaluation is deliberately fault-tolerant so a malformed
// template line degrades a single value instead of crashing the run.
package formula

import (
	"regexp"
	"strconv"
	"strings"
)

// Namespace is the shared named-scalar store. A name read before it is
// written evaluates to 0; writes overwrite unconditionally, so a later stage
// redefining a target simply wins.
type Namespace map[string]float64

// Value returns the scalar stored under name, or 0 when absent.
func (ns Namespace) Value(name string) float64 {
	return ns[name]
}

// Rule is the parsed form of one "target = expression" line. Operands and
// operators alternate: operands[0] op[0] operands[1] op[1] ... The leading
// sign applies to the first operand.
type Rule struct {
	Target   string
	Source   string
	Negative bool
	Operands []string
	Ops      []byte
}

// Stage is an ordered group of rules evaluated together; rules within a
// stage run top to bottom, each writing its target before the next reads.
type Stage struct {
	Name  string
	Rules []Rule
}

var numericLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

func isOperator(c byte) bool {
	return c == '+' || c == '-' || c == '*' || c == '/'
}

// ParseRule parses one rule line. Lines without an "=" or with an empty
// target are rejected; everything to the right of the first "=" is accepted
// and repaired per the leniency rules: a single leading unary +/- is folded
// into a sign, a trailing operator with no operand is dropped, and
// whitespace-separated tokens with no operator between them are joined by an
// implicit "+".
func ParseRule(line string) (Rule, bool) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return Rule{}, false
	}
	target := strings.TrimSpace(line[:eq])
	if target == "" {
		return Rule{}, false
	}

	rule := Rule{Target: target, Source: strings.TrimSpace(line[eq+1:])}
	expr := rule.Source

	var operands []string
	var ops []byte
	token := strings.Builder{}
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if isOperator(c) {
			operands = append(operands, strings.TrimSpace(token.String()))
			ops = append(ops, c)
			token.Reset()
			continue
		}
		token.WriteByte(c)
	}
	operands = append(operands, strings.TrimSpace(token.String()))

	// Single leading unary sign: only +/- may prefix the first operand.
	if len(operands) > 1 && operands[0] == "" && (ops[0] == '+' || ops[0] == '-') {
		rule.Negative = ops[0] == '-'
		operands = operands[1:]
		ops = ops[1:]
	}

	// Malformed trailing operator: drop it rather than fail.
	for len(operands) > 1 && operands[len(operands)-1] == "" {
		operands = operands[:len(operands)-1]
		ops = ops[:len(ops)-1]
	}

	// Adjacent operands with no operator between them are implicitly summed.
	operands, ops = splitImplicitSums(operands, ops)

	rule.Operands = operands
	rule.Ops = ops
	return rule, true
}

// splitImplicitSums breaks whitespace-separated multi-token operands into
// individual operands joined by "+".
func splitImplicitSums(operands []string, ops []byte) ([]string, []byte) {
	var outOperands []string
	var outOps []byte
	for i, operand := range operands {
		fields := strings.Fields(operand)
		if len(fields) == 0 {
			fields = []string{""}
		}
		for j, f := range fields {
			outOperands = append(outOperands, f)
			if j < len(fields)-1 {
				outOps = append(outOps, '+')
			}
		}
		if i < len(ops) {
			outOps = append(outOps, ops[i])
		}
	}
	return outOperands, outOps
}

// OperandTrace records one resolved operand for audit display. Negative
// marks operands consumed by subtraction or division.
type OperandTrace struct {
	Token    string
	Value    float64
	Negative bool
}

// RuleResult is the outcome of evaluating one rule.
type RuleResult struct {
	Target     string
	Value      float64
	Operands   []OperandTrace
	Unresolved []string
}

// Options controls evaluation behavior. Strict collects every operand that
// resolved neither in the namespace nor as a numeric literal; production
// runs leave it off and accept the zero-fill policy.
type Options struct {
	Strict bool
}

// resolve maps an operand token to its value: namespace first, then numeric
// literal, else 0.
func resolve(token string, ns Namespace) (float64, bool) {
	if v, ok := ns[token]; ok {
		return v, true
	}
	if numericLiteral.MatchString(token) {
		v, err := strconv.ParseFloat(token, 64)
		if err == nil {
			return v, true
		}
	}
	return 0, false
}

// Eval evaluates a parsed rule against the namespace and writes the result
// under the rule's target. Multiplication and division bind tighter than
// addition and subtraction; division by zero yields 0.
func (r Rule) Eval(ns Namespace, opts Options) RuleResult {
	result := RuleResult{Target: r.Target}

	if len(r.Operands) == 0 {
		ns[r.Target] = 0
		return result
	}

	value := func(i int) float64 {
		v, ok := resolve(r.Operands[i], ns)
		if !ok && opts.Strict && r.Operands[i] != "" {
			result.Unresolved = append(result.Unresolved, r.Operands[i])
		}
		negative := false
		if i == 0 {
			negative = r.Negative
		} else if r.Ops[i-1] == '-' || r.Ops[i-1] == '/' {
			negative = true
		}
		result.Operands = append(result.Operands, OperandTrace{
			Token:    r.Operands[i],
			Value:    v,
			Negative: negative,
		})
		return v
	}

	// First pass: fold * and / into terms; second pass: sum the terms with
	// their +/- signs.
	term := value(0)
	if r.Negative {
		term = -term
	}
	var total float64
	sign := 1.0
	flush := func() {
		total += sign * term
	}
	for i, op := range r.Ops {
		v := value(i + 1)
		switch op {
		case '*':
			term *= v
		case '/':
			if v == 0 {
				term = 0
			} else {
				term /= v
			}
		case '+':
			flush()
			sign = 1
			term = v
		case '-':
			flush()
			sign = -1
			term = v
		}
	}
	flush()

	result.Value = total
	ns[r.Target] = total
	return result
}

// Report aggregates the evaluation of a full stage sequence.
type Report struct {
	Rules      []RuleResult
	Unresolved []string
}

// EvalStages evaluates every rule exactly once, stage by stage in order,
// rule by rule within each stage, writing each target into the namespace
// immediately so later rules observe it.
func EvalStages(stages []Stage, ns Namespace, opts Options) Report {
	var report Report
	for _, stage := range stages {
		for _, rule := range stage.Rules {
			rr := rule.Eval(ns, opts)
			report.Rules = append(report.Rules, rr)
			report.Unresolved = append(report.Unresolved, rr.Unresolved...)
		}
	}
	return report
}
