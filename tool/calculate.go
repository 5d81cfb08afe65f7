package tool

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// calcCharset is the full alphabet an expression may use. Anything outside it
// is rejected before parsing, which rules out identifiers and call syntax.
const calcCharset = "0123456789+-*/.() "

// exprParser is a recursive descent parser and evaluator for arithmetic
// expressions over float64 with +, -, *, /, unary minus and parentheses.
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// parseExpr handles addition and subtraction.
func (p *exprParser) parseExpr() (float64, Result) {
	left, res := p.parseTerm()
	if !res.OK {
		return 0, res
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, res := p.parseTerm()
			if !res.OK {
				return 0, res
			}
			left += right
		case '-':
			p.pos++
			right, res := p.parseTerm()
			if !res.OK {
				return 0, res
			}
			left -= right
		default:
			return left, Result{OK: true}
		}
	}
}

// parseTerm handles multiplication and division.
func (p *exprParser) parseTerm() (float64, Result) {
	left, res := p.parseFactor()
	if !res.OK {
		return 0, res
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, res := p.parseFactor()
			if !res.OK {
				return 0, res
			}
			left *= right
		case '/':
			p.pos++
			right, res := p.parseFactor()
			if !res.OK {
				return 0, res
			}
			if right == 0 {
				return 0, Err(CodeDivisionByZero, "division by zero")
			}
			left /= right
		default:
			return left, Result{OK: true}
		}
	}
}

// parseFactor handles numbers, unary signs and parenthesized subexpressions.
func (p *exprParser) parseFactor() (float64, Result) {
	switch c := p.peek(); {
	case c == '-':
		p.pos++
		v, res := p.parseFactor()
		if !res.OK {
			return 0, res
		}
		return -v, Result{OK: true}
	case c == '+':
		p.pos++
		return p.parseFactor()
	case c == '(':
		p.pos++
		v, res := p.parseExpr()
		if !res.OK {
			return 0, res
		}
		if p.peek() != ')' {
			return 0, Err(CodeInvalidExpression, "missing closing parenthesis")
		}
		p.pos++
		return v, Result{OK: true}
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case c == 0:
		return 0, Err(CodeInvalidExpression, "unexpected end of expression")
	default:
		return 0, Errf(CodeInvalidExpression, "unexpected character '%c'", c)
	}
}

func (p *exprParser) parseNumber() (float64, Result) {
	p.skipSpaces()
	start := p.pos
	seenDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			p.pos++
			continue
		}
		break
	}
	lit := p.input[start:p.pos]
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, Errf(CodeInvalidExpression, "invalid number '%s'", lit)
	}
	return v, Result{OK: true}
}

// evaluateExpression parses and evaluates an arithmetic expression. The
// charset gate runs first so no parsing happens on foreign input.
func evaluateExpression(expr string) (float64, Result) {
	if strings.TrimSpace(expr) == "" {
		return 0, Err(CodeInvalidExpression, "expression must not be empty")
	}
	for _, r := range expr {
		if !strings.ContainsRune(calcCharset, r) {
			return 0, Errf(CodeInvalidExpression, "character '%c' is not allowed", r)
		}
	}

	p := &exprParser{input: expr}
	v, res := p.parseExpr()
	if !res.OK {
		return 0, res
	}
	if p.peek() != 0 {
		return 0, Errf(CodeInvalidExpression, "unexpected character '%c'", p.peek())
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 1e15 {
		return 0, Errf(CodeResultOutOfRange, "result magnitude exceeds 1e15")
	}
	return v, Result{OK: true}
}

// formatNumber renders a float without a trailing ".0" for whole values, so
// "2 + 2" evaluates to "4" rather than "4.000000".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewCalculateSpec creates the calculate tool. Expressions are evaluated by a
// dedicated parser restricted to basic arithmetic; no code execution is
// involved.
func NewCalculateSpec() *Spec {
	return &Spec{
		Name:        "calculate",
		Description: "Evaluate a basic arithmetic expression with +, -, *, / and parentheses.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "Arithmetic expression, e.g. '2 + 2 * 3'.",
					"minLength":   1,
				},
			},
			"required": []string{"expression"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			expr, _ := args["expression"].(string)
			v, res := evaluateExpression(expr)
			if !res.OK {
				return res
			}
			return Ok(formatNumber(v))
		},
	}
}
