package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"

	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
)

var _ driven.ToolHandler = (*Calculator)(nil)

// Calculator answers {{calculate(expression="2 * (3 + 4)")}}.
type Calculator struct{}

// NewCalculator creates a calculator tool.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Name returns "calculate".
func (c *Calculator) Name() string { return "calculate" }

// Description describes the tool.
func (c *Calculator) Description() string {
	return `Arithmetic: calculate(expression="2^10 / (3 + sqrt(16))", precision="2")`
}

// Execute evaluates the expression. precision fixes the number of decimals.
func (c *Calculator) Execute(_ context.Context, params map[string]string) (string, error) {
	expression := params["expression"]
	if expression == "" {
		expression = params["expr"]
	}
	if strings.TrimSpace(expression) == "" {
		return "", errors.New("missing expression parameter")
	}

	v, err := Evaluate(expression)
	if err != nil {
		return "", err
	}

	if raw, ok := params["precision"]; ok {
		prec, err := strconv.Atoi(raw)
		if err != nil || prec < 0 || prec > 15 {
			return "", fmt.Errorf("precision must be an integer in [0, 15], got %q", raw)
		}
		return strconv.FormatFloat(v, 'f', prec, 64), nil
	}
	if math.Abs(v) >= 1e15 {
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

var (
	constants = map[string]any{
		"pi": math.Pi,
		"e":  math.E,
	}

	functions = map[string]func(float64) float64{
		"sqrt":  math.Sqrt,
		"abs":   math.Abs,
		"round": math.Round,
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"ln":    math.Log,
		"log":   math.Log10,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
	}

	// checkedOps routes division and modulo through functions that reject a
	// zero divisor and work on floats.
	checkedOps = map[string]string{
		"/": "__div",
		"%": "__mod",
	}
)

var compileOptions = buildOptions()

func buildOptions() []expr.Option {
	opts := []expr.Option{
		expr.Env(constants),
		expr.DisableAllBuiltins(),
		expr.Patch(checkedArithmetic{}),
		expr.Function("__div", binary(func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errors.New("division by zero")
			}
			return a / b, nil
		})),
		expr.Function("__mod", binary(func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errors.New("modulo by zero")
			}
			return math.Mod(a, b), nil
		})),
	}
	for name, fn := range functions {
		opts = append(opts, expr.Function(name, unary(name, fn)))
	}
	return opts
}

// Evaluate computes an arithmetic expression. It supports + - * / % and
// right-associative ^ (or **), parentheses, unary signs, the constants pi
// and e, and single-argument functions such as sqrt and log.
func Evaluate(expression string) (float64, error) {
	program, err := expr.Compile(expression, compileOptions...)
	if err != nil {
		return 0, fmt.Errorf("invalid expression: %w", err)
	}

	out, err := expr.Run(program, constants)
	if err != nil {
		return 0, unwrapRuntime(err)
	}

	v, err := toFloat(out)
	if err != nil {
		return 0, fmt.Errorf("result: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("result is not a finite number")
	}
	return v, nil
}

// checkedArithmetic rewrites a / b and a % b into calls of the checked
// division and modulo functions.
type checkedArithmetic struct{}

func (checkedArithmetic) Visit(node *ast.Node) {
	b, ok := (*node).(*ast.BinaryNode)
	if !ok {
		return
	}
	name, ok := checkedOps[b.Operator]
	if !ok {
		return
	}
	ast.Patch(node, &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: name},
		Arguments: []ast.Node{b.Left, b.Right},
	})
}

func unary(name string, fn func(float64) float64) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s takes one argument, got %d", name, len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return fn(x), nil
	}
}

func binary(fn func(a, b float64) (float64, error)) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("expected two operands, got %d", len(params))
		}
		a, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		b, err := toFloat(params[1])
		if err != nil {
			return nil, err
		}
		return fn(a, b)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%v is not a number", v)
	}
}

// unwrapRuntime strips the position decoration the VM adds to errors raised
// by the checked functions.
func unwrapRuntime(err error) error {
	for _, msg := range []string{"division by zero", "modulo by zero"} {
		if strings.Contains(err.Error(), msg) {
			return errors.New(msg)
		}
	}
	return fmt.Errorf("evaluate: %w", err)
}
