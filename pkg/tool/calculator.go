package tool

import (
	"context"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/utils/logging"
	"github.com/traefik/yaegi/interp"
	"github.com/urfave/cli/v3"
)

// InvalidExpression is returned by Calculate for any expression that cannot be evaluated
const InvalidExpression = "Invalid expression"

const defaultEvalTimeout = 2 * time.Second

// Calculate evaluates a Go expression and returns its value as text, or InvalidExpression.
// Division is always floating point. The interpreter has no standard library symbols loaded,
// so expressions cannot import packages.
func Calculate(ctx context.Context, expression string) string {
	return calculate(ctx, expression, defaultEvalTimeout)
}

func calculate(ctx context.Context, expression string, timeout time.Duration) string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := evaluate(ctx, expression)
	if err != nil {
		logging.From(ctx).Debug("expression evaluation failed", "expression", expression, logging.ErrAttr(err))
		return InvalidExpression
	}
	return result
}

func evaluate(ctx context.Context, expression string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerr.New("panic during evaluation", goerr.V("panic", r))
		}
	}()

	if strings.TrimSpace(expression) == "" {
		return "", goerr.New("empty expression")
	}

	src, err := trueDivision(expression)
	if err != nil {
		return "", err
	}

	i := interp.New(interp.Options{})
	v, err := i.EvalWithContext(ctx, src)
	if err != nil {
		return "", goerr.Wrap(err, "failed to evaluate", goerr.V("expression", expression))
	}
	if !v.IsValid() || !v.CanInterface() {
		return "", goerr.New("expression has no value", goerr.V("expression", expression))
	}

	return formatValue(v.Interface()), nil
}

// trueDivision rewrites every "a / b" to "float64(a) / float64(b)" so that 7/2 is 3.5
func trueDivision(expression string) (string, error) {
	expr, err := parser.ParseExpr(expression)
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse expression", goerr.V("expression", expression))
	}

	ast.Inspect(expr, func(n ast.Node) bool {
		if bin, ok := n.(*ast.BinaryExpr); ok && bin.Op == token.QUO {
			bin.X = toFloat(bin.X)
			bin.Y = toFloat(bin.Y)
		}
		return true
	})

	var b strings.Builder
	if err := format.Node(&b, token.NewFileSet(), expr); err != nil {
		return "", goerr.Wrap(err, "failed to print expression", goerr.V("expression", expression))
	}
	return b.String(), nil
}

func toFloat(x ast.Expr) ast.Expr {
	return &ast.CallExpr{Fun: ast.NewIdent("float64"), Args: []ast.Expr{x}}
}

// formatValue prints integral floats without a fractional part
func formatValue(v any) string {
	switch f := v.(type) {
	case float64:
		return strconv.FormatFloat(f, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(f), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

type calculator struct {
	timeout time.Duration
}

// NewCalculator creates the calculator tool
func NewCalculator() *calculator {
	return &calculator{timeout: defaultEvalTimeout}
}

func (x *calculator) Name() string { return "calculator" }

func (x *calculator) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "calculator-timeout",
			Usage:       "Maximum time to evaluate a calculator expression",
			Value:       defaultEvalTimeout,
			Sources:     cli.EnvVars("SCHOLAR_CALCULATOR_TIMEOUT"),
			Destination: &x.timeout,
		},
	}
}

func (x *calculator) Prompt(ctx context.Context) string {
	return `To compute a number instead of writing a report, reply with exactly:
TOOL:calculator
---
expression=<arithmetic expression, e.g. (3+4)*2>`
}

func (x *calculator) Execute(ctx context.Context, in *Input) (string, error) {
	timeout := x.timeout
	if timeout <= 0 {
		timeout = defaultEvalTimeout
	}
	return "Calculation result: " + calculate(ctx, in.Args["expression"], timeout), nil
}
