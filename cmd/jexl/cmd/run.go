package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jexl-go/jexl/pkg/jexl"
)

var (
	evalExpr string
	varPairs []string
	jsonCtx  string
	asExpr   bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a JEXL script or expression",
	Long: `Evaluate a JEXL script from a file or inline source and print the result.

Examples:
  # Run a script file
  jexl run script.jexl

  # Evaluate inline code
  jexl run -e "var x = 40; x + 2"

  # Bind context variables
  jexl run -e "a + b" --var a=40 --var b=2

  # Import a JSON document as the context
  jexl run -e "user.name" --json '{"user":{"name":"ada"}}'

  # Expression-only mode (no statements allowed)
  jexl run --expr -e "1 + 2 * 3"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline code instead of reading from file")
	runCmd.Flags().StringArrayVar(&varPairs, "var", nil, "context variable as name=value (value parsed as JEXL)")
	runCmd.Flags().StringVar(&jsonCtx, "json", "", "JSON document decoded into the context")
	runCmd.Flags().BoolVar(&asExpr, "expr", false, "parse as a single expression instead of a script")
}

func runScript(_ *cobra.Command, args []string) error {
	src, _, err := readInput(evalExpr, args)
	if err != nil {
		return err
	}
	engine, err := newEngine()
	if err != nil {
		return err
	}
	ctx, err := buildContext(engine)
	if err != nil {
		return err
	}

	var result any
	if asExpr {
		expr, err := engine.CreateExpression(src)
		if err != nil {
			return err
		}
		result, err = expr.Evaluate(ctx)
		if err != nil {
			return err
		}
	} else {
		script, err := engine.CreateScript(src)
		if err != nil {
			return err
		}
		result, err = script.Execute(ctx)
		if err != nil {
			return err
		}
	}

	out, err := jexl.ToJSON(result)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// buildContext assembles the evaluation context from --json and --var flags;
// each --var value is itself evaluated as a JEXL expression.
func buildContext(engine *jexl.Engine) (jexl.Context, error) {
	vars := map[string]any{}
	if jsonCtx != "" {
		decoded, err := jexl.FromJSON(jsonCtx)
		if err != nil {
			return nil, err
		}
		m, ok := decoded.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("--json must hold a JSON object")
		}
		vars = m
	}
	ctx := jexl.NewMapContext(vars)
	for _, pair := range varPairs {
		name, value, ok := splitPair(pair)
		if !ok {
			return nil, fmt.Errorf("--var %q is not name=value", pair)
		}
		expr, err := engine.CreateExpression(value)
		if err != nil {
			return nil, fmt.Errorf("--var %s: %w", name, err)
		}
		v, err := expr.Evaluate(jexl.NewMapContext(nil))
		if err != nil {
			return nil, fmt.Errorf("--var %s: %w", name, err)
		}
		if err := ctx.Set(name, v); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

func splitPair(pair string) (name, value string, ok bool) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '=' {
			if i == 0 {
				return "", "", false
			}
			return pair[:i], pair[i+1:], true
		}
	}
	return "", "", false
}
