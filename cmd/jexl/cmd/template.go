package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template [file]",
	Short: "Render a JXLT template",
	Long: `Render a JXLT template against a context to standard output.

Templates interleave literal text with ${expr} (immediate) and #{expr}
(deferred) interpolations; lines starting with $$ are script statements.

Examples:
  # Render a template with a JSON context
  jexl template report.jxlt --json '{"user":{"name":"ada"}}'

  # Render inline template text
  jexl template -e 'Hello ${who}!' --var who="'world'"`,
	Args: cobra.MaximumNArgs(1),
	RunE: renderTemplate,
}

func init() {
	rootCmd.AddCommand(templateCmd)

	templateCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "render inline template text instead of reading from file")
	templateCmd.Flags().StringArrayVar(&varPairs, "var", nil, "context variable as name=value (value parsed as JEXL)")
	templateCmd.Flags().StringVar(&jsonCtx, "json", "", "JSON document decoded into the context")
}

func renderTemplate(_ *cobra.Command, args []string) error {
	src, name, err := readInput(evalExpr, args)
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
	tmpl, err := engine.CreateJxltEngine().CreateTemplate(name, src)
	if err != nil {
		return err
	}
	return tmpl.Evaluate(ctx, os.Stdout)
}
