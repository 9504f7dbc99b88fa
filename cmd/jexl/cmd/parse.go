package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse JEXL source and print the reconstructed program",
	Long: `Parse JEXL source into an AST and print the debug printer's
reconstruction, plus any pragmas the script declares.

Examples:
  # Parse a script file
  jexl parse script.jexl

  # Parse inline code
  jexl parse -e "for (var i : 1..3) x = x + i"`,
	Args: cobra.MaximumNArgs(1),
	RunE: parseSource,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "parse inline code instead of reading from file")
}

func parseSource(_ *cobra.Command, args []string) error {
	src, _, err := readInput(evalExpr, args)
	if err != nil {
		return err
	}
	engine, err := newEngine()
	if err != nil {
		return err
	}
	script, err := engine.CreateScript(src)
	if err != nil {
		return err
	}
	fmt.Println(script.ParsedText())
	if pragmas := script.Pragmas(); len(pragmas) > 0 {
		fmt.Println()
		for k, v := range pragmas {
			fmt.Printf("#pragma %s %v\n", k, v)
		}
	}
	return nil
}
