package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jexl-go/jexl/internal/lexer"
	"github.com/jexl-go/jexl/pkg/token"
)

var (
	showPos    bool
	onlyErrors bool
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a JEXL file or expression",
	Long: `Tokenize (lex) JEXL source and print the resulting tokens.

Useful for debugging the lexer and understanding how source text is
tokenized.

Examples:
  # Tokenize a script file
  jexl lex script.jexl

  # Tokenize inline code
  jexl lex -e "x =~ [1, 2, 3]"

  # Show token positions
  jexl lex --show-pos script.jexl`,
	Args: cobra.MaximumNArgs(1),
	RunE: lexSource,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "tokenize inline code instead of reading from file")
	lexCmd.Flags().BoolVar(&showPos, "show-pos", false, "show token positions (line:column)")
	lexCmd.Flags().BoolVar(&onlyErrors, "only-errors", false, "show only lexical errors")
}

func lexSource(_ *cobra.Command, args []string) error {
	src, name, err := readInput(evalExpr, args)
	if err != nil {
		return err
	}
	toks, lexErrs := lexer.Tokenize(src, lexer.WithSourceName(name))
	if !onlyErrors {
		for _, t := range toks {
			if t.Type == token.EOF {
				break
			}
			if showPos {
				fmt.Printf("%d:%d\t%s\t%q\n", t.Pos.Line, t.Pos.Column, t.Type, t.Literal)
			} else {
				fmt.Printf("%s\t%q\n", t.Type, t.Literal)
			}
		}
	}
	for _, le := range lexErrs {
		fmt.Printf("error: %s\n", le)
	}
	if len(lexErrs) > 0 {
		return fmt.Errorf("%d lexical error(s)", len(lexErrs))
	}
	return nil
}
