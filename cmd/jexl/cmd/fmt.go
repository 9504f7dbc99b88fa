package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	fmtWrite bool // -w: write result back to the source file
	fmtList  bool // -l: list files whose formatting differs
)

var fmtCmd = &cobra.Command{
	Use:   "fmt [files...]",
	Short: "Format JEXL source files",
	Long: `Format JEXL source files by parsing them and printing the AST back
to canonical source text.

By default the formatted text is written to standard output.

Examples:
  # Format a file to stdout
  jexl fmt rules.jexl

  # Overwrite files in place
  jexl fmt -w rules.jexl more.jexl

  # List files that differ from their formatted form
  jexl fmt -l *.jexl`,
	Args: cobra.MinimumNArgs(1),
	RunE: formatFiles,
}

func init() {
	rootCmd.AddCommand(fmtCmd)

	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "write result to source file instead of stdout")
	fmtCmd.Flags().BoolVarP(&fmtList, "list", "l", false, "list files whose formatting differs")
}

func formatFiles(_ *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", path, err)
		}
		script, err := engine.CreateScript(string(content))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		formatted := script.ParsedText() + "\n"
		switch {
		case fmtList:
			if formatted != string(content) {
				fmt.Println(path)
			}
		case fmtWrite:
			if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
				return err
			}
		default:
			fmt.Print(formatted)
		}
	}
	return nil
}
