package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jexl-go/jexl/pkg/jexl"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var optionsPath string

var rootCmd = &cobra.Command{
	Use:   "jexl",
	Short: "JEXL expression and script evaluator",
	Long: `jexl evaluates JEXL expressions, scripts, and JXLT templates.

JEXL is a small, Java-flavored embeddable expression and scripting
language: expressions and statements, lambdas, loops, structured
literals, safe navigation, annotations, and pragmas, evaluated against
a dynamic context.`,
	Version: Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().StringVar(&optionsPath, "options", "", "YAML options file (strict/safe/silent/namespaces/imports)")
}

// newEngine builds the engine every subcommand evaluates through, honoring
// the --options file when one is given.
func newEngine() (*jexl.Engine, error) {
	if optionsPath == "" {
		return jexl.New()
	}
	opts, err := jexl.LoadOptionsFile(optionsPath)
	if err != nil {
		return nil, err
	}
	return jexl.New(jexl.WithOptions(opts))
}

// readInput resolves a subcommand's source: the -e flag wins, otherwise the
// single positional argument names a file.
func readInput(eval string, args []string) (src, name string, err error) {
	if eval != "" {
		return eval, "<eval>", nil
	}
	if len(args) != 1 {
		return "", "", fmt.Errorf("either provide a file path or use -e flag for inline code")
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return string(content), args[0], nil
}
