package jexl

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/jexl-go/jexl/internal/options"
)

// optionsFile is the YAML shape of an engine options document. Absent keys
// keep the engine defaults.
type optionsFile struct {
	Strict       *bool             `yaml:"strict"`
	Safe         *bool             `yaml:"safe"`
	Silent       *bool             `yaml:"silent"`
	Cancellable  *bool             `yaml:"cancellable"`
	Lexical      *bool             `yaml:"lexical"`
	LexicalShade *bool             `yaml:"lexicalShade"`
	Antish       *bool             `yaml:"antish"`
	MathScale    *int              `yaml:"mathScale"`
	MathContext  string            `yaml:"mathContext"`
	Namespaces   map[string]string `yaml:"namespaces"`
	Imports      []string          `yaml:"imports"`
}

// ParseOptions decodes a YAML options document over the engine defaults.
func ParseOptions(src []byte) (*Options, error) {
	var f optionsFile
	if err := yaml.Unmarshal(src, &f); err != nil {
		return nil, fmt.Errorf("jexl: options file: %w", err)
	}
	o := options.Default()
	apply := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&o.Strict, f.Strict)
	apply(&o.Safe, f.Safe)
	apply(&o.Silent, f.Silent)
	apply(&o.Cancellable, f.Cancellable)
	apply(&o.Lexical, f.Lexical)
	apply(&o.LexicalShade, f.LexicalShade)
	apply(&o.Antish, f.Antish)
	if f.MathScale != nil {
		o.MathScale = *f.MathScale
	}
	if f.MathContext != "" {
		o.MathContext = f.MathContext
	}
	for prefix, fqcn := range f.Namespaces {
		o.Namespaces[prefix] = fqcn
	}
	o.Imports = append(o.Imports, f.Imports...)
	return o, nil
}

// LoadOptionsFile reads and decodes a YAML options file.
func LoadOptionsFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jexl: options file: %w", err)
	}
	return ParseOptions(data)
}
