package parser

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/pkg/token"
)

// castTypeNames are the primitive names recognized by the `(Type)x` cast
// operator.
var castTypeNames = map[string]bool{
	"int": true, "long": true, "boolean": true, "bool": true,
	"double": true, "float": true, "string": true, "decimal": true,
	"big": true,
}

func (p *Parser) parseIntLiteral(tok token.Token) *ast.IntLiteral {
	origin := toOrigin(tok.Pos)
	lit := tok.Literal
	suffix := ""
	if n := len(lit); n > 0 {
		switch lit[n-1] {
		case 'L', 'l':
			suffix, lit = "L", lit[:n-1]
		case 'H', 'h':
			suffix, lit = "H", lit[:n-1]
		}
	}
	if suffix == "H" {
		bi, ok := new(big.Int).SetString(lit, 10)
		if !ok {
			p.errorf(tok.Pos, "invalid integer literal %q", tok.Literal)
			bi = big.NewInt(0)
		}
		return ast.NewIntLiteral(origin, 0, bi, suffix)
	}
	if v, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return ast.NewIntLiteral(origin, v, nil, suffix)
	}
	bi, ok := new(big.Int).SetString(lit, 10)
	if !ok {
		p.errorf(tok.Pos, "invalid integer literal %q", tok.Literal)
		bi = big.NewInt(0)
	}
	return ast.NewIntLiteral(origin, 0, bi, suffix)
}

func (p *Parser) parseFloatLiteral(tok token.Token) *ast.FloatLiteral {
	origin := toOrigin(tok.Pos)
	lit := tok.Literal
	suffix := ""
	if n := len(lit); n > 0 {
		switch lit[n-1] {
		case 'f', 'F':
			suffix, lit = "f", lit[:n-1]
		case 'd', 'D':
			suffix, lit = "d", lit[:n-1]
		case 'B', 'b':
			suffix, lit = "B", lit[:n-1]
		}
	}
	if suffix == "B" {
		bf, _, err := big.ParseFloat(lit, 10, 64, big.ToNearestEven)
		if err != nil {
			p.errorf(tok.Pos, "invalid decimal literal %q", tok.Literal)
			bf = big.NewFloat(0)
		}
		return ast.NewFloatLiteral(origin, 0, bf, suffix)
	}
	if v, err := strconv.ParseFloat(lit, 64); err == nil {
		return ast.NewFloatLiteral(origin, v, nil, suffix)
	}
	bf, _, err := big.ParseFloat(lit, 10, 64, big.ToNearestEven)
	if err != nil {
		p.errorf(tok.Pos, "invalid decimal literal %q", tok.Literal)
		bf = big.NewFloat(0)
	}
	return ast.NewFloatLiteral(origin, 0, bf, suffix)
}

// parseTemplateString re-lexes the raw JSTRING body captured by the lexer
// into literal/expression chunks, recursively invoking the full expression
// grammar for each `${...}` span.
func (p *Parser) parseTemplateString(tok token.Token) *ast.TemplateStringExpr {
	origin := toOrigin(tok.Pos)
	var chunks []ast.TemplateChunk
	raw := tok.Literal
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			chunks = append(chunks, ast.TemplateChunk{Literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(raw) {
		switch {
		case raw[i] == '\\' && i+1 < len(raw):
			lit.WriteByte(unescapeTemplateByte(raw[i+1]))
			i += 2
		case raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{':
			depth := 1
			j := i + 2
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			exprSrc := raw[i+2 : j]
			flush()
			sub, errs := ParseExpression(exprSrc, tok.Pos.Name, p.feats)
			if len(errs) > 0 {
				p.errs = append(p.errs, errs...)
				chunks = append(chunks, ast.TemplateChunk{Expr: ast.NewNullLiteral(origin)})
			} else {
				chunks = append(chunks, ast.TemplateChunk{Expr: sub.X})
			}
			if j < len(raw) {
				i = j + 1
			} else {
				i = j
			}
		default:
			lit.WriteByte(raw[i])
			i++
		}
	}
	flush()
	return ast.NewTemplateStringExpr(origin, chunks)
}

func unescapeTemplateByte(b byte) byte {
	switch b {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return b
	}
}
