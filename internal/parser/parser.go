// Package parser implements the JEXL recursive-descent parser: it turns a
// buffered token stream into an AST, enforcing both grammar and the active
// feature gate. Disabled-feature rejections name the feature in the error.
package parser

import (
	jexlerrors "github.com/jexl-go/jexl/errors"
	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/features"
	"github.com/jexl-go/jexl/internal/lexer"
	"github.com/jexl-go/jexl/pkg/token"
)

// Parser turns a token stream into an AST under a fixed feature.Set.
type Parser struct {
	tokens   []token.Token
	pos      int
	feats    features.Set
	sourceN  string
	errs     []*jexlerrors.JexlError
	pragmas  []*ast.PragmaStmt
	loopDep  int  // > 0 while inside a loop body (gates break/continue/remove)
	stmtSeen bool // a non-pragma statement has been parsed (gates pragmaAnywhere)
}

// New builds a Parser over pre-tokenized src.
func New(tokens []token.Token, sourceName string, feats features.Set) *Parser {
	return &Parser{tokens: tokens, feats: feats, sourceN: sourceName}
}

// ParseExpression parses src as a single Expression root: no statements or
// blocks are permitted regardless of the script feature.
func ParseExpression(src, sourceName string, feats features.Set) (*ast.Expression, []*jexlerrors.JexlError) {
	toks, lexErrs := lexer.Tokenize(src, lexer.WithSourceName(sourceName))
	p := New(toks, sourceName, feats)
	for _, le := range lexErrs {
		p.errs = append(p.errs, jexlerrors.New(jexlerrors.Parsing, toErrOrigin(le.Pos), "%s", le.Message))
	}
	origin := toOrigin(p.cur().Pos)
	x := p.parseExpr()
	if !p.atEOF() {
		p.errorf(p.cur().Pos, "unexpected token %s after expression", p.cur().Type)
	}
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return &ast.Expression{Pos: origin, X: x}, nil
}

// ParseScript parses src as a statement-sequence root. It is rejected with a
// Feature error if the script feature is disabled.
func ParseScript(src, sourceName string, feats features.Set) (*ast.Script, []*jexlerrors.JexlError) {
	toks, lexErrs := lexer.Tokenize(src, lexer.WithSourceName(sourceName))
	p := New(toks, sourceName, feats)
	for _, le := range lexErrs {
		p.errs = append(p.errs, jexlerrors.New(jexlerrors.Parsing, toErrOrigin(le.Pos), "%s", le.Message))
	}
	if !feats.Has(features.Script) {
		p.errorFeature(p.cur().Pos, "script", "statements are not permitted (script feature disabled)")
	}
	origin := toOrigin(p.cur().Pos)
	var stmts []ast.Stmt
	for !p.atEOF() {
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
			if _, isPragma := s.(*ast.PragmaStmt); !isPragma {
				p.stmtSeen = true
			}
		}
	}
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return &ast.Script{Pos: origin, Body: stmts, Pragmas: p.pragmas}, nil
}

func toOrigin(pos token.Position) ast.Origin {
	return ast.Origin{Name: pos.Name, Line: pos.Line, Column: pos.Column}
}

func toErrOrigin(pos token.Position) jexlerrors.Origin {
	return jexlerrors.Origin{Name: pos.Name, Line: pos.Line, Column: pos.Column}
}

// ---- token stream helpers ----

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.cur().Type == token.EOF }

func (p *Parser) mark() int { return p.pos }

func (p *Parser) reset(m int) { p.pos = m }

func (p *Parser) is(tt token.Type) bool { return p.cur().Type == tt }

func (p *Parser) accept(tt token.Type) bool {
	if p.is(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt token.Type) token.Token {
	if !p.is(tt) {
		p.errorf(p.cur().Pos, "expected %s, found %s %q", tt, p.cur().Type, p.cur().Literal)
		return p.cur()
	}
	return p.advance()
}

func (p *Parser) errorf(pos token.Position, format string, args ...any) {
	p.errs = append(p.errs, jexlerrors.New(jexlerrors.Parsing, toErrOrigin(pos), format, args...))
}

func (p *Parser) errorFeature(pos token.Position, feature, detail string) {
	p.errs = append(p.errs, jexlerrors.New(jexlerrors.Feature, toErrOrigin(pos), "%s", detail).WithSymbol(feature))
}

func (p *Parser) require(flag features.Flag, name string, pos token.Position, detail string) bool {
	if !p.feats.Has(flag) {
		p.errorFeature(pos, name, detail)
		return false
	}
	return true
}
