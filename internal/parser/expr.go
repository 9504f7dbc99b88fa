package parser

import (
	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/features"
	"github.com/jexl-go/jexl/pkg/token"
)

// parseExpr parses a full expression at the lowest precedence level
// (ternary / elvis / null-coalescing).
func (p *Parser) parseExpr() ast.Expr {
	return p.parseTernary()
}

func (p *Parser) parseTernary() ast.Expr {
	origin := toOrigin(p.cur().Pos)
	cond := p.parseOr()
	switch {
	case p.accept(token.QUESTION):
		then := p.parseExpr()
		p.expect(token.COLON)
		els := p.parseExpr()
		return ast.NewTernaryExpr(origin, cond, then, els)
	case p.accept(token.ELVIS):
		els := p.parseExpr()
		return ast.NewTernaryExpr(origin, cond, nil, els)
	case p.accept(token.COALESCE):
		right := p.parseExpr()
		return ast.NewCoalesceExpr(origin, cond, right)
	default:
		return cond
	}
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.is(token.OR) {
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseAnd()
		left = ast.NewBinaryExpr(origin, token.OR, left, right)
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseBitOr()
	for p.is(token.AND) {
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseBitOr()
		left = ast.NewBinaryExpr(origin, token.AND, left, right)
	}
	return left
}

func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseBitXor()
	for p.is(token.PIPE) {
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseBitXor()
		left = ast.NewBinaryExpr(origin, token.PIPE, left, right)
	}
	return left
}

func (p *Parser) parseBitXor() ast.Expr {
	left := p.parseBitAnd()
	for p.is(token.CARET) {
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseBitAnd()
		left = ast.NewBinaryExpr(origin, token.CARET, left, right)
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expr {
	left := p.parseEquality()
	for p.is(token.AMP) {
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseEquality()
		left = ast.NewBinaryExpr(origin, token.AMP, left, right)
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for {
		op, ok := p.equalityOp()
		if !ok {
			return left
		}
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseComparison()
		left = ast.NewBinaryExpr(origin, op, left, right)
	}
}

func (p *Parser) equalityOp() (token.Type, bool) {
	switch p.cur().Type {
	case token.EQ, token.NE:
		return p.cur().Type, true
	case token.EQ_WORD, token.NE_WORD:
		if p.feats.Has(features.ComparatorNames) {
			return p.cur().Type, true
		}
	}
	return token.ILLEGAL, false
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseShift()
	for {
		op, ok := p.comparisonOp()
		if !ok {
			return left
		}
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseShift()
		left = ast.NewBinaryExpr(origin, op, left, right)
	}
}

func (p *Parser) comparisonOp() (token.Type, bool) {
	switch p.cur().Type {
	case token.LT, token.LE, token.GT, token.GE,
		token.MATCH, token.NOMATCH, token.STARTS, token.ENDS, token.NSTARTS, token.NENDS, token.IN:
		return p.cur().Type, true
	case token.LT_WORD, token.LE_WORD, token.GT_WORD, token.GE_WORD:
		if p.feats.Has(features.ComparatorNames) {
			return p.cur().Type, true
		}
	}
	return token.ILLEGAL, false
}

func (p *Parser) parseShift() ast.Expr {
	left := p.parseAdditive()
	for p.is(token.SHL) || p.is(token.SHR) || p.is(token.USHR) {
		op := p.cur().Type
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseAdditive()
		left = ast.NewBinaryExpr(origin, op, left, right)
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.is(token.PLUS) || p.is(token.MINUS) {
		op := p.cur().Type
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseMultiplicative()
		left = ast.NewBinaryExpr(origin, op, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.is(token.STAR) || p.is(token.SLASH) || p.is(token.PERCENT) {
		op := p.cur().Type
		origin := toOrigin(p.cur().Pos)
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinaryExpr(origin, op, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	origin := toOrigin(p.cur().Pos)
	if cast, ok := p.tryParseCast(); ok {
		return cast
	}
	switch p.cur().Type {
	case token.MINUS, token.PLUS, token.BANG, token.TILDE:
		op := p.cur().Type
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnaryExpr(origin, op, operand, false)
	case token.INC, token.DEC:
		op := p.cur().Type
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnaryExpr(origin, op, operand, false)
	default:
		return p.parseRange()
	}
}

// parseRange handles the primary-level `a..b` inclusive range operator.
func (p *Parser) parseRange() ast.Expr {
	origin := toOrigin(p.cur().Pos)
	left := p.parsePostfix()
	if p.accept(token.RANGE) {
		right := p.parsePostfix()
		return ast.NewRangeExpr(origin, left, right)
	}
	return left
}

// tryParseCast recognizes `(TypeName)operand` without committing; on
// mismatch the token position is restored so the parens fall through to a
// normal grouped expression or lambda parameter list.
func (p *Parser) tryParseCast() (ast.Expr, bool) {
	if !p.is(token.LPAREN) {
		return nil, false
	}
	m := p.mark()
	origin := toOrigin(p.cur().Pos)
	p.advance() // (
	if !p.is(token.IDENT) || !castTypeNames[p.cur().Literal] {
		p.reset(m)
		return nil, false
	}
	typeName := p.advance().Literal
	if !p.is(token.RPAREN) {
		p.reset(m)
		return nil, false
	}
	p.advance() // )
	if !canStartUnary(p.cur().Type) {
		p.reset(m)
		return nil, false
	}
	operand := p.parseUnary()
	return ast.NewCastExpr(origin, typeName, operand), true
}

func canStartUnary(t token.Type) bool {
	switch t {
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.JSTRING, token.REGEX,
		token.TRUE, token.FALSE, token.NULL, token.LPAREN, token.LBRACKET, token.LBRACE,
		token.MINUS, token.PLUS, token.BANG, token.TILDE, token.INC, token.DEC, token.NEW:
		return true
	default:
		return false
	}
}

// parsePostfix parses a primary expression followed by any chain of postfix
// operators: member access (plain/safe/templated), indexing (plain/safe),
// calls, and postfix increment/decrement. A run of plain `.ident` segments
// off a bare identifier is collected as a single AntishIdent candidate; the
// interpreter decides lazily whether it resolves as one variable or as a
// member chain.
func (p *Parser) parsePostfix() ast.Expr {
	x := p.parseAntishOrPrimary()
	for {
		origin := toOrigin(p.cur().Pos)
		switch {
		case p.is(token.DOT):
			p.advance()
			if p.is(token.JSTRING) {
				tmpl := p.parseTemplateString(p.advance())
				x = ast.NewTemplateMember(origin, x, tmpl, false)
				continue
			}
			name := p.identLikeName()
			x = ast.NewMember(origin, x, name, false)
		case p.is(token.SAFEDOT):
			p.advance()
			if p.is(token.JSTRING) {
				tmpl := p.parseTemplateString(p.advance())
				x = ast.NewTemplateMember(origin, x, tmpl, true)
				continue
			}
			name := p.identLikeName()
			x = ast.NewMember(origin, x, name, true)
		case p.is(token.LBRACKET):
			p.require(features.ArrayReferenceExpr, "arrayReferenceExpr", p.cur().Pos, "indexed access expressions are disabled")
			p.advance()
			key := p.parseExpr()
			p.expect(token.RBRACKET)
			x = ast.NewIndex(origin, x, key, false)
		case p.is(token.SAFEIDX):
			p.require(features.ArrayReferenceExpr, "arrayReferenceExpr", p.cur().Pos, "indexed access expressions are disabled")
			p.advance()
			key := p.parseExpr()
			p.expect(token.RBRACKET)
			x = ast.NewIndex(origin, x, key, true)
		case p.is(token.LPAREN):
			switch x.(type) {
			case *ast.Member, *ast.TemplateMember, *ast.AntishIdent:
				p.require(features.MethodCall, "methodCall", p.cur().Pos, "method calls are disabled")
			}
			p.advance()
			args := p.parseArgListUntil(token.RPAREN)
			p.expect(token.RPAREN)
			x = ast.NewCallExpr(origin, x, args)
		case p.is(token.INC) || p.is(token.DEC):
			op := p.cur().Type
			p.advance()
			x = ast.NewUnaryExpr(origin, op, x, true)
		default:
			return x
		}
	}
}

// identLikeName accepts an IDENT, or a keyword used as an identifier
// immediately after a dot, so antish names ending in a keyword-shaped
// segment still parse.
func (p *Parser) identLikeName() string {
	if p.is(token.IDENT) || isKeywordType(p.cur().Type) {
		return p.advance().Literal
	}
	return p.expect(token.IDENT).Literal
}

var keywordTypeSet = func() map[token.Type]bool {
	m := make(map[token.Type]bool, len(token.Keywords))
	for _, t := range token.Keywords {
		m[t] = true
	}
	return m
}()

func isKeywordType(t token.Type) bool { return keywordTypeSet[t] }

// parseAntishOrPrimary parses a bare identifier and, if followed by a run of
// plain `.ident` segments, accumulates them into an AntishIdent instead of
// nested Member nodes.
func (p *Parser) parseAntishOrPrimary() ast.Expr {
	if !p.is(token.IDENT) {
		return p.parsePrimary()
	}
	// Namespace-call form `prefix:name(args)` — narrow lookahead so it never
	// shadows the ordinary ternary `? then : else` colon.
	if p.peekAt(1).Type == token.COLON && p.peekAt(2).Type == token.IDENT && p.peekAt(3).Type == token.LPAREN {
		origin := toOrigin(p.cur().Pos)
		prefix := p.advance().Literal
		p.advance() // :
		name := p.advance().Literal
		return ast.NewIdent(origin, prefix+":"+name)
	}

	origin := toOrigin(p.cur().Pos)
	first := p.advance().Literal
	segments := []string{first}
	for p.is(token.DOT) && p.peekAt(1).Type == token.IDENT {
		p.advance() // .
		segments = append(segments, p.advance().Literal)
	}
	if len(segments) == 1 {
		return ast.NewIdent(origin, first)
	}
	return ast.NewAntishIdent(origin, segments)
}

func (p *Parser) parsePrimary() ast.Expr {
	origin := toOrigin(p.cur().Pos)
	tok := p.cur()

	switch tok.Type {
	case token.INT:
		p.advance()
		return p.parseIntLiteral(tok)
	case token.FLOAT:
		p.advance()
		return p.parseFloatLiteral(tok)
	case token.STRING:
		p.advance()
		return ast.NewStringLiteral(origin, tok.Literal)
	case token.JSTRING:
		p.advance()
		return p.parseTemplateString(tok)
	case token.REGEX:
		p.advance()
		return ast.NewRegexLiteral(origin, tok.Literal)
	case token.TRUE:
		p.advance()
		return ast.NewBoolLiteral(origin, true)
	case token.FALSE:
		p.advance()
		return ast.NewBoolLiteral(origin, false)
	case token.NULL:
		p.advance()
		return ast.NewNullLiteral(origin)
	case token.ELLIPSIS:
		p.advance()
		return ast.NewSpreadExpr(origin, p.parseExpr())
	case token.NEW:
		return p.parseNew()
	case token.FUNCTION:
		return p.parseFunctionLambda()
	case token.LBRACKET:
		return p.parseArrayLiteral()
	case token.LBRACE:
		return p.parseSetOrMapLiteral()
	case token.LPAREN:
		if lam, ok := p.tryParseLambda(); ok {
			return lam
		}
		p.advance()
		x := p.parseExpr()
		p.expect(token.RPAREN)
		return ast.NewParen(origin, x)
	case token.IDENT:
		// Reached only via a direct parsePrimary call site; parsePostfix
		// always routes plain identifiers through parseAntishOrPrimary first.
		return p.parseAntishOrPrimary()
	}

	p.errorf(tok.Pos, "unexpected token %s %q", tok.Type, tok.Literal)
	p.advance()
	return ast.NewNullLiteral(origin)
}

func (p *Parser) parseNew() ast.Expr {
	origin := toOrigin(p.cur().Pos)
	p.require(features.NewInstance, "newInstance", p.cur().Pos, "object instantiation is disabled")
	p.advance() // new
	if p.accept(token.LPAREN) {
		// new(ClassNameExpr, args...)
		class := p.parseExpr()
		var args []ast.Expr
		for p.accept(token.COMMA) {
			args = append(args, p.parseArgOrSpread())
		}
		p.expect(token.RPAREN)
		return ast.NewNewExpr(origin, class, args)
	}
	// new ClassName(args...)
	nameOrigin := toOrigin(p.cur().Pos)
	name := p.identLikeName()
	class := ast.Expr(ast.NewIdent(nameOrigin, name))
	for p.is(token.DOT) {
		p.advance()
		name = p.identLikeName()
		class = ast.NewMember(toOrigin(p.cur().Pos), class, name, false)
	}
	var args []ast.Expr
	if p.accept(token.LPAREN) {
		args = p.parseArgListUntil(token.RPAREN)
		p.expect(token.RPAREN)
	}
	return ast.NewNewExpr(origin, class, args)
}

func (p *Parser) parseFunctionLambda() ast.Expr {
	origin := toOrigin(p.cur().Pos)
	p.require(features.Lambda, "lambda", p.cur().Pos, "lambdas are disabled")
	p.advance() // function
	p.expect(token.LPAREN)
	params := p.parseParamList()
	p.expect(token.RPAREN)
	body := p.parseLambdaBody()
	return ast.NewLambda(origin, params, body, false)
}

// tryParseLambda recognizes `(a, b) -> ...` / `(a, b) => ...` / `() -> ...`
// without committing; on mismatch the position is restored.
func (p *Parser) tryParseLambda() (ast.Expr, bool) {
	m := p.mark()
	origin := toOrigin(p.cur().Pos)
	p.advance() // (
	var params []ast.Param
	for !p.is(token.RPAREN) && !p.atEOF() {
		if !p.is(token.IDENT) {
			p.reset(m)
			return nil, false
		}
		params = append(params, ast.Param{Name: p.advance().Literal})
		if !p.accept(token.COMMA) {
			break
		}
	}
	if !p.is(token.RPAREN) {
		p.reset(m)
		return nil, false
	}
	p.advance() // )
	fatArrow := false
	switch {
	case p.is(token.ARROW):
		p.advance()
	case p.is(token.FATARROW):
		p.require(features.FatArrow, "fatArrow", p.cur().Pos, "fat-arrow lambdas are disabled")
		fatArrow = true
		p.advance()
	default:
		p.reset(m)
		return nil, false
	}
	p.require(features.Lambda, "lambda", p.cur().Pos, "lambdas are disabled")
	body := p.parseLambdaBody()
	return ast.NewLambda(origin, params, body, fatArrow), true
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	for !p.is(token.RPAREN) && !p.atEOF() {
		params = append(params, ast.Param{Name: p.expect(token.IDENT).Literal})
		if !p.accept(token.COMMA) {
			break
		}
	}
	return params
}

// parseLambdaBody parses either a `{ stmt* }` block body or a single
// expression body, which is wrapped as an implicit `return`.
func (p *Parser) parseLambdaBody() []ast.Stmt {
	if p.is(token.LBRACE) {
		return p.parseBlock().Stmts
	}
	origin := toOrigin(p.cur().Pos)
	x := p.parseExpr()
	return []ast.Stmt{ast.NewReturnStmt(origin, x)}
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	origin := toOrigin(p.cur().Pos)
	p.require(features.StructuredLiteral, "structuredLiteral", p.cur().Pos, "structured literals are disabled")
	p.advance() // [
	elems := p.parseArgListUntil(token.RBRACKET)
	p.expect(token.RBRACKET)
	return ast.NewArrayLiteral(origin, elems)
}

// parseSetOrMapLiteral disambiguates `{1,2,3}` (set) from `{k:v,...}` (map)
// by looking for a top-level colon (outside of nested structures) before the
// first comma or closing brace.
func (p *Parser) parseSetOrMapLiteral() ast.Expr {
	origin := toOrigin(p.cur().Pos)
	p.require(features.StructuredLiteral, "structuredLiteral", p.cur().Pos, "structured literals are disabled")
	p.advance() // {
	if p.is(token.RBRACE) {
		p.advance()
		return ast.NewSetLiteral(origin, nil)
	}
	if p.looksLikeMapEntry() {
		return p.parseMapLiteralBody(origin)
	}
	elems := p.parseArgListUntil(token.RBRACE)
	p.expect(token.RBRACE)
	return ast.NewSetLiteral(origin, elems)
}

// looksLikeMapEntry scans ahead, without consuming, for a COLON at paren/
// bracket/brace depth 0 before the first top-level COMMA or the closing
// RBRACE, or a leading `*:` spread-all marker.
func (p *Parser) looksLikeMapEntry() bool {
	if p.is(token.STAR) && p.peekAt(1).Type == token.COLON {
		return true
	}
	depth := 0
	for i := 0; ; i++ {
		t := p.peekAt(i)
		switch t.Type {
		case token.LPAREN, token.LBRACKET, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACKET:
			depth--
		case token.RBRACE:
			if depth == 0 {
				return false
			}
			depth--
		case token.COMMA:
			if depth == 0 {
				return false
			}
		case token.COLON:
			if depth == 0 {
				return true
			}
		case token.EOF:
			return false
		}
	}
}

func (p *Parser) parseMapLiteralBody(origin ast.Origin) ast.Expr {
	var entries []ast.MapEntry
	var spreadAll ast.Expr
	for !p.is(token.RBRACE) && !p.atEOF() {
		if p.is(token.STAR) && p.peekAt(1).Type == token.COLON {
			p.advance() // *
			p.advance() // :
			spreadAll = p.parseExpr()
		} else {
			key := p.parseExpr()
			p.expect(token.COLON)
			val := p.parseExpr()
			entries = append(entries, ast.MapEntry{Key: key, Value: val})
		}
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE)
	return ast.NewMapLiteral(origin, entries, spreadAll)
}

// parseArgOrSpread parses one element of an argument/array/set list,
// supporting the `...x` spread form.
func (p *Parser) parseArgOrSpread() ast.Expr {
	if p.is(token.ELLIPSIS) {
		origin := toOrigin(p.cur().Pos)
		p.advance()
		return ast.NewSpreadExpr(origin, p.parseExpr())
	}
	return p.parseExpr()
}

func (p *Parser) parseArgListUntil(end token.Type) []ast.Expr {
	var list []ast.Expr
	for !p.is(end) && !p.atEOF() {
		list = append(list, p.parseArgOrSpread())
		if !p.accept(token.COMMA) {
			break
		}
	}
	return list
}

// parseExprListUntil parses a plain (non-spread) comma-separated expression
// list, used for annotation argument lists.
func (p *Parser) parseExprListUntil(end token.Type) []ast.Expr {
	var list []ast.Expr
	for !p.is(end) && !p.atEOF() {
		list = append(list, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	return list
}
