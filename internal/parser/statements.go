package parser

import (
	"strings"

	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/features"
	"github.com/jexl-go/jexl/pkg/token"
)

// parseStatement parses one top-level or block-level statement.
func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur().Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseFor()
	case token.BREAK:
		pos := p.advance().Pos
		p.accept(token.SEMI)
		if p.loopDep == 0 {
			p.errorf(pos, "break outside of loop")
		}
		return ast.NewBreakStmt(toOrigin(pos))
	case token.CONTINUE:
		pos := p.advance().Pos
		p.accept(token.SEMI)
		if p.loopDep == 0 {
			p.errorf(pos, "continue outside of loop")
		}
		return ast.NewContinueStmt(toOrigin(pos))
	case token.REMOVE:
		pos := p.advance().Pos
		p.accept(token.SEMI)
		if p.loopDep == 0 {
			p.errorf(pos, "remove outside of loop")
		}
		return ast.NewRemoveStmt(toOrigin(pos))
	case token.RETURN:
		return p.parseReturn()
	case token.VAR, token.LET, token.CONST:
		return p.parseVarDecl()
	case token.AT:
		return p.parseAnnotated()
	case token.HASH:
		return p.parsePragma()
	case token.SEMI:
		p.advance()
		return nil
	default:
		return p.parseSimpleStatement()
	}
}

func (p *Parser) parseBlock() *ast.Block {
	origin := toOrigin(p.cur().Pos)
	p.expect(token.LBRACE)
	var stmts []ast.Stmt
	for !p.is(token.RBRACE) && !p.atEOF() {
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
	}
	p.expect(token.RBRACE)
	return ast.NewBlock(origin, stmts)
}

func (p *Parser) parseIf() ast.Stmt {
	origin := toOrigin(p.cur().Pos)
	p.advance()
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	then := p.parseStatement()
	var els ast.Stmt
	if p.accept(token.ELSE) {
		els = p.parseStatement()
	}
	return wrapIf(origin, cond, then, els)
}

func (p *Parser) parseWhile() ast.Stmt {
	origin := toOrigin(p.cur().Pos)
	p.require(features.Loops, "loops", p.cur().Pos, "while loops are disabled")
	p.advance()
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	p.loopDep++
	body := p.parseStatement()
	p.loopDep--
	return wrapWhile(origin, cond, body)
}

func (p *Parser) parseDoWhile() ast.Stmt {
	origin := toOrigin(p.cur().Pos)
	p.require(features.Loops, "loops", p.cur().Pos, "do-while loops are disabled")
	p.advance()
	p.loopDep++
	body := p.parseStatement()
	p.loopDep--
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	p.accept(token.SEMI)
	return wrapDoWhile(origin, body, cond)
}

// parseFor disambiguates C-style `for(init;cond;step)` from for-each
// `for(var x : iterable)` by scanning for a top-level colon before the
// first semicolon.
func (p *Parser) parseFor() ast.Stmt {
	origin := toOrigin(p.cur().Pos)
	p.require(features.Loops, "loops", p.cur().Pos, "for loops are disabled")
	p.advance()
	p.expect(token.LPAREN)

	if p.looksLikeForEach() {
		declared := p.accept(token.VAR) || p.accept(token.LET) || p.accept(token.CONST)
		name := p.expect(token.IDENT).Literal
		p.expect(token.COLON)
		iterable := p.parseExpr()
		p.expect(token.RPAREN)
		p.loopDep++
		body := p.parseStatement()
		p.loopDep--
		return wrapForEach(origin, name, declared, iterable, body)
	}

	var initStmt ast.Stmt
	switch {
	case p.is(token.VAR) || p.is(token.LET) || p.is(token.CONST):
		// parseVarDecl consumes the `;` that ends the init clause.
		initStmt = p.parseVarDecl()
		if p.tokens[p.pos-1].Type != token.SEMI {
			p.expect(token.SEMI)
		}
	case !p.is(token.SEMI):
		initStmt = p.parseSimpleStatementNoSemi()
		p.expect(token.SEMI)
	default:
		p.expect(token.SEMI)
	}
	var cond ast.Expr
	if !p.is(token.SEMI) {
		cond = p.parseExpr()
	}
	p.expect(token.SEMI)
	var step ast.Stmt
	if !p.is(token.RPAREN) {
		step = p.parseSimpleStatementNoSemi()
	}
	p.expect(token.RPAREN)
	p.loopDep++
	body := p.parseStatement()
	p.loopDep--
	return wrapFor(origin, initStmt, cond, step, body)
}

// looksLikeForEach scans ahead, without consuming, for `[var|let|const] IDENT :`
// before the matching RPAREN / a top-level SEMI.
func (p *Parser) looksLikeForEach() bool {
	m := p.mark()
	defer p.reset(m)
	if p.is(token.VAR) || p.is(token.LET) || p.is(token.CONST) {
		p.advance()
	}
	if !p.is(token.IDENT) {
		return false
	}
	p.advance()
	return p.is(token.COLON)
}

func (p *Parser) parseReturn() ast.Stmt {
	origin := toOrigin(p.cur().Pos)
	p.advance()
	var val ast.Expr
	if !p.is(token.SEMI) && !p.is(token.RBRACE) && !p.atEOF() {
		val = p.parseExpr()
	}
	p.accept(token.SEMI)
	return wrapReturn(origin, val)
}

func (p *Parser) parseVarDecl() ast.Stmt {
	origin := toOrigin(p.cur().Pos)
	kind := p.advance().Type
	p.require(features.LocalVar, "localVar", p.tokens[p.pos-1].Pos, "local variable declarations are disabled")
	nameTok := p.expect(token.IDENT)
	if p.feats.IsReserved(nameTok.Literal) {
		p.errorf(nameTok.Pos, "%q is a reserved name and cannot be declared", nameTok.Literal)
	}
	var val ast.Expr
	if p.accept(token.ASSIGN) {
		val = p.parseExpr()
	}
	p.accept(token.SEMI)
	return wrapVarDecl(origin, kind, nameTok.Literal, val)
}

func (p *Parser) parseAnnotated() ast.Stmt {
	origin := toOrigin(p.cur().Pos)
	p.require(features.Annotation, "annotation", p.cur().Pos, "annotations are disabled")
	p.advance()
	name := p.expect(token.IDENT).Literal
	var args []ast.Expr
	if p.accept(token.LPAREN) {
		args = p.parseExprListUntil(token.RPAREN)
		p.expect(token.RPAREN)
	}
	body := p.parseStatement()
	return wrapAnnotated(origin, name, args, body)
}

func (p *Parser) parsePragma() ast.Stmt {
	origin := toOrigin(p.cur().Pos)
	p.require(features.Pragma, "pragma", p.cur().Pos, "pragmas are disabled")
	if p.stmtSeen {
		p.require(features.PragmaAnywhere, "pragmaAnywhere", p.cur().Pos, "pragmas after the first statement are disabled")
	}
	p.advance() // #
	word := p.expect(token.IDENT)
	if word.Literal != "pragma" {
		p.errorf(word.Pos, "expected \"pragma\" after #, found %q", word.Literal)
	}
	keyTok := p.cur()
	key := p.identLikeName()
	for p.is(token.DOT) {
		p.advance()
		key += "." + p.identLikeName()
	}
	var val ast.Expr
	if !p.is(token.SEMI) && !p.atEOF() {
		val = p.parseExpr()
	}
	p.accept(token.SEMI)
	stmt := wrapPragma(origin, key, val)
	p.pragmas = append(p.pragmas, stmt)

	if strings.HasPrefix(key, "jexl.namespace.") {
		p.require(features.NamespacePragma, "namespacePragma", keyTok.Pos, "namespace pragmas are disabled")
	}
	if key == "jexl.import" {
		p.require(features.ImportPragma, "importPragma", keyTok.Pos, "import pragmas are disabled")
	}
	return stmt
}

// parseSimpleStatement parses an assignment, multi-assignment, or bare
// expression statement, consuming a trailing semicolon if present.
func (p *Parser) parseSimpleStatement() ast.Stmt {
	s := p.parseSimpleStatementNoSemi()
	p.accept(token.SEMI)
	return s
}

func (p *Parser) parseSimpleStatementNoSemi() ast.Stmt {
	origin := toOrigin(p.cur().Pos)

	if p.is(token.LPAREN) {
		if targets, ok := p.tryParseMultiAssignTargets(); ok {
			p.expect(token.ASSIGN)
			val := p.parseExpr()
			p.require(features.SideEffect, "sideEffect", p.cur().Pos, "assignment is disabled")
			return wrapMultiAssign(origin, targets, val)
		}
	}

	x := p.parseExpr()

	if op, isAssign := assignOp(p.cur().Type); isAssign {
		p.advance()
		p.require(features.SideEffect, "sideEffect", p.cur().Pos, "assignment is disabled")
		if !isLocalTarget(x) {
			p.require(features.SideEffectGlobal, "sideEffectGlobal", p.cur().Pos, "assignment to non-local targets is disabled")
		}
		val := p.parseExpr()
		return wrapAssignment(origin, x, op, val)
	}

	return wrapExprStmt(origin, x)
}

// isLocalTarget is a parse-time best-effort check for sideEffectGlobal
// gating: a bare identifier or antish name is "local-shaped"; any member or
// index target is treated as non-local.
func isLocalTarget(x ast.Expr) bool {
	switch x.(type) {
	case *ast.Ident, *ast.AntishIdent:
		return true
	default:
		return false
	}
}

func assignOp(t token.Type) (token.Type, bool) {
	switch t {
	case token.ASSIGN, token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.STAR_ASSIGN,
		token.SLASH_ASSIGN, token.PERCENT_ASSIGN, token.AMP_ASSIGN, token.PIPE_ASSIGN,
		token.CARET_ASSIGN, token.SHL_ASSIGN, token.SHR_ASSIGN, token.USHR_ASSIGN:
		return t, true
	default:
		return token.ILLEGAL, false
	}
}

// tryParseMultiAssignTargets attempts to parse `(e1, e2, ...)` followed by
// `=` without committing; on failure the token position is restored.
func (p *Parser) tryParseMultiAssignTargets() ([]ast.Expr, bool) {
	m := p.mark()
	p.advance() // (
	var targets []ast.Expr
	for !p.is(token.RPAREN) && !p.atEOF() {
		targets = append(targets, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	if !p.is(token.RPAREN) {
		p.reset(m)
		return nil, false
	}
	p.advance() // )
	if !p.is(token.ASSIGN) || len(targets) < 2 {
		p.reset(m)
		return nil, false
	}
	return targets, true
}
