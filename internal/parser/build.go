package parser

import "github.com/jexl-go/jexl/internal/ast"

// Thin naming adapters over the ast package's exported constructors, so the
// statement/expression parsing code reads as "wrap this into a node" at the
// call site without repeating the ast. prefix everywhere.

func wrapIf(pos ast.Origin, cond ast.Expr, then, els ast.Stmt) ast.Stmt {
	return ast.NewIfStmt(pos, cond, then, els)
}

func wrapWhile(pos ast.Origin, cond ast.Expr, body ast.Stmt) ast.Stmt {
	return ast.NewWhileStmt(pos, cond, body)
}

func wrapDoWhile(pos ast.Origin, body ast.Stmt, cond ast.Expr) ast.Stmt {
	return ast.NewDoWhileStmt(pos, body, cond)
}

func wrapFor(pos ast.Origin, init ast.Stmt, cond ast.Expr, step ast.Stmt, body ast.Stmt) ast.Stmt {
	return ast.NewForStmt(pos, init, cond, step, body)
}

func wrapForEach(pos ast.Origin, name string, declared bool, iterable ast.Expr, body ast.Stmt) ast.Stmt {
	return ast.NewForEachStmt(pos, name, declared, iterable, body)
}

func wrapReturn(pos ast.Origin, value ast.Expr) ast.Stmt {
	return ast.NewReturnStmt(pos, value)
}

func wrapVarDecl(pos ast.Origin, kind ast.TokenType, name string, value ast.Expr) ast.Stmt {
	return ast.NewVarDecl(pos, kind, name, value)
}

func wrapAnnotated(pos ast.Origin, name string, args []ast.Expr, body ast.Stmt) ast.Stmt {
	return ast.NewAnnotatedStmt(pos, name, args, body)
}

func wrapPragma(pos ast.Origin, key string, value ast.Expr) *ast.PragmaStmt {
	return ast.NewPragmaStmt(pos, key, value)
}

func wrapMultiAssign(pos ast.Origin, targets []ast.Expr, value ast.Expr) ast.Stmt {
	return ast.NewMultiAssign(pos, targets, value)
}

func wrapAssignment(pos ast.Origin, target ast.Expr, op ast.TokenType, value ast.Expr) ast.Stmt {
	return ast.NewAssignment(pos, target, op, value)
}

func wrapExprStmt(pos ast.Origin, x ast.Expr) ast.Stmt {
	return ast.NewExprStmt(pos, x)
}
