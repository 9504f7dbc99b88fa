package lexer

import "github.com/jexl-go/jexl/pkg/token"

// Tokenize scans src to completion and returns the full token stream
// (including a trailing EOF token), plus any lexical errors encountered.
// Buffering the whole stream up front lets the parser use plain index-based
// backtracking (e.g. to disambiguate a lambda parameter list from a
// parenthesized expression) instead of a hand-rolled pushback buffer.
func Tokenize(src string, opts ...Option) ([]token.Token, []*Error) {
	l := New(src, opts...)
	var toks []token.Token
	for {
		t := l.NextToken()
		toks = append(toks, t)
		if t.Type == token.EOF {
			break
		}
	}
	return toks, l.Errors()
}
