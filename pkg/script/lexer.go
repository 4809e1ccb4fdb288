package script

import (
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Lexer tokenizes source text under the script grammar.
//
// `#` starts a comment anywhere outside a literal, so every brace-grammar
// directive line is inert here. A `/` in expression-start position opens a
// regex literal, so `/* ... */` is live code to this grammar.
type Lexer struct {
	buf     *source.Buffer
	g       *grammar.Grammar
	input   string
	end     int
	pos     int
	readPos int
	ch      byte

	space   bool // whitespace seen before the next token
	newline bool // newline seen before the next token
	prev    token.Token
	hasPrev bool
	nesting []byte // open brackets; NEWLINE is suppressed directly inside ( and [

	// Comments collected during lexing
	Comments []token.Comment

	err *core.Error
}

// NewLexer creates a Lexer over the whole buffer.
func NewLexer(buf *source.Buffer, g *grammar.Grammar) *Lexer {
	return newRangeLexer(buf, g, 0, buf.Len())
}

func newRangeLexer(buf *source.Buffer, g *grammar.Grammar, start, end int) *Lexer {
	if g == nil {
		g = grammar.Script
	}
	l := &Lexer{buf: buf, g: g, input: buf.Text(), end: end, readPos: start}
	l.readChar()
	return l
}

// Lex tokenizes the whole buffer with the script grammar.
func Lex(buf *source.Buffer) ([]token.Token, []token.Comment, error) {
	return lexAll(NewLexer(buf, grammar.Script))
}

// LexRange tokenizes [start, end); used for string interpolation bodies.
func LexRange(buf *source.Buffer, g *grammar.Grammar, start, end int) ([]token.Token, []token.Comment, error) {
	return lexAll(newRangeLexer(buf, g, start, end))
}

func lexAll(l *Lexer) ([]token.Token, []token.Comment, error) {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if l.err != nil {
		return toks, l.Comments, l.err
	}
	return toks, l.Comments, nil
}

func (l *Lexer) readChar() {
	if l.readPos >= l.end {
		// pos stops at end so input[start:pos] stays in range.
		l.ch = 0
		l.pos = l.end
		l.readPos = l.end + 1
		return
	}
	l.ch = l.input[l.readPos]
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= l.end {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= l.end {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= l.end
}

// atLineBegin reports whether the current char is in column 1.
func (l *Lexer) atLineBegin() bool {
	return l.pos == 0 || l.input[l.pos-1] == '\n'
}

func (l *Lexer) fail(start int, format string, args ...any) {
	if l.err == nil {
		l.err = core.Errorf(core.KindParse, token.Script, l.buf.Span(start, l.pos), format, args...)
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	if nl, ok := l.skipWhitespaceAndComments(); ok {
		return nl
	}
	start := l.pos
	if l.atEOF() {
		return l.emit(token.EOF, "", start)
	}

	switch {
	case isIdentStart(l.ch):
		return l.readIdentifier(start)
	case isDigit(l.ch):
		return l.readNumber(start)
	case l.ch == '"':
		return l.readDoubleQuoted(start)
	case l.ch == '\'':
		return l.readSingleQuoted(start)
	case l.ch == '$' && (isIdentStart(l.peekChar()) || isDigit(l.peekChar())):
		l.readChar()
		for isIdentChar(l.ch) {
			l.readChar()
		}
		return l.emit(token.GVAR, l.input[start:l.pos], start)
	case l.ch == ':' && l.peekChar() == ':':
		l.readChar()
		l.readChar()
		return l.emit(token.DCOLON, "::", start)
	case l.ch == ':' && isIdentStart(l.peekChar()) && l.symbolAllowed():
		l.readChar()
		for isIdentChar(l.ch) {
			l.readChar()
		}
		if l.ch == '?' || l.ch == '!' || l.ch == '=' {
			if l.peekChar() != '=' {
				l.readChar()
			}
		}
		return l.emit(token.SYMBOL, l.input[start+1:l.pos], start)
	case l.ch == '/' && l.regexAllowed():
		return l.readRegex(start)
	}

	t, width := l.operator()
	for i := 0; i < width; i++ {
		l.readChar()
	}
	switch t {
	case token.LPAREN, token.LBRACKET, token.LBRACE:
		l.nesting = append(l.nesting, l.input[start])
	case token.RPAREN, token.RBRACKET, token.RBRACE:
		if len(l.nesting) > 0 {
			l.nesting = l.nesting[:len(l.nesting)-1]
		}
	}
	return l.emit(t, l.input[start:l.pos], start)
}

func (l *Lexer) operator() (token.TokenType, int) {
	c, n := l.ch, l.peekChar()
	switch c {
	case '+':
		if n == '=' {
			return token.PLUS_ASSIGN, 2
		}
		return token.PLUS, 1
	case '-':
		switch n {
		case '=':
			return token.MINUS_ASSIGN, 2
		case '>':
			return token.ARROW, 2
		}
		return token.MINUS, 1
	case '*':
		switch {
		case n == '*':
			return token.POW, 2
		case n == '=':
			return token.STAR_ASSIGN, 2
		}
		return token.STAR, 1
	case '/':
		if n == '=' {
			return token.SLASH_ASSIGN, 2
		}
		return token.SLASH, 1
	case '%':
		if n == '=' {
			return token.PERCENT_ASSIGN, 2
		}
		return token.PERCENT, 1
	case '=':
		if n == '=' {
			return token.EQ, 2
		}
		return token.ASSIGN, 1
	case '!':
		if n == '=' {
			return token.NE, 2
		}
		return token.BANG, 1
	case '<':
		switch n {
		case '=':
			return token.LE, 2
		case '<':
			return token.SHL, 2
		}
		return token.LT, 1
	case '>':
		switch n {
		case '=':
			return token.GE, 2
		case '>':
			return token.SHR, 2
		}
		return token.GT, 1
	case '&':
		if n == '&' {
			return token.AND_AND, 2
		}
		return token.AMP, 1
	case '|':
		if n == '|' {
			return token.OR_OR, 2
		}
		return token.PIPE, 1
	case '^':
		return token.CARET, 1
	case '~':
		return token.TILDE, 1
	case '?':
		return token.QUESTION, 1
	case ':':
		return token.COLON, 1
	case ';':
		return token.SEMICOLON, 1
	case ',':
		return token.COMMA, 1
	case '.':
		return token.DOT, 1
	case '(':
		return token.LPAREN, 1
	case ')':
		return token.RPAREN, 1
	case '{':
		return token.LBRACE, 1
	case '}':
		return token.RBRACE, 1
	case '[':
		return token.LBRACKET, 1
	case ']':
		return token.RBRACKET, 1
	}
	return token.ILLEGAL, 1
}

func (l *Lexer) emit(t token.TokenType, lit string, start int) token.Token {
	tok := token.Token{
		Type:          t,
		Literal:       lit,
		Span:          l.buf.Span(start, l.pos),
		Grammar:       token.Script,
		SpaceBefore:   l.space,
		NewlineBefore: l.newline,
	}
	l.space, l.newline = false, false
	if t != token.NEWLINE {
		l.prev, l.hasPrev = tok, true
	}
	return tok
}

func (l *Lexer) insideParens() bool {
	if len(l.nesting) == 0 {
		return false
	}
	top := l.nesting[len(l.nesting)-1]
	return top == '(' || top == '['
}

// continues reports whether the previous token leaves the expression open,
// so a following line break is not a statement terminator.
func (l *Lexer) continues() bool {
	if !l.hasPrev {
		return true
	}
	switch l.prev.Type {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.POW,
		token.ASSIGN, token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.STAR_ASSIGN,
		token.SLASH_ASSIGN, token.PERCENT_ASSIGN, token.EQ, token.NE, token.LT,
		token.GT, token.LE, token.GE, token.AND_AND, token.OR_OR, token.BANG,
		token.AMP, token.CARET, token.TILDE, token.SHL, token.SHR, token.QUESTION,
		token.COLON, token.COMMA, token.DOT, token.DCOLON, token.LPAREN,
		token.LBRACKET, token.LBRACE, token.SEMICOLON, token.ARROW:
		return true
	case grammar.TokenAnd, grammar.TokenOr, grammar.TokenNot:
		return true
	}
	return false
}

// endsValue reports whether the previous token can end an operand.
func (l *Lexer) endsValue() bool {
	if !l.hasPrev {
		return false
	}
	switch l.prev.Type {
	case token.IDENT, token.GVAR, token.INT, token.FLOAT, token.STRING, token.DSTRING,
		token.REGEX, token.SYMBOL, token.RPAREN, token.RBRACKET, token.RBRACE,
		grammar.TokenEnd, grammar.TokenNil, grammar.TokenTrue, grammar.TokenFalse:
		return true
	}
	return false
}

// regexAllowed decides whether `/` opens a regex literal. After an operand
// it is division, except after a bare identifier written like a command
// call (`foo /x/`).
func (l *Lexer) regexAllowed() bool {
	if !l.endsValue() || l.newline {
		return true
	}
	if l.prev.Type == token.IDENT && l.space {
		n := l.peekChar()
		return n != ' ' && n != '\t' && n != '='
	}
	return false
}

// symbolAllowed decides whether `:name` is a symbol rather than the colon
// of a ternary.
func (l *Lexer) symbolAllowed() bool {
	return !l.endsValue() || l.space
}

// skipWhitespaceAndComments skips blanks and comments. It returns a NEWLINE
// token when a line break terminates a statement.
func (l *Lexer) skipWhitespaceAndComments() (token.Token, bool) {
	for !l.atEOF() {
		switch {
		case l.ch == '\n':
			start := l.pos
			l.readChar()
			if !l.insideParens() && !l.continues() {
				tok := l.emit(token.NEWLINE, "\n", start)
				l.newline, l.space = true, true
				l.prev, l.hasPrev = token.Token{Type: token.NEWLINE}, true
				return tok, true
			}
			l.newline, l.space = true, true
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v':
			l.space = true
			l.readChar()
		case l.ch == '\\' && (l.peekChar() == '\n' || (l.peekChar() == '\r' && l.peekAt(2) == '\n')):
			l.space = true
			l.readChar()
			for l.ch != '\n' {
				l.readChar()
			}
			l.readChar()
		case l.ch == '#':
			l.collectLineComment()
		case l.ch == '=' && l.atLineBegin() && strings.HasPrefix(l.input[l.pos:l.end], "=begin") &&
			isBlankOrEOL(l.peekAt(6)):
			l.collectEmbeddedDoc()
		case l.ch == '_' && l.atLineBegin() && l.isEndMarker():
			l.collectDataSection()
		default:
			return token.Token{}, false
		}
	}
	return token.Token{}, false
}

// collectLineComment collects a # comment.
func (l *Lexer) collectLineComment() {
	start := l.pos
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
	l.addComment(token.LineComment, start)
}

// collectEmbeddedDoc collects an =begin ... =end block.
func (l *Lexer) collectEmbeddedDoc() {
	start := l.pos
	for !l.atEOF() {
		for l.ch != '\n' && !l.atEOF() {
			l.readChar()
		}
		if l.atEOF() {
			break
		}
		l.readChar() // newline
		if strings.HasPrefix(l.input[l.pos:l.end], "=end") && isBlankOrEOL(l.peekAt(4)) {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			l.addComment(token.BlockComment, start)
			return
		}
	}
	l.addComment(token.BlockComment, start)
	l.fail(start, "embedded document meets end of file")
}

// isEndMarker reports whether the current line is exactly __END__.
func (l *Lexer) isEndMarker() bool {
	rest := l.input[l.pos:l.end]
	if !strings.HasPrefix(rest, "__END__") {
		return false
	}
	rest = strings.TrimPrefix(rest[len("__END__"):], "\r")
	return rest == "" || rest[0] == '\n'
}

// collectDataSection consumes everything after __END__ as inert text.
func (l *Lexer) collectDataSection() {
	start := l.pos
	for !l.atEOF() {
		l.readChar()
	}
	l.addComment(token.BlockComment, start)
}

func (l *Lexer) addComment(kind token.CommentKind, start int) {
	l.Comments = append(l.Comments, token.Comment{
		Kind:    kind,
		Text:    l.input[start:l.pos],
		Span:    l.buf.Span(start, l.pos),
		Grammar: token.Script,
	})
}

// readIdentifier reads an identifier or keyword. Method names may end in
// `?` or `!`.
func (l *Lexer) readIdentifier(start int) token.Token {
	for isIdentChar(l.ch) {
		l.readChar()
	}
	if (l.ch == '?' || l.ch == '!') && l.peekChar() != '=' && endsMethodSuffix(l.peekChar()) {
		l.readChar()
	}
	lit := l.input[start:l.pos]
	t := token.IDENT
	if !(l.hasPrev && (l.prev.Type == token.DOT || l.prev.Type == grammar.TokenDef)) {
		if kw, ok := l.g.LookupKeyword(lit); ok {
			t = kw
		}
	}
	return l.emit(t, lit, start)
}

func endsMethodSuffix(c byte) bool {
	switch c {
	case 0, ' ', '\t', '\r', '\n', '(', ')', '.', ',', ';', ']', '}':
		return true
	}
	return false
}

// readNumber reads integer and float literals. `3.times` stays an integer
// followed by a method call.
func (l *Lexer) readNumber(start int) token.Token {
	t := token.INT
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		return l.emit(t, strings.ReplaceAll(l.input[start:l.pos], "_", ""), start)
	}
	for isDigit(l.ch) || (l.ch == '_' && isDigit(l.peekChar())) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		t = token.FLOAT
		l.readChar()
		for isDigit(l.ch) || (l.ch == '_' && isDigit(l.peekChar())) {
			l.readChar()
		}
	}
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || ((l.peekChar() == '-' || l.peekChar() == '+') && isDigit(l.peekAt(2)))) {
		t = token.FLOAT
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.emit(t, strings.ReplaceAll(l.input[start:l.pos], "_", ""), start)
}

// readDoubleQuoted reads a "..." literal. Strings without interpolation
// are decoded into STRING; strings with #{...} become DSTRING whose Literal
// is the raw body for the parser to split.
func (l *Lexer) readDoubleQuoted(start int) token.Token {
	l.readChar() // opening quote
	bodyStart := l.pos
	interp := false
	for {
		if l.atEOF() {
			l.fail(start, "unterminated string meets end of file")
			return l.emit(token.ILLEGAL, l.input[start:l.pos], start)
		}
		if l.ch == '"' {
			break
		}
		if l.ch == '\\' {
			l.readChar()
			if !l.atEOF() {
				l.readChar()
			}
			continue
		}
		if l.ch == '#' && l.peekChar() == '{' {
			interp = true
			if !l.skipInterpolation() {
				l.fail(start, "unterminated string interpolation")
				return l.emit(token.ILLEGAL, l.input[start:l.pos], start)
			}
			continue
		}
		l.readChar()
	}
	body := l.input[bodyStart:l.pos]
	l.readChar() // closing quote
	if interp {
		return l.emit(token.DSTRING, body, start)
	}
	return l.emit(token.STRING, Unescape(body), start)
}

// skipInterpolation advances past #{...}, honouring nested braces and
// nested string literals.
func (l *Lexer) skipInterpolation() bool {
	l.readChar() // #
	l.readChar() // {
	depth := 1
	for !l.atEOF() {
		switch l.ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				l.readChar()
				return true
			}
		case '"', '\'':
			q := l.ch
			l.readChar()
			for !l.atEOF() && l.ch != q {
				if l.ch == '\\' {
					l.readChar()
					if l.atEOF() {
						break
					}
				}
				l.readChar()
			}
		}
		l.readChar()
	}
	return false
}

// readSingleQuoted reads a '...' literal. Only \\ and \' are escapes.
func (l *Lexer) readSingleQuoted(start int) token.Token {
	l.readChar()
	var sb strings.Builder
	for {
		if l.atEOF() {
			l.fail(start, "unterminated string meets end of file")
			return l.emit(token.ILLEGAL, l.input[start:l.pos], start)
		}
		if l.ch == '\'' {
			l.readChar()
			break
		}
		if l.ch == '\\' && (l.peekChar() == '\\' || l.peekChar() == '\'') {
			l.readChar()
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	return l.emit(token.STRING, sb.String(), start)
}

// readRegex reads a /.../flags literal. Literal holds the pattern source.
func (l *Lexer) readRegex(start int) token.Token {
	l.readChar() // opening slash
	bodyStart := l.pos
	for {
		if l.atEOF() {
			l.fail(start, "unterminated regexp meets end of file")
			return l.emit(token.ILLEGAL, l.input[start:l.pos], start)
		}
		if l.ch == '/' {
			break
		}
		if l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	body := l.input[bodyStart:l.pos]
	l.readChar() // closing slash
	for l.ch == 'i' || l.ch == 'm' || l.ch == 'x' || l.ch == 'o' {
		l.readChar()
	}
	return l.emit(token.REGEX, body, start)
}

// Unescape decodes the escape sequences of a double-quoted string body.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'e':
			sb.WriteByte(0x1b)
		case 's':
			sb.WriteByte(' ')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '\n':
			// line continuation inside a string
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isBlankOrEOL(ch byte) bool {
	return ch == 0 || ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}
