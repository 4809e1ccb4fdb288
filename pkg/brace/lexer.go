package brace

import (
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Lexer tokenizes source text under the brace grammar.
//
// Words are always emitted as IDENT: keywords are classified by the parser
// after macro expansion, because a macro may be named like a keyword
// (`#define do {`). A `#` that starts a logical line produces a single
// DIRECTIVE token covering the whole directive.
type Lexer struct {
	buf     *source.Buffer
	input   string
	end     int
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination

	directives bool // recognise # directives
	lineStart  bool // only whitespace since the last newline
	space      bool // whitespace seen before the next token
	newline    bool // newline seen before the next token

	// Comments collected during lexing
	Comments []token.Comment

	err *core.Error
}

// NewLexer creates a Lexer over the whole buffer.
func NewLexer(buf *source.Buffer) *Lexer {
	return newRangeLexer(buf, 0, buf.Len(), true)
}

func newRangeLexer(buf *source.Buffer, start, end int, directives bool) *Lexer {
	l := &Lexer{
		buf:        buf,
		input:      buf.Text(),
		end:        end,
		readPos:    start,
		directives: directives,
		lineStart:  true,
	}
	l.readChar()
	return l
}

// Lex tokenizes the whole buffer. The returned tokens end with EOF.
// An unterminated block comment is reported as a preprocess error, which is
// fatal to the brace grammar only.
func Lex(buf *source.Buffer) ([]token.Token, []token.Comment, error) {
	return lexAll(NewLexer(buf))
}

// LexRange tokenizes the byte range [start, end) without directive
// recognition. The preprocessor uses it for directive bodies.
func LexRange(buf *source.Buffer, start, end int) ([]token.Token, []token.Comment, error) {
	return lexAll(newRangeLexer(buf, start, end, false))
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

// Err returns the first lexical error, if any.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// readChar advances to the next character.
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

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= l.end {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= l.end
}

func (l *Lexer) fail(start int, msg string) {
	if l.err == nil {
		l.err = core.Errorf(core.KindPreprocess, token.Brace, l.buf.Span(start, l.pos), "%s", msg)
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	start := l.pos
	if l.atEOF() {
		return l.make(token.EOF, "", start)
	}

	if l.ch == '#' && l.lineStart && l.directives {
		return l.readDirective(start)
	}
	l.lineStart = false

	switch {
	case isLetter(l.ch) || l.ch == '_':
		return l.make(token.IDENT, l.readIdentifier(), start)
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		return l.readNumber(start)
	case l.ch == '"':
		return l.readString(start)
	case l.ch == '\'':
		return l.readChar2(start)
	}

	t, width := l.operator()
	for i := 0; i < width; i++ {
		l.readChar()
	}
	return l.make(t, l.input[start:l.pos], start)
}

// operator matches the longest operator at the current position.
func (l *Lexer) operator() (token.TokenType, int) {
	c, n := l.ch, l.peekChar()
	switch c {
	case '+':
		switch n {
		case '+':
			return token.INC, 2
		case '=':
			return token.PLUS_ASSIGN, 2
		}
		return token.PLUS, 1
	case '-':
		switch n {
		case '-':
			return token.DEC, 2
		case '=':
			return token.MINUS_ASSIGN, 2
		case '>':
			return token.ARROW, 2
		}
		return token.MINUS, 1
	case '*':
		if n == '=' {
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

func (l *Lexer) make(t token.TokenType, lit string, start int) token.Token {
	tok := token.Token{
		Type:          t,
		Literal:       lit,
		Span:          l.buf.Span(start, l.pos),
		Grammar:       token.Brace,
		SpaceBefore:   l.space,
		NewlineBefore: l.newline,
	}
	l.space, l.newline = false, false
	return tok
}

// skipWhitespaceAndComments skips whitespace and collects comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case l.ch == '\n':
			l.newline, l.space, l.lineStart = true, true, true
			l.readChar()
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v':
			l.space = true
			l.readChar()
		case l.ch == '\\' && (l.peekChar() == '\n' || l.peekChar() == '\r'):
			// line splice
			l.space = true
			l.readChar()
			if l.ch == '\r' {
				l.readChar()
			}
			if l.ch == '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '/':
			l.collectLineComment()
		case l.ch == '/' && l.peekChar() == '*':
			l.collectBlockComment()
		default:
			return
		}
	}
}

// collectLineComment collects a line comment.
func (l *Lexer) collectLineComment() {
	start := l.pos
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
	l.addComment(token.LineComment, start)
}

// collectBlockComment collects a block comment. A block comment counts as
// whitespace, never as a line start.
func (l *Lexer) collectBlockComment() {
	start := l.pos
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	for {
		if l.atEOF() {
			l.fail(start, "unterminated block comment")
			break
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			break
		}
		if l.ch == '\n' {
			l.newline = true
		}
		l.readChar()
	}
	l.space = true
	l.addComment(token.BlockComment, start)
}

func (l *Lexer) addComment(kind token.CommentKind, start int) {
	l.Comments = append(l.Comments, token.Comment{
		Kind:    kind,
		Text:    l.input[start:l.pos],
		Span:    l.buf.Span(start, l.pos),
		Grammar: token.Brace,
	})
}

// readDirective reads a preprocessor directive up to the end of its logical
// line. Backslash-newline continues the line; a block comment inside the
// directive may span lines.
func (l *Lexer) readDirective(start int) token.Token {
	for !l.atEOF() {
		switch {
		case l.ch == '\\' && (l.peekChar() == '\n' || l.peekChar() == '\r'):
			l.readChar()
			if l.ch == '\r' {
				l.readChar()
			}
			l.readChar()
			continue
		case l.ch == '/' && l.peekChar() == '*':
			cs := l.pos
			l.readChar()
			l.readChar()
			for !l.atEOF() && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.atEOF() {
				l.fail(cs, "unterminated block comment")
				break
			}
			l.readChar()
			l.readChar()
			continue
		case l.ch == '\n':
		default:
			l.readChar()
			continue
		}
		break
	}
	end := l.pos
	for end > start && (l.input[end-1] == '\r' || l.input[end-1] == ' ' || l.input[end-1] == '\t') {
		end--
	}
	tok := token.Token{
		Type:          token.DIRECTIVE,
		Literal:       l.input[start:end],
		Span:          l.buf.Span(start, end),
		Grammar:       token.Brace,
		SpaceBefore:   l.space,
		NewlineBefore: l.newline,
	}
	l.space, l.newline = false, false
	l.lineStart = false
	return tok
}

// readIdentifier reads an identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads an integer or floating literal including C suffixes.
func (l *Lexer) readNumber(start int) token.Token {
	t := token.INT
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) {
			l.readChar()
		}
		if l.ch == '.' {
			t = token.FLOAT
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
		if l.ch == 'e' || l.ch == 'E' {
			t = token.FLOAT
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	litEnd := l.pos
	for l.ch == 'u' || l.ch == 'U' || l.ch == 'l' || l.ch == 'L' || (t == token.FLOAT && (l.ch == 'f' || l.ch == 'F')) {
		l.readChar()
	}
	tok := l.make(t, l.input[start:litEnd], start)
	return tok
}

// readString reads a double-quoted string literal; Literal holds the
// decoded contents.
func (l *Lexer) readString(start int) token.Token {
	l.readChar() // skip opening quote
	var sb strings.Builder
	for {
		if l.atEOF() || l.ch == '\n' {
			l.fail(start, "unterminated string literal")
			return l.make(token.ILLEGAL, l.input[start:l.pos], start)
		}
		if l.ch == '"' {
			l.readChar()
			break
		}
		if l.ch == '\\' {
			l.readChar()
			sb.WriteString(l.readEscape())
			continue
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	return l.make(token.STRING, sb.String(), start)
}

// readChar2 reads a character literal; Literal holds the decoded character.
func (l *Lexer) readChar2(start int) token.Token {
	l.readChar() // skip opening quote
	var sb strings.Builder
	for {
		if l.atEOF() || l.ch == '\n' {
			l.fail(start, "unterminated character literal")
			return l.make(token.ILLEGAL, l.input[start:l.pos], start)
		}
		if l.ch == '\'' {
			l.readChar()
			break
		}
		if l.ch == '\\' {
			l.readChar()
			sb.WriteString(l.readEscape())
			continue
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	return l.make(token.CHAR, sb.String(), start)
}

// readEscape decodes the escape sequence after a backslash.
func (l *Lexer) readEscape() string {
	c := l.ch
	l.readChar()
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	case 'a':
		return "\a"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case 'e':
		return "\x1b"
	case '\\', '\'', '"', '?':
		return string(c)
	case 'x':
		v := 0
		for isHexDigit(l.ch) {
			v = v*16 + hexVal(l.ch)
			l.readChar()
		}
		return string([]byte{byte(v)})
	}
	return string(c)
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func hexVal(ch byte) int {
	switch {
	case isDigit(ch):
		return int(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return int(ch-'a') + 10
	default:
		return int(ch-'A') + 10
	}
}
