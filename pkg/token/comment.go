package token

// CommentKind distinguishes line vs block comments.
type CommentKind int

// Comment kinds.
const (
	LineComment  CommentKind = iota // // comment, # comment
	BlockComment                    // /* comment */, =begin ... =end
)

// String returns the comment kind name.
func (k CommentKind) String() string {
	if k == BlockComment {
		return "block"
	}
	return "line"
}

// MarshalText implements encoding.TextMarshaler.
func (k CommentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Comment represents a comment recognised by one grammar.
type Comment struct {
	Kind    CommentKind `json:"kind"`
	Text    string      `json:"text"` // includes delimiters
	Span    Span        `json:"span"`
	Grammar Grammar     `json:"grammar"`
}

// IsLineComment returns true if this is a line comment.
func (c *Comment) IsLineComment() bool {
	return c.Kind == LineComment
}

// IsBlockComment returns true if this is a block comment.
func (c *Comment) IsBlockComment() bool {
	return c.Kind == BlockComment
}
