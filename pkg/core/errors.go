package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

// ErrorKind classifies a pipeline error.
type ErrorKind int

// Error kinds.
const (
	// KindPreprocess is fatal to the brace grammar only.
	KindPreprocess ErrorKind = iota + 1
	// KindParse is fatal to the grammar that raised it.
	KindParse
	// KindUnresolvedShim aborts script execution.
	KindUnresolvedShim
	// KindArityMismatch aborts script execution.
	KindArityMismatch
	// KindExpansionLimit aborts the whole run.
	KindExpansionLimit
	// KindBothGrammarsFailed is reported when neither grammar parsed.
	KindBothGrammarsFailed
	// KindRuntime covers evaluation failures (division by zero, bad call).
	KindRuntime
	// KindStepLimit is raised when an execution exceeds its step budget.
	KindStepLimit
)

var kindNames = map[ErrorKind]string{
	KindPreprocess:         "preprocess-error",
	KindParse:              "parse-error",
	KindUnresolvedShim:     "unresolved-shim",
	KindArityMismatch:      "arity-mismatch",
	KindExpansionLimit:     "expansion-limit-exceeded",
	KindBothGrammarsFailed: "both-grammars-failed",
	KindRuntime:            "runtime-error",
	KindStepLimit:          "step-limit-exceeded",
}

// String returns the kebab-case kind name.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseErrorKind converts a kind name back to an ErrorKind.
func ParseErrorKind(s string) (ErrorKind, bool) {
	s = strings.ToLower(s)
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Error is the error type produced by every stage of the pipeline.
type Error struct {
	Kind    ErrorKind     `json:"kind"`
	Grammar token.Grammar `json:"grammar"`
	Span    token.Span    `json:"span"`
	Message string        `json:"message"`
	Cause   error         `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		if msg == "" {
			msg = e.Cause.Error()
		} else {
			msg = msg + ": " + e.Cause.Error()
		}
	}
	if e.Span.IsValid() {
		return fmt.Sprintf("%s at line %d, column %d: %s", e.Kind, e.Span.Start.Line, e.Span.Start.Column, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by kind, so errors.Is(err, ErrParse) is true
// for every parse error regardless of position or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" || t.Span.IsValid() {
		return e == t
	}
	return t.Kind == e.Kind
}

// Sentinel errors for errors.Is checks.
var (
	ErrPreprocess         = &Error{Kind: KindPreprocess}
	ErrParse              = &Error{Kind: KindParse}
	ErrUnresolvedShim     = &Error{Kind: KindUnresolvedShim}
	ErrArityMismatch      = &Error{Kind: KindArityMismatch}
	ErrExpansionLimit     = &Error{Kind: KindExpansionLimit}
	ErrBothGrammarsFailed = &Error{Kind: KindBothGrammarsFailed}
	ErrRuntime            = &Error{Kind: KindRuntime}
	ErrStepLimit          = &Error{Kind: KindStepLimit}
)

// Errorf creates an Error with a formatted message.
func Errorf(kind ErrorKind, g token.Grammar, span token.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Grammar: g, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and grammar to an arbitrary error. An existing *Error
// is returned unchanged.
func Wrap(err error, kind ErrorKind, g token.Grammar) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kind, Grammar: g, Cause: err}
}

// KindOf returns the kind of err if it is (or wraps) an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsFatal reports whether the error aborts the whole run rather than a
// single grammar.
func IsFatal(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindExpansionLimit
}
