package types

import (
	"strings"
	"unique"
)

// QName is an expanded qualified name: a namespace URI plus a local name.
// The zero Namespace denotes "no namespace".
type QName struct {
	Namespace string
	Local     string
}

// NewQName returns the expanded name {ns}local.
func NewQName(ns, local string) QName {
	return QName{Namespace: ns, Local: local}
}

// Handle is an interned QName. Two handles are equal exactly when their names
// are equal, and comparing them costs a pointer comparison.
type Handle = unique.Handle[QName]

// Intern returns the canonical handle for q.
func (q QName) Intern() Handle {
	return unique.Make(q)
}

// String renders the name in EQName form, Q{uri}local, or just the local
// name when there is no namespace.
func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}
	return "Q{" + q.Namespace + "}" + q.Local
}

// LexicalName is a name as written in an expression: an optional prefix
// and a local part, or a braced URI.
type LexicalName struct {
	Prefix string
	Local  string
	URI    string
	HasURI bool
}

// ParseLexicalName splits "prefix:local", "Q{uri}local" or "local".
func ParseLexicalName(s string) LexicalName {
	if strings.HasPrefix(s, "Q{") {
		if end := strings.IndexByte(s, '}'); end > 0 {
			return LexicalName{URI: s[2:end], HasURI: true, Local: s[end+1:]}
		}
	}
	if i := strings.IndexByte(s, ':'); i > 0 {
		return LexicalName{Prefix: s[:i], Local: s[i+1:]}
	}
	return LexicalName{Local: s}
}

// NameResolver resolves the namespace of an unexpanded name.
type NameResolver func(name string) (QName, error)

// Prefixed renders the name with its well-known prefix, e.g. "fn:count",
// falling back to String for other namespaces.
func (q QName) Prefixed() string {
	for prefix, uri := range WellKnownNamespaces {
		if uri == q.Namespace {
			return prefix + ":" + q.Local
		}
	}
	return q.String()
}
