package search

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyQuery is returned by Build when the filter has no usable
	// tokens. Callers answer such searches with no results.
	ErrEmptyQuery = errors.New("search query is empty")
	// ErrMalformedTerm means a term reached serialization holding a rune
	// outside the token whitelist. It indicates a bug, not bad user input.
	ErrMalformedTerm = errors.New("malformed search term")
)

// Filter is a search request as submitted by a user.
type Filter struct {
	Content  string
	Username *string // nil = no author filter
	Limit    int     // 0 = unlimited
}

// Term is one sanitized search word.
type Term struct {
	Text   string
	Prefix bool // match any word starting with Text
}

func (t Term) validate() error {
	if t.Text == "" {
		return fmt.Errorf("%w: empty", ErrMalformedTerm)
	}
	for _, r := range t.Text {
		if !isTermRune(r) {
			return fmt.Errorf("%w: %q contains %q", ErrMalformedTerm, t.Text, r)
		}
	}
	return nil
}

func (t Term) render() string {
	s := `"` + t.Text + `"`
	if t.Prefix {
		s += "*"
	}
	return s
}

// Query is the structured form of a Filter. Content terms must all appear
// in the message body; Username terms must all prefix-match words of the
// author name. A message matching either side is a hit.
type Query struct {
	Content  []Term
	Username []Term
}

// NewQuery tokenizes a filter.
func NewQuery(f Filter) Query {
	var q Query
	for _, tok := range Tokenize(f.Content) {
		q.Content = append(q.Content, Term{Text: tok})
	}
	if f.Username != nil {
		for _, tok := range Tokenize(*f.Username) {
			q.Username = append(q.Username, Term{Text: tok, Prefix: true})
		}
	}
	return q
}

// IsEmpty reports whether the query has no terms at all.
func (q Query) IsEmpty() bool {
	return len(q.Content) == 0 && len(q.Username) == 0
}

// Match renders the FTS5 match expression, e.g.
//
//	username : ("bob"*) OR content : ("hello" AND "world")
//
// Every term is re-validated here, so nothing outside the whitelist can be
// rendered no matter how the Query was constructed.
func (q Query) Match() (string, error) {
	var clauses []string
	for _, col := range []struct {
		name  string
		terms []Term
	}{
		{"username", q.Username},
		{"content", q.Content},
	} {
		if len(col.terms) == 0 {
			continue
		}
		rendered := make([]string, len(col.terms))
		for i, t := range col.terms {
			if err := t.validate(); err != nil {
				return "", err
			}
			rendered[i] = t.render()
		}
		clauses = append(clauses, col.name+" : ("+strings.Join(rendered, " AND ")+")")
	}
	if len(clauses) == 0 {
		return "", ErrEmptyQuery
	}
	return strings.Join(clauses, " OR "), nil
}

// Statement is a ready-to-run SQL query and its arguments.
type Statement struct {
	SQL  string
	Args []any
}

// selectHits yields message_id, channel_id, channel name, content, username,
// avatar and sent_at, in that order.
const selectHits = `
SELECT
	messages.message_id,
	messages.channel_id,
	channels.name,
	messages.content,
	messages.username,
	messages.avatar,
	messages.sent_at
FROM messages_fts
JOIN messages ON messages.message_id = messages_fts.messages_rowid
JOIN channels ON channels.channel_id = messages.channel_id
WHERE messages_fts MATCH ?
ORDER BY messages.sent_at DESC, messages.message_id DESC`

// Build turns a filter into a statement returning hits newest first. It
// returns ErrEmptyQuery when the filter has no usable tokens.
func Build(f Filter) (*Statement, error) {
	match, err := NewQuery(f).Match()
	if err != nil {
		return nil, err
	}

	stmt := &Statement{SQL: selectHits, Args: []any{match}}
	if f.Limit > 0 {
		stmt.SQL += "\nLIMIT ?"
		stmt.Args = append(stmt.Args, f.Limit)
	}
	return stmt, nil
}
