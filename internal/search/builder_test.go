package search

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/wesm/chatvault/internal/testutil/ptr"
)

// assertQueryEqual treats nil and empty slices as equal.
func assertQueryEqual(t *testing.T, got, want Query) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestNewQuery(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   Query
	}{
		{
			name:   "content only",
			filter: Filter{Content: "Hello, World"},
			want:   Query{Content: []Term{{Text: "hello"}, {Text: "world"}}},
		},
		{
			name:   "username only",
			filter: Filter{Username: ptr.String("Bob_Smith")},
			want:   Query{Username: []Term{{Text: "bobsmith", Prefix: true}}},
		},
		{
			name:   "both",
			filter: Filter{Content: "gg", Username: ptr.String("ann lee")},
			want: Query{
				Content:  []Term{{Text: "gg"}},
				Username: []Term{{Text: "ann", Prefix: true}, {Text: "lee", Prefix: true}},
			},
		},
		{
			name:   "empty",
			filter: Filter{},
			want:   Query{},
		},
		{
			name:   "empty username pointer",
			filter: Filter{Username: ptr.String("  ")},
			want:   Query{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertQueryEqual(t, NewQuery(tt.filter), tt.want)
		})
	}
}

func TestQueryMatch(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{
			name:  "content",
			query: Query{Content: []Term{{Text: "a"}, {Text: "b"}}},
			want:  `content : ("a" AND "b")`,
		},
		{
			name:  "username",
			query: Query{Username: []Term{{Text: "bob", Prefix: true}}},
			want:  `username : ("bob"*)`,
		},
		{
			name: "username OR content",
			query: Query{
				Content:  []Term{{Text: "hello"}},
				Username: []Term{{Text: "bob", Prefix: true}},
			},
			want: `username : ("bob"*) OR content : ("hello")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.query.Match()
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryMatch_RejectsMalformedTerms(t *testing.T) {
	for _, text := range []string{`a"b`, "a b", "x*", "col:x", "(x)", ""} {
		q := Query{Content: []Term{{Text: text}}}
		if _, err := q.Match(); !errors.Is(err, ErrMalformedTerm) {
			t.Errorf("Match with term %q: err = %v, want ErrMalformedTerm", text, err)
		}
	}
}

func TestQueryMatch_Empty(t *testing.T) {
	if _, err := (Query{}).Match(); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestBuild(t *testing.T) {
	stmt, err := Build(Filter{Content: "hello", Username: ptr.String("bob")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(stmt.Args) != 1 {
		t.Fatalf("args = %v, want only the match expression", stmt.Args)
	}
	if stmt.Args[0] != `username : ("bob"*) OR content : ("hello")` {
		t.Errorf("match arg = %q", stmt.Args[0])
	}
	if !strings.Contains(stmt.SQL, "ORDER BY messages.sent_at DESC, messages.message_id DESC") {
		t.Errorf("statement is not ordered newest first:\n%s", stmt.SQL)
	}
	if strings.Contains(stmt.SQL, "LIMIT") {
		t.Errorf("unexpected LIMIT without a limit:\n%s", stmt.SQL)
	}
}

func TestBuild_Limit(t *testing.T) {
	stmt, err := Build(Filter{Content: "hello", Limit: 25})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.HasSuffix(stmt.SQL, "LIMIT ?") {
		t.Errorf("statement does not end with LIMIT ?:\n%s", stmt.SQL)
	}
	if len(stmt.Args) != 2 || stmt.Args[1] != 25 {
		t.Errorf("args = %v, want [match 25]", stmt.Args)
	}
}

func TestBuild_InjectionStaysOutOfSQL(t *testing.T) {
	hostile := `"); DROP TABLE messages; --`
	stmt, err := Build(Filter{Content: hostile, Username: ptr.String(hostile)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(stmt.SQL, "DROP") {
		t.Errorf("user input reached SQL text:\n%s", stmt.SQL)
	}
	match := stmt.Args[0].(string)
	if strings.Count(match, `"`)%2 != 0 {
		t.Errorf("unbalanced quotes in match expression %q", match)
	}
}

func TestBuild_Empty(t *testing.T) {
	for _, f := range []Filter{{}, {Content: "   "}, {Content: "!?", Username: ptr.String("..")}} {
		if _, err := Build(f); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Build(%+v): err = %v, want ErrEmptyQuery", f, err)
		}
	}
}
