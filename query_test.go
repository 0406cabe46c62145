package wowsql

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBuildGrammar(t *testing.T) {
	q := newQueryBuilder(nil, "users").
		Eq("status", "active").
		Gt("age", 18).
		Limit(10)

	desc, err := q.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if desc.Method != "GET" {
		t.Errorf("method = %q, want GET", desc.Method)
	}
	if desc.Path != "/v1/tables/users/rows" {
		t.Errorf("path = %q, want /v1/tables/users/rows", desc.Path)
	}
	want := "age__gt=18&limit=10&status__eq=active"
	if got := desc.Encode(); got != want {
		t.Errorf("query = %q, want %q", got, want)
	}
}

func TestBuildDeterministic(t *testing.T) {
	build := func() string {
		desc, err := newQueryBuilder(nil, "events").
			Select("id", "kind").
			Neq("kind", "noise").
			Lte("ts", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)).
			IsNotNull("actor").
			OrderBy("ts", true).
			Limit(50).
			Offset(100).
			Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		return desc.Method + " " + desc.URL("")
	}
	first := build()
	for i := 0; i < 5; i++ {
		if got := build(); got != first {
			t.Fatalf("render %d = %q, want %q", i, got, first)
		}
	}
}

func TestBuildParams(t *testing.T) {
	tests := []struct {
		name  string
		build func() *QueryBuilder
		want  string
	}{
		{
			name:  "no state",
			build: func() *QueryBuilder { return newQueryBuilder(nil, "t") },
			want:  "",
		},
		{
			name: "select columns",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").Select("a", "b")
			},
			want: "select=a%2Cb",
		},
		{
			name: "select star means all",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").Select("*")
			},
			want: "",
		},
		{
			name: "select last wins",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").Select("a").Select("b", "c")
			},
			want: "select=b%2Cc",
		},
		{
			name: "null checks carry a literal",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").IsNull("deleted_at").IsNotNull("owner")
			},
			want: "deleted_at__isnull=true&owner__isnotnull=true",
		},
		{
			name: "order ascending omits direction",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").OrderBy("name", false)
			},
			want: "order_by=name",
		},
		{
			name: "order descending",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").OrderBy("name", true)
			},
			want: "order=desc&order_by=name",
		},
		{
			name: "orderBy overwrites",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").OrderBy("a", true).OrderBy("b", false)
			},
			want: "order_by=b",
		},
		{
			name: "zero limit is a real value",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").Limit(0)
			},
			want: "limit=0",
		},
		{
			name: "like and bool values",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").Like("name", "jo%").Eq("active", true)
			},
			want: "active__eq=true&name__like=jo%25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := tt.build().Build()
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got := desc.Encode(); got != tt.want {
				t.Errorf("query = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildLocalErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *QueryBuilder
		kind  Kind
	}{
		{
			name:  "empty table",
			build: func() *QueryBuilder { return newQueryBuilder(nil, "") },
			kind:  KindConfiguration,
		},
		{
			name: "negative limit",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").Limit(-1)
			},
			kind: KindValidation,
		},
		{
			name: "negative offset",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").Offset(-5)
			},
			kind: KindValidation,
		},
		{
			name: "empty filter column",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").Eq("", 1)
			},
			kind: KindValidation,
		},
		{
			name: "empty order column",
			build: func() *QueryBuilder {
				return newQueryBuilder(nil, "t").OrderBy("", false)
			},
			kind: KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.build().Build(); !IsKind(err, tt.kind) {
				t.Errorf("Build err = %v, want kind %v", err, tt.kind)
			}
		})
	}
}

// Local validation must fail before any request is attempted: these calls
// run with a nil transport and must never reach it.
func TestTerminalLocalValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("bulk update without filters", func(t *testing.T) {
		_, err := newQueryBuilder(nil, "t").Update(ctx, Record{"a": 1})
		if !IsKind(err, KindValidation) {
			t.Errorf("err = %v, want validation", err)
		}
	})

	t.Run("bulk delete without filters", func(t *testing.T) {
		_, err := newQueryBuilder(nil, "t").Delete(ctx)
		if !IsKind(err, KindValidation) {
			t.Errorf("err = %v, want validation", err)
		}
	})

	t.Run("create with empty record", func(t *testing.T) {
		_, err := newQueryBuilder(nil, "t").Create(ctx, nil)
		if !IsKind(err, KindValidation) {
			t.Errorf("err = %v, want validation", err)
		}
	})

	t.Run("update with empty patch", func(t *testing.T) {
		_, err := newQueryBuilder(nil, "t").Eq("a", 1).Update(ctx, nil)
		if !IsKind(err, KindValidation) {
			t.Errorf("err = %v, want validation", err)
		}
	})

	t.Run("updateByID with empty id", func(t *testing.T) {
		_, err := newQueryBuilder(nil, "t").UpdateByID(ctx, "", Record{"a": 1})
		if !IsKind(err, KindValidation) {
			t.Errorf("err = %v, want validation", err)
		}
	})

	t.Run("empty table surfaces as configuration", func(t *testing.T) {
		_, err := newQueryBuilder(nil, "").Delete(ctx)
		if !IsKind(err, KindConfiguration) {
			t.Errorf("err = %v, want configuration", err)
		}
	})
}

func TestChainAfterErrorKeepsFirstError(t *testing.T) {
	q := newQueryBuilder(nil, "t").Limit(-1).Offset(-2).Eq("a", 1)
	_, err := q.Build()
	if !IsKind(err, KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("not an *Error")
	}
	if e.Message != "limit must be non-negative" {
		t.Errorf("message = %q, want the first error kept", e.Message)
	}
}

func TestIDSegment(t *testing.T) {
	tests := []struct {
		id   any
		want string
	}{
		{"abc", "abc"},
		{42, "42"},
		{int64(7), "7"},
		{3.5, "3.5"},
	}
	for _, tt := range tests {
		got, err := idSegment(tt.id)
		if err != nil {
			t.Errorf("idSegment(%v): %v", tt.id, err)
			continue
		}
		if got != tt.want {
			t.Errorf("idSegment(%v) = %q, want %q", tt.id, got, tt.want)
		}
	}
	if _, err := idSegment(nil); !IsKind(err, KindValidation) {
		t.Errorf("idSegment(nil) err = %v, want validation", err)
	}
}
