package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
)

type stubResolver struct {
	curies []string
	err    error
	calls  int
}

func (s *stubResolver) LookupCURIEs(_ context.Context, _ resolve.LookupRequest) ([]string, error) {
	s.calls++
	return s.curies, s.err
}

type stubNormalizer struct {
	types []string
	err   error
	calls int
}

func (s *stubNormalizer) TypesForCURIEs(_ context.Context, _ []string) ([]string, error) {
	s.calls++
	return s.types, s.err
}

func TestLookupKeyDeterministic(t *testing.T) {
	req := resolve.LookupRequest{
		Query:        "diabetes",
		Limit:        5,
		BiolinkType:  "Disease",
		OnlyPrefixes: []string{"MONDO", "HP"},
	}
	if lookupKey(req) != lookupKey(req) {
		t.Error("same request should produce the same key")
	}
}

func TestLookupKeyDistinguishesFields(t *testing.T) {
	base := resolve.LookupRequest{Query: "diabetes", Limit: 5}
	variants := []resolve.LookupRequest{
		{Query: "Diabetes", Limit: 5},
		{Query: "diabetes", Limit: 10},
		{Query: "diabetes", Limit: 5, BiolinkType: "Disease"},
		{Query: "diabetes", Limit: 5, OnlyPrefixes: []string{"MONDO"}},
	}
	baseKey := lookupKey(base)
	for i, v := range variants {
		if lookupKey(v) == baseKey {
			t.Errorf("variant %d should produce a different key", i)
		}
	}
}

func TestTypesKeyOrderSensitive(t *testing.T) {
	a := typesKey([]string{"MONDO:0005015", "HP:0000118"})
	b := typesKey([]string{"HP:0000118", "MONDO:0005015"})
	if a == b {
		t.Error("identifier order should change the key")
	}
	if a != typesKey([]string{"MONDO:0005015", "HP:0000118"}) {
		t.Error("same identifiers should produce the same key")
	}
}

func TestTypesKeyAvoidsJoinCollisions(t *testing.T) {
	// "a" + "bc" must not collide with "ab" + "c".
	if typesKey([]string{"a", "bc"}) == typesKey([]string{"ab", "c"}) {
		t.Error("adjacent identifiers should not concatenate into the same key")
	}
}

func TestCachedResolverNilCachePassesThrough(t *testing.T) {
	inner := &stubResolver{curies: []string{"MONDO:0005015"}}
	r := NewCachedResolver(inner, nil, nil)

	for range 3 {
		curies, err := r.LookupCURIEs(context.Background(), resolve.LookupRequest{Query: "diabetes"})
		if err != nil {
			t.Fatalf("LookupCURIEs: %v", err)
		}
		if len(curies) != 1 || curies[0] != "MONDO:0005015" {
			t.Errorf("curies = %v", curies)
		}
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
}

func TestCachedResolverPropagatesError(t *testing.T) {
	wantErr := errors.New("upstream down")
	r := NewCachedResolver(&stubResolver{err: wantErr}, nil, nil)

	_, err := r.LookupCURIEs(context.Background(), resolve.LookupRequest{Query: "diabetes"})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestCachedNormalizerNilCachePassesThrough(t *testing.T) {
	inner := &stubNormalizer{types: []string{"biolink:Disease", "biolink:NamedThing"}}
	n := NewCachedNormalizer(inner, nil, nil)

	types, err := n.TypesForCURIEs(context.Background(), []string{"MONDO:0005015"})
	if err != nil {
		t.Fatalf("TypesForCURIEs: %v", err)
	}
	if len(types) != 2 || types[0] != "biolink:Disease" {
		t.Errorf("types = %v", types)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestCachedNormalizerPropagatesError(t *testing.T) {
	wantErr := errors.New("upstream down")
	n := NewCachedNormalizer(&stubNormalizer{err: wantErr}, nil, nil)

	_, err := n.TypesForCURIEs(context.Background(), []string{"MONDO:0005015"})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
