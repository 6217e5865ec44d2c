package image

import "testing"

func TestPick_FrontCoverFallsBackToUntyped(t *testing.T) {
	candidates := []Image{
		{Type: TypeOther, Data: []byte("untyped")},
		{Type: TypeBackCover, Data: []byte("back")},
	}
	got, ok := Pick(candidates, TypeFrontCover)
	if !ok || string(got.Data) != "untyped" {
		t.Fatalf("Pick(FrontCover) = %+v, %v; want fallback to untyped", got, ok)
	}
}

func TestPick_ExactTypeWins(t *testing.T) {
	candidates := []Image{
		{Type: TypeOther, Data: []byte("untyped")},
		{Type: TypeFrontCover, Data: []byte("front")},
	}
	got, ok := Pick(candidates, TypeFrontCover)
	if !ok || string(got.Data) != "front" {
		t.Fatalf("Pick(FrontCover) = %+v, %v; want exact match", got, ok)
	}
}

func TestPick_NoMatch(t *testing.T) {
	candidates := []Image{{Type: TypeBackCover}}
	if _, ok := Pick(candidates, TypeFrontCover); ok {
		t.Error("expected no match")
	}
}
