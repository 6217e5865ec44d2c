package dictionary

import "testing"

func keys(d *Dictionary) []string {
	var out []string
	for _, e := range d.Entries() {
		out = append(out, string(e.Key))
	}
	return out
}

func pairs(d *Dictionary) [][2]string {
	var out [][2]string
	for _, e := range d.Entries() {
		out = append(out, [2]string{string(e.Key), string(e.Value)})
	}
	return out
}

func buildXY() (*Dictionary, *Dictionary) {
	x := New()
	x.Insert("album", "A")
	x.Insert("artist", "A1")
	x.Insert("artist", "A2")
	x.Insert("title", "T")

	y := New()
	y.Insert("album", "B1")
	y.Insert("album", "B2")
	y.Insert("artist", "C1")
	y.Insert("genre", "G")
	y.Insert("title", "Z")

	return x, y
}

func TestMerge_SelfWinsOnKeyConflict(t *testing.T) {
	x, y := buildXY()
	x.Merge(y)

	want := [][2]string{
		{"album", "A"},
		{"artist", "A1"},
		{"artist", "A2"},
		{"genre", "G"},
		{"title", "T"},
	}
	got := pairs(x)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMerge_EmptyIdentity(t *testing.T) {
	x, y := buildXY()
	orig := pairs(x)

	empty := New()
	clone := x.Clone()
	clone.Merge(empty)
	if got := pairs(clone); !equalPairs(got, orig) {
		t.Errorf("d.Merge(empty) changed d: got %v, want %v", got, orig)
	}

	empty2 := New()
	empty2.Merge(y)
	if got := pairs(empty2); !equalPairs(got, pairs(y)) {
		t.Errorf("empty.Merge(d) != d: got %v, want %v", got, pairs(y))
	}
}

func equalPairs(a, b [][2]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInsertOrAssign_ReplacesAllWithKey(t *testing.T) {
	d := New()
	d.Insert("artist", "A1")
	d.Insert("artist", "A2")
	d.InsertOrAssign("artist", "Solo")

	got := d.GetAll("artist")
	if len(got) != 1 || got[0] != "Solo" {
		t.Errorf("GetAll(artist) = %v, want [Solo]", got)
	}
}

func TestSortedByKey(t *testing.T) {
	d := New()
	d.Insert("title", "T")
	d.Insert("album", "A")
	d.Insert("artist", "B")

	got := keys(d)
	want := []string{"album", "artist", "title"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keys = %v, want sorted %v", got, want)
		}
	}
}
