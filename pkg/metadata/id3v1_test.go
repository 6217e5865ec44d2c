package metadata

import "testing"

func buildID3v1Tag(title, artist, album, year, comment string, track, genre byte) []byte {
	b := make([]byte, ID3v1Size)
	copy(b[0:3], "TAG")
	copy(b[3:33], title)
	copy(b[33:63], artist)
	copy(b[63:93], album)
	copy(b[93:97], year)
	copy(b[97:125], comment)
	b[125] = 0
	b[126] = track
	b[127] = genre
	return b
}

func TestParseID3v1_V1Dot1WithTrackNumber(t *testing.T) {
	b := buildID3v1Tag("Song", "Band", "Record", "1999", "hello", 5, 17)
	d, ok := ParseID3v1(b)
	if !ok {
		t.Fatal("expected ok=true for well-formed tag")
	}
	if v, _ := d.Get("title"); v != "Song" {
		t.Errorf("title = %q, want %q", v, "Song")
	}
	if v, _ := d.Get("artist"); v != "Band" {
		t.Errorf("artist = %q, want %q", v, "Band")
	}
	if v, _ := d.Get("track number"); v != "5" {
		t.Errorf("track number = %q, want %q", v, "5")
	}
	if v, _ := d.Get("genre"); v != "Rock" {
		t.Errorf("genre = %q, want %q", v, "Rock")
	}
}

func TestParseID3v1_MissingMagicRejected(t *testing.T) {
	b := make([]byte, ID3v1Size)
	copy(b[0:3], "XXX")
	if _, ok := ParseID3v1(b); ok {
		t.Error("expected ok=false when magic is absent")
	}
}

func TestParseID3v1_WrongSizeRejected(t *testing.T) {
	if _, ok := ParseID3v1(make([]byte, 100)); ok {
		t.Error("expected ok=false for undersized buffer")
	}
}

func TestGenreName_OutOfRange(t *testing.T) {
	if got := GenreName(-1); got != "" {
		t.Errorf("GenreName(-1) = %q, want empty", got)
	}
	if got := GenreName(200); got != "" {
		t.Errorf("GenreName(200) = %q, want empty", got)
	}
}
