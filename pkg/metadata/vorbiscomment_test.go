package metadata

import (
	"encoding/binary"
	"testing"
)

func appendU32LEString(buf []byte, s string) []byte {
	sz := make([]byte, 4)
	binary.LittleEndian.PutUint32(sz, uint32(len(s)))
	buf = append(buf, sz...)
	return append(buf, s...)
}

func buildVorbisCommentBlock(vendor string, comments ...string) []byte {
	var b []byte
	b = appendU32LEString(b, vendor)
	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(comments)))
	b = append(b, count...)
	for _, c := range comments {
		b = appendU32LEString(b, c)
	}
	return b
}

func TestParseVorbisComment_BasicFields(t *testing.T) {
	b := buildVorbisCommentBlock("ampgo encoder 1.0", "ARTIST=Test Artist", "TITLE=Test Title")
	res, err := ParseVorbisComment(b)
	if err != nil {
		t.Fatalf("ParseVorbisComment: %v", err)
	}
	if v, _ := res.Dict.Get("artist"); v != "Test Artist" {
		t.Errorf("artist = %q, want %q", v, "Test Artist")
	}
	if v, _ := res.Dict.Get("title"); v != "Test Title" {
		t.Errorf("title = %q, want %q", v, "Test Title")
	}
}

func TestParseVorbisComment_R128TrackGainConversion(t *testing.T) {
	// -770/256 = -3.0078125 dB relative to -23 LUFS; +5 dB -> ~1.99 dB.
	b := buildVorbisCommentBlock("vendor", "R128_TRACK_GAIN=-770")
	res, err := ParseVorbisComment(b)
	if err != nil {
		t.Fatalf("ParseVorbisComment: %v", err)
	}
	v, ok := res.Dict.Get("replaygain track gain")
	if !ok {
		t.Fatal("expected replaygain track gain to be set")
	}
	if v != "1.99 dB" {
		t.Errorf("replaygain track gain = %q, want %q", v, "1.99 dB")
	}
}

func TestParseVorbisComment_UnknownFieldLowercased(t *testing.T) {
	b := buildVorbisCommentBlock("vendor", "X-CUSTOM-FIELD=value")
	res, err := ParseVorbisComment(b)
	if err != nil {
		t.Fatalf("ParseVorbisComment: %v", err)
	}
	if v, _ := res.Dict.Get("x-custom-field"); v != "value" {
		t.Errorf("x-custom-field = %q, want %q", v, "value")
	}
}
