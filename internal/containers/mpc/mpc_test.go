package mpc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"

	_ "github.com/jmylchreest/ampgo/pkg/ioutil/filestream"
)

// encodeVarint is the inverse of readPackedVarint: 7 bits per byte,
// most-significant byte first, continuation bit set on every byte but
// the last.
func encodeVarint(v int) []byte {
	var chunks []byte
	chunks = append(chunks, byte(v&0x7F))
	v >>= 7
	for v > 0 {
		chunks = append(chunks, byte(v&0x7F)|0x80)
		v >>= 7
	}
	// chunks is currently least-significant-first; reverse it.
	out := make([]byte, len(chunks))
	for i, b := range chunks {
		out[len(chunks)-1-i] = b
	}
	return out
}

func buildKeyPacket(key string, payload []byte) []byte {
	sizeLen := 1
	size := 2 + sizeLen + len(payload)
	sz := encodeVarint(size)
	if len(sz) != sizeLen {
		panic("fixture payload too large for single-byte varint size")
	}
	out := append([]byte(key), sz...)
	return append(out, payload...)
}

func buildSV8(samples, begSilence int, channels, rateIdx int, audioPayload []byte) []byte {
	word := ((channels - 1) & 0xF) << 4
	word |= (rateIdx & 0x3) << 13
	shPayload := append([]byte{0, 0, 0, 0}, 8) // crc(4) + version(1)
	shPayload = append(shPayload, encodeVarint(samples)...)
	shPayload = append(shPayload, encodeVarint(begSilence)...)
	shPayload = append(shPayload, byte(word>>8), byte(word))

	out := append([]byte("MPCK"), buildKeyPacket("SH", shPayload)...)
	out = append(out, buildKeyPacket("AP", audioPayload)...)
	out = append(out, buildKeyPacket("SE", nil)...)
	return out
}

func openFixture(t *testing.T, data []byte, mode registry.OpenMode) (registry.Demuxer, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.mpc")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	stream, err := ioutil.Open(uri.FromFilePath(path), ioutil.ModeIn|ioutil.ModeBinary)
	if err != nil {
		t.Fatalf("ioutil.Open: %v", err)
	}
	d, err := Open(stream, mode)
	if err != nil {
		stream.Close()
		return nil, err
	}
	return d, nil
}

func TestOpen_ParsesSV8StreamHeader(t *testing.T) {
	data := buildSV8(1000, 0, 2, 0, make([]byte, 20))

	d, err := openFixture(t, data, registry.OpenMetadata)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	format := d.Format()
	if format.Channels != 2 {
		t.Errorf("Channels = %d, want 2", format.Channels)
	}
	if format.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", format.SampleRate)
	}
	if d.TotalFrames() != 1000 {
		t.Errorf("TotalFrames() = %d, want 1000", d.TotalFrames())
	}
}

func TestOpen_SubtractsLeadingSilenceFromTotalFrames(t *testing.T) {
	data := buildSV8(1000, 100, 1, 3, make([]byte, 20))

	d, err := openFixture(t, data, registry.OpenMetadata)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if d.TotalFrames() != 900 {
		t.Errorf("TotalFrames() = %d, want 900", d.TotalFrames())
	}
	format := d.Format()
	if format.SampleRate != 32000 {
		t.Errorf("SampleRate = %d, want 32000", format.SampleRate)
	}
}

func TestOpen_RejectsMissingSignature(t *testing.T) {
	_, err := openFixture(t, []byte("not a musepack file"), registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error for missing Musepack signature")
	}
}

func TestOpen_ParsesLegacySV7Magic(t *testing.T) {
	data := append([]byte{'M', 'P', '+', 0x07}, make([]byte, 100)...)

	d, err := openFixture(t, data, registry.OpenMetadata)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	format := d.Format()
	if format.Channels != 2 || format.SampleRate != 44100 {
		t.Errorf("Format() = %+v, want stereo/44100 (SV7 fallback)", format)
	}
}
