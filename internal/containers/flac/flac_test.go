package flac

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"

	_ "github.com/jmylchreest/ampgo/pkg/ioutil/filestream"
)

// buildStreamInfo packs the 34-byte STREAMINFO block body for the given
// sample rate, channel count, bit depth and total sample count.
func buildStreamInfo(sampleRate, channels, bits int, total int64) []byte {
	b := make([]byte, 34)
	b[10] = byte((sampleRate >> 12) & 0xFF)
	b[11] = byte((sampleRate >> 4) & 0xFF)
	b[12] = byte(sampleRate&0x0F) << 4
	b[12] |= byte((channels-1)&0x07) << 1
	b[12] |= byte(((bits - 1) >> 4) & 0x01)
	b[13] = byte((bits-1)&0x0F) << 4
	b[13] |= byte((total >> 32) & 0x0F)
	b[14] = byte(total >> 24)
	b[15] = byte(total >> 16)
	b[16] = byte(total >> 8)
	b[17] = byte(total)
	return b
}

func buildNativeFLAC(sampleRate, channels, bits int, total int64, audio []byte) []byte {
	block := buildStreamInfo(sampleRate, channels, bits, total)
	header := []byte{0x80, byte(len(block) >> 16), byte(len(block) >> 8), byte(len(block))} // last=1, type=STREAMINFO
	out := append([]byte("fLaC"), header...)
	out = append(out, block...)
	return append(out, audio...)
}

func openFixture(t *testing.T, data []byte, mode registry.OpenMode) (registry.Demuxer, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.flac")
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

func TestOpen_ParsesNativeStreamInfo(t *testing.T) {
	data := buildNativeFLAC(44100, 2, 16, 1000, make([]byte, 256))

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

func TestOpen_RejectsMissingSignature(t *testing.T) {
	_, err := openFixture(t, []byte("definitely not a flac stream"), registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error for missing fLaC/OggS+FLAC signature")
	}
}

func TestOpen_RejectsTruncatedMetadataBlock(t *testing.T) {
	full := buildNativeFLAC(44100, 2, 16, 1000, make([]byte, 256))
	truncated := full[:20] // cuts off mid-STREAMINFO

	_, err := openFixture(t, truncated, registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error for metadata block running past end of stream")
	}
}

func TestOpen_PlaybackFailsWithoutRegisteredDecoder(t *testing.T) {
	data := buildNativeFLAC(44100, 2, 16, 1000, make([]byte, 256))

	_, err := openFixture(t, data, registry.OpenMetadata|registry.OpenPlayback)
	if err == nil {
		t.Fatal("expected error: no FLAC decoder is registered in this build")
	}
}
