package mac

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"

	_ "github.com/jmylchreest/ampgo/pkg/ioutil/filestream"
)

func leUint16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func leUint32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func leUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// buildAPE constructs a minimal version-3980+ Monkey's Audio file: a
// 52-byte descriptor, a 24-byte header, an 8-byte seek table (two
// frames), and two frames of raw zeroed payload sized to match the one
// seek-table entry this fixture supplies.
func buildAPE(channels, bitsPerSample uint16, sampleRate uint32) []byte {
	const (
		descriptorSize = 52
		apeHeaderSize  = 24
		seekTableSize  = 8
		wavHeaderSize  = 0
		frame0Size     = 16
		frame1Size     = 20
		blocksPerFrame = 4096
		finalBlocks    = 2000
	)

	var b []byte
	b = append(b, "MAC "...)
	b = append(b, leUint16(3980)...) // version
	b = append(b, 0, 0)              // padding
	b = append(b, leUint32(descriptorSize)...)
	b = append(b, leUint32(apeHeaderSize)...)
	b = append(b, leUint32(seekTableSize)...)
	b = append(b, leUint32(wavHeaderSize)...)
	b = append(b, leUint64(0)...) // audioDataSize, unused
	b = append(b, leUint32(0)...) // trailDataSize
	b = append(b, make([]byte, 16)...) // md5
	b = append(b, leUint16(0)...)      // compressionLevel
	b = append(b, leUint16(0)...)      // formatFlags
	b = append(b, leUint32(blocksPerFrame)...)
	b = append(b, leUint32(finalBlocks)...)
	b = append(b, leUint32(2)...) // totalFrames
	b = append(b, leUint16(bitsPerSample)...)
	b = append(b, leUint16(channels)...)
	b = append(b, leUint32(sampleRate)...)

	dataStart := int64(descriptorSize + apeHeaderSize + seekTableSize + wavHeaderSize)
	// Seek table: only the entry for frame[1] is consulted (frame[0]'s
	// position is always dataStart); the second 4-byte slot is unused.
	b = append(b, leUint32(uint32(dataStart+frame0Size))...)
	b = append(b, leUint32(0)...)

	b = append(b, make([]byte, frame0Size)...)
	b = append(b, make([]byte, frame1Size)...)
	return b
}

func openFixture(t *testing.T, data []byte, mode registry.OpenMode) (registry.Demuxer, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.ape")
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

func TestOpen_ParsesDescriptorAndHeader(t *testing.T) {
	data := buildAPE(2, 16, 44100)

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
	const wantTotal = 4096*1 + 2000 // blocksPerFrame*(totalFrames-1) + finalFrameBlocks
	if d.TotalFrames() != wantTotal {
		t.Errorf("TotalFrames() = %d, want %d", d.TotalFrames(), wantTotal)
	}
}

func TestOpen_RejectsMissingSignature(t *testing.T) {
	_, err := openFixture(t, []byte("definitely not an ape stream"), registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error for missing 'MAC ' signature")
	}
}

func TestOpen_RejectsSeekTableSmallerThanFrameCount(t *testing.T) {
	data := buildAPE(2, 16, 44100)
	// Corrupt seekTableSize (at byte offset 16, a little-endian uint32)
	// down to 4 bytes, which covers only 1 frame instead of the 2 this
	// fixture declares via totalFrames.
	corrupted := append([]byte{}, data...)
	copy(corrupted[16:20], leUint32(4))

	_, err := openFixture(t, corrupted, registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error: seek table smaller than total frame count")
	}
}

func TestOpen_PlaybackFailsWithoutRegisteredDecoder(t *testing.T) {
	data := buildAPE(2, 16, 44100)

	_, err := openFixture(t, data, registry.OpenMetadata|registry.OpenPlayback)
	if err == nil {
		t.Fatal("expected error: no Monkey's Audio decoder is registered in this build")
	}
}
