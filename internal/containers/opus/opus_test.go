package opus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"

	_ "github.com/jmylchreest/ampgo/pkg/ioutil/filestream"
)

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

func buildOpusHead(channels int, preSkip uint16) []byte {
	p := append([]byte("OpusHead"), 1) // version
	p = append(p, byte(channels))
	p = append(p, byte(preSkip), byte(preSkip>>8))
	p = append(p, leUint32(48000)...) // input sample rate, informational only
	p = append(p, 0, 0)               // output gain
	p = append(p, 0)                  // channel mapping family
	return p
}

func buildOpusTags() []byte {
	p := append([]byte("OpusTags"), leUint32(0)...) // vendor_length
	p = append(p, leUint32(0)...)                    // comment_list_length
	return p
}

func buildOggPage(serial uint32, granule int64, headerType byte, segments [][]byte) []byte {
	var lacing []byte
	var data []byte
	for _, seg := range segments {
		lacing = append(lacing, byte(len(seg)))
		data = append(data, seg...)
	}
	page := []byte("OggS")
	page = append(page, 0)
	page = append(page, headerType)
	page = append(page, leUint64(uint64(granule))...)
	page = append(page, leUint32(serial)...)
	page = append(page, leUint32(0)...)
	page = append(page, leUint32(0)...)
	page = append(page, byte(len(lacing)))
	page = append(page, lacing...)
	page = append(page, data...)
	return page
}

func buildOggOpus(channels int, preSkip uint16, audio []byte) []byte {
	head := buildOpusHead(channels, preSkip)
	tags := buildOpusTags()
	page1 := buildOggPage(11, 0, 0, [][]byte{head, tags})
	page2 := buildOggPage(11, 960, 0, [][]byte{audio})
	return append(page1, page2...)
}

func openFixture(t *testing.T, data []byte, mode registry.OpenMode) (registry.Demuxer, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.opus")
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

func TestOpen_ParsesOpusHead(t *testing.T) {
	data := buildOggOpus(2, 312, []byte("opus-audio-frame"))

	d, err := openFixture(t, data, registry.OpenMetadata)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	format := d.Format()
	if format.Channels != 2 {
		t.Errorf("Channels = %d, want 2", format.Channels)
	}
	if format.SampleRate != opusSampleRate {
		t.Errorf("SampleRate = %d, want %d", format.SampleRate, opusSampleRate)
	}
	if d.TotalFrames() != 960 {
		t.Errorf("TotalFrames() = %d, want 960 (last page's granule position)", d.TotalFrames())
	}
}

func TestOpen_RejectsMissingOggSMagic(t *testing.T) {
	_, err := openFixture(t, []byte("definitely not an ogg stream"), registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error for missing OggS magic")
	}
}

func TestOpen_RejectsStreamWithNoOpusHeadPacket(t *testing.T) {
	page := buildOggPage(1, 0, 0, [][]byte{[]byte("not an opus stream at all")})
	_, err := openFixture(t, page, registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error: no logical stream carries an OpusHead packet")
	}
}
