package vorbis

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

func buildIdentPacket(channels int, sampleRate uint32) []byte {
	p := append([]byte{1}, []byte("vorbis")...)
	p = append(p, leUint32(0)...)           // vorbis_version
	p = append(p, byte(channels))           // audio_channels
	p = append(p, leUint32(sampleRate)...)  // audio_sample_rate
	p = append(p, leUint32(0)...)           // bitrate_maximum
	p = append(p, leUint32(0)...)           // bitrate_nominal
	p = append(p, leUint32(0)...)           // bitrate_minimum
	p = append(p, 0)                        // blocksize
	p = append(p, 1)                        // framing_flag
	return p
}

func buildEmptyCommentPacket() []byte {
	p := append([]byte{3}, []byte("vorbis")...)
	p = append(p, leUint32(0)...) // vendor_length
	p = append(p, leUint32(0)...) // comment_list_length
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

func buildOggVorbis(channels int, sampleRate uint32, audio []byte) []byte {
	ident := buildIdentPacket(channels, sampleRate)
	comment := buildEmptyCommentPacket()
	setup := append([]byte{5}, []byte("vorbis-setup-placeholder")...)

	page1 := buildOggPage(99, 0, 0, [][]byte{ident, comment, setup})
	page2 := buildOggPage(99, 500, 0, [][]byte{audio})
	return append(page1, page2...)
}

func openFixture(t *testing.T, data []byte, mode registry.OpenMode) (registry.Demuxer, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.ogg")
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

func TestOpen_ParsesIdentificationPacket(t *testing.T) {
	data := buildOggVorbis(2, 44100, []byte("audio-packet-1"))

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
	if d.TotalFrames() != 500 {
		t.Errorf("TotalFrames() = %d, want 500 (last page's granule position)", d.TotalFrames())
	}
}

func TestOpen_RejectsMissingOggSMagic(t *testing.T) {
	_, err := openFixture(t, []byte("definitely not an ogg stream"), registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error for missing OggS magic")
	}
}

func TestOpen_RejectsStreamWithNoVorbisIdentPacket(t *testing.T) {
	page := buildOggPage(1, 0, 0, [][]byte{[]byte("not vorbis at all")})
	_, err := openFixture(t, page, registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error: no logical stream carries a Vorbis identification packet")
	}
}

func TestOpen_PlaybackFailsWithoutRegisteredDecoder(t *testing.T) {
	data := buildOggVorbis(2, 44100, []byte("audio-packet-1"))

	_, err := openFixture(t, data, registry.OpenMetadata|registry.OpenPlayback)
	if err == nil {
		t.Fatal("expected error: no Vorbis decoder is registered in this build")
	}
}
