package aiff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"

	_ "github.com/jmylchreest/ampgo/internal/codec/pcm"
	_ "github.com/jmylchreest/ampgo/pkg/ioutil/filestream"
)

// beUint16/beUint32 append big-endian integers, matching AIFF's chunk
// layout.
func beUint16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }
func beUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// encodeIEEE80Extended is the inverse of decodeIEEE80Extended, used to
// build a COMM chunk's sample-rate field.
func encodeIEEE80Extended(rate float64) []byte {
	var e int
	m := rate
	for m >= 1<<32 {
		m /= 2
		e++
	}
	for m < 1<<31 && m != 0 {
		m *= 2
		e--
	}
	mant := uint64(m) << 32
	exp := 16383 + 31 + e
	b := make([]byte, 10)
	b[0] = byte(exp >> 8)
	b[1] = byte(exp)
	hi := uint32(mant >> 32)
	b[2] = byte(hi >> 24)
	b[3] = byte(hi >> 16)
	b[4] = byte(hi >> 8)
	b[5] = byte(hi)
	return b
}

func buildAIFF(t *testing.T, channels, bits int, sampleRate int, samples []byte) []byte {
	t.Helper()

	comm := append(beUint16(uint16(channels)), beUint32(0)...) // numSampleFrames placeholder
	comm = append(comm, beUint16(uint16(bits))...)
	comm = append(comm, encodeIEEE80Extended(float64(sampleRate))...)

	ssnd := append(beUint32(0), beUint32(0)...) // offset, blockSize
	ssnd = append(ssnd, samples...)

	var form []byte
	form = append(form, []byte("COMM")...)
	form = append(form, beUint32(uint32(len(comm)))...)
	form = append(form, comm...)
	if len(comm)%2 == 1 {
		form = append(form, 0)
	}
	form = append(form, []byte("SSND")...)
	form = append(form, beUint32(uint32(len(ssnd)))...)
	form = append(form, ssnd...)
	if len(ssnd)%2 == 1 {
		form = append(form, 0)
	}

	var out []byte
	out = append(out, []byte("FORM")...)
	out = append(out, beUint32(uint32(4+len(form)))...)
	out = append(out, []byte("AIFF")...)
	out = append(out, form...)
	return out
}

func openFixture(t *testing.T, data []byte, mode registry.OpenMode) registry.Demuxer {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.aiff")
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
		t.Fatalf("Open: %v", err)
	}
	return d
}

func TestOpen_ParsesCOMMAndSSND(t *testing.T) {
	samples := make([]byte, 16*2*2) // 16 stereo frames, 16-bit
	data := buildAIFF(t, 2, 16, 44100, samples)

	d := openFixture(t, data, registry.OpenMetadata)
	defer d.Close()

	format := d.Format()
	if format.Channels != 2 {
		t.Errorf("Channels = %d, want 2", format.Channels)
	}
	if format.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", format.SampleRate)
	}
	if d.TotalFrames() != 16 {
		t.Errorf("TotalFrames() = %d, want 16", d.TotalFrames())
	}
}

func TestOpen_MissingFORMChunkFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.aiff")
	if err := os.WriteFile(path, []byte("not an aiff file"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	stream, err := ioutil.Open(uri.FromFilePath(path), ioutil.ModeIn|ioutil.ModeBinary)
	if err != nil {
		t.Fatalf("ioutil.Open: %v", err)
	}
	defer stream.Close()
	if _, err := Open(stream, registry.OpenMetadata); err == nil {
		t.Fatal("expected error for missing FORM chunk")
	}
}

func TestOpen_RejectsNonAIFFFormType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.aiff")
	data := append([]byte("FORM"), beUint32(4)...)
	data = append(data, []byte("WAVE")...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	stream, err := ioutil.Open(uri.FromFilePath(path), ioutil.ModeIn|ioutil.ModeBinary)
	if err != nil {
		t.Fatalf("ioutil.Open: %v", err)
	}
	defer stream.Close()
	if _, err := Open(stream, registry.OpenMetadata); err == nil {
		t.Fatal("expected error for non-AIFF FORM type")
	}
}

func TestOpen_PlaybackReadsDecodedFrames(t *testing.T) {
	samples := make([]byte, 8*2*2) // 8 stereo frames, 16-bit
	for i := range samples {
		samples[i] = byte(i)
	}
	data := buildAIFF(t, 2, 16, 44100, samples)

	d := openFixture(t, data, registry.OpenMetadata|registry.OpenPlayback)
	defer d.Close()

	var total int64
	for {
		var pkt audioformat.Packet
		if err := d.Read(&pkt); err != nil {
			t.Fatalf("Read: %v", err)
		}
		if pkt.Frames() == 0 {
			break
		}
		total += int64(pkt.Frames())
	}
	if total != 8 {
		t.Errorf("total decoded frames = %d, want 8", total)
	}
}
