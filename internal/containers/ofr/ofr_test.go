package ofr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"

	_ "github.com/jmylchreest/ampgo/pkg/ioutil/filestream"
)

func openFixture(t *testing.T, data []byte, mode registry.OpenMode) (registry.Demuxer, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.ofr")
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

func TestOpen_RejectsTooShortStream(t *testing.T) {
	_, err := openFixture(t, []byte{0, 1}, registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error for stream shorter than the minimum header size")
	}
}

func TestOpen_AlwaysFailsWithoutARegisteredOFRDecoder(t *testing.T) {
	// No concrete OptimFROG decoder is wired in this build: Open always
	// reports UnsupportedFormat once past the length check, since the
	// whole format/frame-count resolution is delegated to that decoder.
	_, err := openFixture(t, make([]byte, 64), registry.OpenMetadata)
	if err == nil {
		t.Fatal("expected error: no OptimFROG decoder is registered in this build")
	}
}
