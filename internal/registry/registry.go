// Package registry implements the two static lookup tables behind the
// input/decoder registry: file-extension -> container demuxer factory,
// and codec-id -> decoder factory. Both are populated by per-container/
// per-codec init() functions (blank-imported by cmd/ entrypoints),
// following the package-level service registration idiom of a
// named-constructor map, generalized from HTTP services onto demuxers/
// decoders.
package registry

import (
	"strings"
	"sync"

	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/pkg/ampcodec"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/image"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
)

// Demuxer is the uniform playback surface every container package
// produces: a caller drives Read/Seek from a single dedicated thread,
// matching the single-threaded cooperative scheduling model.
type Demuxer interface {
	// StreamInfo returns the merged metadata dictionary gathered during
	// Open (ID3/APE/Vorbis-comment tags, container-native fields).
	StreamInfo() *dictionary.Dictionary

	// Images returns any embedded cover art discovered during Open.
	Images() []image.Image

	// Format reports the decoded stream's shape.
	Format() audioformat.Format

	// TotalFrames reports the container's declared total frame count, or
	// 0 if unknown ahead of time.
	TotalFrames() int64

	// Read pulls the next decoded packet, returning an empty packet at
	// end-of-stream.
	Read(pkt *audioformat.Packet) error

	// Seek repositions playback to the given absolute frame index.
	Seek(targetFrame int64) error

	// Close releases the underlying stream.
	Close() error
}

// OpenMode selects which capabilities an opened Demuxer needs, so a
// metadata-only open (tag editors, library scanners) can skip decoder
// instantiation entirely.
type OpenMode int

const (
	// OpenMetadata requests stream_info + seek-table construction only.
	OpenMetadata OpenMode = 1 << iota
	// OpenPlayback requests a decoder ready for Read/Seek.
	OpenPlayback
)

// Has reports whether m includes flag.
func (m OpenMode) Has(flag OpenMode) bool { return m&flag != 0 }

// InputFactory opens a Demuxer over an already-opened stream.
type InputFactory func(stream ioutil.Stream, mode OpenMode) (Demuxer, error)

var (
	mu           sync.RWMutex
	inputsByExt  = map[string]InputFactory{}
	decodersByID = map[audioformat.CodecID]ampcodec.Factory{}
)

// RegisterInput associates a lowercase file extension (without the
// leading dot, e.g. "aiff") with a container factory. Called from
// container packages' init(); duplicate registration for the same
// extension is a programming error and silently lets the last writer
// win, matching the "thread-safety required only for read" contract.
func RegisterInput(ext string, factory InputFactory) {
	mu.Lock()
	defer mu.Unlock()
	inputsByExt[strings.ToLower(ext)] = factory
}

// RegisterDecoder associates a codec_id with a decoder factory.
func RegisterDecoder(id audioformat.CodecID, factory ampcodec.Factory) {
	mu.Lock()
	defer mu.Unlock()
	decodersByID[id] = factory
}

// ResolveInput looks up the container factory registered for ext
// (without the leading dot; case-insensitive).
func ResolveInput(ext string) (InputFactory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := inputsByExt[strings.ToLower(ext)]
	if !ok {
		return nil, errs.Newf(errs.ProtocolNotSupported, "registry: no demuxer registered for extension %q", ext)
	}
	return f, nil
}

// ResolveDecoder looks up the decoder factory registered for
// format.CodecID and invokes it, letting the decoder refine format in
// place (e.g. deriving ChannelLayout from its own private config).
func ResolveDecoder(format *audioformat.CodecFormat) (ampcodec.Decoder, error) {
	mu.RLock()
	f, ok := decodersByID[format.CodecID]
	mu.RUnlock()
	if !ok {
		return nil, errs.Newf(errs.UnsupportedFormat, "registry: no decoder registered for codec %q", format.CodecID.String())
	}
	return f(format)
}
