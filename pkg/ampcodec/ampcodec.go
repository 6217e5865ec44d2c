// Package ampcodec defines the decoder adapter contract that every
// per-codec decoder implements, and the registry factory signature used
// to construct one from a codec_format.
package ampcodec

import (
	"github.com/jmylchreest/ampgo/pkg/audioformat"
)

// Decoder wraps a single underlying codec library (FLAC, Vorbis, Opus,
// Monkey's Audio, WavPack, Musepack, OptimFROG, MP3) behind a uniform
// send/recv/flush protocol matching the demuxer base protocol's state
// machine.
type Decoder interface {
	// Send hands the decoder one compressed packet to decode.
	Send(packet []byte) error

	// Recv pulls decoded frames into pkt, replacing its contents. incomplete
	// reports whether the decoder still holds buffered frames that a
	// subsequent Recv (without another Send) would return.
	Recv(pkt *audioformat.Packet) (incomplete bool, err error)

	// Flush discards any buffered state, used before a seek.
	Flush() error

	// Delay returns the codec's intrinsic decoder delay in frames (e.g.
	// Opus pre-skip, MPEG Layer III's 529-sample filterbank delay),
	// applied once at stream start in addition to any container-reported
	// encoder delay.
	Delay() int
}

// Factory constructs a Decoder for the given codec_format. It may refine
// fields in format in place — notably ChannelLayout, when the container
// left it zero and the codec can derive it from its own private
// configuration (e.g. a Vorbis identification header's channel count).
type Factory func(format *audioformat.CodecFormat) (Decoder, error)
