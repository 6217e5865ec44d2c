// Package pcm implements the thin decoder adapter for raw (uncompressed)
// PCM streams, registered under audioformat.CodecPCM. It is the one
// codec decoder adapter with no external library to wrap: PCM needs
// only the blitter, which this module already owns, so unlike the
// compressed-codec adapters in internal/codec/opus it has no
// out-of-pack dependency to note.
package pcm

import (
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ampcodec"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
	"github.com/jmylchreest/ampgo/pkg/blitter"
)

func init() {
	registry.RegisterDecoder(audioformat.CodecPCM, New)
}

// Decoder blits whatever raw bytes it's Sent straight into float32
// frames; it never buffers across Send/Recv pairs; see the demuxer base
// protocol (pkg/demux), which always pairs one Send with one Recv.
type Decoder struct {
	spec    blitter.Spec
	pending []byte
}

// New builds a Decoder from a codec format's bit depth, channel count and
// flags.
func New(format *audioformat.CodecFormat) (ampcodec.Decoder, error) {
	if format.Channels <= 0 || format.BitsPerSample <= 0 {
		return nil, errs.Newf(errs.InvalidDataFormat, "pcm: channels=%d bits_per_sample=%d", format.Channels, format.BitsPerSample)
	}
	kind := blitter.SignedInt
	switch {
	case format.Flags&audioformat.FlagFloat != 0:
		kind = blitter.IEEEFloat
	case format.Flags&audioformat.FlagUnsignedInt != 0:
		kind = blitter.UnsignedInt
	}
	endian := blitter.LittleEndian
	if format.Flags&audioformat.FlagBigEndian != 0 {
		endian = blitter.BigEndian
	}
	spec := blitter.Spec{
		BitsPerSample:  format.BitsPerSample,
		BytesPerSample: (format.BitsPerSample + 7) / 8,
		Channels:       format.Channels,
		Kind:           kind,
		Endian:         endian,
		Layout:         blitter.Interleaved,
	}
	return &Decoder{spec: spec}, nil
}

func (d *Decoder) Send(packet []byte) error {
	d.pending = packet
	return nil
}

func (d *Decoder) Recv(pkt *audioformat.Packet) (bool, error) {
	frameBytes := d.spec.BytesPerSample * d.spec.Channels
	if frameBytes == 0 {
		return false, errs.New(errs.InvalidDataFormat, "pcm: zero-sized frame")
	}
	frames := len(d.pending) / frameBytes
	if err := blitter.Blit(d.spec, d.pending, frames, pkt); err != nil {
		return false, err
	}
	d.pending = nil
	return false, nil
}

func (d *Decoder) Flush() error { d.pending = nil; return nil }
func (d *Decoder) Delay() int   { return 0 }
