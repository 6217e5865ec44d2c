// Package opus is the thin decoder adapter wrapping
// github.com/thesyncim/gopus's pure-Go Opus decoder, registered under
// audioformat.CodecOpus. Concrete codec implementations are treated as
// opaque collaborators here: all the actual SILK/CELT/hybrid decoding
// lives in gopus; this package only adapts its Decode call onto the
// ampcodec.Decoder contract. Pre-skip priming is reported by the
// container demuxer (OpusHead's pre_skip field becomes
// demux.Config.EncoderDelay), so Delay here is 0: gopus carries no
// additional intrinsic decoder delay of its own.
package opus

import (
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ampcodec"
	"github.com/jmylchreest/ampgo/pkg/audioformat"

	"github.com/thesyncim/gopus"
)

const sampleRate = 48000 // Opus always decodes to a constant 48 kHz.

func init() {
	registry.RegisterDecoder(audioformat.CodecOpus, New)
}

// Decoder wraps a gopus.Decoder. Channel reordering onto canonical Xiph
// order is the container demuxer's job (internal/containers/opus), not
// the decoder's.
type Decoder struct {
	dec      *gopus.Decoder
	channels int
	pcm      []float32
}

// New parses format.Extra as an OpusHead packet (magic, version,
// channel count, pre_skip u16LE, input_sample_rate u32LE, output_gain
// s16LE, channel_mapping_family) to recover the channel count/layout,
// then constructs the underlying gopus decoder.
func New(format *audioformat.CodecFormat) (ampcodec.Decoder, error) {
	head := format.Extra
	if len(head) < 19 || string(head[0:8]) != "OpusHead" {
		return nil, errs.New(errs.InvalidDataFormat, "opus: missing OpusHead in codec_format.Extra")
	}
	channels := int(head[9])

	dec, err := gopus.NewDecoder(sampleRate, clampStereo(channels))
	if err != nil {
		return nil, errs.Wrap(errs.InvalidDataFormat, err, "opus: NewDecoder")
	}

	format.SampleRate = sampleRate
	format.Channels = channels
	if format.ChannelLayout == 0 {
		format.ChannelLayout = audioformat.DefaultLayoutFor(channels)
	}

	return &Decoder{dec: dec, channels: channels}, nil
}

// clampStereo maps a multichannel Opus stream's channel count onto the
// 1/2-channel gopus.Decoder API; multichannel (3..8-channel) streams
// decode each Opus "coupled stream" pair independently in the real
// codec and are out of gopus's exposed surface, so this adapter only
// drives mono/stereo through gopus directly today.
func clampStereo(channels int) int {
	if channels >= 2 {
		return 2
	}
	return 1
}

func (d *Decoder) Send(packet []byte) error {
	if cap(d.pcm) < 5760*d.channels {
		d.pcm = make([]float32, 5760*d.channels)
	}
	n, err := d.dec.Decode(packet, d.pcm[:cap(d.pcm)])
	if err != nil {
		return errs.Wrap(errs.InvalidDataFormat, err, "opus: Decode")
	}
	d.pcm = d.pcm[:n*d.channels]
	return nil
}

func (d *Decoder) Recv(pkt *audioformat.Packet) (bool, error) {
	pkt.Assign(d.pcm, d.channels, 0)
	pkt.SetChannelLayout(audioformat.DefaultLayoutFor(d.channels))
	return false, nil
}

func (d *Decoder) Flush() error {
	d.pcm = d.pcm[:0]
	return nil
}

func (d *Decoder) Delay() int { return 0 }
