// Package audioformat defines the uncompressed/encoded stream shape types
// and the interleaved float packet buffer.
package audioformat

import "math/bits"

// Channel position bitmask constants (Xiph/canonical channel order),
// grounded on the conventional Xiph channel order and codec constant
// tables used throughout container demuxers.
const (
	ChannelFrontLeft uint32 = 1 << iota
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLFE
	ChannelBackLeft
	ChannelBackRight
	ChannelFrontLeftCenter
	ChannelFrontRightCenter
	ChannelBackCenter
	ChannelSideLeft
	ChannelSideRight
	ChannelTopCenter
	ChannelTopFrontLeft
	ChannelTopFrontCenter
	ChannelTopFrontRight
	ChannelTopBackLeft
	ChannelTopBackCenter
	ChannelTopBackRight
)

// Common layouts.
const (
	LayoutMono     = ChannelFrontCenter
	LayoutStereo   = ChannelFrontLeft | ChannelFrontRight
	Layout2Point1  = LayoutStereo | ChannelLFE
	LayoutQuad     = LayoutStereo | ChannelBackLeft | ChannelBackRight
	Layout5Point1  = LayoutStereo | ChannelFrontCenter | ChannelLFE | ChannelBackLeft | ChannelBackRight
	Layout7Point1  = Layout5Point1 | ChannelSideLeft | ChannelSideRight
)

// Format describes an uncompressed PCM stream's shape. Invariant:
// popcount(ChannelLayout) == Channels.
type Format struct {
	Channels      int
	ChannelLayout uint32
	SampleRate    int
}

// Valid reports whether f satisfies audio_format invariants:
// channels in [1,18], sample rate in [8000, 384000], and
// popcount(channel_layout) == channels (when a layout is set).
func (f Format) Valid() bool {
	if f.Channels < 1 || f.Channels > 18 {
		return false
	}
	if f.SampleRate < 8000 || f.SampleRate > 384000 {
		return false
	}
	if f.ChannelLayout != 0 && bits.OnesCount32(f.ChannelLayout) != f.Channels {
		return false
	}
	return true
}

// DefaultLayoutFor returns amp's default channel layout for a bare channel
// count when the container doesn't specify one explicitly.
func DefaultLayoutFor(channels int) uint32 {
	switch channels {
	case 1:
		return LayoutMono
	case 2:
		return LayoutStereo
	case 3:
		return Layout2Point1
	case 4:
		return LayoutQuad
	case 6:
		return Layout5Point1
	case 8:
		return Layout7Point1
	default:
		// No canonical layout: synthesize front-left..front-right-of-center
		// bits up to the requested count, matching the conventional
		// "assume demuxable for unknown" leniency in internal/codec/codec.go.
		var layout uint32
		for i := 0; i < channels && i < 18; i++ {
			layout |= 1 << uint(i)
		}
		return layout
	}
}

// CodecID is a 4-byte tag identifying a codec.
type CodecID [4]byte

// Well-known codec IDs.
var (
	CodecPCM     = CodecID{'l', 'p', 'c', 'm'}
	CodecFLAC    = CodecID{'f', 'L', 'a', 'C'}
	CodecALAC    = CodecID{'a', 'l', 'a', 'c'}
	CodecMP3     = CodecID{'.', 'm', 'p', '3'}
	CodecVorbis  = CodecID{'v', 'o', 'r', 'b'}
	CodecOpus    = CodecID{'o', 'p', 'u', 's'}
	CodecAAC     = CodecID{'a', 'a', 'c', ' '}
	CodecALAW    = CodecID{'a', 'l', 'a', 'w'}
	CodecULAW    = CodecID{'u', 'l', 'a', 'w'}
	CodecAPE     = CodecID{'A', 'P', 'E', ' '}
	CodecTTA     = CodecID{'T', 'T', 'A', '1'}
	CodecWavPack = CodecID{'W', 'V', 'P', 'K'}
	CodecMPC     = CodecID{'M', 'P', 'C', 'K'}
	CodecOFR     = CodecID{'O', 'F', 'R', ' '}
)

func (c CodecID) String() string { return string(c[:]) }

// Flags augment a codec_format with bitstream framing hints.
type Flags uint32

const (
	// FlagBigEndian marks PCM-like codecs carrying big-endian samples.
	FlagBigEndian Flags = 1 << iota
	// FlagUnsignedInt marks unsigned (rather than two's-complement) PCM.
	FlagUnsignedInt
	// FlagFloat marks IEEE-754 floating point PCM.
	FlagFloat
)

// CodecFormat describes an encoded stream's shape.
type CodecFormat struct {
	Format

	CodecID         CodecID
	Flags           Flags
	BitsPerSample   int
	BytesPerPacket  int
	FramesPerPacket int
	BitRate         int64
	// Extra holds opaque codec-private configuration bytes (e.g. AAC
	// AudioSpecificConfig, Vorbis/Opus identification headers).
	Extra []byte
}
