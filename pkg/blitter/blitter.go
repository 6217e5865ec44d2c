// Package blitter converts raw PCM samples in any of the source layouts
// a container demuxer might hand back (signed/unsigned integer or IEEE
// float; little or big endian; interleaved or planar) into the
// canonical interleaved float32 representation consumed by
// audioformat.Packet.
package blitter

import (
	"encoding/binary"
	"math"

	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
)

// SampleKind selects the source sample's numeric representation.
type SampleKind int

const (
	SignedInt SampleKind = iota
	UnsignedInt
	IEEEFloat
)

// Endian selects the source sample's byte order.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

// Layout selects whether source channels are interleaved in one buffer
// or held as separate planes.
type Layout int

const (
	Interleaved Layout = iota
	Planar
)

// Spec describes a source PCM buffer's physical layout, the configuration
// a container's stream info supplies.
type Spec struct {
	BitsPerSample  int
	BytesPerSample int
	Channels       int
	Kind           SampleKind
	Endian         Endian
	Layout         Layout
}

func (s Spec) byteOrder() binary.ByteOrder {
	if s.Endian == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// maxIntValue returns the magnitude used to normalize an integer sample of
// s.BitsPerSample bits into [-1, +1].
func (s Spec) maxIntValue() float64 {
	return float64(int64(1) << uint(s.BitsPerSample-1))
}

// Blit converts src (raw bytes, laid out per spec) into pkt, replacing its
// existing contents. frames is the number of sample frames present in src.
func Blit(spec Spec, src []byte, frames int, pkt *audioformat.Packet) error {
	if spec.Channels <= 0 {
		return errs.Newf(errs.InvalidArgument, "blitter: channels must be positive, got %d", spec.Channels)
	}
	needed := frames * spec.Channels * spec.BytesPerSample
	if spec.Layout == Interleaved && len(src) < needed {
		return errs.Newf(errs.OutOfBounds, "blitter: need %d bytes, have %d", needed, len(src))
	}

	pkt.Channels = spec.Channels
	pkt.Samples = pkt.Samples[:0]
	if cap(pkt.Samples) < frames*spec.Channels {
		pkt.Samples = make([]float32, 0, frames*spec.Channels)
	}

	switch spec.Layout {
	case Interleaved:
		blitInterleaved(spec, src, frames, pkt)
	case Planar:
		blitPlanar(spec, src, frames, pkt)
	}
	return nil
}

func blitInterleaved(spec Spec, src []byte, frames int, pkt *audioformat.Packet) {
	stride := spec.BytesPerSample
	total := frames * spec.Channels
	pkt.Samples = pkt.Samples[:0]
	for i := 0; i < total; i++ {
		off := i * stride
		pkt.Samples = append(pkt.Samples, decodeSample(spec, src[off:off+stride]))
	}
}

// blitPlanar interprets src as C consecutive planes, each frames samples
// long, and interleaves them column-major into pkt.
func blitPlanar(spec Spec, src []byte, frames int, pkt *audioformat.Packet) {
	stride := spec.BytesPerSample
	planeBytes := frames * stride
	pkt.Samples = pkt.Samples[:0]
	pkt.Samples = append(pkt.Samples, make([]float32, frames*spec.Channels)...)
	for c := 0; c < spec.Channels; c++ {
		plane := src[c*planeBytes : (c+1)*planeBytes]
		for f := 0; f < frames; f++ {
			off := f * stride
			pkt.Samples[f*spec.Channels+c] = decodeSample(spec, plane[off:off+stride])
		}
	}
}

func decodeSample(spec Spec, b []byte) float32 {
	order := spec.byteOrder()
	switch spec.Kind {
	case IEEEFloat:
		switch spec.BytesPerSample {
		case 4:
			return math.Float32frombits(order.Uint32(b))
		case 8:
			return float32(math.Float64frombits(order.Uint64(b)))
		}
		return 0
	case UnsignedInt:
		u := readUint(order, b)
		signed := int64(u) - int64(1)<<uint(spec.BitsPerSample-1)
		return float32(float64(signed) / spec.maxIntValue())
	default: // SignedInt
		u := readUint(order, b)
		signed := signExtend(u, spec.BitsPerSample)
		return float32(float64(signed) / spec.maxIntValue())
	}
}

func readUint(order binary.ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 3:
		if order == binary.BigEndian {
			return uint64(b[0])<<16 | uint64(b[1])<<8 | uint64(b[2])
		}
		return uint64(b[2])<<16 | uint64(b[1])<<8 | uint64(b[0])
	case 4:
		return uint64(order.Uint32(b))
	case 8:
		return order.Uint64(b)
	default:
		return 0
	}
}

// signExtend interprets the low bits-wide bits of u as two's-complement.
func signExtend(u uint64, bits int) int64 {
	shift := 64 - uint(bits)
	return int64(u<<shift) >> shift
}
