// Package chanmap reorders decoded channel data from a codec's native
// channel order onto the canonical Xiph channel order used throughout
// audioformat (front-left, front-right, front-center, LFE, back-left,
// back-right, ...).
package chanmap

import (
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
)

// vorbisPermutation maps a Vorbis/Opus channel count to the permutation
// taking each native-order channel index to its canonical destination
// index, per the Vorbis I specification's channel ordering table (section
// 4.3.9). Channel counts 1 and 2 are already in canonical order and carry
// no registered permutation.
var vorbisPermutation = map[int][]int{
	3: {0, 2, 1},
	4: {0, 1, 2, 3},
	5: {0, 2, 1, 3, 4},
	6: {0, 2, 1, 4, 5, 3},
	7: {0, 2, 1, 5, 6, 4, 3},
	8: {0, 2, 1, 6, 7, 4, 5, 3},
}

// Permutation returns the Vorbis/Opus→Xiph channel permutation for the
// given channel count, or ok=false when the count needs no reordering
// (mono/stereo) or is out of the registered 3..8 range.
func Permutation(channels int) (perm []int, ok bool) {
	p, ok := vorbisPermutation[channels]
	return p, ok
}

// Apply reorders pkt's interleaved samples in place according to perm:
// perm[i] is the destination channel position for native channel i.
// Apply is a no-op (returning nil) for channel counts with no registered
// permutation.
func Apply(pkt *audioformat.Packet, perm []int) error {
	if len(perm) == 0 {
		return nil
	}
	if pkt.Channels != len(perm) {
		return errs.Newf(errs.InvalidArgument, "chanmap: packet has %d channels, permutation has %d", pkt.Channels, len(perm))
	}
	channels := pkt.Channels
	frame := make([]float32, channels)
	for f := 0; f < pkt.Frames(); f++ {
		base := f * channels
		copy(frame, pkt.Samples[base:base+channels])
		for src, dst := range perm {
			pkt.Samples[base+dst] = frame[src]
		}
	}
	return nil
}
