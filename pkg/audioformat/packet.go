package audioformat

import "math/bits"

// Packet is the interleaved float32 sample buffer that crosses the
// decoder->caller boundary. Invariant:
// len(Samples) == Frames() * Channels.
type Packet struct {
	Samples       []float32
	BitRate       int64
	Channels      int
	ChannelLayout uint32
}

// Frames returns the number of interleaved frames currently held.
func (p *Packet) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Empty reports whether the packet holds zero frames; an empty packet
// returned from a demuxer's Read signals end-of-stream.
func (p *Packet) Empty() bool { return len(p.Samples) == 0 }

// Resize sets the packet to exactly n frames. When growing, the new tail
// is zero-filled unless uninitialized is true.
func (p *Packet) Resize(n int, uninitialized bool) {
	want := n * p.Channels
	if want <= cap(p.Samples) {
		old := len(p.Samples)
		p.Samples = p.Samples[:want]
		if !uninitialized {
			for i := old; i < want; i++ {
				p.Samples[i] = 0
			}
		}
		return
	}
	grown := make([]float32, want)
	copy(grown, p.Samples)
	p.Samples = grown
}

// Append adds interleaved samples from src (already laid out
// channel-interleaved) to the end of the packet.
func (p *Packet) Append(src []float32) {
	p.Samples = append(p.Samples, src...)
}

// Assign replaces the packet's contents with the interleaved samples in src.
func (p *Packet) Assign(src []float32, channels int, layout uint32) {
	p.Samples = append(p.Samples[:0], src...)
	p.Channels = channels
	p.ChannelLayout = layout
}

// FillPlanar replaces the packet's contents by interleaving frames
// column-major from C separate channel planes.
func (p *Packet) FillPlanar(planes [][]float32, frames int) {
	p.Channels = len(planes)
	p.Samples = p.Samples[:0]
	p.appendPlanar(planes, frames)
}

// AppendPlanar interleaves frames from C separate channel planes and
// appends them to the packet's existing contents.
func (p *Packet) AppendPlanar(planes [][]float32, frames int) {
	p.appendPlanar(planes, frames)
}

func (p *Packet) appendPlanar(planes [][]float32, frames int) {
	channels := len(planes)
	base := len(p.Samples)
	p.Samples = append(p.Samples, make([]float32, frames*channels)...)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			p.Samples[base+f*channels+c] = planes[c][f]
		}
	}
}

// PopFront removes the first n frames from the packet (used to trim
// encoder delay / priming).
func (p *Packet) PopFront(n int) {
	drop := n * p.Channels
	if drop >= len(p.Samples) {
		p.Samples = p.Samples[:0]
		return
	}
	copy(p.Samples, p.Samples[drop:])
	p.Samples = p.Samples[:len(p.Samples)-drop]
}

// PopBack removes the last n frames from the packet (used to trim
// overshoot past total_frames).
func (p *Packet) PopBack(n int) {
	drop := n * p.Channels
	if drop >= len(p.Samples) {
		p.Samples = p.Samples[:0]
		return
	}
	p.Samples = p.Samples[:len(p.Samples)-drop]
}

// SetChannelLayout updates ChannelLayout and derives Channels from its
// popcount. It panics if an explicit, already-set Channels disagrees,
// matching the convention of asserting when an explicit count is provided
// that disagrees with the derived one.
func (p *Packet) SetChannelLayout(layout uint32) {
	n := bits.OnesCount32(layout)
	if p.Channels != 0 && p.Channels != n {
		panic("audioformat: channel layout popcount disagrees with explicit channel count")
	}
	p.ChannelLayout = layout
	p.Channels = n
}
