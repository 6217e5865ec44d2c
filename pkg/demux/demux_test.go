package demux

import (
	"testing"

	"github.com/jmylchreest/ampgo/pkg/audioformat"
)

// fakeParser yields a fixed number of packets, each reporting n bytes fed
// from a constant payload, then signals EOS.
type fakeParser struct {
	remaining int
	payload   []byte
}

func (p *fakeParser) Feed(buf []byte) (int, bool, error) {
	if p.remaining <= 0 {
		return 0, false, nil
	}
	p.remaining--
	n := copy(buf, p.payload)
	return n, true, nil
}

// fakeDecoder turns every Send into framesPerPacket frames of a constant
// sample value, delivered whole in one Recv (never incomplete).
type fakeDecoder struct {
	framesPerPacket int
	channels        int
	delay           int
	flushed         int
	value           float32
}

func (d *fakeDecoder) Send(packet []byte) error { return nil }

func (d *fakeDecoder) Recv(pkt *audioformat.Packet) (bool, error) {
	pkt.Channels = d.channels
	pkt.Resize(d.framesPerPacket, true)
	for i := range pkt.Samples {
		pkt.Samples[i] = d.value
	}
	return false, nil
}

func (d *fakeDecoder) Flush() error { d.flushed++; return nil }
func (d *fakeDecoder) Delay() int   { return d.delay }

func TestRead_YieldsDecodedPacketsThenEmptyAtEOS(t *testing.T) {
	parser := &fakeParser{remaining: 2, payload: []byte{0xAA}}
	decoder := &fakeDecoder{framesPerPacket: 4, channels: 2, value: 0.5}
	c := New(Config{Parser: parser, Decoder: decoder, AverageBitRate: 1000})

	var pkt audioformat.Packet
	for i := 0; i < 2; i++ {
		if err := c.Read(&pkt); err != nil {
			t.Fatalf("Read: %v", err)
		}
		if pkt.Frames() != 4 {
			t.Fatalf("packet %d: Frames() = %d, want 4", i, pkt.Frames())
		}
	}

	if err := c.Read(&pkt); err != nil {
		t.Fatalf("Read at EOS: %v", err)
	}
	if !pkt.Empty() {
		t.Fatalf("expected empty packet at EOS, got %d frames", pkt.Frames())
	}
	if pkt.BitRate != 1000 {
		t.Errorf("BitRate at EOS = %d, want 1000 (average)", pkt.BitRate)
	}
}

func TestRead_DropsEncoderDelayFramesFromFirstPacket(t *testing.T) {
	parser := &fakeParser{remaining: 1, payload: []byte{0xAA}}
	decoder := &fakeDecoder{framesPerPacket: 4, channels: 1, value: 1.0}
	c := New(Config{Parser: parser, Decoder: decoder, EncoderDelay: 3})

	var pkt audioformat.Packet
	if err := c.Read(&pkt); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if pkt.Frames() != 1 {
		t.Fatalf("Frames() = %d, want 1 (4 - 3 priming)", pkt.Frames())
	}
}

func TestRead_ClampsTailPastTotalFrames(t *testing.T) {
	parser := &fakeParser{remaining: 3, payload: []byte{0xAA}}
	decoder := &fakeDecoder{framesPerPacket: 4, channels: 1, value: 1.0}
	c := New(Config{Parser: parser, Decoder: decoder, TotalFrames: 6})

	var pkt audioformat.Packet
	if err := c.Read(&pkt); err != nil {
		t.Fatalf("Read 1: %v", err)
	}
	if pkt.Frames() != 4 {
		t.Fatalf("packet 1 Frames() = %d, want 4", pkt.Frames())
	}
	if err := c.Read(&pkt); err != nil {
		t.Fatalf("Read 2: %v", err)
	}
	if pkt.Frames() != 2 {
		t.Fatalf("packet 2 Frames() = %d, want 2 (clamped to total_frames=6)", pkt.Frames())
	}
	if err := c.Read(&pkt); err != nil {
		t.Fatalf("Read 3 (post-clamp EOS): %v", err)
	}
	if !pkt.Empty() {
		t.Fatalf("expected empty packet after clamp reached EOS, got %d frames", pkt.Frames())
	}
}

func TestSeek_FlushesDecoderAndResetsPTSAndPriming(t *testing.T) {
	parser := &fakeParser{remaining: 0}
	decoder := &fakeDecoder{framesPerPacket: 4, channels: 1, delay: 5}
	c := New(Config{Parser: parser, Decoder: decoder, EncoderDelay: 2})
	c.pts = 1000

	if err := c.Seek(500, 3); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if decoder.flushed != 1 {
		t.Errorf("decoder.flushed = %d, want 1", decoder.flushed)
	}
	if c.state != stateSend {
		t.Errorf("state after seek = %v, want stateSend", c.state)
	}
	if c.PTS() != 500 {
		t.Errorf("PTS() = %d, want 500", c.PTS())
	}
	if c.priming != 5+2+3 {
		t.Errorf("priming = %d, want %d", c.priming, 5+2+3)
	}
}
