// Package demux implements the reusable send/recv/EOS controller that
// couples any per-container parser to any codec decoder, grounded on
// the state-tracking struct idiom of internal/daemon/ts_demuxer.go
// (config-plus-internal-state type, optional injected *slog.Logger)
// generalized from MPEG-TS/video sample callbacks onto the audio
// packet pull model.
package demux

import (
	"log/slog"

	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/pkg/ampcodec"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
)

// state is the controller's internal position in the send/recv/EOS
// state machine.
type state int

const (
	stateSend state = iota
	stateRecv
	stateEOS
)

// Parser is the single downward capability a container demuxer supplies:
// reading the next encoded packet into buf, returning the slice actually
// filled. ok is false on container-level end-of-stream.
type Parser interface {
	Feed(buf []byte) (n int, ok bool, err error)
}

// Config bundles the collaborators and stream-shape parameters a
// Controller needs at construction.
type Config struct {
	Parser  Parser
	Decoder ampcodec.Decoder

	// EncoderDelay is the container-reported priming frame count to drop
	// from the decoded stream's front (LAME MP3 priming, Opus pre-skip,
	// iTunSMPB priming, MPEG Layer I/II/III intrinsic delay).
	EncoderDelay int

	// TotalFrames caps accumulated output; zero means unbounded (the
	// container didn't report a frame count).
	TotalFrames int64

	// AverageBitRate is reported once EOS is reached and instant_bit_rate
	// can no longer be derived from fresh packets.
	AverageBitRate int64

	// BufferSize sizes the Parser.Feed scratch buffer.
	BufferSize int

	Logger *slog.Logger
}

// Controller drives one container parser and one decoder through the
// send/recv/EOS state machine, applying encoder-delay priming and the
// total-frames clamp after every decoder.Recv.
type Controller struct {
	parser  Parser
	decoder ampcodec.Decoder
	logger  *slog.Logger

	encoderDelay   int
	totalFrames    int64
	averageBitRate int64

	state           state
	buf             []byte
	priming         int
	pts             int64
	instantBitRate  int64
	lastPacketBytes int
}

// New constructs a Controller, priming it with cfg's encoder delay.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &Controller{
		parser:         cfg.Parser,
		decoder:        cfg.Decoder,
		logger:         logger,
		encoderDelay:   cfg.EncoderDelay,
		totalFrames:    cfg.TotalFrames,
		averageBitRate: cfg.AverageBitRate,
		buf:            make([]byte, bufSize),
		priming:        cfg.EncoderDelay + cfg.Decoder.Delay(),
		state:          stateSend,
	}
}

// InstantBitRate returns the most recently observed (or, past EOS, the
// average) bit rate.
func (c *Controller) InstantBitRate() int64 { return c.instantBitRate }

// PTS returns the accumulated output frame position.
func (c *Controller) PTS() int64 { return c.pts }

// Read drives the state machine until it produces a non-empty packet (or
// reaches EOS, in which case it returns an empty packet indefinitely) and
// attaches instant_bit_rate to the result.
func (c *Controller) Read(pkt *audioformat.Packet) error {
	for {
		switch c.state {
		case stateSend:
			if err := c.send(); err != nil {
				return err
			}
		case stateRecv:
			incomplete, err := c.decoder.Recv(pkt)
			if err != nil {
				return err
			}
			c.applyPriming(pkt)
			c.applyTotalFramesClamp(pkt)
			if !incomplete {
				c.state = stateSend
			}
			if !pkt.Empty() {
				c.pts += int64(pkt.Frames())
				pkt.BitRate = c.instantBitRate
				return nil
			}
			if c.state == stateEOS {
				pkt.BitRate = c.instantBitRate
				return nil
			}
		case stateEOS:
			pkt.Resize(0, true)
			pkt.BitRate = c.instantBitRate
			return nil
		}
	}
}

func (c *Controller) send() error {
	n, ok, err := c.parser.Feed(c.buf)
	if err != nil {
		return err
	}
	if !ok {
		c.state = stateEOS
		c.instantBitRate = c.averageBitRate
		return nil
	}
	c.lastPacketBytes = n
	if err := c.decoder.Send(c.buf[:n]); err != nil {
		return err
	}
	c.state = stateRecv
	return nil
}

// applyPriming drops up to c.priming frames from pkt's front, decrementing
// priming by however many frames were actually available to drop.
func (c *Controller) applyPriming(pkt *audioformat.Packet) {
	if c.priming <= 0 {
		return
	}
	drop := c.priming
	if frames := pkt.Frames(); drop > frames {
		drop = frames
	}
	pkt.PopFront(drop)
	c.priming -= drop
}

// applyTotalFramesClamp truncates pkt's tail once accumulated output would
// exceed totalFrames, transitioning to EOS.
func (c *Controller) applyTotalFramesClamp(pkt *audioformat.Packet) {
	if c.totalFrames <= 0 {
		return
	}
	remaining := c.totalFrames - c.pts
	if remaining <= 0 {
		pkt.Resize(0, true)
		c.state = stateEOS
		c.instantBitRate = c.averageBitRate
		return
	}
	if int64(pkt.Frames()) > remaining {
		pkt.PopBack(pkt.Frames() - int(remaining))
		c.state = stateEOS
		c.instantBitRate = c.averageBitRate
	}
}

// Seek flushes the decoder, rewinds the controller to Send, and installs
// priming for the landed position: target is the new pts_ and extraOffset
// is the container-reported derivative position within the landed packet
// (nonzero when the seek lands mid-packet).
func (c *Controller) Seek(target int64, extraOffset int) error {
	if err := c.decoder.Flush(); err != nil {
		return errs.Wrap(errs.SeekError, err, "demux: seek flush")
	}
	c.state = stateSend
	c.pts = target
	c.priming = c.decoder.Delay() + c.encoderDelay + extraOffset
	return nil
}
