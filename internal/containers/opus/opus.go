// Package opus implements the Ogg/Opus container demuxer: parses the
// OpusHead identification packet (channel count, pre_skip; the
// channel_mapping family byte is not read) and
// OpusTags comment packet, and hands raw Ogg packets to the Opus decoder
// collaborator. Actual Opus decode lives in internal/codec/opus,
// resolved through the decoder registry.
package opus

import (
	"github.com/jmylchreest/ampgo/internal/containers"
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
	"github.com/jmylchreest/ampgo/pkg/chanmap"
	"github.com/jmylchreest/ampgo/pkg/demux"
	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/image"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/metadata"
)

const opusSampleRate = 48000 // Opus's granule position always ticks at 48 kHz.

func init() {
	registry.RegisterInput("opus", Open)
}

// Demuxer implements registry.Demuxer for Ogg/Opus.
type Demuxer struct {
	stream  ioutil.Stream
	info    *dictionary.Dictionary
	images  []image.Image
	format  audioformat.Format
	total   int64
	head    []byte // raw OpusHead packet, passed through as codec_format.Extra
	packets [][]byte
	ctrl    *demux.Controller
	parser  *packetParser
}

// Open probes for an Ogg/Opus logical stream, parses OpusHead/OpusTags,
// and in playback mode wires a decoder and the demux controller.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || string(data[0:4]) != "OggS" {
		return nil, errs.New(errs.InvalidDataFormat, "opus: missing OggS magic")
	}
	pages, err := containers.ParseOggPages(data)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errs.New(errs.InvalidDataFormat, "opus: no Ogg pages found")
	}

	var serial uint32
	found := false
	for _, pg := range pages {
		if len(pg.Segments) > 0 && len(pg.Segments[0]) >= 8 &&
			string(pg.Segments[0][0:8]) == "OpusHead" {
			serial = pg.Serial
			found = true
			break
		}
	}
	if !found {
		return nil, errs.New(errs.InvalidDataFormat, "opus: no logical stream carries an OpusHead packet")
	}

	packets := containers.OggPackets(pages, serial)
	if len(packets) < 2 {
		return nil, errs.New(errs.InvalidDataFormat, "opus: fewer than 2 header packets")
	}

	head := packets[0]
	if len(head) < 19 {
		return nil, errs.New(errs.InvalidDataFormat, "opus: truncated OpusHead packet")
	}
	channels := int(head[9])

	d := &Demuxer{
		stream: stream,
		info:   dictionary.New(),
		format: audioformat.Format{
			Channels:      channels,
			ChannelLayout: audioformat.DefaultLayoutFor(channels),
			SampleRate:    opusSampleRate,
		},
		head: head,
	}

	tags := packets[1]
	if len(tags) >= 8 && string(tags[0:8]) == "OpusTags" {
		if res, err := metadata.ParseVorbisComment(tags[8:]); err == nil {
			d.info.Merge(res.Dict)
			d.images = append(d.images, res.Images...)
		}
	}

	audioPackets := packets[2:]
	d.packets = audioPackets
	for i := len(pages) - 1; i >= 0; i-- {
		if pages[i].Serial == serial {
			d.total = pages[i].GranulePos
			break
		}
	}

	if !mode.Has(registry.OpenPlayback) {
		return d, nil
	}

	commFormat := audioformat.CodecFormat{
		Format:  d.format,
		CodecID: audioformat.CodecOpus,
		Extra:   head,
	}
	decoder, err := registry.ResolveDecoder(&commFormat)
	if err != nil {
		return nil, err
	}
	d.format = commFormat.Format

	d.parser = &packetParser{packets: audioPackets}
	preSkip := int(head[10]) | int(head[11])<<8
	d.ctrl = demux.New(demux.Config{
		Parser:       d.parser,
		Decoder:      decoder,
		EncoderDelay: preSkip,
		TotalFrames:  d.total,
	})
	return d, nil
}

// packetParser hands back one Ogg packet (one Opus audio frame) at a
// time.
type packetParser struct {
	packets [][]byte
	index   int
}

func (p *packetParser) Feed(buf []byte) (int, bool, error) {
	if p.index >= len(p.packets) {
		return 0, false, nil
	}
	n := copy(buf, p.packets[p.index])
	p.index++
	return n, true, nil
}

func (d *Demuxer) StreamInfo() *dictionary.Dictionary { return d.info }
func (d *Demuxer) Images() []image.Image              { return d.images }
func (d *Demuxer) Format() audioformat.Format          { return d.format }
func (d *Demuxer) TotalFrames() int64                  { return d.total }

func (d *Demuxer) Read(pkt *audioformat.Packet) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "opus: demuxer opened without playback mode")
	}
	if err := d.ctrl.Read(pkt); err != nil {
		return err
	}
	if perm, ok := chanmap.Permutation(d.format.Channels); ok {
		return chanmap.Apply(pkt, perm)
	}
	return nil
}

func (d *Demuxer) Seek(targetFrame int64) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "opus: demuxer opened without playback mode")
	}
	d.parser.index = 0
	// Decode restarts at packet 0, so per seek's pts_=target;
	// priming=delay+encoder_delay+extra_offset rule the extra offset is
	// target itself: pre_skip is already folded into EncoderDelay, and
	// target more frames are dropped on top of it.
	return d.ctrl.Seek(targetFrame, int(targetFrame))
}

func (d *Demuxer) Close() error { return d.stream.Close() }
