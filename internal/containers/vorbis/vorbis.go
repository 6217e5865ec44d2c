// Package vorbis implements the Ogg/Vorbis container demuxer: reads the
// three XiphLacing-split extradata packets (identification, comment,
// setup), walks the comment packet as a Vorbis-comment block, and feeds
// raw Ogg packets to the Vorbis decoder collaborator. Actual Vorbis
// decode is a concrete codec implementation out of scope here, resolved
// through the decoder registry.
package vorbis

import (
	"github.com/jmylchreest/ampgo/internal/containers"
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
	"github.com/jmylchreest/ampgo/pkg/demux"
	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/image"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/metadata"
)

func init() {
	registry.RegisterInput("ogg", Open)
}

// Demuxer implements registry.Demuxer for Ogg/Vorbis.
type Demuxer struct {
	stream  ioutil.Stream
	info    *dictionary.Dictionary
	images  []image.Image
	format  audioformat.Format
	total   int64
	extra   []byte // the three-packet XiphLacing extradata blob
	packets [][]byte
	ctrl    *demux.Controller
	parser  *packetParser
}

// Open probes for an Ogg/Vorbis logical stream, extracts the
// identification/comment/setup packets, and in playback mode wires a
// decoder and the demux controller.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || string(data[0:4]) != "OggS" {
		return nil, errs.New(errs.InvalidDataFormat, "vorbis: missing OggS magic")
	}
	pages, err := containers.ParseOggPages(data)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errs.New(errs.InvalidDataFormat, "vorbis: no Ogg pages found")
	}

	var serial uint32
	found := false
	for _, pg := range pages {
		if len(pg.Segments) > 0 && len(pg.Segments[0]) >= 7 &&
			pg.Segments[0][0] == 1 && string(pg.Segments[0][1:7]) == "vorbis" {
			serial = pg.Serial
			found = true
			break
		}
	}
	if !found {
		return nil, errs.New(errs.InvalidDataFormat, "vorbis: no logical stream carries a Vorbis identification packet")
	}

	packets := containers.OggPackets(pages, serial)
	if len(packets) < 3 {
		return nil, errs.New(errs.InvalidDataFormat, "vorbis: fewer than 3 header packets")
	}

	ident := packets[0]
	if len(ident) < 30 || ident[0] != 1 || string(ident[1:7]) != "vorbis" {
		return nil, errs.New(errs.InvalidDataFormat, "vorbis: malformed identification packet")
	}
	channels := int(ident[11])
	sampleRate := int(le32(ident[12:16]))

	d := &Demuxer{
		stream: stream,
		info:   dictionary.New(),
		format: audioformat.Format{
			Channels:      channels,
			ChannelLayout: audioformat.DefaultLayoutFor(channels),
			SampleRate:    sampleRate,
		},
	}

	comment := packets[1]
	if len(comment) >= 7 && comment[0] == 3 && string(comment[1:7]) == "vorbis" {
		if res, err := metadata.ParseVorbisComment(comment[7:]); err == nil {
			d.info.Merge(res.Dict)
			d.images = append(d.images, res.Images...)
		}
	}

	audioPackets := packets[3:]
	d.packets = audioPackets
	// total_samples is only known from the last page's granule position.
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
		CodecID: audioformat.CodecVorbis,
		Extra:   buildXiphExtradata(ident, comment, packets[2]),
	}
	decoder, err := registry.ResolveDecoder(&commFormat)
	if err != nil {
		return nil, err
	}
	d.format = commFormat.Format // decoder may refine channel layout

	d.parser = &packetParser{packets: audioPackets}
	d.ctrl = demux.New(demux.Config{Parser: d.parser, Decoder: decoder, TotalFrames: d.total})
	return d, nil
}

// buildXiphExtradata packs the three Vorbis header packets using the
// length-prefixed (3x u16BE lengths) XiphLacing scheme for decoders that
// expect the classic combined-extradata shape.
func buildXiphExtradata(ident, comment, setup []byte) []byte {
	out := make([]byte, 0, 6+len(ident)+len(comment)+len(setup))
	out = append(out, byte(len(ident)>>8), byte(len(ident)))
	out = append(out, byte(len(comment)>>8), byte(len(comment)))
	out = append(out, byte(len(setup)>>8), byte(len(setup)))
	out = append(out, ident...)
	out = append(out, comment...)
	out = append(out, setup...)
	return out
}

// packetParser hands back one Ogg packet (one Vorbis audio frame) at a
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
		return errs.New(errs.Failure, "vorbis: demuxer opened without playback mode")
	}
	return d.ctrl.Read(pkt)
}

func (d *Demuxer) Seek(targetFrame int64) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "vorbis: demuxer opened without playback mode")
	}
	d.parser.index = 0
	return d.ctrl.Seek(targetFrame, int(targetFrame))
}

func (d *Demuxer) Close() error { return d.stream.Close() }

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
