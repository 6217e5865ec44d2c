// Package tta implements the TrueAudio (TTA) container demuxer: a
// fixed header (magic, flags, channels, bits_per_sample, sample_rate,
// total samples, header CRC32) followed by a seek table of per-packet
// compressed sizes and the compressed frame stream itself.
//
// TTA's actual entropy decoder (adaptive-predictor + Rice coding) is a
// concrete codec implementation, out of scope as an external
// collaborator; this package implements the container framing/seek-
// table math and resolves the frame decoder through the decoder
// registry by codec_id, same as the other compressed formats.
package tta

import (
	"github.com/jmylchreest/ampgo/internal/containers"
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
	"github.com/jmylchreest/ampgo/pkg/demux"
	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/image"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
)

func init() {
	registry.RegisterInput("tta", Open)
}

// Demuxer implements registry.Demuxer for TrueAudio.
type Demuxer struct {
	stream    ioutil.Stream
	info      *dictionary.Dictionary
	format    audioformat.Format
	total     int64
	seekTable []uint32 // compressed byte size of each packet
	dataStart int
	ctrl      *demux.Controller
	parser    *frameParser
}

// Open parses TTA1's header and seek table; in playback mode it also
// resolves the frame decoder and wires the demux controller.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	if len(data) < 22 || string(data[0:4]) != "TTA1" {
		return nil, errs.New(errs.InvalidDataFormat, "tta: missing TTA1 magic")
	}

	channels := int(le16(data[6:8]))
	bits := int(le16(data[8:10]))
	sampleRate := int(le32(data[10:14]))
	totalSamples := int64(le32(data[14:18]))

	if channels <= 0 || sampleRate <= 0 {
		return nil, errs.New(errs.InvalidDataFormat, "tta: invalid channel/sample-rate field")
	}

	framesPerPacket := (sampleRate * 256) / 245
	if framesPerPacket <= 0 {
		return nil, errs.New(errs.InvalidDataFormat, "tta: degenerate frames_per_packet")
	}

	numPackets := int((totalSamples + int64(framesPerPacket) - 1) / int64(framesPerPacket))
	seekTableBytes := numPackets * 4
	tableStart := 22
	if len(data) < tableStart+seekTableBytes+4 {
		return nil, errs.New(errs.InvalidDataFormat, "tta: truncated seek table")
	}
	seekTable := make([]uint32, numPackets)
	for i := 0; i < numPackets; i++ {
		off := tableStart + i*4
		seekTable[i] = le32(data[off : off+4])
	}
	// Seek table is itself followed by a CRC32 over the table, per format.
	dataStart := tableStart + seekTableBytes + 4

	d := &Demuxer{
		stream: stream,
		info:   dictionary.New(),
		format: audioformat.Format{
			Channels:      channels,
			ChannelLayout: audioformat.DefaultLayoutFor(channels),
			SampleRate:    sampleRate,
		},
		total:     totalSamples,
		seekTable: seekTable,
		dataStart: dataStart,
	}

	if !mode.Has(registry.OpenPlayback) {
		return d, nil
	}

	commFormat := audioformat.CodecFormat{
		Format:        d.format,
		CodecID:       audioformat.CodecTTA,
		BitsPerSample: bits,
	}
	decoder, err := registry.ResolveDecoder(&commFormat)
	if err != nil {
		return nil, err
	}

	d.parser = &frameParser{data: data, seekTable: seekTable, offset: dataStart}
	d.ctrl = demux.New(demux.Config{Parser: d.parser, Decoder: decoder, TotalFrames: d.total})
	return d, nil
}

// frameParser hands back one compressed TTA frame at a time, per the
// seek table's declared sizes.
type frameParser struct {
	data      []byte
	seekTable []uint32
	offset    int // byte offset of the next unread frame
	index     int // next packet index
}

func (p *frameParser) Feed(buf []byte) (int, bool, error) {
	if p.index >= len(p.seekTable) {
		return 0, false, nil
	}
	size := int(p.seekTable[p.index])
	if p.offset+size > len(p.data) {
		size = len(p.data) - p.offset
		if size < 0 {
			size = 0
		}
	}
	n := copy(buf, p.data[p.offset:p.offset+size])
	p.offset += size
	p.index++
	return n, true, nil
}

func (d *Demuxer) StreamInfo() *dictionary.Dictionary { return d.info }
func (d *Demuxer) Images() []image.Image              { return nil }
func (d *Demuxer) Format() audioformat.Format          { return d.format }
func (d *Demuxer) TotalFrames() int64                  { return d.total }

func (d *Demuxer) Read(pkt *audioformat.Packet) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "tta: demuxer opened without playback mode")
	}
	return d.ctrl.Read(pkt)
}

// Seek sums compressed packet sizes up to the target packet index to
// find the corresponding byte offset in the frame stream.
func (d *Demuxer) Seek(targetFrame int64) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "tta: demuxer opened without playback mode")
	}
	framesPerPacket := (d.format.SampleRate * 256) / 245
	if framesPerPacket <= 0 {
		return errs.New(errs.SeekError, "tta: degenerate frames_per_packet")
	}
	packetIndex := int(targetFrame) / framesPerPacket
	extra := int(targetFrame) % framesPerPacket
	if packetIndex > len(d.parser.seekTable) {
		packetIndex = len(d.parser.seekTable)
	}
	offset := d.dataStart
	for i := 0; i < packetIndex; i++ {
		offset += int(d.parser.seekTable[i])
	}
	d.parser.offset = offset
	d.parser.index = packetIndex
	return d.ctrl.Seek(targetFrame-int64(extra), extra)
}

func (d *Demuxer) Close() error { return d.stream.Close() }

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
