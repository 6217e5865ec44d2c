// Package aiff implements the AIFF/AIFF-C container demuxer: walks the
// FORM chunk, decodes COMM's 80-bit extended-precision sample rate,
// slices SSND into ~100ms PCM packets, and merges an embedded ID3 chunk
// if present. Built on pkg/demux.Controller for the send/recv wiring,
// structurally mirroring internal/daemon/ts_demuxer.go's config-plus-
// state split.
package aiff

import (
	"math"

	"github.com/jmylchreest/ampgo/internal/codec/pcm"
	"github.com/jmylchreest/ampgo/internal/containers"
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ampcodec"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
	"github.com/jmylchreest/ampgo/pkg/demux"
	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/image"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/metadata"
)

func init() {
	registry.RegisterInput("aiff", Open)
	registry.RegisterInput("aif", Open)
	registry.RegisterInput("aifc", Open)
}

// compressionFlags maps an AIFF-C compression-type tag to the PCM
// blitter flags it decodes as; compressed (non-PCM) tags are absent and
// resolved instead through the decoder registry by codec_id.
var compressionFlags = map[string]audioformat.Flags{
	"NONE": audioformat.FlagBigEndian,
	"twos": audioformat.FlagBigEndian,
	"sowt": 0,
	"raw ": audioformat.FlagBigEndian | audioformat.FlagUnsignedInt,
	"in24": audioformat.FlagBigEndian,
	"in32": audioformat.FlagBigEndian,
	"fl32": audioformat.FlagBigEndian | audioformat.FlagFloat,
	"fl64": audioformat.FlagBigEndian | audioformat.FlagFloat,
}

var compressionBits = map[string]int{
	"in24": 24,
	"in32": 32,
	"fl32": 32,
	"fl64": 64,
}

// Demuxer implements registry.Demuxer for AIFF/AIFF-C.
type Demuxer struct {
	stream ioutil.Stream
	info   *dictionary.Dictionary
	images []image.Image
	format audioformat.Format
	total  int64
	ctrl   *demux.Controller
	parser *ssndParser
}

// Open parses stream's FORM/COMM/SSND/ID3 chunks and, in playback mode,
// wires a decoder and the demux controller.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 || string(data[0:4]) != "FORM" {
		return nil, errs.New(errs.InvalidDataFormat, "aiff: missing FORM chunk")
	}
	formType := string(data[8:12])
	if formType != "AIFF" && formType != "AIFC" {
		return nil, errs.Newf(errs.InvalidDataFormat, "aiff: unexpected FORM type %q", formType)
	}

	d := &Demuxer{stream: stream, info: dictionary.New()}
	var commFormat audioformat.CodecFormat
	var ssndData []byte
	var compression = "NONE"

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(be32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		chunk := data[body : body+size]

		switch id {
		case "COMM":
			if len(chunk) < 18 {
				return nil, errs.New(errs.InvalidDataFormat, "aiff: COMM chunk too short")
			}
			channels := int(be16(chunk[0:2]))
			bits := int(be16(chunk[6:8]))
			rate := decodeIEEE80Extended(chunk[8:18])
			compression = "NONE"
			if formType == "AIFC" && len(chunk) >= 22 {
				compression = string(chunk[18:22])
			}
			commFormat = audioformat.CodecFormat{
				Format: audioformat.Format{
					Channels:      channels,
					ChannelLayout: audioformat.DefaultLayoutFor(channels),
					SampleRate:    int(rate),
				},
				CodecID:       audioformat.CodecPCM,
				BitsPerSample: bits,
			}
			if cbits, ok := compressionBits[compression]; ok {
				commFormat.BitsPerSample = cbits
			}
			if flags, ok := compressionFlags[compression]; ok {
				commFormat.Flags = flags
			} else {
				commFormat.CodecID = audioformat.CodecID{compression[0], compression[1], compression[2], compression[3]}
			}
		case "SSND":
			if len(chunk) >= 8 {
				ssndData = chunk[8:]
			}
		case "ID3 ", "ID3":
			if res, _, _, err := metadata.ParseID3v2(chunk); err == nil {
				d.info.Merge(res.Dict)
				d.images = append(d.images, res.Images...)
			}
		}
		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are padded to even length
		}
	}

	if commFormat.Channels == 0 {
		return nil, errs.New(errs.InvalidDataFormat, "aiff: missing COMM chunk")
	}
	d.format = commFormat.Format
	frameBytes := commFormat.BitsPerSample / 8 * commFormat.Channels
	if frameBytes > 0 {
		d.total = int64(len(ssndData) / frameBytes)
	}

	if !mode.Has(registry.OpenPlayback) {
		return d, nil
	}

	var decoder ampcodec.Decoder
	if commFormat.CodecID == audioformat.CodecPCM {
		decoder, err = pcm.New(&commFormat)
	} else {
		decoder, err = registry.ResolveDecoder(&commFormat)
	}
	if err != nil {
		return nil, err
	}

	packetFrames := commFormat.SampleRate / 10 // ~100ms
	if packetFrames <= 0 {
		packetFrames = 4096
	}
	d.parser = &ssndParser{data: ssndData, frameBytes: frameBytes, packetFrames: packetFrames}
	d.ctrl = demux.New(demux.Config{Parser: d.parser, Decoder: decoder, TotalFrames: d.total})
	return d, nil
}

// ssndParser implements demux.Parser over the SSND chunk's raw PCM
// bytes, handing back packetFrames worth of bytes at a time.
type ssndParser struct {
	data         []byte
	frameBytes   int
	packetFrames int
	pos          int
}

func (p *ssndParser) Feed(buf []byte) (int, bool, error) {
	if p.pos >= len(p.data) {
		return 0, false, nil
	}
	want := p.packetFrames * p.frameBytes
	if want > len(buf) {
		want = len(buf)
	}
	if p.pos+want > len(p.data) {
		want = len(p.data) - p.pos
	}
	n := copy(buf, p.data[p.pos:p.pos+want])
	p.pos += n
	return n, true, nil
}

func (d *Demuxer) StreamInfo() *dictionary.Dictionary { return d.info }
func (d *Demuxer) Images() []image.Image              { return d.images }
func (d *Demuxer) Format() audioformat.Format          { return d.format }
func (d *Demuxer) TotalFrames() int64                  { return d.total }

func (d *Demuxer) Read(pkt *audioformat.Packet) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "aiff: demuxer opened without playback mode")
	}
	return d.ctrl.Read(pkt)
}

func (d *Demuxer) Seek(targetFrame int64) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "aiff: demuxer opened without playback mode")
	}
	d.parser.pos = int(targetFrame) * d.parser.frameBytes
	if d.parser.pos > len(d.parser.data) {
		d.parser.pos = len(d.parser.data)
	}
	return d.ctrl.Seek(targetFrame, 0)
}

func (d *Demuxer) Close() error { return d.stream.Close() }

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// decodeIEEE80Extended decodes AIFF's 80-bit IEEE-754 extended-precision
// sample rate field.
func decodeIEEE80Extended(b []byte) float64 {
	sign := 1.0
	if b[0]&0x80 != 0 {
		sign = -1.0
	}
	exp := (int(b[0]&0x7F) << 8) | int(b[1])
	var mantHi, mantLo uint64
	for i := 0; i < 4; i++ {
		mantHi = mantHi<<8 | uint64(b[2+i])
	}
	for i := 0; i < 4; i++ {
		mantLo = mantLo<<8 | uint64(b[6+i])
	}
	if exp == 0 && mantHi == 0 && mantLo == 0 {
		return 0
	}
	f := math.Ldexp(float64(mantHi), exp-16383-31) + math.Ldexp(float64(mantLo), exp-16383-63)
	return sign * f
}
