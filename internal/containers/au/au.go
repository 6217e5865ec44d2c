// Package au implements the Sun/NeXT .au container demuxer: a 24-byte
// fixed header (".snd", data_offset, data_length, encoding, sample_rate,
// channels) followed by raw big-endian PCM or G.711 companded data.
package au

import (
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
)

func init() {
	registry.RegisterInput("au", Open)
	registry.RegisterInput("snd", Open)
}

// encoding ids 1..7, 24, 27 per the AU format registry.
const (
	encodingULaw8       = 1
	encodingLinear8     = 2
	encodingLinear16    = 3
	encodingLinear24    = 4
	encodingLinear32    = 5
	encodingFloat32     = 6
	encodingFloat64     = 7
	encodingALaw8       = 27
	encodingADPCMG722   = 24
	unknownDataLength   = 0xffffffff
)

type encodingInfo struct {
	bits  int
	flags audioformat.Flags
	codec audioformat.CodecID
}

var encodings = map[uint32]encodingInfo{
	encodingLinear8:  {8, audioformat.FlagBigEndian, audioformat.CodecPCM},
	encodingLinear16: {16, audioformat.FlagBigEndian, audioformat.CodecPCM},
	encodingLinear24: {24, audioformat.FlagBigEndian, audioformat.CodecPCM},
	encodingLinear32: {32, audioformat.FlagBigEndian, audioformat.CodecPCM},
	encodingFloat32:  {32, audioformat.FlagBigEndian | audioformat.FlagFloat, audioformat.CodecPCM},
	encodingFloat64:  {64, audioformat.FlagBigEndian | audioformat.FlagFloat, audioformat.CodecPCM},
	encodingULaw8:    {8, 0, audioformat.CodecULAW},
	encodingALaw8:    {8, 0, audioformat.CodecALAW},
	encodingADPCMG722: {0, 0, audioformat.CodecID{'G', '7', '2', '2'}},
}

// Demuxer implements registry.Demuxer for Sun/NeXT .au.
type Demuxer struct {
	stream ioutil.Stream
	info   *dictionary.Dictionary
	format audioformat.Format
	total  int64
	ctrl   *demux.Controller
	parser *dataParser
}

// Open parses the 24-byte AU header and, in playback mode, wires a
// decoder and the demux controller.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	if len(data) < 24 || string(data[0:4]) != ".snd" {
		return nil, errs.New(errs.InvalidDataFormat, "au: missing .snd magic")
	}
	dataOffset := be32(data[4:8])
	dataLength := be32(data[8:12])
	encodingID := be32(data[12:16])
	sampleRate := be32(data[16:20])
	channels := be32(data[20:24])

	info, ok := encodings[encodingID]
	if !ok {
		return nil, errs.Newf(errs.UnsupportedFormat, "au: unsupported encoding id %d", encodingID)
	}

	if int(dataOffset) > len(data) {
		return nil, errs.New(errs.InvalidDataFormat, "au: data_offset beyond end of stream")
	}
	payload := data[dataOffset:]
	if dataLength != unknownDataLength && int(dataLength) <= len(payload) {
		payload = payload[:dataLength]
	}

	d := &Demuxer{
		stream: stream,
		info:   dictionary.New(),
		format: audioformat.Format{
			Channels:      int(channels),
			ChannelLayout: audioformat.DefaultLayoutFor(int(channels)),
			SampleRate:    int(sampleRate),
		},
	}

	commFormat := audioformat.CodecFormat{
		Format:        d.format,
		CodecID:       info.codec,
		Flags:         info.flags,
		BitsPerSample: info.bits,
	}
	frameBytes := info.bits / 8 * int(channels)
	if frameBytes > 0 {
		d.total = int64(len(payload) / frameBytes)
	}

	if !mode.Has(registry.OpenPlayback) {
		return d, nil
	}

	var decoder ampcodec.Decoder
	if info.codec == audioformat.CodecPCM {
		decoder, err = pcm.New(&commFormat)
	} else {
		decoder, err = registry.ResolveDecoder(&commFormat)
	}
	if err != nil {
		return nil, err
	}

	packetFrames := int(sampleRate) / 10 // ~100ms
	if packetFrames <= 0 {
		packetFrames = 4096
	}
	if frameBytes <= 0 {
		frameBytes = 1
	}
	d.parser = &dataParser{data: payload, frameBytes: frameBytes, packetFrames: packetFrames}
	d.ctrl = demux.New(demux.Config{Parser: d.parser, Decoder: decoder, TotalFrames: d.total})
	return d, nil
}

// dataParser implements demux.Parser over AU's raw payload bytes.
type dataParser struct {
	data         []byte
	frameBytes   int
	packetFrames int
	pos          int
}

func (p *dataParser) Feed(buf []byte) (int, bool, error) {
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
func (d *Demuxer) Images() []image.Image              { return nil }
func (d *Demuxer) Format() audioformat.Format          { return d.format }
func (d *Demuxer) TotalFrames() int64                  { return d.total }

func (d *Demuxer) Read(pkt *audioformat.Packet) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "au: demuxer opened without playback mode")
	}
	return d.ctrl.Read(pkt)
}

func (d *Demuxer) Seek(targetFrame int64) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "au: demuxer opened without playback mode")
	}
	d.parser.pos = int(targetFrame) * d.parser.frameBytes
	if d.parser.pos > len(d.parser.data) {
		d.parser.pos = len(d.parser.data)
	}
	return d.ctrl.Seek(targetFrame, 0)
}

func (d *Demuxer) Close() error { return d.stream.Close() }

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
