// Package mp3 implements the MPEG-1/2/2.5 Audio Layer I/II/III demuxer:
// sync-word frame scanning, CBR frame-size derivation, and the three
// optional VBR/gapless headers (Xing/Info+LAME, VBRI, iTunSMPB). The
// Layer III Huffman/IMDCT decode itself is a concrete codec
// implementation out of scope here, resolved through the decoder
// registry.
package mp3

import (
	"strconv"
	"strings"

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
	registry.RegisterInput("mp3", Open)
	registry.RegisterInput("mpa", Open)
	registry.RegisterInput("mp2", Open)
	registry.RegisterInput("mp1", Open)
}

// version identifies the MPEG audio version bits.
type version int

const (
	mpegVersion25 version = iota
	mpegVersionReserved
	mpegVersion2
	mpegVersion1
)

// layer identifies the MPEG audio layer bits.
type layer int

const (
	layerReserved layer = iota
	layerIII
	layerII
	layerI
)

var sampleRates = map[version][3]int{
	mpegVersion1:  {44100, 48000, 32000},
	mpegVersion2:  {22050, 24000, 16000},
	mpegVersion25: {11025, 12000, 8000},
}

var bitratesKbps = map[[2]int][14]int{
	{int(mpegVersion1), int(layerI)}:   {32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
	{int(mpegVersion1), int(layerII)}:  {32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
	{int(mpegVersion1), int(layerIII)}: {32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
	{int(mpegVersion2), int(layerI)}:   {32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
	{int(mpegVersion2), int(layerII)}:  {8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	{int(mpegVersion2), int(layerIII)}: {8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
}

// frameHeader is one parsed 4-byte MPEG audio frame header.
type frameHeader struct {
	ver        version
	lyr        layer
	bitrateIdx int
	sampleIdx  int
	padding    bool
	channels   int
	size       int // total frame size in bytes, including the header
}

// parseFrameHeader validates and decodes a 4-byte candidate header at
// data[pos:]; ok is false if the sync word or any reserved/bad field
// fails validation.
func parseFrameHeader(data []byte, pos int) (frameHeader, bool) {
	if pos+4 > len(data) {
		return frameHeader{}, false
	}
	b0, b1, b2, b3 := data[pos], data[pos+1], data[pos+2], data[pos+3]
	if b0 != 0xFF || b1&0xE0 != 0xE0 {
		return frameHeader{}, false
	}
	ver := version((b1 >> 3) & 0x03)
	if ver == mpegVersionReserved {
		return frameHeader{}, false
	}
	lyr := layer((b1 >> 1) & 0x03)
	if lyr == layerReserved {
		return frameHeader{}, false
	}
	bitrateIdx := int(b2 >> 4)
	if bitrateIdx == 0 || bitrateIdx == 0x0F {
		return frameHeader{}, false // free-format / bad
	}
	sampleIdx := int((b2 >> 2) & 0x03)
	if sampleIdx == 0x03 {
		return frameHeader{}, false
	}
	padding := (b2>>1)&0x01 != 0
	channelMode := (b3 >> 6) & 0x03
	channels := 2
	if channelMode == 0x03 {
		channels = 1
	}

	tableVer := ver
	if tableVer == mpegVersion25 {
		tableVer = mpegVersion2
	}
	rates, ok := sampleRates[ver]
	if !ok {
		return frameHeader{}, false
	}
	sampleRate := rates[sampleIdx]
	bitrateTable, ok := bitratesKbps[[2]int{int(tableVer), int(lyr)}]
	if !ok {
		return frameHeader{}, false
	}
	bitrateKbps := bitrateTable[bitrateIdx-1]
	bitrate := bitrateKbps * 1000

	var size int
	pad := 0
	if padding {
		pad = 1
	}
	switch lyr {
	case layerI:
		size = (12*bitrate/sampleRate + pad) * 4
	default: // Layer II/III
		slotMul := 144
		if lyr == layerIII && tableVer == mpegVersion2 {
			slotMul = 72
		}
		size = slotMul*bitrate/sampleRate + pad
	}
	if size < 4 {
		return frameHeader{}, false
	}
	return frameHeader{ver: ver, lyr: lyr, bitrateIdx: bitrateIdx, sampleIdx: sampleIdx, padding: padding, channels: channels, size: size}, true
}

func (h frameHeader) sampleRate() int {
	return sampleRates[h.ver][h.sampleIdx]
}

func (h frameHeader) samplesPerFrame() int {
	switch h.lyr {
	case layerI:
		return 384
	case layerII:
		return 1152
	default: // Layer III
		if h.ver == mpegVersion1 {
			return 1152
		}
		return 576
	}
}

// Demuxer implements registry.Demuxer for MPEG-1/2/2.5 Audio.
type Demuxer struct {
	stream      ioutil.Stream
	info        *dictionary.Dictionary
	images      []image.Image
	format      audioformat.Format
	total       int64 // total PCM frames, once known (Xing/VBRI/iTunSMPB)
	priming     int
	data        []byte
	audioStart  int
	first       frameHeader
	seekTable   []int // byte offsets of each MPEG frame start, built lazily
	ctrl        *demux.Controller
	parser      *frameParser
}

// Open scans for the first valid MPEG audio frame, recognizes an
// optional Xing/Info+LAME or VBRI header in that frame, and (in playback
// mode) wires a decoder and the demux controller.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	d := &Demuxer{stream: stream, info: dictionary.New(), data: data}

	pos := 0
	hasID3v2 := false
	if res, n, ok, err := metadata.ParseID3v2(data); err == nil && ok {
		d.info.Merge(res.Dict)
		d.images = append(d.images, res.Images...)
		pos = n
		hasID3v2 = true
	}

	hdr, headerPos, ok := syncScan(data, pos)
	if !ok {
		return nil, errs.New(errs.InvalidDataFormat, "mp3: no valid MPEG audio frame header found")
	}
	d.first = hdr
	d.format = audioformat.Format{
		Channels:      hdr.channels,
		ChannelLayout: audioformat.DefaultLayoutFor(hdr.channels),
		SampleRate:    hdr.sampleRate(),
	}
	d.audioStart = headerPos

	parseOptionalHeaders(data, headerPos, hdr, d)
	// iTunSMPB only applies when no VBR header (Xing/LAME, VBRI) has
	// already set priming: LAME/Xing wins when both are present.
	if d.priming == 0 && hasID3v2 {
		applyITunSMPB(d)
	}

	if !mode.Has(registry.OpenPlayback) {
		return d, nil
	}

	commFormat := audioformat.CodecFormat{
		Format:          d.format,
		CodecID:         audioformat.CodecMP3,
		FramesPerPacket: hdr.samplesPerFrame(),
	}
	decoder, err := registry.ResolveDecoder(&commFormat)
	if err != nil {
		return nil, err
	}
	d.format = commFormat.Format

	d.parser = &frameParser{d: d, pos: d.audioStart}
	d.ctrl = demux.New(demux.Config{
		Parser:       d.parser,
		Decoder:      decoder,
		EncoderDelay: d.priming,
		TotalFrames:  d.total,
	})
	return d, nil
}

// syncScan searches data starting at pos for the first byte offset
// carrying a valid frame header; a bad frame mid-stream is recoverable
// by skipping forward byte-by-byte until sync is reacquired, but at
// open time any garbage before the first valid sync is simply skipped.
func syncScan(data []byte, pos int) (frameHeader, int, bool) {
	for i := pos; i < len(data); i++ {
		if hdr, ok := parseFrameHeader(data, i); ok {
			return hdr, i, true
		}
	}
	return frameHeader{}, 0, false
}

// sideInfoLen returns the byte length of the side-information block
// immediately following a frame header, which determines where an
// optional Xing/Info header (if present) begins.
func sideInfoLen(h frameHeader) int {
	mono := h.channels == 1
	switch {
	case h.ver == mpegVersion1 && !mono:
		return 32
	case h.ver == mpegVersion1 && mono:
		return 17
	case !mono:
		return 17
	default:
		return 9
	}
}

// parseOptionalHeaders recognizes Xing/Info (+ LAME subframe) or VBRI in
// the first frame, filling d.total/d.priming. A Xing seek TOC is skipped,
// not used: the seek table is only built by frameParser during playback.
func parseOptionalHeaders(data []byte, frameStart int, h frameHeader, d *Demuxer) {
	xingOff := frameStart + 4 + sideInfoLen(h)
	if xingOff+8 <= len(data) {
		magic := string(data[xingOff : xingOff+4])
		if magic == "Xing" || magic == "Info" {
			parseXing(data, xingOff, d)
			return
		}
	}
	vbriOff := frameStart + 4 + 32
	if vbriOff+4 <= len(data) && string(data[vbriOff:vbriOff+4]) == "VBRI" {
		parseVBRI(data, vbriOff, d)
	}
}

func parseXing(data []byte, off int, d *Demuxer) {
	r := ioutil.NewReader(data[off+4:])
	flags, err := r.ReadU32BE()
	if err != nil {
		return
	}
	var frames uint32
	if flags&0x01 != 0 {
		frames, _ = r.ReadU32BE()
	}
	if flags&0x02 != 0 {
		_, _ = r.ReadU32BE() // bytes, unused here
	}
	if flags&0x04 != 0 {
		_, _ = r.Slice(100) // seek TOC, unused here
	}
	if flags&0x08 != 0 {
		_, _ = r.ReadU32BE() // quality indicator, unused here
	}
	if frames > 0 {
		d.total = int64(frames) * int64(d.first.samplesPerFrame())
	}

	// LAME subframe immediately follows, starting with a 9-byte version
	// string, then the 36-byte tag proper; encoder delay/padding sit at
	// relative offsets 21/22/23 from the "LAME" magic itself.
	lameOff := off + 4 + r.Cursor()
	if lameOff+36 > len(data) || string(data[lameOff:lameOff+4]) != "LAME" {
		return
	}
	b21, b22, b23 := data[lameOff+21], data[lameOff+22], data[lameOff+23]
	delay := int(b21)<<4 | int(b22>>4)
	padding := int(b22&0x0F)<<8 | int(b23)
	d.priming = delay
	if d.total > 0 {
		d.total -= int64(delay + padding)
	}
}

func parseVBRI(data []byte, off int, d *Demuxer) {
	r := ioutil.NewReader(data[off+4:])
	if _, err := r.ReadU16BE(); err != nil { // version
		return
	}
	delay, err := r.ReadU16BE()
	if err != nil {
		return
	}
	if _, err := r.ReadU16BE(); err != nil { // quality
		return
	}
	if _, err := r.ReadU32BE(); err != nil { // total bytes
		return
	}
	frames, err := r.ReadU32BE()
	if err != nil {
		return
	}
	d.priming = int(delay)
	d.total = int64(frames) * int64(d.first.samplesPerFrame())
}

// applyITunSMPB looks for an iTunSMPB comment (stashed by ParseID3v2 under
// "comment:itunsmpb") carrying hex fields "reserved priming padding
// total_frames". The caller only invokes this when no Xing/LAME or VBRI
// header already set priming, so this never overrides a VBR header's
// values.
func applyITunSMPB(d *Demuxer) {
	v, ok := d.info.Get("comment:itunsmpb")
	if !ok {
		return
	}
	fields := strings.Fields(v)
	if len(fields) != 4 {
		return
	}
	priming, err1 := strconv.ParseInt(fields[1], 16, 64)
	padding, err2 := strconv.ParseInt(fields[2], 16, 64)
	total, err3 := strconv.ParseInt(fields[3], 16, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return
	}
	d.priming = int(priming)
	d.total = total
	_ = padding // padding is implied by total_frames already excluding it
}

// frameParser hands back one MPEG audio frame at a time, scanning
// forward from the previous frame's end to resynchronize byte-by-byte
// if a frame turns out to be corrupt. It also records each frame's
// start offset into d.seekTable the first time that frame is fed,
// building the seek table incrementally.
type frameParser struct {
	d   *Demuxer
	pos int
}

func (p *frameParser) Feed(buf []byte) (int, bool, error) {
	data := p.d.data
	hdr, start, ok := syncScan(data, p.pos)
	if !ok {
		return 0, false, nil
	}
	if start+hdr.size > len(data) {
		return 0, false, nil
	}
	if n := len(p.d.seekTable); n == 0 || start > p.d.seekTable[n-1] {
		p.d.seekTable = append(p.d.seekTable, start)
	}
	n := copy(buf, data[start:start+hdr.size])
	p.pos = start + hdr.size
	return n, true, nil
}

func (d *Demuxer) StreamInfo() *dictionary.Dictionary { return d.info }
func (d *Demuxer) Images() []image.Image              { return d.images }
func (d *Demuxer) Format() audioformat.Format          { return d.format }
func (d *Demuxer) TotalFrames() int64                  { return d.total }

func (d *Demuxer) Read(pkt *audioformat.Packet) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "mp3: demuxer opened without playback mode")
	}
	return d.ctrl.Read(pkt)
}

// Seek implements preroll-based seeking: back up 10 packets from the
// frame nearest the target and let priming absorb the extra decoded
// frames.
func (d *Demuxer) Seek(targetFrame int64) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "mp3: demuxer opened without playback mode")
	}
	samplesPerFrame := int64(d.first.samplesPerFrame())
	if samplesPerFrame <= 0 {
		samplesPerFrame = 1
	}
	targetPacket := int(targetFrame / samplesPerFrame)
	prerollPacket := targetPacket - 10
	if prerollPacket < 0 {
		prerollPacket = 0
	}
	extra := (targetPacket - prerollPacket) * int(samplesPerFrame)

	if prerollPacket < len(d.seekTable) {
		d.parser.pos = d.seekTable[prerollPacket]
	} else {
		d.parser.pos = d.audioStart
		extra = int(targetFrame)
	}
	return d.ctrl.Seek(targetFrame, extra)
}

func (d *Demuxer) Close() error { return d.stream.Close() }
