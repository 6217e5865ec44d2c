// Package flac implements the FLAC / Ogg-FLAC container demuxer:
// probes for native "fLaC" or Ogg-encapsulated streams, walks the
// metadata block chain (STREAMINFO, VORBIS_COMMENT, PICTURE), and hands
// the audio bytes to the frame decoder (one Ogg packet at a time for
// Ogg-FLAC, fixed-size chunks for native FLAC). The stream decoder itself
// (the actual FLAC entropy/prediction decode) is a concrete codec
// implementation, out of scope here, resolved through the decoder
// registry.
package flac

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
	registry.RegisterInput("flac", Open)
}

const (
	blockStreamInfo    = 0
	blockVorbisComment = 4
	blockPicture       = 6
)

// Demuxer implements registry.Demuxer for FLAC and Ogg-FLAC.
type Demuxer struct {
	stream  ioutil.Stream
	info    *dictionary.Dictionary
	images  []image.Image
	format  audioformat.Format
	bits    int
	total   int64
	frames  [][]byte // audio-frame packets, pre-split for Ogg; nil for native (parsed lazily)
	native  []byte    // native-FLAC frame byte range, fed in fixed-size chunks
	ctrl    *demux.Controller
	parser  demux.Parser
}

// Open probes for native or Ogg-encapsulated FLAC and, in playback
// mode, wires a decoder and the demux controller.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	d := &Demuxer{stream: stream, info: dictionary.New()}

	var blocksStart int
	var audioStart int
	switch {
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		blocksStart = 4
		if err := d.walkNativeBlocks(data, blocksStart, &audioStart); err != nil {
			return nil, err
		}
		d.frames = nil
		audioData := data[audioStart:]
		d.native = audioData
	case len(data) >= 33 && string(data[0:4]) == "OggS" && string(data[29:33]) == "FLAC":
		if err := d.walkOggBlocks(data); err != nil {
			return nil, err
		}
	default:
		return nil, errs.New(errs.InvalidDataFormat, "flac: missing fLaC/OggS+FLAC signature")
	}

	if d.format.Channels == 0 {
		return nil, errs.New(errs.InvalidDataFormat, "flac: missing STREAMINFO block")
	}

	if !mode.Has(registry.OpenPlayback) {
		return d, nil
	}

	commFormat := audioformat.CodecFormat{
		Format:        d.format,
		CodecID:       audioformat.CodecFLAC,
		BitsPerSample: d.bits,
	}
	decoder, err := registry.ResolveDecoder(&commFormat)
	if err != nil {
		return nil, err
	}

	if d.native != nil {
		d.parser = &nativeFrameParser{data: d.native}
	} else {
		d.parser = &packetParser{packets: d.frames}
	}
	d.ctrl = demux.New(demux.Config{Parser: d.parser, Decoder: decoder, TotalFrames: d.total})
	return d, nil
}

// walkNativeBlocks reads native FLAC's metadata-block chain starting at
// offset pos, writing the byte offset where audio frames begin into
// *audioStart.
func (d *Demuxer) walkNativeBlocks(data []byte, pos int, audioStart *int) error {
	for {
		if pos+4 > len(data) {
			return errs.New(errs.InvalidDataFormat, "flac: truncated metadata block header")
		}
		last := data[pos]&0x80 != 0
		blockType := data[pos] & 0x7f
		size := int(data[pos+1])<<16 | int(data[pos+2])<<8 | int(data[pos+3])
		body := pos + 4
		if body+size > len(data) {
			return errs.New(errs.InvalidDataFormat, "flac: metadata block runs past end of stream")
		}
		block := data[body : body+size]
		d.dispatchBlock(blockType, block)
		pos = body + size
		if last {
			*audioStart = pos
			return nil
		}
	}
}

// walkOggBlocks reassembles the Ogg-FLAC header packet chain per the
// Ogg FLAC mapping (RFC-adjacent community spec): a first packet
// carrying "FLAC" + version + header-packet count + an embedded native
// "fLaC" STREAMINFO block, followed by one metadata block per
// subsequent header packet, then raw audio-frame packets.
func (d *Demuxer) walkOggBlocks(data []byte) error {
	pages, err := containers.ParseOggPages(data)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return errs.New(errs.InvalidDataFormat, "flac: no Ogg pages found")
	}
	serial := pages[0].Serial
	packets := containers.OggPackets(pages, serial)
	if len(packets) == 0 || len(packets[0]) < 13 {
		return errs.New(errs.InvalidDataFormat, "flac: missing Ogg FLAC header packet")
	}
	first := packets[0]
	if first[0] != 0x7f || string(first[1:5]) != "FLAC" {
		return errs.New(errs.InvalidDataFormat, "flac: malformed Ogg FLAC header packet")
	}
	numHeaderPackets := int(first[7])<<8 | int(first[8])
	if string(first[9:13]) != "fLaC" {
		return errs.New(errs.InvalidDataFormat, "flac: missing embedded fLaC signature")
	}
	// The first header packet's remainder is exactly one metadata block
	// (STREAMINFO, always first and always present).
	if err := d.walkNativeBlocks(first, 13, new(int)); err != nil {
		return err
	}

	headerEnd := 1 + numHeaderPackets
	if headerEnd > len(packets) {
		headerEnd = len(packets)
	}
	for i := 1; i < headerEnd; i++ {
		d.walkNativeBlocks(packets[i], 0, new(int))
	}
	d.frames = packets[headerEnd:]
	return nil
}

func (d *Demuxer) dispatchBlock(blockType byte, block []byte) {
	switch blockType {
	case blockStreamInfo:
		if len(block) < 34 {
			return
		}
		sampleRate := int(block[10])<<12 | int(block[11])<<4 | int(block[12])>>4
		channels := int((block[12]>>1)&0x07) + 1
		bits := (int(block[12]&0x01)<<4 | int(block[13]>>4)) + 1
		total := int64(block[13]&0x0f)<<32 | int64(block[14])<<24 | int64(block[15])<<16 | int64(block[16])<<8 | int64(block[17])
		d.format = audioformat.Format{
			Channels:      channels,
			ChannelLayout: audioformat.DefaultLayoutFor(channels),
			SampleRate:    sampleRate,
		}
		d.bits = bits
		d.total = total
	case blockVorbisComment:
		if res, err := metadata.ParseVorbisComment(block); err == nil {
			d.info.Merge(res.Dict)
			d.images = append(d.images, res.Images...)
		}
	case blockPicture:
		// PICTURE blocks share METADATA_BLOCK_PICTURE's FLAC picture-block
		// layout, so the same picture-block decoder the Vorbis-comment
		// reader uses is applied to the block directly.
		if img, err := metadata.DecodeFLACPictureBlock(block); err == nil {
			d.images = append(d.images, img)
		}
	}
}

// nativeFrameParser hands back fixed-size chunks of native FLAC's
// contiguous audio-frame byte range; frame boundaries are opaque to the
// container (the frame decoder resyncs on FLAC's frame sync code), so
// this simply feeds the decoder in bulk chunks.
type nativeFrameParser struct {
	data []byte
	pos  int
}

const flacChunkBytes = 64 * 1024

func (p *nativeFrameParser) Feed(buf []byte) (int, bool, error) {
	if p.pos >= len(p.data) {
		return 0, false, nil
	}
	want := flacChunkBytes
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

// packetParser hands back one pre-split Ogg packet (one or more FLAC
// frames) at a time.
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
		return errs.New(errs.Failure, "flac: demuxer opened without playback mode")
	}
	return d.ctrl.Read(pkt)
}

// Seek re-requests a decode from the start and lets the controller's
// priming drop frames up to target; a real seek table (as
// stream_decoder_seek_absolute provides) is future work once the
// concrete FLAC decoder collaborator is wired in.
func (d *Demuxer) Seek(targetFrame int64) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "flac: demuxer opened without playback mode")
	}
	if p, ok := d.parser.(*nativeFrameParser); ok {
		p.pos = 0
	}
	if p, ok := d.parser.(*packetParser); ok {
		p.index = 0
	}
	return d.ctrl.Seek(targetFrame, int(targetFrame))
}

func (d *Demuxer) Close() error { return d.stream.Close() }
