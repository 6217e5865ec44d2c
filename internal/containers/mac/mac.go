// Package mac implements the Monkey's Audio (APE) container demuxer:
// descriptor+header parsing (versions 3800-3990, with the richer
// 3980+ descriptor layout), the per-frame byte-offset seek table, and
// frame-boundary byte alignment. The APE entropy/prediction decode
// itself is a concrete codec implementation out of scope here,
// resolved through the decoder registry.
package mac

import (
	"encoding/binary"

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
	registry.RegisterInput("ape", Open)
}

const (
	formatFlag8Bit            = 1 << 0
	formatFlag24Bit           = 1 << 3
	formatFlagHasPeakLevel    = 1 << 2
	formatFlagHasSeekElements = 1 << 4
	formatFlagCreateWAVHeader = 1 << 5
)

// frame is one APE frame's byte range within the file, plus its bit
// offset (skip) into the first 32-bit word for sub-byte alignment.
type frame struct {
	pos  int64
	size uint32
	skip uint32
}

// Demuxer implements registry.Demuxer for Monkey's Audio.
type Demuxer struct {
	stream       ioutil.Stream
	info         *dictionary.Dictionary
	images       []image.Image
	format       audioformat.Format
	bits         int
	blocksPerPkt uint32
	total        int64
	data         []byte
	frames       []frame
	current      int
	apeFooterOff int
	id3v1Off     int
	ctrl         *demux.Controller
	parser       *frameParser
}

// Open parses the APE descriptor/header chain and builds the seek
// table, then (in playback mode) wires a decoder and the demux
// controller.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	d := &Demuxer{stream: stream, info: dictionary.New(), data: data, apeFooterOff: -1, id3v1Off: -1}
	if off, ok := metadata.FindAPEFooter(data); ok {
		d.apeFooterOff = off
	} else if len(data) >= metadata.ID3v1Size && string(data[len(data)-metadata.ID3v1Size:len(data)-metadata.ID3v1Size+3]) == "TAG" {
		d.id3v1Off = len(data) - metadata.ID3v1Size
	}

	if len(data) < 6 || string(data[0:4]) != "MAC " {
		return nil, errs.New(errs.InvalidDataFormat, "mac: missing 'MAC ' signature")
	}
	r := ioutil.NewReader(data[4:])
	version16, err := r.ReadU16LE()
	if err != nil {
		return nil, err
	}
	version := int(version16)
	if version < 3800 || version > 3990 {
		return nil, errs.Newf(errs.NotImplemented, "mac: unsupported Monkey's Audio version %d.%02d", version/1000, (version%1000)/10)
	}

	var descriptorSize, apeHeaderSize, seekTableSize, wavHeaderSize uint32
	var trailDataSize uint32
	var audioDataSize uint64
	var compressionLevel, formatFlags, channels, bitsPerSample uint16
	var blocksPerFrame, finalFrameBlocks, totalFrames, sampleRate uint32

	if version >= 3980 {
		if err := r.Skip(2); err != nil { // padding
			return nil, err
		}
		if err := r.Gather(binary.LittleEndian, &descriptorSize, &apeHeaderSize, &seekTableSize, &wavHeaderSize); err != nil {
			return nil, err
		}
		audioDataSize64, err := r.ReadU64LE()
		if err != nil {
			return nil, err
		}
		audioDataSize = audioDataSize64
		if err := r.Gather(binary.LittleEndian, &trailDataSize); err != nil {
			return nil, err
		}
		if _, err := r.Slice(16); err != nil { // md5
			return nil, err
		}
		if descriptorSize > 52 {
			if err := r.Skip(int(descriptorSize) - 52); err != nil {
				return nil, err
			}
		}
		if err := r.Gather(binary.LittleEndian, &compressionLevel, &formatFlags, &blocksPerFrame, &finalFrameBlocks, &totalFrames, &bitsPerSample, &channels, &sampleRate); err != nil {
			return nil, err
		}
	} else {
		descriptorSize = 6
		apeHeaderSize = 26
		if err := r.Gather(binary.LittleEndian, &compressionLevel, &formatFlags, &channels, &sampleRate, &wavHeaderSize, &trailDataSize, &totalFrames, &finalFrameBlocks); err != nil {
			return nil, err
		}
		if formatFlags&formatFlagHasPeakLevel != 0 {
			if err := r.Skip(4); err != nil {
				return nil, err
			}
			apeHeaderSize += 4
		}
		if formatFlags&formatFlagHasSeekElements != 0 {
			v, err := r.ReadU32LE()
			if err != nil {
				return nil, err
			}
			seekTableSize = v
			apeHeaderSize += 4
		} else {
			seekTableSize = totalFrames
		}
		seekTableSize *= 4

		switch {
		case formatFlags&formatFlag8Bit != 0:
			bitsPerSample = 8
		case formatFlags&formatFlag24Bit != 0:
			bitsPerSample = 24
		default:
			bitsPerSample = 16
		}

		switch {
		case version >= 3950:
			blocksPerFrame = 73728 * 4
		case version >= 3900:
			blocksPerFrame = 73728
		case version >= 3800 && uint32(compressionLevel) >= 4000:
			blocksPerFrame = 73728
		default:
			blocksPerFrame = 9216
		}

		if formatFlags&formatFlagCreateWAVHeader == 0 {
			if err := r.Skip(int(wavHeaderSize)); err != nil {
				return nil, err
			}
		}
	}

	if totalFrames == 0 {
		return nil, errs.New(errs.Failure, "mac: file contains zero frames")
	}
	if seekTableSize/4 < totalFrames {
		return nil, errs.Newf(errs.InvalidDataFormat, "mac: seek table size (%d) is less than total frame count (%d)", seekTableSize/4, totalFrames)
	}

	dataStart := int64(descriptorSize) + int64(apeHeaderSize) + int64(seekTableSize) + int64(wavHeaderSize)
	if version < 3810 {
		dataStart += int64(totalFrames)
	}

	fileSize := int64(len(data))
	dataEnd := fileSize
	if d.apeFooterOff >= 0 {
		dataEnd = int64(d.apeFooterOff)
	} else if d.id3v1Off >= 0 {
		dataEnd = int64(d.id3v1Off)
	}
	dataEnd -= int64(trailDataSize)

	seekTableStart := int64(descriptorSize) + int64(apeHeaderSize)
	if seekTableStart+int64(seekTableSize) > int64(len(data)) {
		return nil, errs.New(errs.InvalidDataFormat, "mac: seek table runs past end of file")
	}
	seekTableBytes := data[seekTableStart : seekTableStart+int64(seekTableSize)]

	frames := make([]frame, totalFrames)
	frames[0].pos = dataStart
	sr := ioutil.NewReader(seekTableBytes)
	for i := uint32(1); i < totalFrames; i++ {
		posU32, err := sr.ReadU32LE()
		if err != nil {
			return nil, err
		}
		pos := int64(posU32)
		frames[i].pos = pos
		frames[i].skip = uint32(pos-dataStart) & 3
		frames[i-1].size = uint32(pos - frames[i-1].pos)
	}
	last := &frames[totalFrames-1]
	last.size = uint32(dataEnd - last.pos)

	for i := range frames {
		if frames[i].skip != 0 {
			frames[i].pos -= int64(frames[i].skip)
			frames[i].size += frames[i].skip
		}
		frames[i].size = alignUp4(frames[i].size)
	}
	if last.pos+int64(last.size) > fileSize {
		last.size = uint32(fileSize - last.pos)
	}

	if version < 3810 {
		// Pre-3810 versions carry a companion per-frame bit-offset table
		// (one byte per frame) immediately after the byte-offset table.
		bitOffsetStart := seekTableStart + int64(seekTableSize)
		if bitOffsetStart+int64(totalFrames) <= int64(len(data)) {
			bitOffsets := data[bitOffsetStart : bitOffsetStart+int64(totalFrames)]
			for i := uint32(0); i < totalFrames; i++ {
				if i < totalFrames-1 && bitOffsets[i+1] != 0 {
					frames[i].size += 4
				}
				frames[i].skip <<= 3
				frames[i].skip += uint32(bitOffsets[i])
			}
		}
	}

	d.format = audioformat.Format{
		Channels:      int(channels),
		ChannelLayout: audioformat.DefaultLayoutFor(int(channels)),
		SampleRate:    int(sampleRate),
	}
	d.bits = int(bitsPerSample)
	d.blocksPerPkt = blocksPerFrame
	d.frames = frames
	d.total = int64(blocksPerFrame)*int64(totalFrames-1) + int64(finalFrameBlocks)
	_ = audioDataSize

	if d.apeFooterOff >= 0 {
		if res, err := metadata.ParseAPE(data, d.apeFooterOff); err == nil {
			d.info.Merge(res.Dict)
			d.images = append(d.images, res.Images...)
		}
	} else if d.id3v1Off >= 0 {
		if dict, ok := metadata.ParseID3v1(data[d.id3v1Off:]); ok {
			d.info.Merge(dict)
		}
	}

	if !mode.Has(registry.OpenPlayback) {
		return d, nil
	}

	commFormat := audioformat.CodecFormat{
		Format:          d.format,
		CodecID:         audioformat.CodecAPE,
		BitsPerSample:   d.bits,
		FramesPerPacket: int(blocksPerFrame),
	}
	decoder, err := registry.ResolveDecoder(&commFormat)
	if err != nil {
		return nil, err
	}
	d.format = commFormat.Format

	d.parser = &frameParser{d: d}
	d.ctrl = demux.New(demux.Config{Parser: d.parser, Decoder: decoder, TotalFrames: d.total})
	return d, nil
}

func alignUp4(n uint32) uint32 { return (n + 3) &^ 3 }


// frameParser hands back one APE frame at a time, prefixed with an
// 8-byte (blocks, skip) header the decoder collaborator needs, per the
// original demuxer's feed() convention.
type frameParser struct {
	d *Demuxer
}

func (p *frameParser) Feed(buf []byte) (int, bool, error) {
	d := p.d
	if d.current >= len(d.frames) {
		return 0, false, nil
	}
	f := d.frames[d.current]
	blocks := d.blocksPerPkt
	if d.current+1 == len(d.frames) {
		blocks = uint32(d.total) - d.blocksPerPkt*uint32(len(d.frames)-1)
	}
	need := 8 + int(f.size)
	if need > len(buf) || int(f.pos)+int(f.size) > len(d.data) {
		return 0, false, errs.New(errs.OutOfBounds, "mac: frame runs past end of stream or scratch buffer")
	}
	buf[0] = byte(blocks)
	buf[1] = byte(blocks >> 8)
	buf[2] = byte(blocks >> 16)
	buf[3] = byte(blocks >> 24)
	buf[4] = byte(f.skip)
	buf[5] = byte(f.skip >> 8)
	buf[6] = byte(f.skip >> 16)
	buf[7] = byte(f.skip >> 24)
	copy(buf[8:need], d.data[f.pos:int64(f.pos)+int64(f.size)])
	d.current++
	return need, true, nil
}

func (d *Demuxer) StreamInfo() *dictionary.Dictionary { return d.info }
func (d *Demuxer) Images() []image.Image              { return d.images }
func (d *Demuxer) Format() audioformat.Format          { return d.format }
func (d *Demuxer) TotalFrames() int64                  { return d.total }

func (d *Demuxer) Read(pkt *audioformat.Packet) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "mac: demuxer opened without playback mode")
	}
	return d.ctrl.Read(pkt)
}

// Seek lands on the APE frame containing target, per the original
// demuxer's nearest = pts/frames_per_packet, priming = pts%frames_per_packet.
func (d *Demuxer) Seek(targetFrame int64) error {
	if d.ctrl == nil {
		return errs.New(errs.Failure, "mac: demuxer opened without playback mode")
	}
	if targetFrame > d.total {
		targetFrame = d.total
	}
	nearest := targetFrame / int64(d.blocksPerPkt)
	priming := targetFrame % int64(d.blocksPerPkt)
	if int(nearest) >= len(d.frames) {
		nearest = int64(len(d.frames) - 1)
	}
	d.current = int(nearest)
	return d.ctrl.Seek(targetFrame, int(priming))
}

func (d *Demuxer) Close() error { return d.stream.Close() }
