package containers

import "github.com/jmylchreest/ampgo/internal/errs"

// OggPage is one physical Ogg page, grounded on RFC 3533's page layout,
// shared by the Ogg-hosted container demuxers (FLAC, Vorbis, Opus).
type OggPage struct {
	Serial      uint32
	GranulePos  int64
	Continued   bool // header_type bit 0x01: page continues previous packet
	Segments    [][]byte
	LastLacing  byte // lacing value of the page's final segment
}

// ParseOggPages splits data into physical pages without validating CRCs
// (page CRC validation is not required to extract packet boundaries).
func ParseOggPages(data []byte) ([]OggPage, error) {
	var pages []OggPage
	pos := 0
	for pos+27 <= len(data) {
		if string(data[pos:pos+4]) != "OggS" {
			return nil, errs.Newf(errs.InvalidDataFormat, "ogg: bad capture pattern at offset %d", pos)
		}
		headerType := data[pos+5]
		granule := int64(le64(data[pos+6 : pos+14]))
		serial := le32(data[pos+14 : pos+18])
		segCount := int(data[pos+26])
		tableStart := pos + 27
		if tableStart+segCount > len(data) {
			return nil, errs.New(errs.InvalidDataFormat, "ogg: truncated segment table")
		}
		lacing := data[tableStart : tableStart+segCount]
		dataStart := tableStart + segCount

		var segments [][]byte
		offset := dataStart
		runLen := 0
		var lastLacing byte
		for _, l := range lacing {
			runLen += int(l)
			lastLacing = l
			if l < 255 {
				if offset+runLen > len(data) {
					return nil, errs.New(errs.InvalidDataFormat, "ogg: segment runs past end of stream")
				}
				segments = append(segments, data[offset:offset+runLen])
				offset += runLen
				runLen = 0
			}
		}
		if runLen > 0 {
			// Final lacing value was 255: the last segment is incomplete
			// and continues on the next page.
			if offset+runLen > len(data) {
				return nil, errs.New(errs.InvalidDataFormat, "ogg: trailing segment runs past end of stream")
			}
			segments = append(segments, data[offset:offset+runLen])
			offset += runLen
		}

		pages = append(pages, OggPage{
			Serial:     serial,
			GranulePos: granule,
			Continued:  headerType&0x01 != 0,
			Segments:   segments,
			LastLacing: lastLacing,
		})
		pos = offset
	}
	return pages, nil
}

// OggPackets reassembles logical packets for serial from pages, joining a
// page's first segment onto the previous page's still-open last segment
// when Continued is set and the previous page's final lacing value was
// 255 (meaning its last segment hadn't terminated).
func OggPackets(pages []OggPage, serial uint32) [][]byte {
	var packets [][]byte
	var pending []byte
	havePending := false
	for _, pg := range pages {
		if pg.Serial != serial {
			continue
		}
		segs := pg.Segments
		if pg.Continued && havePending && len(segs) > 0 {
			pending = append(pending, segs[0]...)
			segs = segs[1:]
			// If the page's only content was the continuation and its
			// final lacing value is 255, the packet is still open.
			if len(segs) == 0 {
				if pg.LastLacing == 255 {
					continue
				}
				packets = append(packets, pending)
				pending = nil
				havePending = false
				continue
			}
			packets = append(packets, pending)
			pending = nil
			havePending = false
		}
		for i, s := range segs {
			isLast := i == len(segs)-1
			if isLast && pg.LastLacing == 255 {
				pending = append(pending, s...)
				havePending = true
				continue
			}
			packets = append(packets, s)
		}
	}
	if havePending {
		packets = append(packets, pending)
	}
	return packets
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
