package containers

import "testing"

func leUint32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func leUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// buildOggPage constructs one physical Ogg page from a list of segment
// byte slices, each shorter than 255 bytes, so every segment terminates
// with its own lacing value (no multi-run or open-ended segments).
func buildOggPage(serial uint32, granule int64, headerType byte, segments [][]byte) []byte {
	var lacing []byte
	var data []byte
	for _, seg := range segments {
		if len(seg) >= 255 {
			panic("buildOggPage: segment must be shorter than 255 bytes; use buildOggPageRaw")
		}
		lacing = append(lacing, byte(len(seg)))
		data = append(data, seg...)
	}
	return buildOggPageRaw(serial, granule, headerType, lacing, data)
}

// buildOggPageRaw constructs one physical Ogg page from an explicit
// lacing table and its matching segment-data payload, giving full
// control over open-ended (lacing value 255) segments.
func buildOggPageRaw(serial uint32, granule int64, headerType byte, lacing []byte, data []byte) []byte {
	page := []byte("OggS")
	page = append(page, 0)          // version
	page = append(page, headerType) // header_type
	page = append(page, leUint64(uint64(granule))...)
	page = append(page, leUint32(serial)...)
	page = append(page, leUint32(0)...) // page sequence, unused by the parser
	page = append(page, leUint32(0)...) // checksum, unused by the parser
	page = append(page, byte(len(lacing)))
	page = append(page, lacing...)
	page = append(page, data...)
	return page
}

func TestParseOggPages_SingleSegmentPage(t *testing.T) {
	data := buildOggPage(42, 1000, 0, [][]byte{[]byte("hello ogg")})

	pages, err := ParseOggPages(data)
	if err != nil {
		t.Fatalf("ParseOggPages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if pages[0].Serial != 42 {
		t.Errorf("Serial = %d, want 42", pages[0].Serial)
	}
	if pages[0].GranulePos != 1000 {
		t.Errorf("GranulePos = %d, want 1000", pages[0].GranulePos)
	}
	if len(pages[0].Segments) != 1 || string(pages[0].Segments[0]) != "hello ogg" {
		t.Errorf("Segments = %v, want [\"hello ogg\"]", pages[0].Segments)
	}
}

func TestParseOggPages_RejectsBadCapturePattern(t *testing.T) {
	data := make([]byte, 40)
	copy(data, "NotOggS")
	if _, err := ParseOggPages(data); err == nil {
		t.Fatal("expected error for bad capture pattern")
	}
}

func TestOggPackets_JoinsContinuedPacketAcrossPages(t *testing.T) {
	// First page: one segment with a full 255-byte lacing run, meaning
	// the packet continues onto the next page.
	first := make([]byte, 255)
	for i := range first {
		first[i] = byte(i)
	}
	page1 := buildOggPageRaw(7, 0, 0, []byte{255}, first)

	// Second page: header_type continuation bit set, payload completes
	// the pending packet with a short (<255) segment.
	rest := []byte("tail")
	page2 := buildOggPage(7, 500, 0x01, [][]byte{rest})

	pages, err := ParseOggPages(append(page1, page2...))
	if err != nil {
		t.Fatalf("ParseOggPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}

	packets := OggPackets(pages, 7)
	if len(packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(packets))
	}
	want := append(append([]byte{}, first...), rest...)
	if string(packets[0]) != string(want) {
		t.Errorf("reassembled packet mismatch: got %d bytes, want %d bytes", len(packets[0]), len(want))
	}
}

func TestOggPackets_FiltersByDifferentSerial(t *testing.T) {
	page := buildOggPage(1, 0, 0, [][]byte{[]byte("a")})
	pages, err := ParseOggPages(page)
	if err != nil {
		t.Fatalf("ParseOggPages: %v", err)
	}
	if packets := OggPackets(pages, 2); len(packets) != 0 {
		t.Errorf("got %d packets for unmatched serial, want 0", len(packets))
	}
}
