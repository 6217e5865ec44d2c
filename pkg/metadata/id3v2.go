package metadata

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/image"
	ioutilpkg "github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/tags"
	"github.com/jmylchreest/ampgo/pkg/ustring"
)

// id3v2FrameIDMigration maps ID3v2.2/2.3 frame IDs onto their ID3v2.4
// successors so a single dispatch table can serve every tag version.
var id3v2FrameIDMigration = map[string]string{
	// v2.2 three-letter -> v2.4 four-letter.
	"TT2": "TIT2", "TP1": "TPE1", "TP2": "TPE2", "TAL": "TALB",
	"TYE": "TYER", "TRK": "TRCK", "TPA": "TPOS", "TCO": "TCON",
	"TCM": "TCOM", "TCR": "TCOP", "TBP": "TBPM", "COM": "COMM",
	"ULT": "USLT", "PIC": "APIC", "IPL": "IPLS",
	// v2.3 -> v2.4 retirements.
	"TYER": "TDRC", "TDAT": "TDRC", "TIME": "TDRC", "IPLS": "TIPL",
}

// migrateFrameID resolves a raw frame ID to its canonical (possibly
// further-migrated) ID3v2.4 form.
func migrateFrameID(id string) string {
	for {
		next, ok := id3v2FrameIDMigration[id]
		if !ok {
			return id
		}
		id = next
	}
}

// id3v2Header is the fixed 10-byte ID3v2 tag header.
type id3v2Header struct {
	MajorVersion int
	Flags        byte
	Size         uint32 // size of the extended header, frames, and padding
}

const (
	id3v2FlagUnsynchronization = 0x80
	id3v2FlagExtendedHeader    = 0x40
	id3v2FlagFooter            = 0x10
)

// Result bundles a tag reader's dictionary output with any embedded
// cover-art pictures it found, since the two travel together but are
// consumed differently (merged metadata vs. image.Pick).
type Result struct {
	Dict   *dictionary.Dictionary
	Images []image.Image
}

// ParseID3v2 parses a leading ID3v2 tag from b, returning the number of
// bytes it consumed. Returns ok=false if b does not begin with the "ID3"
// magic.
func ParseID3v2(b []byte) (*Result, int, bool, error) {
	if len(b) < 10 || string(b[0:3]) != "ID3" {
		return nil, 0, false, nil
	}

	r := ioutilpkg.NewReader(b[3:])
	major, err := r.ReadU8()
	if err != nil {
		return nil, 0, true, err
	}
	if _, err := r.ReadU8(); err != nil { // revision, ignored
		return nil, 0, true, err
	}
	flags, err := r.ReadU8()
	if err != nil {
		return nil, 0, true, err
	}
	size, err := r.ReadSynchsafe32()
	if err != nil {
		return nil, 0, true, err
	}
	hdr := id3v2Header{MajorVersion: int(major), Flags: flags, Size: size}
	totalSize := 10 + int(hdr.Size)
	if totalSize > len(b) {
		return nil, 0, true, errs.Newf(errs.InvalidDataFormat, "id3v2: tag size %d exceeds available %d bytes", totalSize, len(b))
	}

	body := b[10:totalSize]
	if hdr.Flags&id3v2FlagUnsynchronization != 0 && hdr.MajorVersion < 4 {
		// In 2.2/2.3 unsynchronization applies to the whole tag body; in
		// 2.4 it's applied per-frame instead (handled in readFrames).
		body = removeUnsynchronization(body)
	}

	br := ioutilpkg.NewReader(body)
	if hdr.Flags&id3v2FlagExtendedHeader != 0 {
		extSize, err := readExtendedHeaderSize(br, hdr.MajorVersion)
		if err != nil {
			return nil, 0, true, err
		}
		if err := br.Skip(extSize); err != nil {
			return nil, 0, true, err
		}
	}

	res := &Result{Dict: dictionary.New()}
	if err := readFrames(br, hdr, res); err != nil {
		return nil, 0, true, err
	}
	res.Dict.Insert(tags.TagType, "ID3v2."+strconv.Itoa(hdr.MajorVersion))
	return res, totalSize, true, nil
}

// readExtendedHeaderSize returns the number of bytes remaining in the
// extended header after its own size field, which the caller skips.
func readExtendedHeaderSize(br *ioutilpkg.Reader, major int) (int, error) {
	if major >= 4 {
		sz, err := br.ReadSynchsafe32()
		if err != nil {
			return 0, err
		}
		return int(sz) - 4, nil
	}
	sz, err := br.ReadU32BE()
	if err != nil {
		return 0, err
	}
	return int(sz), nil
}

// removeUnsynchronization reverses ID3v2.2/2.3 whole-tag unsynchronization:
// every 0xFF 0x00 byte pair collapses to a single 0xFF.
func removeUnsynchronization(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		out = append(out, b[i])
		if b[i] == 0xFF && i+1 < len(b) && b[i+1] == 0x00 {
			i++
		}
	}
	return out
}

// readFrames walks frame headers until the body is exhausted or padding
// (a zeroed frame ID) is reached.
func readFrames(br *ioutilpkg.Reader, hdr id3v2Header, res *Result) error {
	for br.Len() > 0 {
		idLen := 4
		if hdr.MajorVersion == 2 {
			idLen = 3
		}
		if br.Len() < idLen {
			break
		}
		idBytes, err := br.Peek(idLen)
		if err != nil {
			return err
		}
		if idBytes[0] == 0 {
			break // padding
		}
		rawID := string(idBytes)
		if err := br.Skip(idLen); err != nil {
			return err
		}

		var frameSize int
		if hdr.MajorVersion == 2 {
			sz, err := br.ReadU24BE()
			if err != nil {
				return err
			}
			frameSize = int(sz)
		} else if hdr.MajorVersion >= 4 {
			sz, err := br.ReadSynchsafe32()
			if err != nil {
				return err
			}
			frameSize = int(sz)
		} else {
			sz, err := br.ReadU32BE()
			if err != nil {
				return err
			}
			frameSize = int(sz)
		}

		var frameFlags uint16
		if hdr.MajorVersion >= 3 {
			fl, err := br.ReadU16BE()
			if err != nil {
				return err
			}
			frameFlags = fl
		}

		payload, err := br.Slice(frameSize)
		if err != nil {
			return err
		}

		compressed, encrypted, grouped, dataLenInd, unsync := decodeFrameFlags(hdr.MajorVersion, frameFlags)
		if compressed || encrypted {
			return errs.Newf(errs.NotImplemented, "id3v2: frame %q uses compression/encryption, not implemented", rawID)
		}
		if dataLenInd {
			if len(payload) < 4 {
				return errs.Newf(errs.InvalidDataFormat, "id3v2: frame %q too short for its data length indicator", rawID)
			}
			payload = payload[4:]
		}
		if grouped {
			if len(payload) < 1 {
				return errs.Newf(errs.InvalidDataFormat, "id3v2: frame %q too short for its grouping identity byte", rawID)
			}
			payload = payload[1:]
		}
		if unsync {
			payload = removeUnsynchronization(payload)
		}

		id := migrateFrameID(rawID)
		dispatchFrame(res, id, payload)
	}
	return nil
}

// decodeFrameFlags interprets a frame's two-byte status/format flags per
// major version: ID3v2.4's format byte packs grouping/compression/
// encryption/unsynchronisation/data-length-indicator into bits
// 0x40/0x08/0x04/0x02/0x01, while 2.2/2.3 pack compression/encryption/
// grouping into bits 0x80/0x40/0x20 and have no per-frame unsync or
// data-length-indicator concept at all.
func decodeFrameFlags(major int, flags uint16) (compressed, encrypted, grouped, dataLenInd, unsync bool) {
	format := byte(flags)
	if major >= 4 {
		grouped = format&0x40 != 0
		compressed = format&0x08 != 0
		encrypted = format&0x04 != 0
		unsync = format&0x02 != 0
		dataLenInd = format&0x01 != 0
		return
	}
	compressed = format&0x80 != 0
	encrypted = format&0x40 != 0
	grouped = format&0x20 != 0
	return
}

// decodeEncodedText decodes an ID3v2 text-frame body whose first byte is
// the text encoding, decoding the bytes after it accordingly.
func decodeEncodedText(b []byte) ustring.U8 {
	if len(b) == 0 {
		return ""
	}
	switch b[0] {
	case 0: // ISO-8859-1
		return ustring.FromLatin1(b[1:])
	case 1: // UTF-16 with BOM
		return ustring.FromUTF16Lossy(b[1:], ustring.LittleEndian)
	case 2: // UTF-16BE without BOM
		return ustring.FromUTF16Lossy(b[1:], ustring.BigEndian)
	case 3: // UTF-8
		return ustring.FromUTF8Lossy(string(b[1:]))
	default:
		return ustring.FromLatin1(b)
	}
}

// splitNullTerminated splits s at its first NUL-delimited field boundary
// for the given encoding byte, returning the field and remainder.
func splitNullTerminated(encByte byte, b []byte) (field, rest []byte) {
	if encByte == 1 || encByte == 2 {
		for i := 0; i+1 < len(b); i += 2 {
			if b[i] == 0 && b[i+1] == 0 {
				return b[:i], b[i+2:]
			}
		}
		return b, nil
	}
	for i, c := range b {
		if c == 0 {
			return b[:i], b[i+1:]
		}
	}
	return b, nil
}

func dispatchFrame(res *Result, id string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	d := res.Dict

	switch {
	case id == "COMM" || id == "USLT":
		parseCommentLikeFrame(d, id, payload)
	case id == "TIPL" || id == "IPLS":
		parseInvolvedPeopleFrame(d, payload)
	case id == "TMCL":
		parsePerformerFrame(d, payload)
	case id == "TCON":
		parseGenreFrame(d, payload)
	case id == "APIC" || id == "PIC":
		parsePictureFrame(res, id, payload)
	case id == "WXXX" || strings.HasPrefix(id, "W"):
		parseURLFrame(d, id, payload)
	case strings.HasPrefix(id, "T"):
		parseTextFrame(d, id, payload)
	}
}

var id3v2TextFrameKeys = map[string]string{
	"TIT2": tags.Title,
	"TPE1": tags.Artist,
	"TPE2": tags.AlbumArtist,
	"TALB": tags.Album,
	"TDRC": tags.Date,
	"TRCK": tags.TrackNumber,
	"TPOS": tags.DiscNumber,
	"TCOM": tags.Composer,
	"TPE3": tags.Conductor,
	"TCOP": tags.Copyright,
	"TENC": tags.Encoder,
	"TSSE": tags.Encoder,
	"TBPM": tags.BPM,
	"TCMP": tags.Compilation,
	"TIT1": tags.Grouping,
}

func parseTextFrame(d *dictionary.Dictionary, id string, payload []byte) {
	text := strings.TrimRight(decodeEncodedText(payload).String(), "\x00")
	if text == "" {
		return
	}
	key, ok := id3v2TextFrameKeys[id]
	if !ok {
		return
	}
	switch id {
	case "TRCK", "TPOS":
		parseSlashPair(d, key, slashCounterpart(key), text)
	default:
		d.Insert(key, text)
	}
}

func slashCounterpart(key string) string {
	switch key {
	case tags.TrackNumber:
		return tags.TrackTotal
	case tags.DiscNumber:
		return tags.DiscTotal
	}
	return ""
}

// parseSlashPair splits "N/M"-style text frames (track/disc number plus
// total) into their two canonical keys.
func parseSlashPair(d *dictionary.Dictionary, numKey, totalKey, text string) {
	parts := strings.SplitN(text, "/", 2)
	if n := strings.TrimSpace(parts[0]); n != "" {
		d.Insert(numKey, n)
	}
	if len(parts) == 2 && totalKey != "" {
		if m := strings.TrimSpace(parts[1]); m != "" {
			d.Insert(totalKey, m)
		}
	}
}

func parseGenreFrame(d *dictionary.Dictionary, payload []byte) {
	text := strings.TrimRight(decodeEncodedText(payload).String(), "\x00")
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	// ID3v2.3 genre strings may be a bare "(N)" or "(N)Refinement"
	// referencing the ID3v1 genre table.
	if strings.HasPrefix(text, "(") {
		if end := strings.IndexByte(text, ')'); end > 0 {
			if n, err := strconv.Atoi(text[1:end]); err == nil {
				if name := GenreName(n); name != "" {
					d.Insert(tags.Genre, name)
					return
				}
			}
		}
	}
	d.Insert(tags.Genre, text)
}

func parseCommentLikeFrame(d *dictionary.Dictionary, id string, payload []byte) {
	if len(payload) < 4 {
		return
	}
	enc := payload[0]
	// payload[1:4] is a 3-byte language code, ignored.
	rest := payload[4:]
	descBytes, textBytes := splitNullTerminated(enc, rest)
	desc := strings.TrimRight(decodeEncodedText(append([]byte{enc}, descBytes...)).String(), "\x00")
	text := strings.TrimRight(decodeEncodedText(append([]byte{enc}, textBytes...)).String(), "\x00")
	if text == "" {
		return
	}
	base := tags.Comment
	if id == "USLT" {
		base = tags.Lyrics
	}
	d.Insert(tags.CommentKey(base, desc), text)
}

func parsePerformerFrame(d *dictionary.Dictionary, payload []byte) {
	enc := payload[0]
	rest := payload[1:]
	for len(rest) > 0 {
		roleBytes, after := splitNullTerminated(enc, rest)
		if after == nil {
			break
		}
		nameBytes, remainder := splitNullTerminated(enc, after)
		role := strings.TrimRight(decodeEncodedText(append([]byte{enc}, roleBytes...)).String(), "\x00")
		name := strings.TrimRight(decodeEncodedText(append([]byte{enc}, nameBytes...)).String(), "\x00")
		if role != "" && name != "" {
			d.Insert(tags.PerformerKey(role), name)
		}
		rest = remainder
		if remainder == nil {
			break
		}
	}
}

func parseInvolvedPeopleFrame(d *dictionary.Dictionary, payload []byte) {
	enc := payload[0]
	rest := payload[1:]
	for len(rest) > 0 {
		roleBytes, after := splitNullTerminated(enc, rest)
		if after == nil {
			break
		}
		nameBytes, remainder := splitNullTerminated(enc, after)
		role := strings.TrimRight(decodeEncodedText(append([]byte{enc}, roleBytes...)).String(), "\x00")
		name := strings.TrimRight(decodeEncodedText(append([]byte{enc}, nameBytes...)).String(), "\x00")
		if role != "" && name != "" {
			d.Insert(tags.MapTIPLRole(role), name)
		}
		rest = remainder
		if remainder == nil {
			break
		}
	}
}

func parseURLFrame(d *dictionary.Dictionary, id string, payload []byte) {
	if id == "WXXX" {
		if len(payload) == 0 {
			return
		}
		enc := payload[0]
		_, urlBytes := splitNullTerminated(enc, payload[1:])
		url := strings.TrimRight(string(urlBytes), "\x00")
		if url != "" {
			d.Insert(tags.WebPage, url)
		}
		return
	}
	url := strings.TrimRight(string(payload), "\x00")
	if url != "" {
		d.Insert(tags.WebPage, url)
	}
}

// parsePictureFrame decodes an APIC (v2.3/2.4) or PIC (v2.2) frame into a
// cover-art image, appending it to res.Images.
func parsePictureFrame(res *Result, id string, payload []byte) {
	if len(payload) < 2 {
		return
	}
	enc := payload[0]
	rest := payload[1:]

	var mime string
	if id == "PIC" {
		if len(rest) < 3 {
			return
		}
		mime = string(rest[0:3])
		rest = rest[3:]
	} else {
		mimeBytes, after := splitNullTerminated(0, rest)
		mime = string(mimeBytes)
		if after == nil {
			return
		}
		rest = after
	}
	if len(rest) < 1 {
		return
	}
	pictureType := image.Type(rest[0])
	rest = rest[1:]

	descBytes, data := splitNullTerminated(enc, rest)
	desc := strings.TrimRight(decodeEncodedText(append([]byte{enc}, descBytes...)).String(), "\x00")

	res.Images = append(res.Images, image.Image{
		MIMEType:    ustring.FromLatin1Lossy([]byte(mime)),
		Description: ustring.Intern(desc),
		Type:        pictureType,
		Data:        data,
	})
}
