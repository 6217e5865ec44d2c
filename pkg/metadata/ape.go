package metadata

import (
	"strings"

	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/image"
	ioutilpkg "github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/tags"
	"github.com/jmylchreest/ampgo/pkg/ustring"
)

const (
	apeFooterSize = 32
	apeMagic      = "APETAGEX"
)

const (
	apeItemTypeMask   = 0x06
	apeItemTypeText   = 0x00
	apeItemTypeBinary = 0x02
)

// FindAPEFooter looks for the 32-byte APEv1/v2 footer at the very end of
// tail, or 128 bytes before it when an ID3v1 tag follows the APE tag.
// Returns the footer's offset within tail, or ok=false if absent.
func FindAPEFooter(tail []byte) (offset int, ok bool) {
	if len(tail) >= apeFooterSize {
		cand := tail[len(tail)-apeFooterSize:]
		if string(cand[0:8]) == apeMagic {
			return len(tail) - apeFooterSize, true
		}
	}
	if len(tail) >= ID3v1Size+apeFooterSize {
		cand := tail[len(tail)-ID3v1Size-apeFooterSize : len(tail)-ID3v1Size]
		if string(cand[0:8]) == apeMagic {
			return len(tail) - ID3v1Size - apeFooterSize, true
		}
	}
	return 0, false
}

// ParseAPE parses an APEv1/v2 tag given the full tail buffer (enough
// trailing bytes of the file to contain the tag plus any following ID3v1)
// and the footer offset returned by FindAPEFooter.
func ParseAPE(tail []byte, footerOffset int) (*Result, error) {
	fr := ioutilpkg.NewReader(tail[footerOffset:])
	if _, err := fr.Slice(8); err != nil { // magic, already matched
		return nil, err
	}
	version, err := fr.ReadU32LE()
	if err != nil {
		return nil, err
	}
	tagSize, err := fr.ReadU32LE()
	if err != nil {
		return nil, err
	}
	itemCount, err := fr.ReadU32LE()
	if err != nil {
		return nil, err
	}
	flags, err := fr.ReadU32LE()
	if err != nil {
		return nil, err
	}
	if version != 1000 && version != 2000 {
		return nil, errs.Newf(errs.UnsupportedFormat, "ape: unsupported version %d", version)
	}
	// Reserved 8 bytes follow; ignored.

	const hasHeader = 1 << 31
	bodyStart := footerOffset - int(tagSize) + apeFooterSize
	if flags&hasHeader != 0 {
		bodyStart -= apeFooterSize // the tag also carries a leading header
	}
	if bodyStart < 0 || bodyStart > footerOffset {
		return nil, errs.Newf(errs.InvalidDataFormat, "ape: tag size %d out of range", tagSize)
	}

	r := ioutilpkg.NewReader(tail[bodyStart:footerOffset])
	res := &Result{Dict: dictionary.New()}
	d := res.Dict

	for i := uint32(0); i < itemCount; i++ {
		valueSize, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		itemFlags, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		key, err := readNULTerminatedASCII(r)
		if err != nil {
			return nil, err
		}
		value, err := r.Slice(int(valueSize))
		if err != nil {
			return nil, err
		}

		switch itemFlags & apeItemTypeMask {
		case apeItemTypeText:
			parseAPETextItem(d, key, value)
		case apeItemTypeBinary:
			parseAPEBinaryItem(res, key, value)
		default:
			// External-reference/reserved item types are not metadata.
		}
	}

	d.Insert(tags.TagType, "APEv2")
	return res, nil
}

func readNULTerminatedASCII(r *ioutilpkg.Reader) (string, error) {
	var b []byte
	for {
		c, err := r.ReadU8()
		if err != nil {
			return "", err
		}
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b), nil
}

func parseAPETextItem(d *dictionary.Dictionary, key string, value []byte) {
	canonical := tags.MapAPEKey(key)
	for _, v := range strings.Split(string(value), "\x00") {
		v = strings.TrimSpace(v)
		if v != "" {
			d.Insert(canonical, v)
		}
	}
}

// parseAPEBinaryItem decodes "Cover Art (Front)"/"Cover Art (Back)" binary
// items: a NUL-terminated filename, then the raw image bytes.
func parseAPEBinaryItem(res *Result, key string, value []byte) {
	lower := strings.ToLower(strings.TrimSpace(key))
	var pictureType image.Type
	switch lower {
	case "cover art (front)":
		pictureType = image.TypeFrontCover
	case "cover art (back)":
		pictureType = image.TypeBackCover
	default:
		return
	}

	nul := indexByte(value, 0)
	if nul < 0 {
		return
	}
	data := value[nul+1:]
	format, _, _, err := image.SniffFormat(data)
	if err != nil {
		format = ""
	}
	mime := "image/" + format
	if format == "" {
		mime = "application/octet-stream"
	}

	res.Images = append(res.Images, image.Image{
		MIMEType: ustring.Intern(mime),
		Type:     pictureType,
		Data:     data,
	})
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
