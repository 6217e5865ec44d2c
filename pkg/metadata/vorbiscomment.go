package metadata

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/ampgo/internal/base64"
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/image"
	ioutilpkg "github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/tags"
	"github.com/jmylchreest/ampgo/pkg/ustring"
)

// ParseVorbisComment parses a Vorbis-comment block: a u32LE-prefixed
// vendor string followed by a u32LE comment count and that many
// u32LE-prefixed "KEY=VALUE" strings.
func ParseVorbisComment(b []byte) (*Result, error) {
	r := ioutilpkg.NewReader(b)

	vendorLen, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	vendor, err := r.Slice(int(vendorLen))
	if err != nil {
		return nil, err
	}

	count, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}

	res := &Result{Dict: dictionary.New()}
	for i := uint32(0); i < count; i++ {
		n, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		raw, err := r.Slice(int(n))
		if err != nil {
			return nil, err
		}
		eq := strings.IndexByte(string(raw), '=')
		if eq < 0 {
			continue // malformed comment, ignored
		}
		field := string(raw[:eq])
		value := string(raw[eq+1:])
		dispatchVorbisComment(res, field, value)
	}

	res.Dict.Insert(tags.TagType, "Vorbis")
	res.Dict.Insert("vendor", ustring.FromUTF8Lossy(string(vendor)).String())
	return res, nil
}

func dispatchVorbisComment(res *Result, field, value string) {
	switch strings.ToUpper(field) {
	case "METADATA_BLOCK_PICTURE":
		if img, err := decodeFLACPictureBlock(value); err == nil {
			res.Images = append(res.Images, img)
		}
	case "R128_TRACK_GAIN":
		if db, err := parseR128Gain(value); err == nil {
			res.Dict.Insert(tags.ReplayGainTrackDB, formatGainDB(db))
		}
	case "R128_ALBUM_GAIN":
		if db, err := parseR128Gain(value); err == nil {
			res.Dict.Insert(tags.ReplayGainAlbumDB, formatGainDB(db))
		}
	default:
		res.Dict.Insert(tags.MapVorbisComment(field), value)
	}
}

// parseR128Gain parses an R128_*_GAIN field: a signed Q7.8 fixed-point
// integer (in 1/256 dB units) relative to -23 LUFS, converting it to a
// plain dB float.
func parseR128Gain(value string) (float64, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return float64(n) / 256.0, nil
}

// formatGainDB converts an R128 -23 LUFS-relative gain to the canonical
// ReplayGain convention (-18 dB headroom) by adding 5 dB, formatting as
// "X.XX dB".
func formatGainDB(r128DB float64) string {
	return strconv.FormatFloat(r128DB+5.0, 'f', 2, 64) + " dB"
}

// decodeFLACPictureBlock decodes a base64-encoded METADATA_BLOCK_PICTURE
// value into an embedded image.
func decodeFLACPictureBlock(b64 string) (image.Image, error) {
	raw, err := base64.DecodeString(b64)
	if err != nil {
		return image.Image{}, err
	}
	return DecodeFLACPictureBlock(raw)
}

// DecodeFLACPictureBlock decodes a raw (already-unwrapped) FLAC PICTURE
// metadata block: type(u32BE) mime_pascal(u32BE) desc_pascal(u32BE)
// width/height/depth/colors(u32BE x4) data_length(u32BE) data(bytes).
// Shared by native/Ogg FLAC's PICTURE metadata block (internal/containers/flac)
// and Vorbis comments' base64-wrapped METADATA_BLOCK_PICTURE field.
func DecodeFLACPictureBlock(raw []byte) (image.Image, error) {
	r := ioutilpkg.NewReader(raw)

	pictureType, err := r.ReadU32BE()
	if err != nil {
		return image.Image{}, err
	}
	mimeLen, err := r.ReadU32BE()
	if err != nil {
		return image.Image{}, err
	}
	mime, err := r.Slice(int(mimeLen))
	if err != nil {
		return image.Image{}, err
	}
	descLen, err := r.ReadU32BE()
	if err != nil {
		return image.Image{}, err
	}
	desc, err := r.Slice(int(descLen))
	if err != nil {
		return image.Image{}, err
	}
	// width, height, depth, colors: four u32BE fields, not needed beyond
	// validating the image itself via SniffFormat downstream.
	for i := 0; i < 4; i++ {
		if _, err := r.ReadU32BE(); err != nil {
			return image.Image{}, err
		}
	}
	dataLen, err := r.ReadU32BE()
	if err != nil {
		return image.Image{}, err
	}
	data, err := r.Slice(int(dataLen))
	if err != nil {
		return image.Image{}, err
	}
	if int(pictureType) > 20 {
		return image.Image{}, errs.Newf(errs.InvalidDataFormat, "vorbiscomment: picture type %d out of range", pictureType)
	}

	return image.Image{
		MIMEType:    ustring.FromUTF8Lossy(string(mime)),
		Description: ustring.FromUTF8Lossy(string(desc)),
		Type:        image.Type(pictureType),
		Data:        data,
	}, nil
}
