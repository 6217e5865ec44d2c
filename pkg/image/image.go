// Package image holds ampgo's embedded cover-art type
// and validates the raw bytes using golang.org/x/image's format decoders,
// using a dedicated FLAC-picture-style decode path for the same
// embedded-cover-art concern.
package image

import (
	"bytes"
	imagepkg "image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/jmylchreest/ampgo/pkg/ustring"
)

// Type enumerates the embedded-picture roles a container may tag an image with.
type Type int

const (
	TypeOther Type = iota
	TypeFileIcon
	TypeOtherFileIcon
	TypeFrontCover
	TypeBackCover
	TypeLeaflet
	TypeMedia
	TypeLeadArtist
	TypeArtist
	TypeConductor
	TypeBand
	TypeComposer
	TypeLyricist
	TypeRecordingLocation
	TypeDuringRecording
	TypeDuringPerformance
	TypeVideoCapture
	TypeFish
	TypeIllustration
	TypeBandLogo
	TypePublisherLogo
)

// Image is an embedded cover-art picture.
type Image struct {
	MIMEType    ustring.U8
	Description ustring.U8
	Type        Type
	Data        []byte
}

// SniffFormat decodes only the image's configuration (dimensions/format),
// validating that the bytes are a well-formed image the playback layer
// could subsequently render, without fully decoding pixel data.
func SniffFormat(data []byte) (format string, width, height int, err error) {
	cfg, format, err := imagepkg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, err
	}
	return format, cfg.Width, cfg.Height, nil
}

// Pick selects the first image in candidates matching want, falling back
// to an untyped (TypeOther) image when want is TypeFrontCover and no
// explicitly-typed front cover exists.
func Pick(candidates []Image, want Type) (Image, bool) {
	var fallback *Image
	for i := range candidates {
		c := &candidates[i]
		if c.Type == want {
			return *c, true
		}
		if want == TypeFrontCover && c.Type == TypeOther && fallback == nil {
			fallback = c
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Image{}, false
}
