// Package metadata implements the ID3v1, ID3v2, APEv1/v2, and
// Vorbis-comment tag readers, merging each
// into the ordered dictionary type from pkg/dictionary. Grounded on the
// a container's transport-stream state-machine parsing style adapted to
// tag bytes instead of packets.
package metadata

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/tags"
	"github.com/jmylchreest/ampgo/pkg/ustring"
)

// ID3v1Size is the fixed trailing-tag size.
const ID3v1Size = 128

// genreTable is the fixed 148-entry ID3v1 genre list.
var genreTable = [...]string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge",
	"Hip-Hop", "Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B",
	"Rap", "Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska",
	"Death Metal", "Pranks", "Soundtrack", "Euro-Techno", "Ambient",
	"Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance", "Classical",
	"Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel",
	"Noise", "AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative",
	"Instrumental Pop", "Instrumental Rock", "Ethnic", "Gothic",
	"Darkwave", "Techno-Industrial", "Electronic", "Pop-Folk",
	"Eurodance", "Dream", "Southern Rock", "Comedy", "Cult", "Gangsta",
	"Top 40", "Christian Rap", "Pop/Funk", "Jungle", "Native American",
	"Cabaret", "New Wave", "Psychedelic", "Rave", "Showtunes", "Trailer",
	"Lo-Fi", "Tribal", "Acid Punk", "Acid Jazz", "Polka", "Retro",
	"Musical", "Rock & Roll", "Hard Rock", "Folk", "Folk-Rock",
	"National Folk", "Swing", "Fast Fusion", "Bebob", "Latin", "Revival",
	"Celtic", "Bluegrass", "Avantgarde", "Gothic Rock", "Progressive Rock",
	"Psychedelic Rock", "Symphonic Rock", "Slow Rock", "Big Band",
	"Chorus", "Easy Listening", "Acoustic", "Humour", "Speech", "Chanson",
	"Opera", "Chamber Music", "Sonata", "Symphony", "Booty Bass",
	"Primus", "Porn Groove", "Satire", "Slow Jam", "Club", "Tango",
	"Samba", "Folklore", "Ballad", "Power Ballad", "Rhythmic Soul",
	"Freestyle", "Duet", "Punk Rock", "Drum Solo", "A Cappella",
	"Euro-House", "Dance Hall", "Goa", "Drum & Bass", "Club-House",
	"Hardcore", "Terror", "Indie", "BritPop", "Afro-Punk", "Polsk Punk",
	"Beat", "Christian Gangsta Rap", "Heavy Metal", "Black Metal",
	"Crossover", "Contemporary Christian", "Christian Rock", "Merengue",
	"Salsa", "Thrash Metal", "Anime", "JPop", "Synthpop",
}

// GenreName returns the ID3v1 genre table entry for index n, or "" if out
// of range.
func GenreName(n int) string {
	if n < 0 || n >= len(genreTable) {
		return ""
	}
	return genreTable[n]
}

// ParseID3v1 parses a 128-byte trailing ID3v1 tag. Returns
// ok=false if the magic "TAG" is absent.
func ParseID3v1(b []byte) (*dictionary.Dictionary, bool) {
	if len(b) != ID3v1Size || string(b[0:3]) != "TAG" {
		return nil, false
	}

	d := dictionary.New()
	title := trimLatin1(b[3:33])
	artist := trimLatin1(b[33:63])
	album := trimLatin1(b[63:93])
	year := trimLatin1(b[93:97])

	// ID3v1.1: when byte 125 (comment[28]) is zero and byte 126 is not,
	// byte 126 holds the track number and the comment is 28 bytes.
	var comment string
	var track int
	if b[125] == 0 && b[126] != 0 {
		comment = trimLatin1(b[93+4 : 93+4+28])
		track = int(b[126])
	} else {
		comment = trimLatin1(b[93+4 : 93+4+30])
	}

	if title != "" {
		d.Insert(tags.Title, title)
	}
	if artist != "" {
		d.Insert(tags.Artist, artist)
	}
	if album != "" {
		d.Insert(tags.Album, album)
	}
	if year != "" {
		d.Insert(tags.Date, year)
	}
	if comment != "" {
		d.Insert(tags.Comment, comment)
	}
	if track > 0 {
		d.Insert(tags.TrackNumber, strconv.Itoa(track))
	}
	if genre := GenreName(int(b[127])); genre != "" {
		d.Insert(tags.Genre, genre)
	}
	d.Insert(tags.TagType, "ID3v1")

	return d, true
}

// trimLatin1 decodes a fixed-width Latin-1 field, trimming trailing NUL
// and space padding.
func trimLatin1(b []byte) string {
	s := string(ustring.FromLatin1(b))
	return strings.TrimRight(s, "\x00 ")
}
