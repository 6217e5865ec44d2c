// Package tags defines ampgo's canonical metadata key names and the
// MapVorbisComment, MapAPEKey and MapTIPLRole functions that normalize
// format-specific tag names (Vorbis comment names, APE keys, ID3v2 TIPL
// roles) onto them.
package tags

import "strings"

// Canonical keys ("album artist",
// "disc number", "replaygain track peak", "musicbrainz album id",
// "comment:<desc>", "lyrics:<desc>", "performer:<role>").
const (
	Title             = "title"
	Artist            = "artist"
	AlbumArtist       = "album artist"
	Album             = "album"
	Date              = "date"
	Genre             = "genre"
	TrackNumber       = "track number"
	TrackTotal        = "track total"
	DiscNumber        = "disc number"
	DiscTotal         = "disc total"
	Composer          = "composer"
	Conductor         = "conductor"
	Comment           = "comment"
	Lyrics            = "lyrics"
	Copyright         = "copyright"
	Encoder           = "encoder"
	BPM               = "bpm"
	Compilation       = "compilation"
	Grouping          = "grouping"
	WebPage           = "web page"
	TagType           = "tag_type"
	ReplayGainTrackDB = "replaygain track gain"
	ReplayGainTrackPk = "replaygain track peak"
	ReplayGainAlbumDB = "replaygain album gain"
	ReplayGainAlbumPk = "replaygain album peak"
	MusicBrainzAlbum  = "musicbrainz album id"
	MusicBrainzArtist = "musicbrainz artist id"
	MusicBrainzTrack  = "musicbrainz track id"
)

// CommentKey returns the canonical key for a COMM/USLT-style frame with
// the given description, per ID3v2: "comment"/"lyrics" when
// the description case-insensitively equals that word (or is empty),
// otherwise "comment:<desc>"/"lyrics:<desc>".
func CommentKey(base, description string) string {
	d := strings.TrimSpace(description)
	if d == "" || strings.EqualFold(d, base) {
		return base
	}
	return base + ":" + strings.ToLower(d)
}

// PerformerKey returns "performer:<role>" for TMCL-style role/name pairs.
func PerformerKey(role string) string {
	return "performer:" + strings.ToLower(strings.TrimSpace(role))
}

// InvolvedKey returns "involved:<role>" for unrecognized TIPL roles.
func InvolvedKey(role string) string {
	return "involved:" + strings.ToLower(strings.TrimSpace(role))
}

// knownTIPLRoles maps TIPL/IPLS role strings to canonical keys (engineer,
// producer, mix).
var knownTIPLRoles = map[string]string{
	"engineer": "engineer",
	"producer": "producer",
	"mix":      "mix",
	"mixer":    "mix",
	"dj-mix":   "mix",
}

// MapTIPLRole returns the canonical key for a TIPL role, falling back to
// "involved:<role>" for unrecognized roles.
func MapTIPLRole(role string) string {
	if k, ok := knownTIPLRoles[strings.ToLower(strings.TrimSpace(role))]; ok {
		return k
	}
	return InvolvedKey(role)
}

// vorbisCommentMap maps lowercased Vorbis-comment field names to canonical
// keys (RFC "recommended" names plus common extensions).
var vorbisCommentMap = map[string]string{
	"title":                  Title,
	"artist":                 Artist,
	"albumartist":            AlbumArtist,
	"album artist":           AlbumArtist,
	"album":                  Album,
	"date":                   Date,
	"genre":                  Genre,
	"tracknumber":            TrackNumber,
	"tracktotal":             TrackTotal,
	"totaltracks":            TrackTotal,
	"discnumber":             DiscNumber,
	"disctotal":              DiscTotal,
	"totaldiscs":             DiscTotal,
	"composer":               Composer,
	"conductor":              Conductor,
	"comment":                Comment,
	"description":            Comment,
	"copyright":              Copyright,
	"encoder":                Encoder,
	"bpm":                    BPM,
	"compilation":            Compilation,
	"grouping":               Grouping,
	"replaygain_track_gain":  ReplayGainTrackDB,
	"replaygain_track_peak":  ReplayGainTrackPk,
	"replaygain_album_gain":  ReplayGainAlbumDB,
	"replaygain_album_peak":  ReplayGainAlbumPk,
	"musicbrainz_albumid":    MusicBrainzAlbum,
	"musicbrainz_artistid":   MusicBrainzArtist,
	"musicbrainz_trackid":    MusicBrainzTrack,
}

// MapVorbisComment maps a raw Vorbis-comment field name to its canonical
// key, falling back to the lowercased raw name when unrecognized (the
// TXXX/"unknown vendor field" behavior used throughout the tag readers).
func MapVorbisComment(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if k, ok := vorbisCommentMap[lower]; ok {
		return k
	}
	return lower
}

// apeKeyMap maps lowercased APEv2 item keys to canonical keys.
var apeKeyMap = map[string]string{
	"title":       Title,
	"artist":      Artist,
	"album artist": AlbumArtist,
	"album":       Album,
	"year":        Date,
	"genre":       Genre,
	"track":       TrackNumber,
	"disc":        DiscNumber,
	"composer":    Composer,
	"comment":     Comment,
	"copyright":   Copyright,
}

// MapAPEKey maps a raw APEv1/v2 item key to its canonical key.
func MapAPEKey(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if k, ok := apeKeyMap[lower]; ok {
		return k
	}
	return lower
}
