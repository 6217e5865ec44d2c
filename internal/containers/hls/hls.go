// Package hls implements the HLS (.m3u/.m3u8) demuxer: master
// (variant) playlist parsing, media playlist parsing, and
// segment-by-segment playback through nested container demuxers.
// Playlists compressed with gzip, bzip2 or xz are detected by their
// magic bytes and decompressed before parsing.
package hls

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/ampgo/internal/containers"
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/audioformat"
	"github.com/jmylchreest/ampgo/pkg/dictionary"
	"github.com/jmylchreest/ampgo/pkg/image"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"
)

func init() {
	registry.RegisterInput("m3u", Open)
	registry.RegisterInput("m3u8", Open)
}

const nanosPerSecond = 1_000_000_000

// segment is one media playlist entry: the resolved segment URI and
// its declared duration, stored in nanoseconds per the original's
// std::nano-scaled accumulator.
type segment struct {
	location uri.URI
	duration int64
}

// mediaPlaylist is one #EXT-X-STREAM-INF target (or the top-level
// file itself, when it carries no variants of its own).
type mediaPlaylist struct {
	location uri.URI
	codecs   string // raw CODECS="..." attribute value, if any
	segments []segment
}

// Demuxer implements registry.Demuxer for HLS audio playlists.
type Demuxer struct {
	playlist *mediaPlaylist
	segIndex int
	current  registry.Demuxer
	format   audioformat.Format
	total    int64
	mode     registry.OpenMode
	info     *dictionary.Dictionary
}

// Open parses the playlist at stream's location, selects a media
// playlist whose segments this tree can actually decode, loads it,
// and opens the first segment to learn the stream's format.
func Open(stream ioutil.Stream, mode registry.OpenMode) (registry.Demuxer, error) {
	data, err := containers.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	base := stream.Location()
	stream.Close() // the playlist text itself is no longer needed once parsed

	text, err := decompress(data)
	if err != nil {
		return nil, err
	}
	lines, err := splitExtM3U(text)
	if err != nil {
		return nil, err
	}

	variants, isMaster := parseVariants(lines, base)

	var playlist *mediaPlaylist
	if isMaster {
		for i := range variants {
			// Workaround to force selection of audio-only playlists: a
			// CODECS attribute naming more than one codec (audio+video
			// muxed together) is never eligible, regardless of whether
			// the first segment's extension happens to resolve.
			if strings.Contains(variants[i].codecs, ",") {
				continue
			}
			if err := loadMediaPlaylist(&variants[i]); err != nil {
				continue
			}
			if playlistIsPlayable(&variants[i]) {
				playlist = &variants[i]
				break
			}
		}
		if playlist == nil {
			return nil, errs.New(errs.Failure, "hls: no variant playlist has a segment format this tree can open")
		}
	} else {
		playlist = &mediaPlaylist{location: base}
		if err := parseMediaPlaylistLines(playlist, lines, base); err != nil {
			return nil, err
		}
	}

	d := &Demuxer{playlist: playlist, mode: mode, info: dictionary.New()}
	if err := d.openSegment(0); err != nil {
		return nil, err
	}
	d.format = d.current.Format()

	var totalNanos int64
	for _, s := range playlist.segments {
		totalNanos += s.duration
	}
	d.total = muldiv(totalNanos, int64(d.format.SampleRate), nanosPerSecond)

	return d, nil
}

// playlistIsPlayable reports whether resolving a container for the
// playlist's first segment extension would succeed, without actually
// opening the network/file stream.
func playlistIsPlayable(p *mediaPlaylist) bool {
	if len(p.segments) == 0 {
		return false
	}
	_, err := registry.ResolveInput(p.segments[0].location.Extension())
	return err == nil
}

func (d *Demuxer) openSegment(index int) error {
	if d.current != nil {
		d.current.Close()
		d.current = nil
	}
	for index < len(d.playlist.segments) {
		demuxer, err := containers.OpenInput(d.playlist.segments[index].location, d.mode|registry.OpenMetadata)
		if err == nil {
			d.segIndex = index
			d.current = demuxer
			d.info.Merge(demuxer.StreamInfo())
			return nil
		}
		index++
	}
	d.segIndex = len(d.playlist.segments)
	return nil
}

func (d *Demuxer) StreamInfo() *dictionary.Dictionary { return d.info }
func (d *Demuxer) Images() []image.Image              { return nil }
func (d *Demuxer) Format() audioformat.Format          { return d.format }
func (d *Demuxer) TotalFrames() int64                  { return d.total }

// Read pulls from the current segment, advancing to the next segment
// on end-of-stream, matching the original's for(;;) { read; if
// !empty return; ++segment } loop.
func (d *Demuxer) Read(pkt *audioformat.Packet) error {
	for {
		if d.current == nil {
			return nil // end of playlist
		}
		if err := d.current.Read(pkt); err != nil {
			return err
		}
		if !pkt.Empty() {
			return nil
		}
		if err := d.openSegment(d.segIndex + 1); err != nil {
			return err
		}
	}
}

// Seek walks the segment duration list to find which segment target
// falls within, then seeks that segment to the remainder, mirroring
// the original's cumulative-duration loop.
func (d *Demuxer) Seek(targetFrame int64) error {
	targetNanos := muldiv(targetFrame, nanosPerSecond, int64(d.format.SampleRate))

	index := 0
	for index < len(d.playlist.segments) {
		durNanos := d.playlist.segments[index].duration
		if targetNanos >= durNanos {
			targetNanos -= durNanos
			index++
			continue
		}
		break
	}

	if err := d.openSegment(index); err != nil {
		return err
	}
	if d.current == nil {
		return nil
	}
	return d.current.Seek(muldiv(targetNanos, int64(d.format.SampleRate), nanosPerSecond))
}

func (d *Demuxer) Close() error {
	if d.current != nil {
		return d.current.Close()
	}
	return nil
}

func muldiv(a, b, c int64) int64 {
	if c == 0 {
		return 0
	}
	return a * b / c
}

// decompress auto-detects gzip/bzip2/xz-compressed playlist text by
// magic bytes, else returns data unchanged.
func decompress(data []byte) ([]byte, error) {
	switch {
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errs.Wrap(errs.InvalidDataFormat, err, "hls: gzip playlist")
		}
		defer r.Close()
		return readAll(r)
	case len(data) >= 3 && data[0] == 'B' && data[1] == 'Z' && data[2] == 'h':
		return readAll(bzip2.NewReader(bytes.NewReader(data)))
	case len(data) >= 6 && data[0] == 0xfd && data[1] == '7' && data[2] == 'z' && data[3] == 'X' && data[4] == 'Z' && data[5] == 0x00:
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errs.Wrap(errs.InvalidDataFormat, err, "hls: xz playlist")
		}
		return readAll(r)
	default:
		return data, nil
	}
}

func readAll(r interface{ Read([]byte) (int, error) }) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			break
		}
	}
	return buf.Bytes(), nil
}

func splitExtM3U(text []byte) ([]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(text))
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxLineSize), maxLineSize)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 || lines[0] != "#EXTM3U" {
		return nil, errs.New(errs.InvalidDataFormat, "hls: not an extended M3U file")
	}
	return lines[1:], nil
}

// parseVariants scans for "#EXT-X-STREAM-INF:" lines; if none are
// found, the file is itself a media playlist (isMaster == false).
func parseVariants(lines []string, base uri.URI) ([]mediaPlaylist, bool) {
	var variants []mediaPlaylist
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			continue
		}
		if i+1 >= len(lines) {
			break
		}
		target, err := uri.Parse(lines[i+1])
		if err != nil {
			i++
			continue
		}
		variants = append(variants, mediaPlaylist{location: target.Resolve(base), codecs: parseCodecsAttr(line)})
		i++
	}
	return variants, len(variants) > 0
}

// parseCodecsAttr extracts the quoted value of a CODECS="..." attribute
// from a #EXT-X-STREAM-INF line, or "" if the attribute is absent.
func parseCodecsAttr(line string) string {
	const key = "CODECS="
	idx := strings.Index(line, key)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(key):]
	if rest == "" || rest[0] != '"' {
		return ""
	}
	rest = rest[1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// loadMediaPlaylist fetches and parses a variant's own media playlist
// document.
func loadMediaPlaylist(p *mediaPlaylist) error {
	stream, err := ioutil.Open(p.location, ioutil.ModeIn|ioutil.ModeBinary)
	if err != nil {
		return err
	}
	defer stream.Close()
	data, err := containers.ReadAll(stream)
	if err != nil {
		return err
	}
	text, err := decompress(data)
	if err != nil {
		return err
	}
	lines, err := splitExtM3U(text)
	if err != nil {
		return err
	}
	return parseMediaPlaylistLines(p, lines, p.location)
}

// parseMediaPlaylistLines implements media_playlist::load: EXTINF
// duration + following segment URI, EXT-X-VERSION, EXT-X-ENDLIST.
func parseMediaPlaylistLines(p *mediaPlaylist, lines []string, base uri.URI) error {
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case line == "#EXT-X-ENDLIST":
			return nil
		case strings.HasPrefix(line, "#EXTINF:"):
			if i+1 >= len(lines) {
				return errs.New(errs.Failure, "hls: '#EXTINF' tag must be followed by a media segment URI")
			}
			durStr := strings.TrimPrefix(line, "#EXTINF:")
			if comma := strings.IndexByte(durStr, ','); comma >= 0 {
				durStr = durStr[:comma]
			}
			seconds, err := strconv.ParseFloat(strings.TrimSpace(durStr), 64)
			if err != nil || seconds < 0 {
				return errs.Newf(errs.InvalidDataFormat, "hls: invalid duration: %q", durStr)
			}
			segURI, err := uri.Parse(lines[i+1])
			if err != nil {
				return err
			}
			p.segments = append(p.segments, segment{
				location: segURI.Resolve(base),
				duration: int64(seconds * nanosPerSecond),
			})
			i++
		}
	}
	if len(p.segments) == 0 {
		return errs.New(errs.Failure, "hls: media playlist contains no segments")
	}
	return nil
}
