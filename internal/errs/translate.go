package errs

// The functions below translate integer/sentinel error codes from external
// codec collaborators onto a Kind: small adapter functions whose sole
// job is to map an integer code to one of the kinds above plus a
// message. None of these collaborators are vendored here; the adapters
// operate on the small, stable numeric/string codes their Go bindings
// conventionally expose.

// FFmpegAVERROR translates an FFmpeg AVERROR_* value (negative errno-style
// ints, as exposed by typical cgo FFmpeg bindings) to a Kind.
func FFmpegAVERROR(code int) *Error {
	switch code {
	case 0:
		return nil
	case -541478725: // AVERROR_EOF
		return New(EndOfFile, "ffmpeg: end of file")
	case -12: // AVERROR(ENOMEM)
		return New(BadAlloc, "ffmpeg: out of memory")
	case -22: // AVERROR(EINVAL)
		return New(InvalidArgument, "ffmpeg: invalid argument")
	case -1094995529: // AVERROR_INVALIDDATA
		return New(InvalidDataFormat, "ffmpeg: invalid data found when processing input")
	case -1163346256: // AVERROR_DECODER_NOT_FOUND
		return New(ProtocolNotSupported, "ffmpeg: decoder not found")
	default:
		return Newf(Failure, "ffmpeg: error code %d", code)
	}
}

// FLACDecoderState translates a libFLAC stream-decoder state name to a
// Kind. No case handles a FLAC "hole" status, and the FLAC demuxer has
// no retry path for one; any state not listed below maps to Failure.
func FLACDecoderState(state string) *Error {
	switch state {
	case "FLAC__STREAM_DECODER_END_OF_STREAM":
		return New(EndOfFile, "flac: end of stream")
	case "FLAC__STREAM_DECODER_SEEK_ERROR":
		return New(SeekError, "flac: seek error")
	case "FLAC__STREAM_DECODER_ABORTED":
		return New(Failure, "flac: decoder aborted")
	case "FLAC__STREAM_DECODER_MEMORY_ALLOCATION_ERROR":
		return New(BadAlloc, "flac: memory allocation error")
	case "FLAC__STREAM_DECODER_UNINITIALIZED":
		return New(Failure, "flac: decoder uninitialized")
	default:
		return Newf(Failure, "flac: decoder state %s", state)
	}
}

// VorbisOVError translates a libvorbisfile OV_* return code to a Kind.
func VorbisOVError(code int) *Error {
	switch code {
	case 0:
		return nil
	case -131: // OV_EOF (not a real libvorbis constant, kept symbolic)
		return New(EndOfFile, "vorbis: end of stream")
	case -132: // OV_HOLE
		return New(Failure, "vorbis: data interruption (hole)")
	case -133: // OV_EBADHEADER
		return New(InvalidDataFormat, "vorbis: invalid stream header")
	case -134: // OV_EVERSION
		return New(UnsupportedFormat, "vorbis: unsupported bitstream version")
	case -135: // OV_ENOTAUDIO
		return New(InvalidDataFormat, "vorbis: packet is not audio")
	case -136: // OV_EBADPACKET
		return New(InvalidDataFormat, "vorbis: invalid packet")
	case -137: // OV_EBADLINK
		return New(InvalidDataFormat, "vorbis: invalid stream section")
	case -138: // OV_ENOSEEK
		return New(UnsupportedFormat, "vorbis: bitstream is not seekable")
	default:
		return Newf(Failure, "vorbis: error code %d", code)
	}
}

// OpusError translates a libopus OPUS_* return code to a Kind.
func OpusError(code int) *Error {
	switch code {
	case 0:
		return nil
	case -1:
		return New(InvalidArgument, "opus: bad argument")
	case -2:
		return New(BadAlloc, "opus: buffer too small")
	case -3:
		return New(Failure, "opus: internal error")
	case -4:
		return New(InvalidDataFormat, "opus: invalid packet")
	case -5:
		return New(UnsupportedFormat, "opus: unimplemented request")
	case -6:
		return New(InvalidPointer, "opus: invalid state")
	case -7:
		return New(BadAlloc, "opus: memory allocation failed")
	default:
		return Newf(Failure, "opus: error code %d", code)
	}
}
