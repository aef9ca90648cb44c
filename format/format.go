package format

import "strings"

// Kind identifies an audio container format derived purely from bytes.
// It is never persisted; classification is recomputed whenever needed.
type Kind string

const (
	MP3     Kind = "mp3"
	WAV     Kind = "wav"
	M4A     Kind = "m4a"
	FLAC    Kind = "flac"
	OGG     Kind = "ogg"
	Unknown Kind = "unknown"
)

// Extension returns the canonical file extension for a container kind,
// including the leading dot. Unknown maps to the empty string.
func Extension(k Kind) string {
	switch k {
	case MP3:
		return ".mp3"
	case WAV:
		return ".wav"
	case M4A:
		return ".m4a"
	case FLAC:
		return ".flac"
	case OGG:
		return ".ogg"
	default:
		return ""
	}
}

// ContentType returns the MIME type to serve for a container kind.
func ContentType(k Kind) string {
	switch k {
	case MP3:
		return "audio/mpeg"
	case WAV:
		return "audio/wav"
	case M4A:
		return "audio/mp4"
	case FLAC:
		return "audio/flac"
	case OGG:
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// KindForExtension maps a file extension (with or without the leading dot,
// any case) to a container kind. ".aac" is grouped with m4a.
func KindForExtension(ext string) Kind {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp3":
		return MP3
	case "wav", "wave":
		return WAV
	case "m4a", "aac", "mp4":
		return M4A
	case "flac":
		return FLAC
	case "ogg", "oga":
		return OGG
	default:
		return Unknown
	}
}
