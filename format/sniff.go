package format

import "bytes"

// ScanWindow bounds every forward anchor search. A genuine header buried
// deeper than this is treated as not found.
const ScanWindow = 4096

var (
	flacMarker = []byte("fLaC")
	oggMarker  = []byte("OggS")
)

// isFrameSync reports whether the byte pair is an MPEG audio frame sync:
// 0xFF followed by a byte whose top three bits are set.
func isFrameSync(b1, b2 byte) bool {
	return b1 == 0xFF && b2&0xE0 == 0xE0
}

// frameSyncAnchor scans for the first frame-sync byte pair within window.
func frameSyncAnchor(buf []byte, window int) (int, bool) {
	limit := len(buf) - 1
	if limit > window {
		limit = window
	}
	for i := 0; i < limit; i++ {
		if isFrameSync(buf[i], buf[i+1]) {
			return i, true
		}
	}
	return 0, false
}

// mp3Anchor matches an ID3v2 tag at the head, else scans for a frame sync.
// The forward scan looks for frame syncs only; a buried ID3 marker is not
// an anchor.
func mp3Anchor(buf []byte) (int, bool) {
	if bytes.HasPrefix(buf, []byte("ID3")) {
		return 0, true
	}
	return frameSyncAnchor(buf, ScanWindow)
}

// wavAnchor scans for the 12-byte RIFF....WAVE pattern at any offset
// within the window. Offset 0 covers the well-formed case.
func wavAnchor(buf []byte) (int, bool) {
	limit := len(buf) - 12
	if limit > ScanWindow {
		limit = ScanWindow
	}
	for i := 0; i <= limit; i++ {
		if string(buf[i:i+4]) == "RIFF" && string(buf[i+8:i+12]) == "WAVE" {
			return i, true
		}
	}
	return 0, false
}

func markerAnchor(buf []byte, marker []byte) (int, bool) {
	window := buf
	if len(window) > ScanWindow+len(marker) {
		window = window[:ScanWindow+len(marker)]
	}
	i := bytes.Index(window, marker)
	if i < 0 || i > ScanWindow {
		return 0, false
	}
	return i, true
}

func flacAnchor(buf []byte) (int, bool) { return markerAnchor(buf, flacMarker) }

func oggAnchor(buf []byte) (int, bool) { return markerAnchor(buf, oggMarker) }

// m4aAnchor never scans: ISO-BMFF either leads the buffer (ftyp box at
// offset 4, or raw ADIF) or the classification fails.
func m4aAnchor(buf []byte) (int, bool) {
	if bytes.HasPrefix(buf, []byte("ADIF")) {
		return 0, true
	}
	if len(buf) >= 8 && string(buf[4:8]) == "ftyp" {
		return 0, true
	}
	return 0, false
}

// Detect classifies a byte buffer as one of the five supported containers.
// All five anchor searches run and the smallest anchor offset wins, so a
// stray frame-sync pair deep in the buffer cannot shadow a genuine RIFF or
// fLaC header ahead of it. Deterministic and total: Unknown when no anchor
// lands inside the scan window.
func Detect(buf []byte) Kind {
	candidates := []struct {
		kind   Kind
		anchor func([]byte) (int, bool)
	}{
		{MP3, mp3Anchor},
		{WAV, wavAnchor},
		{FLAC, flacAnchor},
		{OGG, oggAnchor},
		{M4A, m4aAnchor},
	}

	best := Unknown
	bestOff := -1
	for _, c := range candidates {
		off, ok := c.anchor(buf)
		if !ok {
			continue
		}
		if bestOff == -1 || off < bestOff {
			best, bestOff = c.kind, off
		}
	}
	return best
}

// DetectStrict accepts only buffers whose container starts at the stream
// head (the ftyp box at offset 4 counts as the head). The library import
// path uses this; a file with a garbage prefix has to go through Recover
// before it can pass.
func DetectStrict(buf []byte) Kind {
	switch {
	case len(buf) >= 2 && isFrameSync(buf[0], buf[1]):
		return MP3
	case bytes.HasPrefix(buf, []byte("ID3")):
		return MP3
	case len(buf) >= 12 && string(buf[:4]) == "RIFF" && string(buf[8:12]) == "WAVE":
		return WAV
	case bytes.HasPrefix(buf, flacMarker):
		return FLAC
	case bytes.HasPrefix(buf, oggMarker):
		return OGG
	case bytes.HasPrefix(buf, []byte("ADIF")):
		return M4A
	case len(buf) >= 8 && string(buf[4:8]) == "ftyp":
		return M4A
	}
	return Unknown
}

// DetectForRecovery classifies for the recovery retry path. MP3 is checked
// first, scan included, because frame sync is the most permissive pattern;
// wav, flac and ogg anchors follow, the m4a head test last. Nothing
// matching defaults to mp3 — a deliberate common-case bias that only the
// recovery path may rely on, never plain identification.
func DetectForRecovery(buf []byte) Kind {
	if _, ok := mp3Anchor(buf); ok {
		return MP3
	}
	if _, ok := wavAnchor(buf); ok {
		return WAV
	}
	if _, ok := flacAnchor(buf); ok {
		return FLAC
	}
	if _, ok := oggAnchor(buf); ok {
		return OGG
	}
	if _, ok := m4aAnchor(buf); ok {
		return M4A
	}
	return MP3
}
