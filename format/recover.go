package format

import (
	"bytes"
	"fmt"
)

// SalvageWindow bounds the deeper frame-sync search used as the final
// recovery attempt.
const SalvageWindow = 64 * 1024

// Recover trims the leading garbage prefix from buf for a classified
// container kind. It never fabricates bytes: the result is always a suffix
// of the input. An error means no anchor was found inside the scan window
// and the caller should treat the container as corrupted.
func Recover(kind Kind, buf []byte) ([]byte, error) {
	switch kind {
	case MP3:
		return recoverMP3(buf)
	case WAV:
		if off, ok := wavAnchor(buf); ok {
			return buf[off:], nil
		}
		return nil, fmt.Errorf("no RIFF/WAVE header within %d bytes", ScanWindow)
	case FLAC:
		if off, ok := flacAnchor(buf); ok {
			return buf[off:], nil
		}
		return nil, fmt.Errorf("no fLaC marker within %d bytes", ScanWindow)
	case OGG:
		if off, ok := oggAnchor(buf); ok {
			return buf[off:], nil
		}
		return nil, fmt.Errorf("no OggS marker within %d bytes", ScanWindow)
	case M4A:
		// ISO-BMFF is too structurally involved to trim; pass through.
		return buf, nil
	}
	return nil, fmt.Errorf("cannot recover container of kind %q", kind)
}

// recoverMP3 skips a leading ID3v2 tag using its synch-safe size, or trims
// to the first frame sync inside the scan window. A buffer with neither is
// returned unchanged; mp3 recovery only fails when the declared tag size
// runs past the end of the buffer.
func recoverMP3(buf []byte) ([]byte, error) {
	if bytes.HasPrefix(buf, []byte("ID3")) && len(buf) >= 10 {
		skip := 10 + synchsafeSize(buf[6:10])
		if skip > len(buf) {
			return nil, fmt.Errorf("ID3 tag size %d exceeds buffer of %d bytes", skip-10, len(buf))
		}
		return buf[skip:], nil
	}
	if off, ok := frameSyncAnchor(buf, ScanWindow); ok {
		return buf[off:], nil
	}
	return buf, nil
}

// synchsafeSize decodes four ID3v2 size bytes: the top bit of each byte is
// unused and the remaining seven bits concatenate big-endian.
func synchsafeSize(b []byte) int {
	return int(b[0]&0x7F)<<21 | int(b[1]&0x7F)<<14 | int(b[2]&0x7F)<<7 | int(b[3]&0x7F)
}

// SalvageFrameSync is the last-resort repair for streams with no clean
// container header: find any MPEG frame sync inside the salvage window and
// return the suffix from there, mp3 assumed. Bounded and best-effort.
func SalvageFrameSync(buf []byte) ([]byte, error) {
	if off, ok := frameSyncAnchor(buf, SalvageWindow); ok {
		return buf[off:], nil
	}
	return nil, fmt.Errorf("no frame sync within %d bytes", SalvageWindow)
}
