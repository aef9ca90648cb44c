package format

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildID3 returns an ID3v2 header declaring a tag body of size bytes,
// followed by that many padding bytes.
func buildID3(size int) []byte {
	header := []byte{
		'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7F), byte(size >> 14 & 0x7F), byte(size >> 7 & 0x7F), byte(size & 0x7F),
	}
	return append(header, make([]byte, size)...)
}

// mp3Frame returns the head of a valid MPEG audio frame.
func mp3Frame() []byte {
	return []byte{0xFF, 0xFB, 0x90, 0x00, 0x11, 0x22, 0x33, 0x44}
}

func wavFile() []byte {
	buf := []byte("RIFF")
	buf = append(buf, 0x24, 0x00, 0x00, 0x00)
	buf = append(buf, []byte("WAVEfmt ")...)
	buf = append(buf, make([]byte, 24)...)
	return buf
}

func m4aFile() []byte {
	buf := []byte{0x00, 0x00, 0x00, 0x20}
	buf = append(buf, []byte("ftypM4A ")...)
	buf = append(buf, make([]byte, 24)...)
	return buf
}

// junk returns n filler bytes containing no frame sync and no container
// marker.
func junk(n int) []byte {
	return bytes.Repeat([]byte{0x55}, n)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want Kind
	}{
		{"mp3 frame sync", mp3Frame(), MP3},
		{"mp3 id3 header", buildID3(0), MP3},
		{"mp3 sync variant f3", []byte{0xFF, 0xF3, 0x00, 0x00}, MP3},
		{"mp3 sync variant f2", []byte{0xFF, 0xF2, 0x00, 0x00}, MP3},
		{"mp3 sync lower boundary", []byte{0xFF, 0xE0, 0x00, 0x00}, MP3},
		{"0xFF without sync bits", []byte{0xFF, 0x1F, 0x00, 0x00}, Unknown},
		{"wav", wavFile(), WAV},
		{"wav behind junk", append(junk(30), wavFile()...), WAV},
		{"flac", append([]byte("fLaC"), make([]byte, 16)...), FLAC},
		{"flac behind junk", append(junk(100), []byte("fLaC")...), FLAC},
		{"ogg", append([]byte("OggS"), make([]byte, 16)...), OGG},
		{"m4a ftyp box", m4aFile(), M4A},
		{"m4a raw adif", append([]byte("ADIF"), make([]byte, 8)...), M4A},
		{"empty buffer", nil, Unknown},
		{"plain text", []byte("this is not audio at all, just words"), Unknown},
		{"anchor beyond scan window", append(junk(ScanWindow+10), wavFile()...), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.buf))
		})
	}
}

// TestDetectPrefersSmallestAnchor pins the tie-break rule: when two
// formats both anchor inside the window, the earlier anchor decides.
func TestDetectPrefersSmallestAnchor(t *testing.T) {
	// A stray frame sync ahead of a buried RIFF header: mp3 wins.
	buf := append(junk(10), 0xFF, 0xFB)
	buf = append(buf, junk(20)...)
	buf = append(buf, wavFile()...)
	assert.Equal(t, MP3, Detect(buf))

	// A clean RIFF header ahead of a later frame sync: wav wins.
	buf = append(wavFile(), 0xFF, 0xFB)
	assert.Equal(t, WAV, Detect(buf))
}

// TestDetectDeterministic runs every classification twice over the same
// buffer and expects identical answers.
func TestDetectDeterministic(t *testing.T) {
	ramp := make([]byte, 8192)
	for i := range ramp {
		ramp[i] = byte(i)
	}

	buffers := [][]byte{
		nil,
		mp3Frame(),
		buildID3(257),
		wavFile(),
		append(junk(99), wavFile()...),
		m4aFile(),
		ramp,
		junk(ScanWindow * 2),
	}

	for _, buf := range buffers {
		assert.Equal(t, Detect(buf), Detect(buf))
		assert.Equal(t, DetectStrict(buf), DetectStrict(buf))
		assert.Equal(t, DetectForRecovery(buf), DetectForRecovery(buf))
	}
}

func TestDetectStrict(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want Kind
	}{
		{"clean mp3 sync", mp3Frame(), MP3},
		{"clean id3", buildID3(0), MP3},
		{"clean wav", wavFile(), WAV},
		{"clean flac", append([]byte("fLaC"), make([]byte, 4)...), FLAC},
		{"clean ogg", append([]byte("OggS"), make([]byte, 4)...), OGG},
		{"clean m4a", m4aFile(), M4A},
		{"junk prefixed wav rejected", append(junk(8), wavFile()...), Unknown},
		{"junk prefixed sync rejected", append(junk(8), mp3Frame()...), Unknown},
		{"text rejected", []byte("hello world, still not audio"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectStrict(tt.buf))
		})
	}
}

func TestDetectForRecovery(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want Kind
	}{
		{"buried wav still classified", append(junk(40), wavFile()...), WAV},
		{"buried flac still classified", append(junk(40), []byte("fLaC")...), FLAC},
		{"clean ogg", append([]byte("OggS"), make([]byte, 4)...), OGG},
		{"m4a head", m4aFile(), M4A},
		{"nothing matches falls back to mp3", junk(500), MP3},
		{"empty falls back to mp3", nil, MP3},
		// Frame sync is checked before the buried wav header, so the
		// stray sync decides even though a RIFF pattern follows.
		{"stray sync shadows buried wav", append(append(junk(4), 0xFF, 0xE3), wavFile()...), MP3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectForRecovery(tt.buf))
		})
	}
}

func TestKindForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Kind
	}{
		{".mp3", MP3},
		{"MP3", MP3},
		{".WAV", WAV},
		{".m4a", M4A},
		{"aac", M4A},
		{".flac", FLAC},
		{".ogg", OGG},
		{".txt", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, KindForExtension(tt.ext))
		})
	}
}
