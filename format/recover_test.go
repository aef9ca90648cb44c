package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecoverID3RoundTrip checks the synch-safe arithmetic: for a declared
// tag size S the recovered slice must begin exactly at offset 10+S.
func TestRecoverID3RoundTrip(t *testing.T) {
	sizes := []int{0, 1, 127, 128, 257, 1000, 100000}

	for _, size := range sizes {
		buf := append(buildID3(size), mp3Frame()...)

		out, err := Recover(MP3, buf)
		require.NoError(t, err)
		assert.Equal(t, buf[10+size:], out, "size %d", size)
		assert.Equal(t, mp3Frame(), out[:len(mp3Frame())], "size %d", size)
	}
}

func TestRecoverMP3(t *testing.T) {
	t.Run("junk then frame sync", func(t *testing.T) {
		// First 200 bytes are garbage, the genuine frame begins at the
		// 201st byte.
		buf := append(junk(200), mp3Frame()...)

		require.Equal(t, MP3, Detect(buf))

		out, err := Recover(MP3, buf)
		require.NoError(t, err)
		assert.Equal(t, buf[200:], out)
		assert.Equal(t, MP3, DetectStrict(out))
	})

	t.Run("no anchor returns input unchanged", func(t *testing.T) {
		buf := junk(50)
		out, err := Recover(MP3, buf)
		require.NoError(t, err)
		assert.Equal(t, buf, out)
	})

	t.Run("already clean returns input unchanged", func(t *testing.T) {
		buf := mp3Frame()
		out, err := Recover(MP3, buf)
		require.NoError(t, err)
		assert.Equal(t, buf, out)
	})

	t.Run("tag size past end of buffer fails", func(t *testing.T) {
		truncated := buildID3(1000)[:10]
		_, err := Recover(MP3, truncated)
		assert.Error(t, err)
	})
}

func TestRecoverWAV(t *testing.T) {
	t.Run("garbage prefix trimmed at true header offset", func(t *testing.T) {
		clean := wavFile()
		buf := append(junk(37), clean...)

		out, err := Recover(WAV, buf)
		require.NoError(t, err)
		assert.Equal(t, clean, out)

		// Re-sniffing the recovered slice classifies it as wav again.
		assert.Equal(t, WAV, Detect(out))
		assert.Equal(t, WAV, DetectStrict(out))
	})

	t.Run("already clean returns input unchanged", func(t *testing.T) {
		buf := wavFile()
		out, err := Recover(WAV, buf)
		require.NoError(t, err)
		assert.Equal(t, buf, out)
	})

	t.Run("no header fails", func(t *testing.T) {
		_, err := Recover(WAV, junk(200))
		assert.Error(t, err)
	})
}

func TestRecoverMarkerFormats(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		marker string
	}{
		{"flac", FLAC, "fLaC"},
		{"ogg", OGG, "OggS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := append([]byte(tt.marker), 0x01, 0x02, 0x03)
			buf := append(junk(64), payload...)

			out, err := Recover(tt.kind, buf)
			require.NoError(t, err)
			assert.Equal(t, payload, out)

			_, err = Recover(tt.kind, junk(64))
			assert.Error(t, err)
		})
	}
}

// TestRecoverM4APassThrough pins that ISO-BMFF containers are never
// trimmed, garbage prefix or not.
func TestRecoverM4APassThrough(t *testing.T) {
	clean := m4aFile()
	out, err := Recover(M4A, clean)
	require.NoError(t, err)
	assert.Equal(t, clean, out)

	dirty := append(junk(16), clean...)
	out, err = Recover(M4A, dirty)
	require.NoError(t, err)
	assert.Equal(t, dirty, out)
}

func TestSalvageFrameSync(t *testing.T) {
	t.Run("sync beyond the sniff window is still salvaged", func(t *testing.T) {
		buf := append(junk(10000), mp3Frame()...)

		// Plain mp3 recovery gives up inside its smaller window and
		// hands back the input untouched.
		out, err := Recover(MP3, buf)
		require.NoError(t, err)
		assert.Equal(t, buf, out)

		salvaged, err := SalvageFrameSync(buf)
		require.NoError(t, err)
		assert.Equal(t, buf[10000:], salvaged)
		assert.Equal(t, MP3, DetectStrict(salvaged))
	})

	t.Run("no sync anywhere fails", func(t *testing.T) {
		_, err := SalvageFrameSync(junk(1000))
		assert.Error(t, err)
	})
}

func TestSynchsafeSize(t *testing.T) {
	tests := []struct {
		bytes []byte
		want  int
	}{
		{[]byte{0x00, 0x00, 0x00, 0x00}, 0},
		{[]byte{0x00, 0x00, 0x00, 0x01}, 1},
		{[]byte{0x00, 0x00, 0x01, 0x00}, 128},
		{[]byte{0x00, 0x00, 0x02, 0x01}, 257},
		{[]byte{0x00, 0x00, 0x7F, 0x7F}, 16383},
		// Top bits must be masked off, not folded into the value.
		{[]byte{0x80, 0x80, 0x80, 0x81}, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, synchsafeSize(tt.bytes))
	}
}
