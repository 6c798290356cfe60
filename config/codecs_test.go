package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableAudioCodecs(t *testing.T) {
	codecs := AvailableAudioCodecs()
	require.Len(t, codecs, 11)
	assert.Equal(t, "mp2 (twolame)", codecs[0].Name)
	assert.Equal(t, "soxr", codecs[len(codecs)-1].Name)

	// Callers cannot mutate the catalogue.
	codecs[0].Name = "changed"
	assert.Equal(t, "mp2 (twolame)", AvailableAudioCodecs()[0].Name)
}

func TestLookupAudioCodec(t *testing.T) {
	tests := []struct {
		input     string
		key       string
		extension string
	}{
		{"mp2", "mp2", "mpg"},
		{"mp2 (twolame)", "mp2", "mpg"},
		{"MP3 (LibLame)", "mp3-lame", "mp3"},
		{"mp3-shine", "mp3-shine", "mp3"},
		{"vorbis", "vorbis", "ogg"},
		{" opus ", "opus", "opus"},
		{"amr-nb", "amr-nb", "amr"},
		{"amr-wb", "amr-wb", "amr"},
		{"ilbc", "ilbc", "lbc"},
		{"speex", "speex", "spx"},
		{"wavpack", "wavpack", "wv"},
		{"soxr", "soxr", "wav"},
	}
	for _, tc := range tests {
		c, err := LookupAudioCodec(tc.input)
		if !assert.NoError(t, err, tc.input) {
			continue
		}
		assert.Equal(t, tc.key, c.Key, tc.input)
		assert.Equal(t, tc.extension, c.Extension, tc.input)
	}
}

func TestLookupAudioCodec_SuggestsClosest(t *testing.T) {
	tests := []struct {
		input      string
		suggestion string
	}{
		{"vorbiss", "vorbis"},
		{"wavpak", "wavpack"},
		{"spex", "speex"},
		{"amr-wbb", "amr-wb"},
	}
	for _, tc := range tests {
		_, err := LookupAudioCodec(tc.input)
		require.ErrorIs(t, err, ErrUnknownCodec)
		assert.Contains(t, err.Error(), `did you mean "`+tc.suggestion+`"`, tc.input)
	}
}

func TestAudioCodecIndex(t *testing.T) {
	assert.Equal(t, 0, AudioCodecIndex("mp2"))
	assert.Equal(t, 4, AudioCodecIndex("opus"))
	assert.Equal(t, 0, AudioCodecIndex("nope"))
}
