package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrUnknownCodec is returned for names that are not in the catalogue.
var ErrUnknownCodec = errors.New("unknown audio codec")

// AudioCodec is one entry of the audio tab's codec selector.
type AudioCodec struct {
	// Key is the short id accepted on the command line and in config.
	Key string
	// Name is the label shown in the selector.
	Name string
	// Extension is the output file extension without the dot.
	Extension string
}

var audioCodecs = []AudioCodec{
	{Key: "mp2", Name: "mp2 (twolame)", Extension: "mpg"},
	{Key: "mp3-lame", Name: "mp3 (liblame)", Extension: "mp3"},
	{Key: "mp3-shine", Name: "mp3 (libshine)", Extension: "mp3"},
	{Key: "vorbis", Name: "vorbis", Extension: "ogg"},
	{Key: "opus", Name: "opus", Extension: "opus"},
	{Key: "amr-nb", Name: "amr-nb", Extension: "amr"},
	{Key: "amr-wb", Name: "amr-wb", Extension: "amr"},
	{Key: "ilbc", Name: "ilbc", Extension: "lbc"},
	{Key: "speex", Name: "speex", Extension: "spx"},
	{Key: "wavpack", Name: "wavpack", Extension: "wv"},
	{Key: "soxr", Name: "soxr", Extension: "wav"},
}

// AvailableAudioCodecs returns the catalogue in selector order.
func AvailableAudioCodecs() []AudioCodec {
	return append([]AudioCodec(nil), audioCodecs...)
}

// LookupAudioCodec finds a codec by key or display name, ignoring case.
// Unknown names return ErrUnknownCodec with the closest key as a suggestion.
func LookupAudioCodec(name string) (AudioCodec, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, c := range audioCodecs {
		if needle == c.Key || needle == strings.ToLower(c.Name) {
			return c, nil
		}
	}
	return AudioCodec{}, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownCodec, name, closestCodecKey(needle))
}

func closestCodecKey(needle string) string {
	best := audioCodecs[0].Key
	bestDist := -1
	for _, c := range audioCodecs {
		d := levenshtein.ComputeDistance(needle, c.Key)
		if nd := levenshtein.ComputeDistance(needle, strings.ToLower(c.Name)); nd < d {
			d = nd
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c.Key, d
		}
	}
	return best
}

// AudioCodecIndex returns the selector position of key, or 0 when unknown.
func AudioCodecIndex(key string) int {
	for i, c := range audioCodecs {
		if c.Key == key {
			return i
		}
	}
	return 0
}
