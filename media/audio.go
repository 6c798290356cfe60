package media

import (
	"fmt"
	"path/filepath"

	"ffkit-console/config"
)

// AudioSampleFile is the name of the generated input every audio encode reads.
const AudioSampleFile = "audio-sample.wav"

// AudioSampleScript renders a five second 1 kHz sine into sampleFile.
func AudioSampleScript(sampleFile string) string {
	return "-hide_banner -y -f lavfi -i sine=frequency=1000:duration=5 -c:a pcm_s16le " + Quote(sampleFile)
}

// AudioOutputFile is where the encode for codec is written. Unknown codecs
// fall back to the soxr resample output.
func AudioOutputFile(dir, codecKey string) string {
	ext := "wav"
	if c, err := config.LookupAudioCodec(codecKey); err == nil {
		ext = c.Extension
	}
	return filepath.Join(dir, "audio."+ext)
}

// GenerateAudioEncodeScript builds the encode of sampleFile with the codec
// identified by key or name. Unknown codecs run the soxr resampler.
func GenerateAudioEncodeScript(codec, sampleFile, outputFile string) string {
	key := codec
	if c, err := config.LookupAudioCodec(codec); err == nil {
		key = c.Key
	}

	in, out := Quote(sampleFile), Quote(outputFile)
	switch key {
	case "mp2":
		return fmt.Sprintf("-hide_banner -y -i %s -c:a mp2 -b:a 192k %s", in, out)
	case "mp3-lame":
		return fmt.Sprintf("-hide_banner -y -i %s -c:a libmp3lame -qscale:a 2 %s", in, out)
	case "mp3-shine":
		return fmt.Sprintf("-hide_banner -y -i %s -c:a libshine -qscale:a 2 %s", in, out)
	case "vorbis":
		return fmt.Sprintf("-hide_banner -y -i %s -c:a libvorbis -b:a 64k %s", in, out)
	case "opus":
		return fmt.Sprintf("-hide_banner -y -i %s -c:a libopus -b:a 64k -vbr on -compression_level 10 %s", in, out)
	case "amr-nb":
		return fmt.Sprintf("-hide_banner -y -i %s -ar 8000 -ab 12.2k -c:a libopencore_amrnb %s", in, out)
	case "amr-wb":
		return fmt.Sprintf("-hide_banner -y -i %s -ar 8000 -ab 12.2k -c:a libvo_amrwbenc -strict experimental %s", in, out)
	case "ilbc":
		return fmt.Sprintf("-hide_banner -y -i %s -c:a ilbc -ar 8000 -b:a 15200 %s", in, out)
	case "speex":
		return fmt.Sprintf("-hide_banner -y -i %s -c:a libspeex -ar 16000 %s", in, out)
	case "wavpack":
		return fmt.Sprintf("-hide_banner -y -i %s -c:a wavpack -b:a 64k %s", in, out)
	default:
		return fmt.Sprintf("-hide_banner -y -i %s -af aresample=resampler=soxr -ar 44100 %s", in, out)
	}
}
