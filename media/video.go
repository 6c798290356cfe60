package media

import (
	"fmt"
	"strings"
)

const (
	SlideWidth     = 640
	SlideHeight    = 428
	SlideSeconds   = 3
	SlideFrameRate = 30

	// SlideshowFrames is the frame count of a three image slideshow.
	SlideshowFrames = 3 * SlideSeconds * SlideFrameRate
)

// File names of the vid.stab chain.
const (
	ShakingVideo    = "video.mp4"
	TransformsFile  = "transforms.trf"
	StabilizedVideo = "video-stabilized.mp4"
)

// ConcurrentVideo is the output of encode button n.
func ConcurrentVideo(n int) string {
	return fmt.Sprintf("video%d.mp4", n)
}

// Quote wraps a path so ParseArguments keeps it as one argument even when it
// contains spaces. Paths containing a single quote are double quoted.
func Quote(path string) string {
	if strings.ContainsRune(path, '\'') {
		return `"` + path + `"`
	}
	return "'" + path + "'"
}

// slideFilter scales one looped image into a faded slide. extra is appended
// after scaling, before the slide is cut to length.
func slideFilter(input int, extra string) string {
	chain := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", SlideWidth, SlideHeight),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", SlideWidth, SlideHeight),
		"setsar=1",
		fmt.Sprintf("fps=%d", SlideFrameRate),
	}
	if extra != "" {
		chain = append(chain, extra)
	}
	fadeOut := float64(SlideSeconds) - 0.5
	chain = append(chain,
		fmt.Sprintf("trim=duration=%d", SlideSeconds),
		"setpts=PTS-STARTPTS",
		"fade=t=in:st=0:d=0.5",
		fmt.Sprintf("fade=t=out:st=%.1f:d=0.5", fadeOut),
	)
	return fmt.Sprintf("[%d:v]%s[s%d]", input, strings.Join(chain, ","), input)
}

func slideshowScript(image1, image2, image3, extra string) string {
	var b strings.Builder
	b.WriteString("-hide_banner -y")
	for _, img := range []string{image1, image2, image3} {
		b.WriteString(" -loop 1 -i ")
		b.WriteString(Quote(img))
	}

	filters := []string{
		slideFilter(0, extra),
		slideFilter(1, extra),
		slideFilter(2, extra),
		"[s0][s1][s2]concat=n=3:v=1:a=0,format=yuv420p[video]",
	}
	b.WriteString(` -filter_complex "`)
	b.WriteString(strings.Join(filters, ";"))
	b.WriteString(`" -map [video]`)
	return b.String()
}

// GenerateEncodeVideoScript builds the slideshow encode: three looped images
// scaled to 640x428, three seconds each at 30 fps with fades, concatenated
// and encoded with videoCodec. customOptions are inserted before the output.
func GenerateEncodeVideoScript(image1, image2, image3, videoFile, videoCodec, customOptions string) string {
	script := slideshowScript(image1, image2, image3, "")
	script += fmt.Sprintf(" -c:v %s -r %d ", videoCodec, SlideFrameRate)
	if opts := strings.TrimSpace(customOptions); opts != "" {
		script += opts + " "
	}
	return script + Quote(videoFile)
}

// GenerateShakingVideoScript builds the same slideshow with a per-frame
// jitter crop, giving vid.stab camera shake to remove.
func GenerateShakingVideoScript(image1, image2, image3, videoFile string) string {
	jitter := fmt.Sprintf("crop=%d:%d:20+20*sin(n*2.5):14+14*cos(n*3.1),scale=%d:%d",
		SlideWidth-40, SlideHeight-28, SlideWidth, SlideHeight)
	script := slideshowScript(image1, image2, image3, jitter)
	return script + fmt.Sprintf(" -c:v mpeg4 -r %d ", SlideFrameRate) + Quote(videoFile)
}

// VidStabDetectScript analyzes videoFile and writes the motion transforms.
func VidStabDetectScript(videoFile, transformsFile string) string {
	return fmt.Sprintf("-y -i %s -vf vidstabdetect=shakiness=10:accuracy=15:result=%s -f null -",
		Quote(videoFile), Quote(transformsFile))
}

// VidStabTransformScript applies the transforms and writes the stabilized video.
func VidStabTransformScript(videoFile, transformsFile, stabilizedFile string) string {
	return fmt.Sprintf("-y -i %s -vf vidstabtransform=smoothing=30:input=%s -c:v mpeg4 %s",
		Quote(videoFile), Quote(transformsFile), Quote(stabilizedFile))
}
