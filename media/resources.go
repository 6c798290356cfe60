// Package media holds the bundled demo images and the ffmpeg command
// templates the tabs submit.
package media

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
)

// Resource names a bundled image.
type Resource string

const (
	MachuPicchu Resource = "machupicchu"
	Pyramid     Resource = "pyramid"
	Stonehenge  Resource = "stonehenge"
)

// ErrUnknownResource is returned for names that are not bundled.
var ErrUnknownResource = errors.New("unknown resource")

// SlideshowResources returns the three images every slideshow uses, in order.
func SlideshowResources() []Resource {
	return []Resource{MachuPicchu, Pyramid, Stonehenge}
}

// FileName is the name the resource is written under.
func (r Resource) FileName() string {
	return string(r) + ".jpg"
}

type scene struct {
	width, height int
	sky, ground   color.RGBA
	shape         color.RGBA
	draw          func(img *image.RGBA, s scene)
}

// Sizes differ on purpose so the slideshow scaler has work to do.
var scenes = map[Resource]scene{
	MachuPicchu: {
		width: 800, height: 533,
		sky:    color.RGBA{R: 142, G: 190, B: 230, A: 255},
		ground: color.RGBA{R: 52, G: 110, B: 58, A: 255},
		shape:  color.RGBA{R: 88, G: 140, B: 80, A: 255},
		draw:   drawPeaks,
	},
	Pyramid: {
		width: 720, height: 480,
		sky:    color.RGBA{R: 250, G: 200, B: 120, A: 255},
		ground: color.RGBA{R: 214, G: 176, B: 110, A: 255},
		shape:  color.RGBA{R: 190, G: 150, B: 84, A: 255},
		draw:   drawPyramid,
	},
	Stonehenge: {
		width: 900, height: 600,
		sky:    color.RGBA{R: 120, G: 130, B: 150, A: 255},
		ground: color.RGBA{R: 70, G: 120, B: 60, A: 255},
		shape:  color.RGBA{R: 110, G: 110, B: 105, A: 255},
		draw:   drawStones,
	},
}

// Image renders the resource.
func (r Resource) Image() (image.Image, error) {
	s, ok := scenes[r]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, r)
	}

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	horizon := s.height * 2 / 3
	for y := 0; y < s.height; y++ {
		c := s.ground
		if y < horizon {
			c = shade(s.sky, y, horizon)
		}
		for x := 0; x < s.width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	s.draw(img, s)
	return img, nil
}

// WriteResource writes the named image to path as a JPEG, creating the
// parent directory.
func WriteResource(r Resource, path string) error {
	img, err := r.Image()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", r, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// WriteSlideshow writes the three slideshow images into dir and returns their
// paths in slideshow order.
func WriteSlideshow(dir string) ([]string, error) {
	var paths []string
	for _, r := range SlideshowResources() {
		p := filepath.Join(dir, r.FileName())
		if err := WriteResource(r, p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// shade darkens c towards the top of the sky.
func shade(c color.RGBA, y, horizon int) color.RGBA {
	f := 0.6 + 0.4*float64(y)/float64(horizon)
	return color.RGBA{R: uint8(float64(c.R) * f), G: uint8(float64(c.G) * f), B: uint8(float64(c.B) * f), A: 255}
}

func fillTriangle(img *image.RGBA, apexX, apexY, baseY, halfWidth int, c color.RGBA) {
	h := baseY - apexY
	if h <= 0 {
		return
	}
	for y := apexY; y < baseY; y++ {
		w := halfWidth * (y - apexY) / h
		for x := apexX - w; x <= apexX+w; x++ {
			if image.Pt(x, y).In(img.Bounds()) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func drawPeaks(img *image.RGBA, s scene) {
	horizon := s.height * 2 / 3
	fillTriangle(img, s.width/3, s.height/6, horizon, s.width/3, s.shape)
	fillTriangle(img, s.width*3/4, s.height/4, horizon, s.width/4, s.ground)
}

func drawPyramid(img *image.RGBA, s scene) {
	horizon := s.height * 2 / 3
	fillTriangle(img, s.width/2, s.height/5, horizon, s.width/3, s.shape)
	fillTriangle(img, s.width/5, s.height/2, horizon, s.width/10, s.shape)
}

func drawStones(img *image.RGBA, s scene) {
	horizon := s.height * 2 / 3
	stoneW := s.width / 14
	stoneH := s.height / 4
	for i := 0; i < 5; i++ {
		x := s.width/8 + i*stoneW*2
		fillRect(img, image.Rect(x, horizon-stoneH, x+stoneW, horizon+stoneW/2), s.shape)
	}
	// lintel
	fillRect(img, image.Rect(s.width/8, horizon-stoneH-stoneW/2, s.width/8+5*stoneW, horizon-stoneH), s.shape)
}
