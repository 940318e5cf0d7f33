package video

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

const (
	titleX         = 120
	channelX       = 205
	channelY       = 825
	channelSize    = 30
	defaultWrap    = 35
	defaultCardW   = 1150
	defaultCardH   = 1000
	defaultPadding = 5
)

// Thumbnailer draws the title card shown while the title is read, and the
// platform thumbnail cut from it.
type Thumbnailer struct {
	fontPath string
}

// NewThumbnailer uses the TrueType font at fontPath, or Go Bold when the file
// does not exist.
func NewThumbnailer(fontPath string) *Thumbnailer {
	return &Thumbnailer{fontPath: fontPath}
}

func (t *Thumbnailer) face(size float64) (font.Face, error) {
	if t.fontPath != "" {
		if _, err := os.Stat(t.fontPath); err == nil {
			return gg.LoadFontFace(t.fontPath, size)
		}
	}
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// LoadBase returns the card image at path, or a plain white rounded card
// when there is none.
func LoadBase(path string) (image.Image, error) {
	img, err := gg.LoadImage(path)
	if err == nil {
		return img, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load thumbnail base %s: %w", path, err)
	}
	dc := gg.NewContext(defaultCardW, defaultCardH)
	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(40, 40, defaultCardW-80, defaultCardH-80, 40)
	dc.Fill()
	return dc.Image(), nil
}

// titleLayout wraps title and picks the font size and vertical nudge for
// the resulting line count. Three or more lines are rewrapped ten
// characters wider with a smaller font.
func titleLayout(title string, wrap int) ([]string, float64, float64) {
	lines := wrapText(title, wrap)
	switch n := len(lines); {
	case n == 3:
		return wrapText(title, wrap+10), 40, 35
	case n == 4:
		return wrapText(title, wrap+10), 35, 40
	case n > 4:
		return wrapText(title, wrap+10), 30, 30
	default:
		return lines, 47, 30
	}
}

// CreateFancy writes base with the channel name and the wrapped title drawn
// on it to out.
func (t *Thumbnailer) CreateFancy(base image.Image, title, channel, out, hexColor string, padding float64, wrap int) error {
	if wrap <= 0 {
		wrap = defaultWrap
	}
	dc := gg.NewContextForImage(base)
	dc.SetHexColor(hexColor)

	channelFace, err := t.face(channelSize)
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	dc.SetFontFace(channelFace)
	dc.DrawStringAnchored(channel, channelX, channelY, 0, 1)

	lines, size, nudge := titleLayout(title, wrap)
	titleFace, err := t.face(size)
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	dc.SetFontFace(titleFace)

	heights := make([]float64, len(lines))
	total := 0.0
	for i, line := range lines {
		_, heights[i] = dc.MeasureString(line)
		total += heights[i]
	}
	if len(lines) > 1 {
		total += float64(len(lines)-1) * padding
	}

	y := float64(dc.Height())/2 - total/2 + nudge
	for i, line := range lines {
		dc.DrawStringAnchored(line, titleX, y, 0, 1)
		y += heights[i] + padding
	}
	return dc.SavePNG(out)
}

// CropAndResize trims the fully transparent border of the image at in and
// scales what is left to w x h.
func CropAndResize(in, out string, w, h int) error {
	src, err := gg.LoadImage(in)
	if err != nil {
		return fmt.Errorf("load %s: %w", in, err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, opaqueBounds(src), draw.Over, nil)
	return gg.SavePNG(out, dst)
}

// FitWithin scales the image at in down so it fits a maxW x maxH box,
// keeping its aspect ratio. Smaller images are copied unchanged.
func FitWithin(in, out string, maxW, maxH int) error {
	src, err := gg.LoadImage(in)
	if err != nil {
		return fmt.Errorf("load %s: %w", in, err)
	}
	b := src.Bounds()
	scale := min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()), 1)
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return gg.SavePNG(out, dst)
}

// opaqueBounds is the smallest rectangle holding every pixel with non-zero
// alpha. A fully transparent image keeps its bounds.
func opaqueBounds(img image.Image) image.Rectangle {
	b := img.Bounds()
	box := image.Rectangle{}
	found := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a == 0 {
				continue
			}
			px := image.Rect(x, y, x+1, y+1)
			if !found {
				box, found = px, true
			} else {
				box = box.Union(px)
			}
		}
	}
	if !found {
		return b
	}
	return box
}

// wrapText breaks text into lines of at most width characters at word
// boundaries. Longer words are split.
func wrapText(text string, width int) []string {
	var lines []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > width {
			flush()
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}
		n := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+n > width {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	flush()
	return lines
}
