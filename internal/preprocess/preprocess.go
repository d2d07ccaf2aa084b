// Package preprocess turns an uploaded image into a derived raster tuned
// for text recognition: upscale small scans, grayscale, contrast stretch,
// sharpen, then binarize. The output is a transient artifact the caller
// removes after OCR.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"textlens/internal/common"
)

const (
	// Images narrower than this are upscaled 2x before recognition;
	// small receipt photos lose glyph detail otherwise.
	minWidth = 1000

	// Fixed binarization cutoff on the normalized grayscale.
	threshold = 128
)

type Preprocessor struct {
	scratchDir string
	logger     *slog.Logger
}

// New returns a Preprocessor writing artifacts under scratchDir. An empty
// scratchDir falls back to the system temp directory.
func New(scratchDir string, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "textlens")
	}
	return &Preprocessor{scratchDir: scratchDir, logger: logger}
}

// Prepare reads the source image, applies the recognition chain and writes
// the result as an uncompressed BMP to a unique scratch path. The source is
// never modified. Unreadable or undecodable sources fail as invalid images.
func (p *Preprocessor) Prepare(srcPath string) (string, error) {
	start := time.Now()

	f, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", common.ErrInvalidImage, srcPath, err)
	}
	img, format, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", common.ErrInvalidImage, srcPath, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() < minWidth {
		img = upscale(img, 2)
	}

	gray := toGray(img)
	normalize(gray)
	gray = sharpen(gray)
	binarize(gray, threshold)

	if err := os.MkdirAll(p.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	outPath := filepath.Join(p.scratchDir, artifactName())

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if err := bmp.Encode(out, gray); err != nil {
		_ = out.Close()
		_ = os.Remove(outPath)
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}

	p.logger.Debug("preprocess.ok",
		"src", srcPath,
		"format", format,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"artifact", outPath,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outPath, nil
}

// artifactName combines a timestamp with a random suffix so concurrent
// calls never contend on the same scratch file.
func artifactName() string {
	return fmt.Sprintf("prep_%d_%s.bmp", time.Now().UnixNano(), uuid.NewString()[:8])
}

func upscale(img image.Image, factor int) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// normalize stretches the gray histogram to the full 0..255 range.
func normalize(gray *image.Gray) {
	min, max := uint8(255), uint8(0)
	for _, v := range gray.Pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max <= min {
		return
	}
	scale := 255.0 / float64(max-min)
	for i, v := range gray.Pix {
		gray.Pix[i] = uint8(float64(v-min)*scale + 0.5)
	}
}

// sharpen applies a 3x3 sharpening kernel to recover glyph edges softened
// by rescaling.
func sharpen(gray *image.Gray) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	copy(out.Pix, gray.Pix)

	kernel := [3][3]int{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			sum := 0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sum += kernel[ky+1][kx+1] * int(gray.GrayAt(x+kx, y+ky).Y)
				}
			}
			out.SetGray(x, y, color.Gray{Y: clamp(sum)})
		}
	}
	return out
}

func binarize(gray *image.Gray, cutoff uint8) {
	for i, v := range gray.Pix {
		if v >= cutoff {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
