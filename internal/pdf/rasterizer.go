// Package pdf lays a tall image out over A4 pages, one horizontal band per page.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

// A4 page size in points.
const (
	PageWidth  = 595.28
	PageHeight = 841.89
)

var (
	ErrEmptyImage   = errors.New("no image data")
	ErrInvalidImage = errors.New("unsupported or corrupt image")
)

// Band is one page's slice of the source image.
type Band struct {
	Top    int // first source row
	Height int // source rows in this band
	X      float64
	Width  float64 // drawn width in points
	DrawH  float64 // drawn height in points
}

// PlanBands slices a w×h pixel image into page-sized bands. The image is
// scaled to the page width; each band holds floor(H/scale) source rows and is
// drawn at the top of its page, centred.
func PlanBands(w, h int) (float64, []Band) {
	if w <= 0 || h <= 0 {
		return 0, nil
	}
	scale := PageWidth / float64(w)
	bandRows := int(math.Floor(PageHeight / scale))
	if bandRows < 1 {
		bandRows = 1
	}
	pages := int(math.Ceil(float64(h) / float64(bandRows)))

	drawW := float64(w) * scale
	bands := make([]Band, 0, pages)
	for i := 0; i < pages; i++ {
		top := i * bandRows
		rows := bandRows
		if top+rows > h {
			rows = h - top
		}
		bands = append(bands, Band{
			Top:    top,
			Height: rows,
			X:      (PageWidth - drawW) / 2,
			Width:  drawW,
			DrawH:  float64(rows) * scale,
		})
	}
	return scale, bands
}

// Rasterizer converts uploaded images into paginated PDFs.
type Rasterizer struct {
	// TempDir holds staged uploads; empty means os.TempDir().
	TempDir string
	logger  *zap.Logger
}

// NewRasterizer creates a rasterizer staging uploads under tempDir.
func NewRasterizer(tempDir string, logger *zap.Logger) *Rasterizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rasterizer{TempDir: tempDir, logger: logger}
}

// Convert reads an image from r and writes the PDF to w. The upload is staged
// in a temporary file that is removed before Convert returns.
func (r *Rasterizer) Convert(ctx context.Context, src io.Reader, w io.Writer) (pages int, err error) {
	tmp, err := os.CreateTemp(r.TempDir, "upload-*.img")
	if err != nil {
		return 0, fmt.Errorf("stage upload: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			r.logger.Warn("Failed to remove staged upload", zap.String("path", tmp.Name()), zap.Error(rmErr))
		}
	}()

	n, err := io.Copy(tmp, src)
	if err != nil {
		return 0, fmt.Errorf("stage upload: %w", err)
	}
	if n == 0 {
		return 0, ErrEmptyImage
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind upload: %w", err)
	}

	img, err := imaging.Decode(tmp, imaging.AutoOrientation(true))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return r.render(ctx, img, w)
}

func (r *Rasterizer) render(ctx context.Context, img image.Image, w io.Writer) (int, error) {
	bounds := img.Bounds()
	_, bands := PlanBands(bounds.Dx(), bounds.Dy())
	if len(bands) == 0 {
		return 0, ErrInvalidImage
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	opts := fpdf.ImageOptions{ImageType: "PNG"}

	for i, band := range bands {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		rect := image.Rect(bounds.Min.X, bounds.Min.Y+band.Top, bounds.Max.X, bounds.Min.Y+band.Top+band.Height)
		slice := imaging.Crop(img, rect)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, slice, imaging.PNG); err != nil {
			return 0, fmt.Errorf("encode band %d: %w", i, err)
		}
		name := fmt.Sprintf("band-%d", i)
		doc.RegisterImageOptionsReader(name, opts, &buf)
		doc.AddPage()
		doc.ImageOptions(name, band.X, 0, band.Width, band.DrawH, false, opts, 0, "")
	}

	if err := doc.Output(w); err != nil {
		return 0, fmt.Errorf("write pdf: %w", err)
	}
	r.logger.Debug("PDF rendered", zap.Int("pages", len(bands)),
		zap.Int("width", bounds.Dx()), zap.Int("height", bounds.Dy()))
	return len(bands), nil
}
