package dataset

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadImageDir reads a class-directory image corpus: root/0, root/1, ...
// root/<classes-1>, each holding PNG images of one label. Pixels are converted
// to grayscale and scaled to [0, 1]. At most limit images are read per class;
// limit <= 0 reads all. A missing class directory yields an empty class.
func LoadImageDir(root string, classes, limit int) (*Corpus, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to open dataset dir: %w", err)
	}
	c := NewCorpus(classes)
	for label := 0; label < classes; label++ {
		dir := filepath.Join(root, strconv.Itoa(label))
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read class dir %s: %w", dir, err)
		}
		n := 0
		for _, e := range entries {
			if limit > 0 && n >= limit {
				break
			}
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
				continue
			}
			x, err := LoadImage(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			if err := c.Add(label, x); err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name(), err)
			}
			n++
		}
	}
	return c, nil
}

// LoadImage decodes one PNG into a row-major grayscale vector scaled to [0, 1].
func LoadImage(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	b := img.Bounds()
	v := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			v = append(v, float64(g.Y)/255)
		}
	}
	return v, nil
}

// SaveImage writes v, an h × w row-major vector of values in [0, 1], as an
// 8-bit grayscale PNG. Each pixel is v*255 clamped to [0, 254.9] and truncated.
func SaveImage(path string, v []float64, h, w int) error {
	if len(v) < h*w {
		return fmt.Errorf("save image: vector has %d values, want %d: %w", len(v), h*w, ErrDimension)
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			p := min(v[i*w+j]*255, 254.9)
			p = max(p, 0)
			img.SetGray(j, i, color.Gray{Y: uint8(p)})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
