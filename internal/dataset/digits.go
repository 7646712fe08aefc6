package dataset

import "math/rand/v2"

// Digit image size.
const (
	DigitHeight = 28
	DigitWidth  = 28
)

// digitPatterns are 3-wide, 5-tall glyphs of the digits 0-9, row-major.
var digitPatterns = [10][15]float64{
	{1, 1, 1, 1, 0, 1, 1, 0, 1, 1, 0, 1, 1, 1, 1},
	{0, 1, 0, 1, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0},
	{1, 1, 1, 0, 0, 1, 1, 1, 1, 1, 0, 0, 1, 1, 1},
	{1, 1, 1, 0, 0, 1, 0, 1, 1, 0, 0, 1, 1, 1, 1},
	{1, 0, 1, 1, 0, 1, 1, 1, 1, 0, 0, 1, 0, 0, 1},
	{1, 1, 1, 1, 0, 0, 1, 1, 1, 0, 0, 1, 1, 1, 1},
	{1, 1, 1, 1, 0, 0, 1, 1, 1, 1, 0, 1, 1, 1, 1},
	{1, 1, 1, 0, 0, 1, 0, 1, 0, 0, 1, 0, 0, 1, 0},
	{1, 1, 1, 1, 0, 1, 1, 1, 1, 1, 0, 1, 1, 1, 1},
	{1, 1, 1, 1, 0, 1, 1, 1, 1, 0, 0, 1, 1, 1, 1},
}

// Digits generates perClass synthetic 28 × 28 digit images per label 0-9.
// The 3 × 5 glyph is drawn with 7 × 5 pixel cells near the image center;
// drawn pixels are the glyph value plus uniform noise of ±noise/2, clamped
// to [0, 1], and the border stays 0.
// It stands in for the MNIST PNG corpus when none is available.
func Digits(r *rand.Rand, perClass int, noise float64) *Corpus {
	c := NewCorpus(10)
	c.dim = DigitHeight * DigitWidth
	for digit := 0; digit < 10; digit++ {
		pattern := digitPatterns[digit]
		for i := 0; i < perClass; i++ {
			x := make([]float64, DigitHeight*DigitWidth)
			for py := 0; py < 5; py++ {
				for px := 0; px < 3; px++ {
					val := pattern[py*3+px]
					for sy := 0; sy < 5; sy++ {
						for sx := 0; sx < 7; sx++ {
							pos := (py*5+sy+1)*DigitWidth + (px*7 + sx + 3)
							x[pos] = min(max(val+noise*(r.Float64()-0.5), 0), 1)
						}
					}
				}
			}
			c.byLabel[digit] = append(c.byLabel[digit], x)
		}
	}
	return c
}
