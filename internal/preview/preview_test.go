package preview

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelworld/pixelworld-server/internal/domain"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		token string
		want  color.RGBA
		ok    bool
	}{
		{"#ff0000", color.RGBA{R: 0xff, A: 0xff}, true},
		{"#0F0", color.RGBA{G: 0xff, A: 0xff}, true},
		{" Blue ", color.RGBA{B: 0xff, A: 0xff}, true},
		{"#00000000", color.RGBA{}, true},
		{"#12345", color.RGBA{}, false},
		{"#gggggg", color.RGBA{}, false},
		{"not-a-color", color.RGBA{}, false},
		{"", color.RGBA{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseColor(tt.token)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRasterize_CoversBoundingBox(t *testing.T) {
	img, err := Rasterize([]domain.Pixel{
		{X: -2, Y: 5, Color: "#ff0000"},
		{X: 1, Y: 6, Color: "blue"},
		{X: -2, Y: 5, Color: "#00ff00"},
		{X: 0, Y: 5, Color: "mystery"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, color.RGBA{G: 0xff, A: 0xff}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, img.RGBAAt(3, 1))
	assert.Equal(t, fallbackColor, img.RGBAAt(2, 0))
	assert.Equal(t, Background, img.RGBAAt(1, 0))
}

func TestRasterize_HugeSpanIsSampled(t *testing.T) {
	img, err := Rasterize([]domain.Pixel{
		{X: 0, Y: 0, Color: "red"},
		{X: 1_000_000, Y: 10, Color: "red"},
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, img.Bounds().Dx(), maxSourceEdge)
	assert.Equal(t, 1, img.Bounds().Dy())
}

func TestRasterize_Empty(t *testing.T) {
	_, err := Rasterize(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestPNG(t *testing.T) {
	data, err := PNG([]domain.Pixel{
		{X: 0, Y: 0, Color: "red"},
		{X: 9, Y: 4, Color: "black"},
	}, 100)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestBlurHash(t *testing.T) {
	pixels := make([]domain.Pixel, 0, 200)
	for x := range 200 {
		pixels = append(pixels, domain.Pixel{X: x, Y: x % 7, Color: "#336699"})
	}

	hash, err := BlurHash(pixels)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	again, err := BlurHash(pixels)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	_, err = BlurHash(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestBlank(t *testing.T) {
	data, err := Blank(32)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}
