package embedding

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// prepareFrame validates that data is a decodable raster image of non-zero
// dimensions and downscales it so the larger dimension fits maxSize.
// It returns the (possibly re-encoded) frame bytes and the factor that maps
// detection coordinates back to the original frame (1 when untouched).
func prepareFrame(data []byte, maxSize int) ([]byte, float64, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, 0, fmt.Errorf("%w: zero-size image", ErrDecode)
	}

	longest := cfg.Width
	if cfg.Height > longest {
		longest = cfg.Height
	}
	if maxSize <= 0 || longest <= maxSize {
		return data, 1, nil
	}

	resized, err := resizeToFit(data, maxSize)
	if err != nil {
		return nil, 0, err
	}
	return resized, float64(longest) / float64(maxSize), nil
}

// resizeToFit scales an image so its larger dimension equals maxSize,
// keeping the aspect ratio. Returns JPEG-encoded bytes.
func resizeToFit(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized frame: %w", err)
	}

	return buf.Bytes(), nil
}
