// Package avatar normalizes uploaded profile pictures.
package avatar

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	apperrors "taskmanager/internal/errors"
)

const (
	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize = 1 << 20
	// Size is the edge length of the stored square avatar.
	Size = 250
	// MaxDimension bounds the declared width and height of an upload.
	MaxDimension = 4096
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Process validates an uploaded image and returns it resized to
// Size x Size and encoded as PNG.
func Process(filename string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return nil, fmt.Errorf("%w: please upload an image", apperrors.ErrInvalidAvatar)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", apperrors.ErrInvalidAvatar)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%w: file larger than 1MB", apperrors.ErrInvalidAvatar)
	}

	// the header is checked first so a small file cannot declare a huge canvas
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidAvatar, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, fmt.Errorf("%w: image dimensions %dx%d exceed %dx%d",
			apperrors.ErrInvalidAvatar, cfg.Width, cfg.Height, MaxDimension, MaxDimension)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidAvatar, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
