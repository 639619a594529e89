package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// EncodePNG compresses an RGBA8 image to PNG.
func EncodePNG(img *Image) ([]byte, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	var out []byte
	err := borrow(img.Height, img.Width, gocv.MatTypeCV8UC4, img.Pix, func(src gocv.Mat) error {
		bgra := gocv.NewMat()
		defer bgra.Close()
		gocv.CvtColor(src, &bgra, gocv.ColorRGBAToBGRA)

		buf, err := gocv.IMEncode(gocv.PNGFileExt, bgra)
		if err != nil {
			return fmt.Errorf("%w: png encode: %v", ErrConversion, err)
		}
		defer buf.Close()
		// The native buffer is freed on Close.
		out = bytes.Clone(buf.GetBytes())
		return nil
	})
	return out, err
}

// WriteFile saves img to path; the extension selects the encoder.
func WriteFile(path string, img *Image) error {
	if err := checkImage(img); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("unsupported output extension %q; use .png/.jpg/.jpeg", ext)
	}
	return borrow(img.Height, img.Width, gocv.MatTypeCV8UC4, img.Pix, func(src gocv.Mat) error {
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(src, &bgr, gocv.ColorRGBAToBGR)
		if ok := gocv.IMWrite(path, bgr); !ok {
			return fmt.Errorf("failed to write image %s", path)
		}
		return nil
	})
}

func checkImage(img *Image) error {
	if img == nil || len(img.Pix) == 0 {
		return ErrEmptyFrame
	}
	if img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height*4 {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrBufferSize, img.Width, img.Height, len(img.Pix))
	}
	return nil
}
