package convert

import "fmt"

// PackNV21 repacks a planar I420 buffer (Y, U, V) into NV21 (Y, interleaved V/U).
func PackNV21(i420 []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}
	ySize := width * height
	cSize := ySize / 4
	if len(i420) != ySize+2*cSize {
		return nil, fmt.Errorf("%w: i420 %dx%d needs %d bytes, got %d", ErrBufferSize, width, height, ySize+2*cSize, len(i420))
	}

	out := make([]byte, len(i420))
	copy(out, i420[:ySize])
	u := i420[ySize : ySize+cSize]
	v := i420[ySize+cSize:]
	vu := out[ySize:]
	for i := 0; i < cSize; i++ {
		vu[2*i] = v[i]
		vu[2*i+1] = u[i]
	}
	return out, nil
}
