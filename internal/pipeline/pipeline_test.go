package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saurabh-git-dev/edgecam-go/internal/convert"
	"github.com/saurabh-git-dev/edgecam-go/internal/gles"
	"github.com/saurabh-git-dev/edgecam-go/internal/gles/glestest"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	ctx   *Context
	gl    *glestest.GL
	clock *fakeClock
	hook  *test.Hook
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts := DefaultOptions()
	opts.Clock = clk.now
	opts.Logger = logger
	if mutate != nil {
		mutate(&opts)
	}
	gl := glestest.New()
	return &fixture{ctx: New(gl, opts), gl: gl, clock: clk, hook: hook}
}

func checkerRGBA(w, h int) []byte {
	buf := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte(0)
			if (x/8+y/8)%2 == 0 {
				v = 255
			}
			i := (y*w + x) * 4
			buf[i], buf[i+1], buf[i+2], buf[i+3] = v, v/2, 255-v, 255
		}
	}
	return buf
}

func grayRGBA(w, h int) []byte {
	buf := make([]byte, w*h*4)
	for i := 0; i < len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = 128, 128, 128, 255
	}
	return buf
}

func stepNV21(w, h int) []byte {
	buf := make([]byte, w*h*3/2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				buf[y*w+x] = 10
			} else {
				buf[y*w+x] = 240
			}
		}
	}
	for i := w * h; i < len(buf); i++ {
		buf[i] = 128
	}
	return buf
}

func assertBinary(t *testing.T, pix []byte) (white int) {
	t.Helper()
	for i := 0; i < len(pix); i += 4 {
		r, g, b, a := pix[i], pix[i+1], pix[i+2], pix[i+3]
		require.Equal(t, byte(255), a)
		switch {
		case r == 255 && g == 255 && b == 255:
			white++
		case r == 0 && g == 0 && b == 0:
		default:
			t.Fatalf("pixel %d is not binary: %d,%d,%d", i/4, r, g, b)
		}
	}
	return white
}

func TestPassthroughRGBAReachesTextureUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.InitGraphics()
	require.True(t, f.ctx.GraphicsReady())

	data := checkerRGBA(32, 16)
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 32, 16, 90, false))
	f.ctx.RenderFrame()

	tex := f.gl.Texture(f.ctx.renderer.Texture())
	require.NotNil(t, tex)
	assert.Equal(t, int32(32), tex.Width)
	assert.Equal(t, int32(16), tex.Height)
	assert.Equal(t, data, tex.Pixels)
	assert.Equal(t, 1, f.gl.Count("DrawArrays"))
}

func TestEdgeModeNV21IsBinary(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.InitGraphics()
	f.ctx.SetRenderMode(1)

	const w, h = 64, 32
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(stepNV21(w, h), w, h, 0, true))

	tex := f.gl.Texture(f.ctx.renderer.Texture())
	require.NotNil(t, tex)
	require.Len(t, tex.Pixels, w*h*4)
	assert.Positive(t, assertBinary(t, tex.Pixels), "the vertical step must produce an edge")
}

func TestEdgeModeUniformGrayIsBlack(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.InitGraphics()
	f.ctx.SetRenderMode(1)

	require.Equal(t, StatusOK, f.ctx.ProcessFrame(grayRGBA(640, 480), 640, 480, 0, false))

	img := f.ctx.LastImage()
	require.NotNil(t, img)
	assert.Zero(t, assertBinary(t, img.Pix))
}

func TestModeRouting(t *testing.T) {
	f := newFixture(t, nil)
	data := checkerRGBA(32, 32)

	f.ctx.SetRenderMode(0)
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 32, 32, 0, false))
	assert.Equal(t, data, f.ctx.LastImage().Pix, "mode 0 is colour conversion only")

	f.ctx.SetRenderMode(1)
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 32, 32, 0, false))
	assert.Positive(t, assertBinary(t, f.ctx.LastImage().Pix), "mode 1 is the edge path")

	f.ctx.SetRenderMode(0)
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 32, 32, 0, false))
	assert.Equal(t, data, f.ctx.LastImage().Pix)
}

func TestInvalidInputLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.InitGraphics()
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(grayRGBA(4, 4), 4, 4, 0, false))
	before := f.ctx.LastImage()
	pending := f.ctx.tracker.Pending()
	f.gl.Reset()

	tests := []struct {
		name  string
		buf   []byte
		w, h  int
		isYUV bool
	}{
		{"nil", nil, 4, 4, false},
		{"empty", []byte{}, 4, 4, true},
		{"short_rgba", make([]byte, 10), 4, 4, false},
		{"rgba_as_yuv", make([]byte, 64), 4, 4, true},
		{"zero_dims", make([]byte, 64), 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, StatusError, f.ctx.ProcessFrame(tt.buf, tt.w, tt.h, 0, tt.isYUV))
		})
	}

	assert.Zero(t, f.gl.Count("TexImage2D"), "texture must not change")
	assert.Equal(t, pending, f.ctx.tracker.Pending(), "fps counter must not change")
	assert.Equal(t, float32(0), f.ctx.GetFps())
	assert.Equal(t, before, f.ctx.LastImage())
}

func TestProcessErrorKinds(t *testing.T) {
	f := newFixture(t, nil)

	err := f.ctx.Process(convert.Frame{Width: 4, Height: 4})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, convert.ErrEmptyFrame)

	err = f.ctx.Process(convert.Frame{Data: make([]byte, 5), Width: 4, Height: 4})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, convert.ErrBufferSize)
}

type stubConverter struct {
	img   *convert.Image
	err   error
	panic any
}

func (s stubConverter) Convert(convert.Frame, convert.Mode) (*convert.Image, error) {
	if s.panic != nil {
		panic(s.panic)
	}
	return s.img, s.err
}

func TestConversionFailureLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name string
		conv stubConverter
	}{
		{"error", stubConverter{err: errors.New("cvtColor failed")}},
		{"panic", stubConverter{panic: "opencv assertion"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.ctx.InitGraphics()
			data := grayRGBA(4, 4)
			require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 4, 4, 0, false))
			pending := f.ctx.tracker.Pending()
			f.gl.Reset()

			f.ctx.converter = tt.conv
			err := f.ctx.Process(convert.Frame{Data: data, Width: 4, Height: 4})
			assert.ErrorIs(t, err, ErrFilter)
			assert.Equal(t, StatusError, f.ctx.ProcessFrame(data, 4, 4, 0, false))

			assert.Zero(t, f.gl.Count("TexImage2D"))
			assert.Equal(t, pending, f.ctx.tracker.Pending())
			assert.Equal(t, data, f.ctx.LastImage().Pix)
		})
	}
}

func TestUploadFailureKeepsPreviousImage(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.InitGraphics()
	data := grayRGBA(4, 4)
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 4, 4, 0, false))
	pending := f.ctx.tracker.Pending()

	f.ctx.converter = stubConverter{img: &convert.Image{Width: 4, Height: 4, Pix: make([]byte, 3)}}
	err := f.ctx.Process(convert.Frame{Data: data, Width: 4, Height: 4})

	assert.ErrorIs(t, err, ErrGPU)
	assert.Equal(t, StatusError, Status(err))
	assert.Equal(t, data, f.ctx.LastImage().Pix)
	assert.Equal(t, pending, f.ctx.tracker.Pending())
}

func TestFPS(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, float32(0), f.ctx.GetFps())

	data := grayRGBA(4, 4)
	// 21 frames spanning exactly 1000ms at 50ms steps.
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 4, 4, 0, false))
	for i := 0; i < 19; i++ {
		f.clock.advance(50 * time.Millisecond)
		require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 4, 4, 0, false))
		assert.Equal(t, float32(0), f.ctx.GetFps())
	}
	f.clock.advance(50 * time.Millisecond)
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 4, 4, 0, false))
	assert.InDelta(t, 21.0, f.ctx.GetFps(), 1e-6)

	// The open window does not leak into the reported value.
	f.clock.advance(10 * time.Millisecond)
	require.Equal(t, StatusOK, f.ctx.ProcessFrame(data, 4, 4, 0, false))
	assert.InDelta(t, 21.0, f.ctx.GetFps(), 1e-6)
}

func TestFPSCountsProcessedFramesNotDraws(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.InitGraphics()
	for i := 0; i < 10; i++ {
		f.ctx.RenderFrame()
	}
	assert.Zero(t, f.ctx.tracker.Pending())
}

func TestShaderFailureMakesRenderNoop(t *testing.T) {
	f := newFixture(t, nil)
	f.gl.CompileErrors[gles.VertexShader] = "0:2: 'attribute' : syntax error"

	f.ctx.InitGraphics()

	assert.False(t, f.ctx.GraphicsReady())
	assert.False(t, f.ctx.renderer.Program().Valid())
	assert.Zero(t, f.gl.Count("GenTexture"))
	var logged bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "Failed to initialize graphics" {
			logged = true
		}
	}
	assert.True(t, logged)

	f.gl.Reset()
	assert.NotPanics(t, func() {
		f.ctx.RenderFrame()
		f.ctx.RenderFrame()
	})
	assert.Empty(t, f.gl.Calls())

	// Frames are still converted, just never uploaded.
	assert.Equal(t, StatusOK, f.ctx.ProcessFrame(grayRGBA(4, 4), 4, 4, 0, false))
	assert.Zero(t, f.gl.Count("TexImage2D"))
	assert.ErrorIs(t, f.ctx.Init(), ErrGPU)
}

func TestUnknownModeFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.SetRenderMode(1)

	f.ctx.SetRenderMode(7)

	assert.Equal(t, convert.ModePassthrough, f.ctx.Mode())
	require.NotNil(t, f.hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, f.hook.LastEntry().Level)
}

func TestUnknownModeRejected(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RejectUnknownModes = true })
	require.NoError(t, f.ctx.SetMode(convert.ModeEdges))

	err := f.ctx.SetMode(convert.Mode(-3))

	assert.ErrorIs(t, err, ErrUnknownMode)
	assert.Equal(t, convert.ModeEdges, f.ctx.Mode(), "mode is unchanged")
}

func TestInitialModeFromOptions(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Mode = convert.ModeEdges })
	assert.Equal(t, convert.ModeEdges, f.ctx.Mode())

	f = newFixture(t, func(o *Options) { o.Mode = convert.Mode(9) })
	assert.Equal(t, convert.ModePassthrough, f.ctx.Mode())
}

func TestHeadless(t *testing.T) {
	logger, _ := test.NewNullLogger()
	opts := DefaultOptions()
	opts.Logger = logger
	c := New(nil, opts)

	assert.ErrorIs(t, c.Init(), ErrNotInitialized)
	c.InitGraphics()
	c.RenderFrame()
	c.Release()

	data := checkerRGBA(16, 16)
	assert.Equal(t, StatusOK, c.ProcessFrame(data, 16, 16, 0, false))
	assert.Equal(t, data, c.LastImage().Pix)
	assert.NotEmpty(t, c.ID())
}

func TestLastImageIsACopy(t *testing.T) {
	f := newFixture(t, nil)
	assert.Nil(t, f.ctx.LastImage())

	require.Equal(t, StatusOK, f.ctx.ProcessFrame(grayRGBA(2, 2), 2, 2, 0, false))
	img := f.ctx.LastImage()
	img.Pix[0] = 0

	assert.Equal(t, byte(128), f.ctx.LastImage().Pix[0])
}

func TestReleaseAndReinit(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.InitGraphics()
	f.ctx.Release()
	assert.False(t, f.ctx.GraphicsReady())

	f.gl.Reset()
	f.ctx.RenderFrame()
	assert.Empty(t, f.gl.Calls())

	require.NoError(t, f.ctx.Init())
	assert.True(t, f.ctx.GraphicsReady())
	assert.Equal(t, 1, f.gl.LiveTextures())
}
