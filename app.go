package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/sirupsen/logrus"

	"github.com/saurabh-git-dev/edgecam-go/internal/config"
	"github.com/saurabh-git-dev/edgecam-go/internal/convert"
	"github.com/saurabh-git-dev/edgecam-go/internal/gles"
	"github.com/saurabh-git-dev/edgecam-go/internal/gles/gl2"
	"github.com/saurabh-git-dev/edgecam-go/internal/pipeline"
	"github.com/saurabh-git-dev/edgecam-go/internal/viewer"
)

const fpsReportInterval = time.Second

func run(cfg *config.Config, opts options) error {
	log := logrus.StandardLogger()

	src, err := OpenSource(cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	// The first frame fixes the window size.
	data, width, height, err := src.CaptureFrame()
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	var window *glfw.Window
	if opts.window {
		if window, err = openWindow(width, height); err != nil {
			return err
		}
		defer closeWindow(window)
	}

	var pctx *pipeline.Context
	runner, err := pipeline.NewRunner(func() error {
		var gl gles.GL
		if window != nil {
			window.MakeContextCurrent()
			binding, err := gl2.New()
			if err != nil {
				return err
			}
			gl = binding
		}
		pctx = pipeline.New(gl, pipelineOptions(cfg))
		if gl != nil {
			pctx.InitGraphics()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pipeline setup failed: %w", err)
	}
	defer runner.Close()
	defer func() {
		_ = runner.Do(context.Background(), func() {
			pctx.Release()
			if window != nil {
				glfw.DetachCurrentContext()
			}
		})
	}()

	var hub *viewer.Hub
	if cfg.Viewer.Listen != "" {
		hub = viewer.NewHub(log)
		srv := &http.Server{Addr: cfg.Viewer.Listen, Handler: hub.Handler()}
		go func() {
			log.WithFields(logrus.Fields{
				"function": "run",
				"listen":   cfg.Viewer.Listen,
			}).Info("Viewer listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithFields(logrus.Fields{
					"function": "run",
					"error":    err.Error(),
				}).Error("Viewer server failed")
			}
		}()
		defer func() {
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		count      int
		failures   int
		lastReport = time.Now()
	)
	for {
		if window != nil {
			glfw.PollEvents()
			if window.ShouldClose() {
				break
			}
		}

		publish := hub != nil && count%cfg.Viewer.EveryN == 0
		var (
			status int
			img    *convert.Image
		)
		err := runner.Do(ctx, func() {
			status = pctx.ProcessFrame(data, width, height, 0, cfg.Source.YUV)
			pctx.RenderFrame()
			if window != nil {
				window.SwapBuffers()
			}
			if publish && status == pipeline.StatusOK {
				img = pctx.LastImage()
			}
		})
		if err != nil {
			break
		}
		if status != pipeline.StatusOK {
			failures++
		}
		count++

		if img != nil {
			if png, err := convert.EncodePNG(img); err == nil {
				hub.PublishFrame(png, img.Width, img.Height)
			} else {
				log.WithFields(logrus.Fields{
					"function": "run",
					"error":    err.Error(),
				}).Warn("Failed to encode frame")
			}
		}

		if time.Since(lastReport) >= fpsReportInterval {
			lastReport = time.Now()
			var fps float32
			_ = runner.Do(ctx, func() { fps = pctx.GetFps() })
			log.WithFields(logrus.Fields{
				"function": "run",
				"fps":      fps,
				"frames":   count,
				"failures": failures,
			}).Debug("Frame rate")
			if hub != nil {
				hub.PublishFPS(fps)
			}
		}

		if opts.frames > 0 && count >= opts.frames {
			break
		}
		if ctx.Err() != nil {
			break
		}

		data, width, height, err = src.CaptureFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("capture failed: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"function": "run",
		"frames":   count,
		"failures": failures,
	}).Info("Capture finished")

	if opts.output != "" {
		var img *convert.Image
		_ = runner.Do(context.Background(), func() { img = pctx.LastImage() })
		if img == nil {
			return fmt.Errorf("no processed frame to save")
		}
		if err := convert.WriteFile(opts.output, img); err != nil {
			return err
		}
		fmt.Printf("Saved frame to %s\n", opts.output)
	}
	return nil
}
