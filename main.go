package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/saurabh-git-dev/edgecam-go/internal/config"
	"github.com/saurabh-git-dev/edgecam-go/internal/convert"
	"github.com/saurabh-git-dev/edgecam-go/internal/pipeline"
	"github.com/saurabh-git-dev/edgecam-go/internal/render"
	"github.com/saurabh-git-dev/edgecam-go/internal/shader"
)

func init() {
	// glfw calls must stay on the main thread.
	runtime.LockOSThread()
}

type options struct {
	frames int
	window bool
	output string
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	device := flag.Int("device", -1, "capture device index (overrides config)")
	file := flag.String("file", "", "video or image file to read frames from (overrides config)")
	yuv := flag.Bool("yuv", false, "feed frames to the pipeline as NV21 instead of RGBA")
	mode := flag.Int("mode", -1, "render mode: 0 camera, 1 edge detection (overrides config)")
	frames := flag.Int("frames", 0, "stop after n frames; 0 runs until EOF or interrupt")
	window := flag.Bool("window", false, "draw frames into an OpenGL ES window")
	listen := flag.String("listen", "", "serve the WebSocket viewer on this address, e.g. :3000")
	output := flag.String("o", "", "save the last processed frame on exit (.png, .jpg, .jpeg)")
	list := flag.Bool("list", false, "list available cameras and exit")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	if *list {
		cameras := ListCameras()
		if len(cameras) == 0 {
			fmt.Println("No cameras found")
			return
		}
		for _, camera := range cameras {
			fmt.Println(camera)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *device >= 0 {
		cfg.Source.Device = *device
	}
	if *file != "" {
		cfg.Source.File = *file
	}
	if *yuv {
		cfg.Source.YUV = true
	}
	if *mode >= 0 {
		cfg.Render.Mode = *mode
	}
	if *listen != "" {
		cfg.Viewer.Listen = *listen
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	if err := cfg.ConfigureLogger(logrus.StandardLogger()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := options{frames: *frames, window: *window}
	if *output != "" {
		outputPath, err := filepath.Abs(*output)
		if err != nil {
			fmt.Fprintln(os.Stderr, "output path error:", err)
			os.Exit(1)
		}
		opts.output = outputPath
	}

	if err := run(cfg, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Thresholds: convert.Thresholds{Low: cfg.Canny.Low, High: cfg.Canny.High},
		Render: render.Options{
			VertexSource:   shader.VertexSource,
			FragmentSource: shader.FragmentSource,
			ClearColor:     cfg.Render.ClearColor,
		},
		Mode:               convert.Mode(cfg.Render.Mode),
		RejectUnknownModes: cfg.Render.UnknownMode == config.UnknownModeReject,
		FPSWindow:          cfg.FPSWindow(),
		Logger:             logrus.StandardLogger(),
	}
}
