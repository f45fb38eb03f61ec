// Package main is the entry point for gltfview, a viewer for glTF 2.0 scenes.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/app"
	"github.com/Faultbox/gltfview/internal/config"
	"github.com/Faultbox/gltfview/internal/host"
	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/source"
)

func init() {
	// OpenGL calls must be made from the main thread
	runtime.LockOSThread()
}

// hostFunc runs the window and render loop for one app.
type hostFunc func(cfg config.RunConfig, win config.WindowSettings, a *app.App) error

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr, host.Run))
}

// run returns the process exit code. Requested help goes to stdout; usage
// after a bad option goes to stderr.
func run(args []string, stdout, stderr io.Writer, runHost hostFunc) int {
	program := "gltfview"
	if len(args) > 0 {
		program = args[0]
		args = args[1:]
	}

	opts, err := config.ParseArgs(args, stderr)
	if errors.Is(err, config.ErrHelp) {
		config.Usage(stdout, program)
		return 0
	}
	if err != nil {
		config.Usage(stderr, program)
		return 0
	}

	settings, err := config.LoadSettings(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return 1
	}
	settings.ApplyOptions(opts)

	fileCfg := logger.FileConfig{}
	if settings.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(settings.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(settings.Logging.Level, fileCfg, stderr); err != nil {
		fmt.Fprintf(stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	cfg, warnings := config.Resolve(settings, opts)
	for _, w := range warnings {
		fmt.Fprintln(stderr, w)
		logger.Warn("config warning", zap.String("warning", w))
	}

	scenePath := opts.ScenePath()
	if len(opts.Args) > 1 {
		logger.Warn("extra arguments ignored", zap.Strings("args", opts.Args[1:]))
	}
	if scenePath != "" {
		if err := source.Exists(scenePath); err != nil {
			fmt.Fprintf(stderr, "file %s not found!\n", scenePath)
			return 1
		}
	}

	logger.Info("=== gltfview ===",
		zap.Stringer("backend", cfg.Backend),
		zap.Stringer("materials", cfg.MaterialSource),
		zap.String("ibl", cfg.IBLDirectory))

	a := app.New(cfg, scenePath)
	if err := runHost(cfg, settings.Window, a); err != nil {
		fmt.Fprintln(stderr, diagnostic(err, scenePath))
		logger.Error("viewer failed", zap.Error(err))
		return 1
	}

	logger.Info("viewer closed normally")
	return 0
}

// diagnostic maps a run error to the message shown to the user.
func diagnostic(err error, scenePath string) string {
	name := scenePath
	if name == "" {
		name = "<embedded scene>"
	}
	switch {
	case errors.Is(err, app.ErrSourceNotFound):
		return fmt.Sprintf("file %s not found!", name)
	case errors.Is(err, source.ErrRead):
		return fmt.Sprintf("Unable to read %s", name)
	case errors.Is(err, app.ErrSourceUnreadable):
		return fmt.Sprintf("Unable to open %s", name)
	case errors.Is(err, app.ErrParseFailure):
		return fmt.Sprintf("Unable to parse %s", name)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
