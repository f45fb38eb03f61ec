// Package app orchestrates one viewer run: it loads the scene asset during
// setup, drives animation and UI each frame, and releases everything in a
// GPU-synchronized order at cleanup.
package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/config"
	"github.com/Faultbox/gltfview/internal/embedded"
	"github.com/Faultbox/gltfview/internal/gltf"
	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/names"
	"github.com/Faultbox/gltfview/internal/render"
	"github.com/Faultbox/gltfview/internal/source"
	"github.com/Faultbox/gltfview/internal/viewer"
)

// Setup failures. Each is fatal to the run.
var (
	ErrSourceNotFound   = errors.New("scene source not found")
	ErrSourceUnreadable = errors.New("scene source unreadable")
	ErrParseFailure     = errors.New("scene parse failure")
)

// ErrInvalidState is returned when a lifecycle call arrives out of order.
var ErrInvalidState = errors.New("invalid lifecycle state")

// State is the lifecycle phase.
type State int

const (
	StateUninitialized State = iota
	StateSetup
	StateRunning
	StateCleanup
	StateTerminated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSetup:
		return "setup"
	case StateRunning:
		return "running"
	case StateCleanup:
		return "cleanup"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// HostUI is the UI layer the host exposes to the GUI callback.
type HostUI interface {
	viewer.UI
	SetSidebarWidth(w float32)
}

// App holds everything one run owns. It is driven from a single thread.
type App struct {
	cfg       config.RunConfig
	scenePath string
	payload   []byte
	state     State

	names  *names.Registry
	viewer *viewer.Viewer
	loader *gltf.Loader
	asset  *gltf.Asset
	report *gltf.ResourceReport
}

// New creates an app that will show scenePath, or the embedded scene when
// scenePath is empty.
func New(cfg config.RunConfig, scenePath string) *App {
	return &App{
		cfg:       cfg,
		scenePath: scenePath,
		payload:   embedded.Payload(),
	}
}

// State returns the lifecycle phase.
func (a *App) State() State {
	return a.state
}

// Asset returns the loaded asset, or nil before setup or after cleanup.
func (a *App) Asset() *gltf.Asset {
	return a.asset
}

// Report returns what the resource loader could not resolve.
func (a *App) Report() *gltf.ResourceReport {
	return a.report
}

// Setup loads the scene and binds it into scene. On error nothing has been
// added to the scene and the app is in StateFailed.
func (a *App) Setup(engine render.Engine, view render.View, scene render.Scene) error {
	if a.state != StateUninitialized {
		return fmt.Errorf("%w: setup in state %s", ErrInvalidState, a.state)
	}
	a.state = StateSetup

	if err := a.setup(engine, view, scene); err != nil {
		a.state = StateFailed
		return err
	}
	a.state = StateRunning
	return nil
}

func (a *App) setup(engine render.Engine, view render.View, scene render.Scene) error {
	a.names = names.NewRegistry()
	a.viewer = viewer.New(scene)
	a.loader = gltf.NewLoader(gltf.LoaderConfig{
		Engine:         engine,
		Names:          a.names,
		MaterialSource: a.cfg.MaterialSource,
	})

	blob, err := source.Select(a.scenePath, a.payload)
	if err != nil {
		return classifySourceError(err)
	}
	if sniffed, ok := source.SniffFormat(blob.Bytes); ok && sniffed != blob.Format {
		logger.Warn("scene content does not match its extension",
			zap.String("path", blob.Path),
			zap.Stringer("extension", blob.Format),
			zap.Stringer("content", sniffed))
	}

	var asset *gltf.Asset
	switch blob.Format {
	case source.FormatBinary:
		asset, err = a.loader.ParseBinary(blob.Bytes)
	default:
		asset, err = a.loader.ParseText(blob.Bytes)
	}
	blob.Release()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailure, err)
	}
	a.asset = asset

	rl := gltf.NewResourceLoader(gltf.ResourceConfig{
		Engine:                 engine,
		BaseDir:                blob.Dir,
		RecomputeBoundingBoxes: false,
	})
	if a.report, err = rl.LoadResources(asset); err != nil {
		return fmt.Errorf("loading resources: %w", err)
	}

	animator, err := asset.Animator()
	if err != nil {
		return fmt.Errorf("creating animator: %w", err)
	}
	if err := asset.ReleaseSourceData(); err != nil {
		return fmt.Errorf("releasing source data: %w", err)
	}

	a.viewer.SetAsset(asset, animator, a.names)
	view.SetSampleCount(4)
	view.SetPostProcessAntiAliasing(true)

	logger.Info("scene ready",
		zap.String("source", sourceName(blob)),
		zap.Stringer("format", blob.Format),
		zap.Int("entities", len(asset.Entities())),
		zap.Int("animations", animator.AnimationCount()),
		zap.Int("shortfalls", len(a.report.Shortfalls)))
	return nil
}

func classifySourceError(err error) error {
	switch {
	case errors.Is(err, source.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
}

func sourceName(b *source.Blob) string {
	if b.Embedded {
		return "<embedded>"
	}
	return b.Path
}

// Animate advances the animation to now (seconds). It is a no-op outside
// StateRunning.
func (a *App) Animate(now float64) {
	if a.state != StateRunning {
		return
	}
	a.viewer.ApplyAnimation(now)
}

// GUI draws the sidebar and tells the host how wide it is. It is a no-op
// outside StateRunning.
func (a *App) GUI(ui HostUI) {
	if a.state != StateRunning {
		return
	}
	a.viewer.UpdateUserInterface(ui)
	ui.SetSidebarWidth(a.viewer.SidebarWidth())
}

// Viewer returns the viewer, or nil outside setup..cleanup.
func (a *App) Viewer() *viewer.Viewer {
	return a.viewer
}
