// Package host runs the viewer inside a cimgui-go SDL window with an OpenGL
// renderer, driving the app's lifecycle callbacks.
package host

import (
	"errors"
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/app"
	"github.com/Faultbox/gltfview/internal/config"
	"github.com/Faultbox/gltfview/internal/engine/debug"
	"github.com/Faultbox/gltfview/internal/ibl"
	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/viewer"
)

// ErrCleanup is returned by Run when the app could not be torn down cleanly.
var ErrCleanup = errors.New("cleanup failed")

// Run opens the window, sets up a, and runs frames until the window closes.
// Setup errors are returned before the first frame.
func Run(cfg config.RunConfig, win config.WindowSettings, a *app.App) error {
	if cfg.Backend != config.BackendOpenGL {
		logger.Warn("backend not available in this build, using opengl",
			zap.Stringer("requested", cfg.Backend))
	}

	b, err := backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	b.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	b.CreateWindow(cfg.Title, win.Width, win.Height)

	if err := gl.Init(); err != nil {
		return fmt.Errorf("init opengl: %w", err)
	}
	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	engine := NewEngine()
	scene := NewScene()
	view := NewView(loadLight(cfg.IBLDirectory))

	if err := a.Setup(engine, view, scene); err != nil {
		view.Destroy()
		engine.Destroy()
		return err
	}
	if asset := a.Asset(); asset != nil {
		view.Fit(asset.Bounds())
	}

	l := &loop{
		app:         a,
		engine:      engine,
		scene:       scene,
		view:        view,
		ui:          &imguiUI{sidebarWidth: viewer.DefaultSidebarWidth},
		screenshots: debug.NewScreenshots("", "gltfview"),
		start:       time.Now(),
	}
	b.SetBeforeDestroyContextHook(l.cleanup)
	b.Run(l.frame)
	return l.err
}

// loadLight reads the IBL, falling back to neutral lighting.
func loadLight(dir string) *ibl.Light {
	light, err := ibl.Load(dir)
	if err != nil {
		logger.Warn("IBL unavailable, using default lighting", zap.String("dir", dir), zap.Error(err))
		return ibl.Default()
	}
	logger.Info("IBL loaded", zap.String("dir", dir), zap.Int("bands", len(light.SH)))
	return light
}

// loop holds per-run state for the frame and cleanup callbacks.
type loop struct {
	app         *app.App
	engine      *Engine
	scene       *Scene
	view        *View
	ui          *imguiUI
	screenshots *debug.Screenshots
	start       time.Time

	lastMouse    imgui.Vec2
	wantCapture  bool
	renderFailed bool
	err          error
}

func (l *loop) frame() {
	l.app.Animate(time.Since(l.start).Seconds())
	l.app.GUI(l.ui)
	l.drawViewport()

	if l.wantCapture {
		l.wantCapture = false
		l.capture()
	}
	if imgui.IsKeyChordPressed(imgui.KeyChord(imgui.KeyF12)) {
		// Captured next frame so the resolved target holds a finished image.
		l.wantCapture = true
	}
}

func (l *loop) drawViewport() {
	w, h := l.ui.DisplaySize()
	x := l.ui.sidebarWidth
	if !l.ui.BeginPanel("Viewport", x, 0, w-x, h) {
		l.ui.EndPanel()
		return
	}
	defer l.ui.EndPanel()

	avail := imgui.ContentRegionAvail()
	if avail.X < 1 || avail.Y < 1 {
		return
	}
	tex, err := l.view.Render(l.engine, l.scene, int32(avail.X), int32(avail.Y))
	if err != nil {
		if !l.renderFailed {
			logger.Error("viewport render failed", zap.Error(err))
			l.renderFailed = true
		}
		imgui.TextDisabled("Viewport unavailable")
		return
	}

	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(tex))
	imgui.ImageWithBgV(
		*texRef,
		avail,
		imgui.NewVec2(0, 1), // GL origin is bottom-left
		imgui.NewVec2(1, 0),
		imgui.NewVec4(0.15, 0.15, 0.15, 1.0),
		imgui.NewVec4(1, 1, 1, 1),
	)

	if imgui.IsItemHovered() {
		mouse := imgui.MousePos()
		if imgui.IsMouseDragging(imgui.MouseButtonLeft) {
			l.view.Camera().HandleDrag(mouse.X-l.lastMouse.X, mouse.Y-l.lastMouse.Y)
		}
		l.lastMouse = mouse

		if wheel := imgui.CurrentIO().MouseWheel(); wheel != 0 {
			l.view.Camera().HandleZoom(wheel)
		}
	}
}

func (l *loop) capture() {
	fb := l.view.Target()
	if fb == nil {
		return
	}
	w, h := fb.Size()
	path, err := l.screenshots.SaveBottomUp(fb.ReadPixels(), int(w), int(h))
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

// cleanup runs while the GL context is still current.
func (l *loop) cleanup() {
	if err := l.app.Cleanup(l.engine); err != nil {
		logger.Error("cleanup failed", zap.Error(err))
		l.err = fmt.Errorf("%w: %w", ErrCleanup, err)
	}
	l.view.Destroy()
	l.engine.Destroy()
	logger.Info("viewer terminated")
}
