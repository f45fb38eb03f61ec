// Package viewer binds a loaded asset into a scene and keeps the playback
// and sidebar state shown next to it.
package viewer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/gltf"
	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/names"
	"github.com/Faultbox/gltfview/internal/render"
)

// Sidebar width limits in pixels.
const (
	DefaultSidebarWidth float32 = 300
	MinSidebarWidth     float32 = 200
	MaxSidebarWidth     float32 = 600
)

// NoAnimation disables playback.
const NoAnimation = -1

// Viewer shows at most one asset.
type Viewer struct {
	scene render.Scene

	asset    *gltf.Asset
	animator *gltf.Animator
	names    *names.Registry
	inScene  []render.Entity

	animation int
	speed     float32
	paused    bool
	playhead  float32 // seconds into the current animation
	lastNow   float64
	hasNow    bool

	sidebarWidth float32
	destroyed    bool
}

// New creates a viewer drawing into scene.
func New(scene render.Scene) *Viewer {
	return &Viewer{
		scene:        scene,
		animation:    NoAnimation,
		speed:        1,
		sidebarWidth: DefaultSidebarWidth,
	}
}

// SetAsset adds the asset's entities to the scene, replacing any previous
// asset. The animator may be nil.
func (v *Viewer) SetAsset(a *gltf.Asset, an *gltf.Animator, reg *names.Registry) {
	if v.destroyed {
		return
	}
	v.RemoveAsset()

	v.asset, v.animator, v.names = a, an, reg
	for _, e := range a.Entities() {
		v.scene.AddEntity(e)
		v.inScene = append(v.inScene, e)
	}

	v.animation = NoAnimation
	if an != nil && an.AnimationCount() > 0 {
		v.animation = 0
	}
	v.playhead = 0
	v.hasNow = false

	logger.Debug("asset added to scene", zap.Int("entities", len(v.inScene)))
}

// RemoveAsset takes the current asset's entities out of the scene. The asset
// itself is not destroyed.
func (v *Viewer) RemoveAsset() {
	for _, e := range v.inScene {
		v.scene.RemoveEntity(e)
	}
	v.inScene = nil
	v.asset, v.animator, v.names = nil, nil, nil
	v.animation = NoAnimation
}

// Asset returns the asset being shown, or nil.
func (v *Viewer) Asset() *gltf.Asset {
	return v.asset
}

// ApplyAnimation advances playback to now (seconds on a monotonic clock)
// and poses the asset. It never blocks.
func (v *Viewer) ApplyAnimation(now float64) {
	if v.animator == nil || v.animation == NoAnimation {
		v.lastNow, v.hasNow = now, true
		return
	}
	if v.hasNow && !v.paused {
		v.playhead += float32(now-v.lastNow) * v.speed
	}
	v.lastNow, v.hasNow = now, true

	d := v.animator.AnimationDuration(v.animation)
	if d > 0 {
		for v.playhead >= d {
			v.playhead -= d
		}
		for v.playhead < 0 {
			v.playhead += d
		}
	}
	v.animator.ApplyAnimation(v.animation, v.playhead)
	v.animator.UpdateTransforms()
}

// SelectAnimation picks the animation to play, or NoAnimation.
func (v *Viewer) SelectAnimation(i int) {
	if v.animator == nil || i < NoAnimation || i >= v.animator.AnimationCount() {
		return
	}
	if i != v.animation {
		v.playhead = 0
		if i == NoAnimation {
			v.animator.ResetPose()
			v.animator.UpdateTransforms()
		}
	}
	v.animation = i
}

// Animation returns the selected animation index.
func (v *Viewer) Animation() int {
	return v.animation
}

// Playhead returns seconds into the selected animation.
func (v *Viewer) Playhead() float32 {
	return v.playhead
}

// SetPaused freezes or resumes playback.
func (v *Viewer) SetPaused(p bool) {
	v.paused = p
}

// SetSpeed sets the playback rate multiplier.
func (v *Viewer) SetSpeed(s float32) {
	v.speed = s
}

// SidebarWidth returns the sidebar width in pixels.
func (v *Viewer) SidebarWidth() float32 {
	return v.sidebarWidth
}

// SetSidebarWidth clamps w to the allowed range.
func (v *Viewer) SetSidebarWidth(w float32) {
	v.sidebarWidth = min(max(w, MinSidebarWidth), MaxSidebarWidth)
}

// UpdateUserInterface draws the sidebar and applies any edits made in it.
func (v *Viewer) UpdateUserInterface(ui UI) {
	if v.destroyed {
		return
	}
	_, h := ui.DisplaySize()
	if ui.BeginPanel("Scene", 0, 0, v.sidebarWidth, h) {
		v.drawStats(ui)
		v.drawHierarchy(ui)
		v.drawAnimations(ui)
		v.drawSettings(ui)
	}
	ui.EndPanel()
}

func (v *Viewer) drawStats(ui UI) {
	if v.asset == nil {
		ui.TextDisabled("No asset loaded")
		return
	}
	ui.Text(fmt.Sprintf("Entities: %d", len(v.inScene)))
	ui.Text(fmt.Sprintf("Renderables: %d", len(v.asset.Renderables())))
	ui.Text(fmt.Sprintf("Textures: %d", v.asset.TextureCount()))
	if b := v.asset.Bounds(); !b.IsEmpty() {
		c := b.Center()
		ui.Text(fmt.Sprintf("Center: %.2f %.2f %.2f", c.X, c.Y, c.Z))
		ui.Text(fmt.Sprintf("Radius: %.2f", b.Radius()))
	}
	ui.Separator()
}

func (v *Viewer) drawHierarchy(ui UI) {
	if v.asset == nil {
		return
	}
	if ui.TreeNode("Hierarchy", false) {
		v.drawEntity(ui, v.asset.Root())
		ui.TreePop()
	}
}

func (v *Viewer) drawEntity(ui UI, e render.Entity) {
	children := v.asset.Children(e)
	if ui.TreeNode(v.label(e), len(children) == 0) {
		for _, c := range children {
			v.drawEntity(ui, c)
		}
		ui.TreePop()
	}
}

func (v *Viewer) label(e render.Entity) string {
	name := ""
	if v.names != nil {
		name = v.names.Name(e)
	}
	if name == "" {
		name = fmt.Sprintf("<entity %d>", e)
	}
	return fmt.Sprintf("%s##%d", name, e)
}

func (v *Viewer) drawAnimations(ui UI) {
	if v.animator == nil || v.animator.AnimationCount() == 0 {
		return
	}
	ui.Separator()
	ui.Text("Animations")
	if ui.Selectable("None", v.animation == NoAnimation) {
		v.SelectAnimation(NoAnimation)
	}
	for i := 0; i < v.animator.AnimationCount(); i++ {
		label := fmt.Sprintf("%s (%.2fs)##anim%d", v.animator.AnimationName(i), v.animator.AnimationDuration(i), i)
		if ui.Selectable(label, v.animation == i) {
			v.SelectAnimation(i)
		}
	}
	ui.Checkbox("Paused", &v.paused)
	ui.SliderFloat("Speed", &v.speed, 0, 4, "%.2fx")
}

func (v *Viewer) drawSettings(ui UI) {
	ui.Separator()
	w := v.sidebarWidth
	if ui.SliderFloat("Sidebar width", &w, MinSidebarWidth, MaxSidebarWidth, "%.0f px") {
		v.SetSidebarWidth(w)
	}
}

// Destroy removes the asset from the scene. The viewer is unusable afterwards.
func (v *Viewer) Destroy() {
	if v.destroyed {
		return
	}
	v.RemoveAsset()
	v.destroyed = true
}
