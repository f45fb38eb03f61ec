package viewer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/gltfview/internal/config"
	"github.com/Faultbox/gltfview/internal/embedded"
	"github.com/Faultbox/gltfview/internal/gltf"
	"github.com/Faultbox/gltfview/internal/names"
	"github.com/Faultbox/gltfview/internal/render/rendertest"
)

// fakeUI records drawn labels and applies scripted edits.
type fakeUI struct {
	labels   []string
	click    string             // Selectable label prefix to click
	sliders  map[string]float32 // slider label -> value to set
	toggle   string             // Checkbox label to flip
	openTree bool
	panelW   float32
	depth    int
}

func (f *fakeUI) DisplaySize() (float32, float32) { return 1280, 800 }

func (f *fakeUI) BeginPanel(title string, x, y, w, h float32) bool {
	f.panelW = w
	f.labels = append(f.labels, title)
	return true
}

func (f *fakeUI) EndPanel() {}

func (f *fakeUI) Text(s string)         { f.labels = append(f.labels, s) }
func (f *fakeUI) TextDisabled(s string) { f.labels = append(f.labels, s) }
func (f *fakeUI) Separator()            {}

func (f *fakeUI) Checkbox(label string, v *bool) bool {
	f.labels = append(f.labels, label)
	if label == f.toggle {
		*v = !*v
		return true
	}
	return false
}

func (f *fakeUI) SliderFloat(label string, v *float32, lo, hi float32, format string) bool {
	f.labels = append(f.labels, label)
	if nv, ok := f.sliders[label]; ok {
		*v = nv
		return true
	}
	return false
}

func (f *fakeUI) Selectable(label string, selected bool) bool {
	f.labels = append(f.labels, label)
	return f.click != "" && strings.HasPrefix(label, f.click)
}

func (f *fakeUI) TreeNode(label string, leaf bool) bool {
	f.labels = append(f.labels, label)
	if f.openTree {
		f.depth++
	}
	return f.openTree
}

func (f *fakeUI) TreePop() { f.depth-- }

func (f *fakeUI) has(prefix string) bool {
	for _, l := range f.labels {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func loadEmbedded(t *testing.T) (*rendertest.Recorder, *gltf.Asset, *gltf.Animator, *names.Registry) {
	t.Helper()
	rec := rendertest.New()
	reg := names.NewRegistry()
	l := gltf.NewLoader(gltf.LoaderConfig{Engine: rec, Names: reg, MaterialSource: config.GenerateShaders})
	a, err := l.ParseBinary(embedded.Payload())
	require.NoError(t, err)
	_, err = gltf.NewResourceLoader(gltf.ResourceConfig{Engine: rec}).LoadResources(a)
	require.NoError(t, err)
	an, err := a.Animator()
	require.NoError(t, err)
	require.NoError(t, a.ReleaseSourceData())
	return rec, a, an, reg
}

func TestSetAndRemoveAsset(t *testing.T) {
	rec, a, an, reg := loadEmbedded(t)
	v := New(rec)

	v.SetAsset(a, an, reg)
	assert.Equal(t, len(a.Entities()), rec.SceneSize())
	assert.Equal(t, 0, v.Animation(), "first animation plays by default")
	assert.Same(t, a, v.Asset())

	v.RemoveAsset()
	assert.Zero(t, rec.SceneSize())
	assert.Nil(t, v.Asset())
	assert.Equal(t, NoAnimation, v.Animation())
}

func TestApplyAnimationLoops(t *testing.T) {
	rec, a, an, reg := loadEmbedded(t)
	v := New(rec)
	v.SetAsset(a, an, reg)

	v.ApplyAnimation(10) // first call only anchors the clock
	assert.Zero(t, v.Playhead())

	v.ApplyAnimation(11.5)
	assert.InDelta(t, 1.5, v.Playhead(), 1e-5)

	v.ApplyAnimation(15) // 5s into a 4s loop
	assert.InDelta(t, 1, v.Playhead(), 1e-5)

	v.SetSpeed(2)
	v.ApplyAnimation(15.5)
	assert.InDelta(t, 2, v.Playhead(), 1e-5)

	v.SetPaused(true)
	v.ApplyAnimation(100)
	assert.InDelta(t, 2, v.Playhead(), 1e-5)

	_, ok := rec.Transform(a.Renderables()[0])
	assert.True(t, ok)
}

func TestApplyAnimationWithoutAsset(t *testing.T) {
	v := New(rendertest.New())
	v.ApplyAnimation(1)
	v.ApplyAnimation(2)
	assert.Zero(t, v.Playhead())
}

func TestUserInterface(t *testing.T) {
	rec, a, an, reg := loadEmbedded(t)
	v := New(rec)

	empty := &fakeUI{}
	v.UpdateUserInterface(empty)
	assert.True(t, empty.has("No asset loaded"))

	v.SetAsset(a, an, reg)
	ui := &fakeUI{openTree: true}
	v.UpdateUserInterface(ui)

	assert.Equal(t, DefaultSidebarWidth, ui.panelW)
	assert.Zero(t, ui.depth, "every opened tree node is popped")
	assert.True(t, ui.has("Entities: 3"))
	assert.True(t, ui.has("Textures: 1"))
	assert.True(t, ui.has("Default##"))
	assert.True(t, ui.has("Root##"))
	assert.True(t, ui.has("Cube##"))
	assert.True(t, ui.has("Spin (4.00s)"))
}

func TestUserInterfaceEdits(t *testing.T) {
	rec, a, an, reg := loadEmbedded(t)
	v := New(rec)
	v.SetAsset(a, an, reg)

	v.UpdateUserInterface(&fakeUI{click: "None", toggle: "Paused", sliders: map[string]float32{
		"Speed":         0.5,
		"Sidebar width": 1000,
	}})
	assert.Equal(t, NoAnimation, v.Animation())
	assert.True(t, v.paused)
	assert.InDelta(t, 0.5, v.speed, 1e-6)
	assert.Equal(t, MaxSidebarWidth, v.SidebarWidth(), "width is clamped")

	v.UpdateUserInterface(&fakeUI{click: "Spin"})
	assert.Equal(t, 0, v.Animation())
}

func TestDestroy(t *testing.T) {
	rec, a, an, reg := loadEmbedded(t)
	v := New(rec)
	v.SetAsset(a, an, reg)

	v.Destroy()
	assert.Zero(t, rec.SceneSize())
	v.Destroy()

	v.SetAsset(a, an, reg)
	assert.Zero(t, rec.SceneSize(), "destroyed viewer ignores new assets")
}
