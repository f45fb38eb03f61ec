package host

import (
	"github.com/AllenDang/cimgui-go/imgui"
)

// panelFlags pin the sidebar and viewport in place.
const panelFlags = imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

// imguiUI draws the viewer's widgets with Dear ImGui and remembers the
// sidebar width the viewer asked for.
type imguiUI struct {
	sidebarWidth float32
}

func (u *imguiUI) DisplaySize() (float32, float32) {
	vp := imgui.MainViewport()
	size := vp.WorkSize()
	return size.X, size.Y
}

func (u *imguiUI) BeginPanel(title string, x, y, w, h float32) bool {
	pos := imgui.MainViewport().WorkPos()
	imgui.SetNextWindowPos(imgui.NewVec2(pos.X+x, pos.Y+y))
	imgui.SetNextWindowSize(imgui.NewVec2(w, h))
	return imgui.BeginV(title, nil, panelFlags)
}

func (u *imguiUI) EndPanel() {
	imgui.End()
}

func (u *imguiUI) Text(s string) {
	imgui.TextUnformatted(s)
}

func (u *imguiUI) TextDisabled(s string) {
	imgui.TextDisabled(s)
}

func (u *imguiUI) Separator() {
	imgui.Separator()
}

func (u *imguiUI) Checkbox(label string, v *bool) bool {
	return imgui.Checkbox(label, v)
}

func (u *imguiUI) SliderFloat(label string, v *float32, lo, hi float32, format string) bool {
	return imgui.SliderFloatV(label, v, lo, hi, format, imgui.SliderFlagsNone)
}

func (u *imguiUI) Selectable(label string, selected bool) bool {
	return imgui.SelectableBoolV(label, selected, 0, imgui.NewVec2(0, 0))
}

func (u *imguiUI) TreeNode(label string, leaf bool) bool {
	flags := imgui.TreeNodeFlagsOpenOnArrow | imgui.TreeNodeFlagsSpanAvailWidth | imgui.TreeNodeFlagsDefaultOpen
	if leaf {
		flags |= imgui.TreeNodeFlagsLeaf
	}
	return imgui.TreeNodeExStrV(label, flags)
}

func (u *imguiUI) TreePop() {
	imgui.TreePop()
}

func (u *imguiUI) SetSidebarWidth(w float32) {
	u.sidebarWidth = w
}
