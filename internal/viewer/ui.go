package viewer

// UI is the immediate-mode widget set the sidebar is drawn with. Widgets
// that edit a value return true when the user changed it this frame.
type UI interface {
	// DisplaySize returns the host window size in pixels.
	DisplaySize() (w, h float32)
	// BeginPanel starts a fixed panel; EndPanel must be called regardless of the result.
	BeginPanel(title string, x, y, w, h float32) bool
	EndPanel()

	Text(s string)
	TextDisabled(s string)
	Separator()
	Checkbox(label string, v *bool) bool
	SliderFloat(label string, v *float32, lo, hi float32, format string) bool
	Selectable(label string, selected bool) bool
	// TreeNode returns true when the node is open; TreePop must follow an open node.
	TreeNode(label string, leaf bool) bool
	TreePop()
}
