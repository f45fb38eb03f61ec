// Package framebuffer provides an offscreen render target with optional
// multisampling, resolved into a texture that can be shown by the UI.
package framebuffer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Framebuffer renders into a (possibly multisampled) target and resolves it
// into a single-sample color texture.
type Framebuffer struct {
	// Render target. When samples <= 1 it is the resolve target itself.
	fbo      uint32
	colorRBO uint32
	depthRBO uint32

	resolveFBO   uint32
	colorTexture uint32

	width   int32
	height  int32
	samples int32
}

// New creates a framebuffer. samples <= 1 disables multisampling.
func New(width, height, samples int32) (*Framebuffer, error) {
	fb := &Framebuffer{
		width:   max(width, 1),
		height:  max(height, 1),
		samples: samples,
	}
	if fb.samples > 1 {
		var maxSamples int32
		gl.GetIntegerv(gl.MAX_SAMPLES, &maxSamples)
		fb.samples = min(fb.samples, maxSamples)
	}

	if err := fb.create(); err != nil {
		fb.Destroy()
		return nil, fmt.Errorf("creating framebuffer: %w", err)
	}
	return fb, nil
}

func (fb *Framebuffer) multisampled() bool {
	return fb.samples > 1
}

func (fb *Framebuffer) create() error {
	// Resolve target: color texture, plus depth when it is also the render target.
	gl.GenFramebuffers(1, &fb.resolveFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.resolveFBO)

	gl.GenTextures(1, &fb.colorTexture)
	gl.BindTexture(gl.TEXTURE_2D, fb.colorTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, fb.width, fb.height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fb.colorTexture, 0)

	if !fb.multisampled() {
		fb.fbo = fb.resolveFBO
		gl.GenRenderbuffers(1, &fb.depthRBO)
		gl.BindRenderbuffer(gl.RENDERBUFFER, fb.depthRBO)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, fb.width, fb.height)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, fb.depthRBO)
		return fb.checkComplete("resolve")
	}
	if err := fb.checkComplete("resolve"); err != nil {
		return err
	}

	gl.GenFramebuffers(1, &fb.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)

	gl.GenRenderbuffers(1, &fb.colorRBO)
	gl.BindRenderbuffer(gl.RENDERBUFFER, fb.colorRBO)
	gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, fb.samples, gl.RGBA8, fb.width, fb.height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, fb.colorRBO)

	gl.GenRenderbuffers(1, &fb.depthRBO)
	gl.BindRenderbuffer(gl.RENDERBUFFER, fb.depthRBO)
	gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, fb.samples, gl.DEPTH_COMPONENT24, fb.width, fb.height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, fb.depthRBO)

	return fb.checkComplete("multisample")
}

func (fb *Framebuffer) checkComplete(which string) error {
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%s framebuffer incomplete: 0x%x", which, status)
	}
	return nil
}

// BindWithViewport binds the render target and sets the viewport. The
// returned function restores the previous framebuffer and viewport.
func (fb *Framebuffer) BindWithViewport() func() {
	var prevFBO int32
	var prevViewport [4]int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)
	gl.GetIntegerv(gl.VIEWPORT, &prevViewport[0])

	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.Viewport(0, 0, fb.width, fb.height)

	return func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))
		gl.Viewport(prevViewport[0], prevViewport[1], prevViewport[2], prevViewport[3])
	}
}

// Clear clears color and depth of the bound target.
func (fb *Framebuffer) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Resolve copies the multisampled target into the color texture. It is a
// no-op without multisampling.
func (fb *Framebuffer) Resolve() {
	if !fb.multisampled() {
		return
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fb.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, fb.resolveFBO)
	gl.BlitFramebuffer(0, 0, fb.width, fb.height, 0, 0, fb.width, fb.height, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// ColorTexture returns the resolved color texture.
func (fb *Framebuffer) ColorTexture() uint32 {
	return fb.colorTexture
}

// Samples returns the effective sample count.
func (fb *Framebuffer) Samples() int32 {
	return fb.samples
}

// Size returns the framebuffer dimensions.
func (fb *Framebuffer) Size() (width, height int32) {
	return fb.width, fb.height
}

// Resize recreates the attachments when the size changed.
func (fb *Framebuffer) Resize(width, height int32) error {
	width, height = max(width, 1), max(height, 1)
	if width == fb.width && height == fb.height {
		return nil
	}
	fb.Destroy()
	fb.width, fb.height = width, height
	return fb.create()
}

// ReadPixels reads the resolved color texture as bottom-up RGBA rows.
func (fb *Framebuffer) ReadPixels() []byte {
	pixels := make([]byte, fb.width*fb.height*4)

	var prevFBO int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.resolveFBO)
	gl.ReadPixels(0, 0, fb.width, fb.height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))

	return pixels
}

// Destroy releases all OpenGL resources.
func (fb *Framebuffer) Destroy() {
	if fb.fbo != 0 && fb.fbo != fb.resolveFBO {
		gl.DeleteFramebuffers(1, &fb.fbo)
	}
	fb.fbo = 0
	if fb.resolveFBO != 0 {
		gl.DeleteFramebuffers(1, &fb.resolveFBO)
		fb.resolveFBO = 0
	}
	if fb.colorTexture != 0 {
		gl.DeleteTextures(1, &fb.colorTexture)
		fb.colorTexture = 0
	}
	if fb.colorRBO != 0 {
		gl.DeleteRenderbuffers(1, &fb.colorRBO)
		fb.colorRBO = 0
	}
	if fb.depthRBO != 0 {
		gl.DeleteRenderbuffers(1, &fb.depthRBO)
		fb.depthRBO = 0
	}
}
