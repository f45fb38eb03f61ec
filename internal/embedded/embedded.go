// Package embedded holds the fallback scene shown when no file is given.
package embedded

import _ "embed"

//go:embed default.glb
var defaultGLB []byte

// Payload returns the built-in GLB scene. Callers must not modify it.
func Payload() []byte {
	return defaultGLB
}
