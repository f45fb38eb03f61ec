// Package shader compiles GLSL programs and builds template variants from
// preprocessor defines.
package shader

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// CompileProgram compiles vertex and fragment shaders and links them into a program.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", programLog(program))
	}

	return program, nil
}

// CompileVariant compiles the pair with defines injected into both stages.
func CompileVariant(vertexSrc, fragmentSrc string, defines ...string) (uint32, error) {
	return CompileProgram(WithDefines(vertexSrc, defines...), WithDefines(fragmentSrc, defines...))
}

// WithDefines inserts one #define per name right after the #version line.
// Sources without a #version line get the defines prepended.
func WithDefines(src string, defines ...string) string {
	if len(defines) == 0 {
		return src
	}
	var block strings.Builder
	for _, d := range defines {
		block.WriteString("#define ")
		block.WriteString(d)
		block.WriteByte('\n')
	}

	if !strings.HasPrefix(strings.TrimLeft(src, " \t\r\n"), "#version") {
		return block.String() + src
	}
	i := strings.Index(src, "#version")
	eol := strings.IndexByte(src[i:], '\n')
	if eol < 0 {
		return src + "\n" + block.String()
	}
	at := i + eol + 1
	return src[:at] + block.String() + src[at:]
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, strings.TrimRight(string(log), "\x00"))
	}

	return shader, nil
}

func programLog(program uint32) string {
	var logLen int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
	log := make([]byte, logLen+1)
	gl.GetProgramInfoLog(program, logLen, nil, &log[0])
	return strings.TrimRight(string(log), "\x00")
}

// Uniform returns the uniform location for name, or -1 when the uniform is
// absent or was optimized out.
func Uniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
