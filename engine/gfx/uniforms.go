package gfx

import (
	"encoding/binary"
	"math"
	"regexp"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

type uniformKind uint8

const (
	uniformFloat uniformKind = iota
	uniformFloat2
	uniformFloat3
	uniformFloat4
	uniformInt
	uniformInt2
	uniformInt3
	uniformMat2
	uniformMat3
	uniformMat4
)

// uniformValue stores one uploaded uniform. Floats and matrices share the f
// array; column-major matrix order matches mgl32.
type uniformValue struct {
	kind uniformKind
	f    [16]float32
	i    [3]int32
}

func (c *webgpuContext) setUniform(loc UniformLocation, v uniformValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.programs.get(Handle(loc.program)); p != nil {
		(*p).uniforms[loc.name] = v
	}
}

func (c *webgpuContext) Uniform1f(loc UniformLocation, x float32) {
	c.setUniform(loc, uniformValue{kind: uniformFloat, f: [16]float32{x}})
}

func (c *webgpuContext) Uniform2f(loc UniformLocation, x, y float32) {
	c.setUniform(loc, uniformValue{kind: uniformFloat2, f: [16]float32{x, y}})
}

func (c *webgpuContext) Uniform3f(loc UniformLocation, x, y, z float32) {
	c.setUniform(loc, uniformValue{kind: uniformFloat3, f: [16]float32{x, y, z}})
}

func (c *webgpuContext) Uniform4f(loc UniformLocation, x, y, z, w float32) {
	c.setUniform(loc, uniformValue{kind: uniformFloat4, f: [16]float32{x, y, z, w}})
}

func (c *webgpuContext) Uniform1i(loc UniformLocation, x int32) {
	c.setUniform(loc, uniformValue{kind: uniformInt, i: [3]int32{x}})
}

func (c *webgpuContext) Uniform2i(loc UniformLocation, x, y int32) {
	c.setUniform(loc, uniformValue{kind: uniformInt2, i: [3]int32{x, y}})
}

func (c *webgpuContext) Uniform3i(loc UniformLocation, x, y, z int32) {
	c.setUniform(loc, uniformValue{kind: uniformInt3, i: [3]int32{x, y, z}})
}

func (c *webgpuContext) UniformMatrix2(loc UniformLocation, m mgl32.Mat2) {
	v := uniformValue{kind: uniformMat2}
	copy(v.f[:], m[:])
	c.setUniform(loc, v)
}

func (c *webgpuContext) UniformMatrix3(loc UniformLocation, m mgl32.Mat3) {
	v := uniformValue{kind: uniformMat3}
	copy(v.f[:], m[:])
	c.setUniform(loc, v)
}

func (c *webgpuContext) UniformMatrix4(loc UniformLocation, m mgl32.Mat4) {
	v := uniformValue{kind: uniformMat4}
	copy(v.f[:], m[:])
	c.setUniform(loc, v)
}

// uniformField is one member of the shader's uniform struct.
type uniformField struct {
	offset int
	size   int
}

// uniformLayout maps uniform names to byte ranges inside the program's
// uniform buffer, recovered from the WGSL source at link time.
type uniformLayout struct {
	fields map[string]uniformField
	size   int
}

var (
	uniformVarRe  = regexp.MustCompile(`var\s*<\s*uniform\s*>\s*\w+\s*:\s*(\w+)`)
	structFieldRe = regexp.MustCompile(`^\s*(\w+)\s*:\s*([\w<>]+)\s*,?\s*$`)

	wgslTypeSizes = map[string]struct{ size, align int }{
		"f32":         {4, 4},
		"i32":         {4, 4},
		"u32":         {4, 4},
		"vec2<f32>":   {8, 8},
		"vec3<f32>":   {12, 16},
		"vec4<f32>":   {16, 16},
		"vec2<i32>":   {8, 8},
		"vec3<i32>":   {12, 16},
		"vec4<i32>":   {16, 16},
		"mat2x2<f32>": {16, 8},
		"mat3x3<f32>": {48, 16},
		"mat4x4<f32>": {64, 16},
	}
)

// introspectUniformLayout recovers the uniform struct's member offsets from
// WGSL source, applying the uniform address space's alignment rules. An
// empty layout is returned when no uniform struct is found; the program then
// keeps a default-sized buffer and uniform uploads are dropped at flush.
func introspectUniformLayout(source string) uniformLayout {
	layout := uniformLayout{fields: make(map[string]uniformField)}

	m := uniformVarRe.FindStringSubmatch(source)
	if m == nil {
		return layout
	}
	structName := m[1]

	start := strings.Index(source, "struct "+structName)
	if start < 0 {
		return layout
	}
	open := strings.Index(source[start:], "{")
	if open < 0 {
		return layout
	}
	body := source[start+open+1:]
	end := strings.Index(body, "}")
	if end < 0 {
		return layout
	}
	body = body[:end]

	offset := 0
	for _, line := range strings.Split(body, "\n") {
		fm := structFieldRe.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		name, typ := fm[1], fm[2]
		info, ok := wgslTypeSizes[typ]
		if !ok {
			continue
		}
		offset = alignUp(offset, info.align)
		layout.fields[name] = uniformField{offset: offset, size: info.size}
		offset += info.size
	}
	layout.size = alignUp(offset, 16)
	return layout
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// packUniform serializes a value with the layout WGSL expects for its type:
// mat3x3 columns are padded to 16 bytes, everything else is packed floats or
// ints.
func packUniform(v uniformValue) []byte {
	switch v.kind {
	case uniformFloat:
		return packFloats(v.f[:1])
	case uniformFloat2:
		return packFloats(v.f[:2])
	case uniformFloat3:
		return packFloats(v.f[:3])
	case uniformFloat4:
		return packFloats(v.f[:4])
	case uniformInt:
		return packInts(v.i[:1])
	case uniformInt2:
		return packInts(v.i[:2])
	case uniformInt3:
		return packInts(v.i[:3])
	case uniformMat2:
		return packFloats(v.f[:4])
	case uniformMat3:
		out := make([]byte, 48)
		for col := 0; col < 3; col++ {
			for row := 0; row < 3; row++ {
				binary.LittleEndian.PutUint32(
					out[col*16+row*4:],
					math.Float32bits(v.f[col*3+row]),
				)
			}
		}
		return out
	case uniformMat4:
		return packFloats(v.f[:16])
	}
	return nil
}

func packFloats(fs []float32) []byte {
	out := make([]byte, len(fs)*4)
	for i, f := range fs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func packInts(is []int32) []byte {
	out := make([]byte, len(is)*4)
	for i, n := range is {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(n))
	}
	return out
}

// flushUniformsLocked writes every stored uniform whose name appears in the
// introspected layout into the program's device uniform buffer. Values whose
// packed size disagrees with the declared field are clamped to the field
// size. Caller holds c.mu.
func (c *webgpuContext) flushUniformsLocked(p *wgpuProgramRec) {
	if p.uniformBuffer == nil || len(p.layout.fields) == 0 {
		return
	}
	for name, v := range p.uniforms {
		field, ok := p.layout.fields[name]
		if !ok {
			continue
		}
		data := packUniform(v)
		if len(data) > field.size {
			data = data[:field.size]
		}
		if len(data) == 0 {
			continue
		}
		c.dev.WriteBuffer(p.uniformBuffer, field.offset, data)
	}
}
