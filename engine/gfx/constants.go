package gfx

// Enum is a backend-neutral identifier for capabilities, formats, primitive
// topologies, buffer targets and the other symbolic values the Context call
// surface accepts. Each backend owns a lookup table from Enum to its native
// value; a backend that has no native equivalent for a given Enum handles it
// inside the call instead.
type Enum uint32

const (
	// None is the zero Enum. It is returned by GetError when no error is
	// pending and is never a valid argument otherwise.
	None Enum = iota

	// Element kinds.
	Float
	Int
	UnsignedInt
	UnsignedShort
	UnsignedByte

	// Buffer usage hints.
	StaticDraw
	DynamicDraw
	StreamDraw

	// Buffer targets.
	ArrayBuffer
	ElementArrayBuffer

	// Shader stages.
	VertexShaderStage
	FragmentShaderStage

	// Shader parameter names.
	CompileStatus

	// Texture targets, parameters and values.
	Texture2D
	TextureWrapS
	TextureWrapT
	TextureMinFilter
	TextureMagFilter
	Linear
	Nearest
	LinearMipmapLinear
	ClampToEdge
	Repeat
	MirroredRepeat

	// Pixel formats.
	RGB
	RGBA
	Alpha
	Red
	DepthComponent

	// Framebuffer attachment points.
	ColorAttachment0
	DepthAttachment
	FramebufferTarget

	// Primitive topologies.
	Triangles
	TriangleStrip
	Lines
	Points

	// Capabilities for Enable/Disable.
	DepthTest
	CullFace
	Blend
	ScissorTest
	ProgramPointSize

	// Depth functions, cull modes, winding orders.
	LEqual
	Less
	Back
	FrontAndBack
	CCW

	// Polygon modes.
	Fill
	Line
	Point

	// Blend factors.
	SrcAlpha
	OneMinusSrcAlpha
	One

	// Pixel store parameters.
	PackAlignment
	UnpackAlignment

	// Error codes reported by GetError on the immediate backend.
	InvalidEnum
	InvalidValue
	InvalidOperation
	OutOfMemory

	enumCount // must stay last: backend tables are sized by it
)

// ClearMask selects which attachments Clear resets. Masks combine with
// bitwise or.
type ClearMask uint32

const (
	// ColorBufferBit clears the color attachment to the tracked clear color.
	ColorBufferBit ClearMask = 1 << iota

	// DepthBufferBit clears the depth attachment to the far plane.
	DepthBufferBit
)

// elemSizes maps element-kind Enums to their size in bytes. Zero for Enums
// that are not element kinds.
var elemSizes = [enumCount]int{
	Float:         4,
	Int:           4,
	UnsignedInt:   4,
	UnsignedShort: 2,
	UnsignedByte:  1,
}

// ElemSize returns the byte size of one element of the given kind, or 0 if
// kind is not an element kind.
func ElemSize(kind Enum) int {
	if int(kind) >= len(elemSizes) {
		return 0
	}
	return elemSizes[kind]
}
