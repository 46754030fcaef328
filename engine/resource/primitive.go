// Package resource provides the typed GPU data containers the engine's
// meshes, materials and renderers are built from. The central type is GPUVec,
// a vector whose contents may live in host memory, device memory or both,
// and which reconciles the two on demand.
package resource

import (
	"unsafe"

	"github.com/prism3d/prism/engine/gfx"
)

// Scalar constrains the element types a GPU vector can store.
type Scalar interface {
	float32 | int32 | uint32 | uint16 | uint8
}

// Kind returns the gfx element kind of T.
func Kind[T Scalar]() gfx.Enum {
	var v T
	switch any(v).(type) {
	case float32:
		return gfx.Float
	case int32:
		return gfx.Int
	case uint32:
		return gfx.UnsignedInt
	case uint16:
		return gfx.UnsignedShort
	case uint8:
		return gfx.UnsignedByte
	}
	return gfx.None
}

// byteView reinterprets a scalar slice as its raw bytes without copying.
func byteView[T Scalar](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var v T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(unsafe.Sizeof(v)))
}

// Upload creates a device buffer, binds it to target and fills it with data.
func Upload[T Scalar](ctx gfx.Context, target gfx.Enum, data []T, usage gfx.Enum) gfx.Buffer {
	buf := ctx.CreateBuffer()
	ctx.BindBuffer(target, buf)
	ctx.BufferData(target, byteView(data), usage)
	return buf
}

// Download reads the device buffer back into out, blocking until the copy
// completes.
func Download[T Scalar](ctx gfx.Context, target gfx.Enum, buf gfx.Buffer, out []T) error {
	ctx.BindBuffer(target, buf)
	return ctx.DownloadBuffer(target, byteView(out))
}
