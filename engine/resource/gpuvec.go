package resource

import "github.com/prism3d/prism/engine/gfx"

// GPUVec is a vector of scalars that can live in host memory, device memory
// or both. Host edits mark it dirty; the next Bind or LoadToDevice reconciles
// the device copy, patching the existing buffer in place when the new length
// fits the allocated capacity and reallocating only when it has grown past
// it. That policy is what makes per-frame streamed geometry cheap.
type GPUVec[T Scalar] struct {
	ctx    gfx.Context
	target gfx.Enum
	usage  gfx.Enum

	dirty bool
	buf   gfx.Buffer
	cap   int // device capacity, in elements
	len   int // logical length when host data is absent

	data   []T
	onHost bool
}

// NewGPUVec returns a host-resident vector. Nothing touches the device until
// the first Bind or LoadToDevice.
func NewGPUVec[T Scalar](ctx gfx.Context, data []T, target, usage gfx.Enum) *GPUVec[T] {
	return &GPUVec[T]{
		ctx:    ctx,
		target: target,
		usage:  usage,
		dirty:  true,
		data:   data,
		onHost: true,
	}
}

// Len returns the logical element count: the host length while host data is
// authoritative, the device length otherwise.
func (v *GPUVec[T]) Len() int {
	if v.dirty || v.onHost {
		return len(v.data)
	}
	return v.len
}

// Data returns the host buffer for reading, or nil if the host copy was
// dropped.
func (v *GPUVec[T]) Data() []T {
	if !v.onHost {
		return nil
	}
	return v.data
}

// DataMut marks the vector dirty and returns the host buffer for in-place
// edits. Returns nil if the host copy was dropped.
func (v *GPUVec[T]) DataMut() *[]T {
	if !v.onHost {
		return nil
	}
	v.dirty = true
	return &v.data
}

// SetData replaces the host contents and marks the vector dirty. A no-op if
// the host copy was dropped.
func (v *GPUVec[T]) SetData(data []T) {
	if !v.onHost {
		return
	}
	v.data = data
	v.dirty = true
}

// IsOnDevice reports whether a device buffer is currently allocated.
func (v *GPUVec[T]) IsOnDevice() bool { return !v.buf.IsZero() }

// IsOnHost reports whether host storage is present.
func (v *GPUVec[T]) IsOnHost() bool { return v.onHost }

// Dirty reports whether the host and device copies are out of sync.
func (v *GPUVec[T]) Dirty() bool { return v.dirty }

// Kind returns the element kind of the vector's scalars.
func (v *GPUVec[T]) Kind() gfx.Enum { return Kind[T]() }

// LoadToDevice reconciles the device copy with the host copy. On first use it
// allocates a device buffer sized to the host length; on later dirty loads it
// patches in place while the host length fits the allocated capacity and
// reallocates otherwise.
func (v *GPUVec[T]) LoadToDevice() {
	if !v.IsOnDevice() {
		if !v.onHost {
			return
		}
		v.buf = v.ctx.CreateBuffer()
		v.ctx.BindBuffer(v.target, v.buf)
		v.ctx.BufferData(v.target, byteView(v.data), v.usage)
		v.cap = len(v.data)
		v.len = len(v.data)
	} else if v.dirty && v.onHost {
		v.ctx.BindBuffer(v.target, v.buf)
		if len(v.data) <= v.cap {
			v.ctx.BufferSubData(v.target, 0, byteView(v.data))
		} else {
			v.ctx.BufferData(v.target, byteView(v.data), v.usage)
			v.cap = len(v.data)
		}
		v.len = len(v.data)
	}
	v.dirty = false
}

// Bind reconciles the device copy and binds it to the vector's target. It
// does not associate the buffer with any shader attribute.
func (v *GPUVec[T]) Bind() {
	v.LoadToDevice()
	v.ctx.BindBuffer(v.target, v.buf)
}

// Unbind clears the vector's target binding.
func (v *GPUVec[T]) Unbind() {
	if v.IsOnDevice() {
		v.ctx.BindBuffer(v.target, gfx.Buffer{})
	}
}

// LoadToHost reads the device copy back into fresh host storage. A no-op if
// host storage is already present or there is no device copy.
func (v *GPUVec[T]) LoadToHost() error {
	if v.onHost || !v.IsOnDevice() {
		return nil
	}
	out := make([]T, v.len)
	v.ctx.BindBuffer(v.target, v.buf)
	if err := v.ctx.DownloadBuffer(v.target, byteView(out)); err != nil {
		return err
	}
	v.data = out
	v.onHost = true
	v.dirty = false
	return nil
}

// UnloadFromDevice releases the device buffer. The logical length is captured
// first so Len stays meaningful for a later reload.
func (v *GPUVec[T]) UnloadFromDevice() {
	if !v.IsOnDevice() {
		return
	}
	v.len = v.Len()
	v.ctx.DeleteBuffer(v.buf)
	v.buf = gfx.Buffer{}
	v.cap = 0
	v.dirty = false
}

// UnloadFromHost drops host storage to save memory for device-only geometry,
// flushing pending edits to the device first.
func (v *GPUVec[T]) UnloadFromHost() {
	if v.dirty && v.IsOnDevice() {
		v.LoadToDevice()
	}
	v.data = nil
	v.onHost = false
}

// ToOwned returns a copy of the host contents, or nil if the host copy was
// dropped.
func (v *GPUVec[T]) ToOwned() []T {
	if !v.onHost {
		return nil
	}
	out := make([]T, len(v.data))
	copy(out, v.data)
	return out
}
