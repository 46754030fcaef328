package resource_test

import (
	"testing"

	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/gfx/gfxtest"
	"github.com/prism3d/prism/engine/resource"
)

func newVec(t *testing.T, n int) (*resource.GPUVec[float32], *gfxtest.Device) {
	t.Helper()
	dev := gfxtest.NewDevice(800, 600)
	ctx := gfx.NewExplicitContext(dev)
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i)
	}
	return resource.NewGPUVec(ctx, data, gfx.ArrayBuffer, gfx.StreamDraw), dev
}

func TestGPUVecStartsHostResident(t *testing.T) {
	v, dev := newVec(t, 4)

	if !v.IsOnHost() {
		t.Error("new vector not host resident")
	}
	if v.IsOnDevice() {
		t.Error("new vector already device resident")
	}
	if !v.Dirty() {
		t.Error("new vector not dirty")
	}
	if dev.BufferAllocs != 0 {
		t.Errorf("new vector touched the device: %d allocs", dev.BufferAllocs)
	}
	if v.Len() != 4 {
		t.Errorf("Len() = %d, want 4", v.Len())
	}
}

func TestGPUVecBindAllocatesOnce(t *testing.T) {
	v, dev := newVec(t, 8)

	v.Bind()
	if !v.IsOnDevice() {
		t.Fatal("bind did not allocate a device buffer")
	}
	if v.Dirty() {
		t.Error("vector still dirty after bind")
	}
	allocs := dev.BufferAllocs

	v.Bind()
	v.Bind()
	if dev.BufferAllocs != allocs {
		t.Errorf("clean rebinds allocated: %d allocs, want %d", dev.BufferAllocs, allocs)
	}
}

// The capacity law: shrinking or same-length updates patch the existing
// buffer; only growth past the allocated capacity reallocates.
func TestGPUVecCapacityLaw(t *testing.T) {
	tests := []struct {
		name       string
		newLen     int
		wantAllocs int // beyond the initial upload
	}{
		{"shrink patches in place", 4, 0},
		{"same length patches in place", 8, 0},
		{"growth reallocates", 16, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, dev := newVec(t, 8)
			v.Bind()
			base := dev.BufferAllocs

			v.SetData(make([]float32, tt.newLen))
			if !v.Dirty() {
				t.Fatal("SetData did not mark the vector dirty")
			}
			v.Bind()

			if got := dev.BufferAllocs - base; got != tt.wantAllocs {
				t.Errorf("allocations after update = %d, want %d", got, tt.wantAllocs)
			}
			if v.Len() != tt.newLen {
				t.Errorf("Len() = %d, want %d", v.Len(), tt.newLen)
			}
		})
	}
}

// A shrink must not give back capacity: growing again within the original
// allocation still patches.
func TestGPUVecShrinkKeepsCapacity(t *testing.T) {
	v, dev := newVec(t, 8)
	v.Bind()
	base := dev.BufferAllocs

	v.SetData(make([]float32, 2))
	v.Bind()
	v.SetData(make([]float32, 8))
	v.Bind()

	if got := dev.BufferAllocs - base; got != 0 {
		t.Errorf("regrowth within capacity allocated %d times, want 0", got)
	}
}

func TestGPUVecDataMutMarksDirty(t *testing.T) {
	v, dev := newVec(t, 4)
	v.Bind()
	writes := dev.BufferWrites

	data := v.DataMut()
	if data == nil {
		t.Fatal("DataMut returned nil for a host-resident vector")
	}
	(*data)[0] = 42
	if !v.Dirty() {
		t.Fatal("DataMut did not mark the vector dirty")
	}

	v.Bind()
	if dev.BufferWrites == writes {
		t.Error("dirty bind did not write to the device")
	}
	if v.Dirty() {
		t.Error("vector still dirty after flushing bind")
	}
}

func TestGPUVecRoundTripThroughDevice(t *testing.T) {
	v, _ := newVec(t, 6)
	want := v.ToOwned()

	v.Bind()
	v.UnloadFromHost()
	if v.IsOnHost() {
		t.Fatal("vector still host resident after UnloadFromHost")
	}
	if v.Data() != nil {
		t.Fatal("Data() non-nil after UnloadFromHost")
	}
	if v.Len() != 6 {
		t.Errorf("device-only Len() = %d, want 6", v.Len())
	}

	if err := v.LoadToHost(); err != nil {
		t.Fatalf("LoadToHost: %v", err)
	}
	got := v.ToOwned()
	if len(got) != len(want) {
		t.Fatalf("read back %d elements, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGPUVecUnloadFromHostFlushesDirtyData(t *testing.T) {
	v, _ := newVec(t, 4)
	v.Bind()

	data := v.DataMut()
	(*data)[2] = 99
	v.UnloadFromHost()

	if err := v.LoadToHost(); err != nil {
		t.Fatalf("LoadToHost: %v", err)
	}
	if got := v.Data()[2]; got != 99 {
		t.Errorf("element 2 after flush round trip = %v, want 99", got)
	}
}

func TestGPUVecUnloadFromDevice(t *testing.T) {
	v, dev := newVec(t, 4)
	v.Bind()

	v.UnloadFromDevice()
	if v.IsOnDevice() {
		t.Error("vector still device resident after UnloadFromDevice")
	}
	if dev.LiveBuffers() != 0 {
		t.Errorf("%d device buffers still live, want 0", dev.LiveBuffers())
	}
	if v.Len() != 4 {
		t.Errorf("Len() = %d, want 4", v.Len())
	}

	// A later bind re-uploads from the surviving host copy.
	v.Bind()
	if !v.IsOnDevice() {
		t.Error("rebind after unload did not allocate")
	}
}

func TestGPUVecKind(t *testing.T) {
	dev := gfxtest.NewDevice(1, 1)
	ctx := gfx.NewExplicitContext(dev)

	if got := resource.NewGPUVec(ctx, []float32{}, gfx.ArrayBuffer, gfx.StaticDraw).Kind(); got != gfx.Float {
		t.Errorf("Kind[float32] = %v, want Float", got)
	}
	if got := resource.NewGPUVec(ctx, []uint32{}, gfx.ElementArrayBuffer, gfx.StaticDraw).Kind(); got != gfx.UnsignedInt {
		t.Errorf("Kind[uint32] = %v, want UnsignedInt", got)
	}
	if got := resource.NewGPUVec(ctx, []uint16{}, gfx.ElementArrayBuffer, gfx.StaticDraw).Kind(); got != gfx.UnsignedShort {
		t.Errorf("Kind[uint16] = %v, want UnsignedShort", got)
	}
}
