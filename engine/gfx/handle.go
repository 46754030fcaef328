package gfx

// Handle is an opaque identifier naming one backend resource. A Handle is
// stable for the lifetime of the registry that issued it, and carries a
// generation so a slot reused after deletion never validates a stale handle.
// The zero Handle is never issued and is always invalid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero (never-issued) Handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

// Typed handles for each resource kind. Distinct types keep a Buffer from
// being passed where a Texture is expected; all share Handle's semantics.
type (
	// Buffer names a device buffer object.
	Buffer Handle

	// Texture names a device texture object.
	Texture Handle

	// Shader names a single shader stage record.
	Shader Handle

	// Program names a linked (or linkable) shader program.
	Program Handle

	// Framebuffer names an offscreen render target.
	Framebuffer Handle
)

// IsZero reports whether b is the zero (never-issued) handle.
func (b Buffer) IsZero() bool { return Handle(b).IsZero() }

// IsZero reports whether t is the zero (never-issued) handle.
func (t Texture) IsZero() bool { return Handle(t).IsZero() }

// IsZero reports whether s is the zero (never-issued) handle.
func (s Shader) IsZero() bool { return Handle(s).IsZero() }

// IsZero reports whether p is the zero (never-issued) handle.
func (p Program) IsZero() bool { return Handle(p).IsZero() }

// IsZero reports whether f is the zero (never-issued) handle.
func (f Framebuffer) IsZero() bool { return Handle(f).IsZero() }

// registry is a generational arena. Allocation returns a fresh Handle backed
// by a default-initialized slot; deletion frees the slot and bumps its
// generation so later lookups with the old Handle miss.
type registry[T any] struct {
	slots []regSlot[T]
	free  []uint32
}

type regSlot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// alloc inserts v and returns its handle. Generations start at 1 so the zero
// Handle can never match a slot.
func (r *registry[T]) alloc(v T) Handle {
	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		s := &r.slots[idx]
		s.live = true
		s.val = v
		return Handle{index: idx, gen: s.gen}
	}
	r.slots = append(r.slots, regSlot[T]{gen: 1, live: true, val: v})
	return Handle{index: uint32(len(r.slots) - 1), gen: 1}
}

// get returns a pointer to the value named by h, or nil if h is stale,
// deleted, or was never issued by this registry.
func (r *registry[T]) get(h Handle) *T {
	if int(h.index) >= len(r.slots) {
		return nil
	}
	s := &r.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil
	}
	return &s.val
}

// has reports whether h currently names a live value.
func (r *registry[T]) has(h Handle) bool {
	return r.get(h) != nil
}

// delete removes the value named by h, returning it and true if h was live.
// The slot's generation is bumped immediately so the old handle is dead even
// before the slot is reused.
func (r *registry[T]) delete(h Handle) (T, bool) {
	var zero T
	if r.get(h) == nil {
		return zero, false
	}
	s := &r.slots[h.index]
	v := s.val
	s.val = zero
	s.live = false
	s.gen++
	r.free = append(r.free, h.index)
	return v, true
}
