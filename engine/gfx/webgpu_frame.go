package gfx

import "github.com/cogentcore/webgpu/wgpu"

// pendingDraw is the render-pass state staged by the draw-call resolver and
// replayed onto the open pass immediately before each draw. It is cleared
// after every draw so state from one draw never leaks into the next.
type pendingDraw struct {
	pipeline      DevicePipeline
	indexBuffer   DeviceBuffer
	indexFormat   wgpu.IndexFormat
	vertexBuffers []DeviceBuffer
	bindGroup     DeviceBindGroup
}

// wgpuFrameState is the explicit backend's per-frame bracket: the acquired
// drawable plus its encoder, and the single render pass opened lazily on the
// first draw.
type wgpuFrameState struct {
	frame   DeviceFrame
	pass    DevicePass
	pending pendingDraw
}

// BeginFrame acquires the next drawable and opens a command recorder. The
// render pass itself opens lazily on the first draw, so a frame with no draw
// calls still presents a cleared image at EndFrame.
func (c *webgpuContext) BeginFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame, err := c.dev.BeginFrame()
	if err != nil {
		return err
	}
	w, h := c.dev.Size()
	if c.depthTexture == nil || c.depthW != w || c.depthH != h {
		if c.depthTexture != nil {
			c.dev.DestroyTexture(c.depthTexture)
		}
		depth, err := c.dev.CreateDepthTexture("Depth Texture", w, h)
		if err != nil {
			frame.Submit()
			frame.Present()
			return err
		}
		c.depthTexture = depth
		c.depthW = w
		c.depthH = h
	}
	c.frame = &wgpuFrameState{frame: frame}
	return nil
}

// EndFrame closes the pass if one was opened, submits the recorded commands
// and presents the drawable.
func (c *webgpuContext) EndFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame == nil {
		return
	}
	if c.frame.pass == nil {
		// No draws this frame; open and close an empty pass so the
		// attachments are still cleared.
		c.frame.pass = c.frame.frame.BeginPass(c.clearColor, c.depthTexture)
	}
	if c.frame.pass != nil {
		c.frame.pass.End()
	}
	c.frame.frame.Submit()
	c.frame.frame.Present()
	c.frame = nil
}

// withRenderPassLocked opens the frame's render pass if this is the first
// draw, replays the pending draw state onto it, invokes fn and clears the
// pending state. Outside a frame bracket, or with no pipeline staged, the
// draw is silently dropped. Caller holds c.mu.
func (c *webgpuContext) withRenderPassLocked(fn func(DevicePass)) {
	if c.frame == nil {
		return
	}
	pending := &c.frame.pending
	if pending.pipeline == nil {
		*pending = pendingDraw{}
		return
	}
	if c.frame.pass == nil {
		c.frame.pass = c.frame.frame.BeginPass(c.clearColor, c.depthTexture)
		if c.frame.pass == nil {
			*pending = pendingDraw{}
			return
		}
		v := c.viewport
		if v[2] > 0 && v[3] > 0 {
			c.frame.pass.SetViewport(v[0], v[1], v[2], v[3])
		}
		if c.caps[ScissorTest] {
			s := c.scissor
			c.frame.pass.SetScissor(s[0], s[1], s[2], s[3])
		}
	}
	pass := c.frame.pass

	pass.SetPipeline(pending.pipeline)
	if pending.bindGroup != nil {
		pass.SetBindGroup(0, pending.bindGroup)
	}
	for slot, buf := range pending.vertexBuffers {
		pass.SetVertexBuffer(uint32(slot), buf)
	}
	if pending.indexBuffer != nil {
		pass.SetIndexBuffer(pending.indexBuffer, pending.indexFormat)
	}
	fn(pass)

	*pending = pendingDraw{}
}

// stagePendingLocked resolves the tracked bind state into concrete device
// resources: the current program's pipeline and bind group, the bound element
// buffer as the index stream and the recent array buffers as the vertex
// streams. Caller holds c.mu.
func (c *webgpuContext) stagePendingLocked(indexKind Enum) {
	if c.frame == nil {
		return
	}
	pending := &c.frame.pending
	*pending = pendingDraw{}

	if c.boundProgram.IsZero() {
		return
	}
	p := c.programs.get(Handle(c.boundProgram))
	if p == nil || (*p).pipeline == nil {
		return
	}
	c.flushUniformsLocked(*p)

	pending.pipeline = (*p).pipeline
	pending.bindGroup = (*p).bindGroup

	if !c.boundElementBuffer.IsZero() {
		if rec := c.buffers.get(Handle(c.boundElementBuffer)); rec != nil && (*rec).native != nil {
			pending.indexBuffer = (*rec).native
		}
	}
	pending.indexFormat = wgpu.IndexFormatUint32
	if indexKind == UnsignedShort {
		pending.indexFormat = wgpu.IndexFormatUint16
	}

	for _, b := range c.recentArrayBuffers {
		if rec := c.buffers.get(Handle(b)); rec != nil && (*rec).native != nil {
			pending.vertexBuffers = append(pending.vertexBuffers, (*rec).native)
		}
	}
}

func (c *webgpuContext) DrawElements(mode Enum, count int, kind Enum, offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stagePendingLocked(kind)
	c.withRenderPassLocked(func(pass DevicePass) {
		pass.DrawIndexed(uint32(count), 1)
	})
}

func (c *webgpuContext) DrawElementsInstanced(mode Enum, count int, kind Enum, offset, instanceCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stagePendingLocked(kind)
	c.withRenderPassLocked(func(pass DevicePass) {
		pass.DrawIndexed(uint32(count), uint32(instanceCount))
	})
}

func (c *webgpuContext) DrawArrays(mode Enum, first, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stagePendingLocked(UnsignedInt)
	c.withRenderPassLocked(func(pass DevicePass) {
		pass.Draw(uint32(count), 1, uint32(first))
	})
}
