package metadata

import "github.com/spaghettifunk/anima-gpu/engine/math"

type LoadOp uint8

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

func (o LoadOp) String() string {
	switch o {
	case LoadOpClear:
		return "clear"
	case LoadOpDontCare:
		return "dont_care"
	}
	return "load"
}

type StoreOp uint8

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

type ColorTargetInfo struct {
	Texture    TextureHandle
	ClearColor Colour
	LoadOp     LoadOp
	StoreOp    StoreOp
}

type DepthStencilTargetInfo struct {
	Texture        TextureHandle
	ClearDepth     float32
	LoadOp         LoadOp
	StoreOp        StoreOp
	StencilLoadOp  LoadOp
	StencilStoreOp StoreOp
	ClearStencil   uint8
}

type Viewport struct {
	X, Y, W, H         float32
	MinDepth, MaxDepth float32
}

type BufferBinding struct {
	Buffer BufferHandle
	Offset uint32
}

// TransferBufferLocation is a byte offset into a transfer buffer.
type TransferBufferLocation struct {
	TransferBuffer TransferBufferHandle
	Offset         uint32
}

type BufferRegion struct {
	Buffer BufferHandle
	Offset uint32
	Size   uint32
}

type TextureRegion struct {
	Texture TextureHandle
	X, Y    uint32
	W, H    uint32
}

type BlitRegion struct {
	Texture TextureHandle
	X, Y    uint32
	W, H    uint32
}

type BlitInfo struct {
	Source      BlitRegion
	Destination BlitRegion
	LoadOp      LoadOp
	ClearColor  Colour
	Filter      TextureFilter
	FlipX       bool
	FlipY       bool
	Cycle       bool
}

// SwapchainTexture is the image acquired for the current frame. A zero
// Handle means no image is available this frame (e.g. minimised window).
type SwapchainTexture struct {
	Handle TextureHandle
	Width  uint32
	Height uint32
}

// ScissorRect converts an integer rectangle into the form passes expect.
func ScissorRect(r math.Rect) math.Rect {
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	return r
}
