package renderer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

// MaxColorAttachments a render target may carry.
const MaxColorAttachments = 8

// Resource is any object owned by the Renderer. Once Disposed reports true
// every operation on the resource fails, except Destroy which is a no-op.
type Resource interface {
	ID() uint32
	Name() string
	Disposed() bool
}

type resource struct {
	id        uint32
	serial    uint64
	name      string
	destroyed bool
}

func (r *resource) ID() uint32     { return r.id }
func (r *resource) Name() string   { return r.name }
func (r *resource) Disposed() bool { return r.destroyed }

/** @brief A 2D texture, either free-standing or an attachment of a RenderTarget. */
type Texture struct {
	resource
	handle metadata.TextureHandle
	Width  uint32
	Height uint32
	Format metadata.TextureFormat
	Usage  metadata.TextureUsage
	target *RenderTarget
}

func (t *Texture) Handle() metadata.TextureHandle { return t.handle }

// RenderTarget returns the owning render target, or nil.
func (t *Texture) RenderTarget() *RenderTarget { return t.target }

/** @brief A GPU buffer. Storage is allocated lazily on the first upload and only ever grows. */
type Buffer struct {
	resource
	handle      metadata.BufferHandle
	usage       metadata.BufferUsage
	size        uint32
	layout      *VertexLayout
	indexFormat metadata.IndexFormat
	// Capacity is the minimum allocation made on (re)allocation. Zero means
	// allocate exactly what the upload needs.
	Capacity uint32
}

func (b *Buffer) Handle() metadata.BufferHandle     { return b.handle }
func (b *Buffer) Usage() metadata.BufferUsage       { return b.usage }
func (b *Buffer) Size() uint32                      { return b.size }
func (b *Buffer) Layout() *VertexLayout             { return b.layout }
func (b *Buffer) IndexFormat() metadata.IndexFormat { return b.indexFormat }

/** @brief A vertex and fragment program pair, compiled together. */
type Shader struct {
	resource
	vertex   metadata.ShaderHandle
	fragment metadata.ShaderHandle
	Info     ShaderInfo
}

/** @brief A set of textures rendered to together. Destroying it destroys its attachments. */
type RenderTarget struct {
	resource
	Width       uint32
	Height      uint32
	attachments []*Texture
}

// Attachments in creation order.
func (rt *RenderTarget) Attachments() []*Texture {
	return rt.attachments
}

// Formats of the attachments, in creation order.
func (rt *RenderTarget) Formats() []metadata.TextureFormat {
	formats := make([]metadata.TextureFormat, len(rt.attachments))
	for i, a := range rt.attachments {
		formats[i] = a.Format
	}
	return formats
}

func (r *Renderer) register(res *resource, kind string, owner Resource) {
	r.serial++
	res.serial = r.serial
	res.id = r.ids.Acquire(owner)
	res.name = fmt.Sprintf("%s-%s", kind, uuid.NewString())
}

func (r *Renderer) unregister(res *resource) {
	if err := r.ids.Release(res.id); err != nil {
		core.LogWarn("failed to release id of `%s`: %s", res.name, err)
	}
	res.destroyed = true
}

// CreateTexture allocates a texture. When target is not nil the texture
// becomes one of its attachments and can be rendered to.
func (r *Renderer) CreateTexture(width, height int, format metadata.TextureFormat, target *RenderTarget) (*Texture, error) {
	if width <= 0 || height <= 0 {
		err := fmt.Errorf("texture size %dx%d must be positive: %w", width, height, core.ErrInvalidArgument)
		core.LogError(err.Error())
		return nil, err
	}
	if format == metadata.TextureFormatInvalid {
		err := fmt.Errorf("texture format is invalid: %w", core.ErrInvalidArgument)
		core.LogError(err.Error())
		return nil, err
	}
	if target != nil && target.destroyed {
		err := fmt.Errorf("render target `%s` is destroyed: %w", target.name, core.ErrInvalidOperation)
		core.LogError(err.Error())
		return nil, err
	}

	usage := metadata.TextureUsageSampler | metadata.TextureUsageTransferDst
	if target != nil {
		if format.IsDepth() {
			usage |= metadata.TextureUsageDepthStencilTarget
		} else {
			usage |= metadata.TextureUsageColorTarget | metadata.TextureUsageTransferSrc
		}
	}

	handle, err := r.backend.TextureCreate(&metadata.TextureCreateInfo{
		Width:  uint32(width),
		Height: uint32(height),
		Format: format,
		Usage:  usage,
	})
	if err != nil {
		err = fmt.Errorf("failed to create %dx%d %s texture: %s: %w", width, height, format, err, core.ErrDevice)
		core.LogError(err.Error())
		return nil, err
	}

	t := &Texture{
		handle: handle,
		Width:  uint32(width),
		Height: uint32(height),
		Format: format,
		Usage:  usage,
		target: target,
	}
	r.register(&t.resource, "texture", t)
	return t, nil
}

// CreateBuffer declares a buffer. No device memory is allocated until the first upload.
func (r *Renderer) CreateBuffer(usage metadata.BufferUsage) *Buffer {
	b := &Buffer{usage: usage}
	r.register(&b.resource, "buffer", b)
	return b
}

// CreateVertexBuffer declares a vertex buffer whose elements follow layout.
func (r *Renderer) CreateVertexBuffer(layout *VertexLayout) (*Buffer, error) {
	if layout == nil || len(layout.Attributes) == 0 {
		err := fmt.Errorf("vertex buffer needs a layout with at least one attribute: %w", core.ErrInvalidArgument)
		core.LogError(err.Error())
		return nil, err
	}
	b := r.CreateBuffer(metadata.BufferUsageVertex)
	b.layout = layout
	return b, nil
}

func (r *Renderer) CreateIndexBuffer(format metadata.IndexFormat) *Buffer {
	b := r.CreateBuffer(metadata.BufferUsageIndex)
	b.indexFormat = format
	return b
}

// CreateShader compiles both stages. Nothing is leaked if either stage fails.
func (r *Renderer) CreateShader(info ShaderInfo) (*Shader, error) {
	info = info.withDefaults()
	if len(info.VertexSource) == 0 || len(info.FragmentSource) == 0 {
		err := fmt.Errorf("shader needs both vertex and fragment sources: %w", core.ErrInvalidArgument)
		core.LogError(err.Error())
		return nil, err
	}

	vertex, err := r.backend.ShaderCreate(info.stageInfo(metadata.ShaderStageVertex))
	if err != nil {
		err = fmt.Errorf("failed to create vertex shader `%s`: %s: %w", info.VertexEntryPoint, err, core.ErrDevice)
		core.LogError(err.Error())
		return nil, err
	}
	fragment, err := r.backend.ShaderCreate(info.stageInfo(metadata.ShaderStageFragment))
	if err != nil {
		r.backend.ShaderRelease(vertex)
		err = fmt.Errorf("failed to create fragment shader `%s`: %s: %w", info.FragmentEntryPoint, err, core.ErrDevice)
		core.LogError(err.Error())
		return nil, err
	}

	s := &Shader{vertex: vertex, fragment: fragment, Info: info}
	r.register(&s.resource, "shader", s)
	return s, nil
}

// CreateRenderTarget creates one attachment per format, in order. At most
// one depth format is allowed.
func (r *Renderer) CreateRenderTarget(width, height int, formats ...metadata.TextureFormat) (*RenderTarget, error) {
	if width <= 0 || height <= 0 {
		err := fmt.Errorf("render target size %dx%d must be positive: %w", width, height, core.ErrInvalidArgument)
		core.LogError(err.Error())
		return nil, err
	}
	if len(formats) == 0 {
		err := fmt.Errorf("render target needs at least one attachment: %w", core.ErrInvalidArgument)
		core.LogError(err.Error())
		return nil, err
	}
	colours, depths := 0, 0
	for _, f := range formats {
		if f.IsDepth() {
			depths++
		} else {
			colours++
		}
	}
	if depths > 1 || colours > MaxColorAttachments {
		err := fmt.Errorf("render target supports %d colour and 1 depth attachment, got %d and %d: %w", MaxColorAttachments, colours, depths, core.ErrInvalidArgument)
		core.LogError(err.Error())
		return nil, err
	}

	rt := &RenderTarget{Width: uint32(width), Height: uint32(height)}
	r.register(&rt.resource, "rendertarget", rt)
	for _, f := range formats {
		t, err := r.CreateTexture(width, height, f, rt)
		if err != nil {
			r.destroyRenderTarget(rt)
			return nil, err
		}
		rt.attachments = append(rt.attachments, t)
	}
	return rt, nil
}

// Destroy releases the device objects behind res. Destroying a destroyed
// resource does nothing. Attachments can only be destroyed through their
// render target.
func (r *Renderer) Destroy(res Resource) error {
	switch v := res.(type) {
	case *Texture:
		if v == nil || v.destroyed {
			return nil
		}
		if v.target != nil && !v.target.destroyed {
			err := fmt.Errorf("texture `%s` is owned by render target `%s`: %w", v.name, v.target.name, core.ErrInvalidOperation)
			core.LogError(err.Error())
			return err
		}
		r.destroyTexture(v)
	case *Buffer:
		if v == nil || v.destroyed {
			return nil
		}
		if v.handle != metadata.NullHandle {
			r.backend.BufferRelease(v.handle)
			v.handle = metadata.NullHandle
		}
		v.size = 0
		r.unregister(&v.resource)
	case *Shader:
		if v == nil || v.destroyed {
			return nil
		}
		r.backend.ShaderRelease(v.vertex)
		r.backend.ShaderRelease(v.fragment)
		v.vertex, v.fragment = metadata.NullHandle, metadata.NullHandle
		r.unregister(&v.resource)
	case *RenderTarget:
		if v == nil || v.destroyed {
			return nil
		}
		r.destroyRenderTarget(v)
	default:
		err := fmt.Errorf("cannot destroy resource of type %T: %w", res, core.ErrInvalidArgument)
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (r *Renderer) destroyTexture(t *Texture) {
	if t.destroyed {
		return
	}
	if t.handle != metadata.NullHandle {
		r.backend.TextureRelease(t.handle)
		t.handle = metadata.NullHandle
	}
	r.unregister(&t.resource)
}

func (r *Renderer) destroyRenderTarget(rt *RenderTarget) {
	for _, t := range rt.attachments {
		r.destroyTexture(t)
	}
	r.unregister(&rt.resource)
}

// LiveResources is the number of resources not yet destroyed.
func (r *Renderer) LiveResources() int {
	return r.ids.Live()
}

// IsTextureFormatSupported asks the backend whether format can be used with usage.
func (r *Renderer) IsTextureFormatSupported(format metadata.TextureFormat, usage metadata.TextureUsage) bool {
	return r.backend.IsTextureFormatSupported(format, usage)
}
