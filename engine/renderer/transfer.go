package renderer

import (
	"fmt"
	"math"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

// StagingBufferSize is the capacity of the persistent upload and download
// transfer buffers. Larger transfers go through one-shot buffers.
const StagingBufferSize = 1 << 20

type transferManager struct {
	upload   metadata.TransferBufferHandle
	download metadata.TransferBufferHandle
}

func newTransferManager(backend metadata.RendererBackend) (*transferManager, error) {
	upload, err := backend.TransferBufferCreate(&metadata.TransferBufferCreateInfo{
		Size:  StagingBufferSize,
		Usage: metadata.TransferBufferUsageUpload,
	})
	if err != nil {
		err = fmt.Errorf("failed to create the upload staging buffer: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return nil, err
	}
	download, err := backend.TransferBufferCreate(&metadata.TransferBufferCreateInfo{
		Size:  StagingBufferSize,
		Usage: metadata.TransferBufferUsageDownload,
	})
	if err != nil {
		backend.TransferBufferRelease(upload)
		err = fmt.Errorf("failed to create the download staging buffer: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return nil, err
	}
	return &transferManager{upload: upload, download: download}, nil
}

func (tm *transferManager) release(backend metadata.RendererBackend) {
	if tm.upload != metadata.NullHandle {
		backend.TransferBufferRelease(tm.upload)
		tm.upload = metadata.NullHandle
	}
	if tm.download != metadata.NullHandle {
		backend.TransferBufferRelease(tm.download)
		tm.download = metadata.NullHandle
	}
}

// stage copies data into a transfer buffer. Payloads whose end offset fits in
// the persistent buffer reuse it with cycling, anything larger gets a one-shot
// buffer the caller must release once the copy is recorded.
func (r *Renderer) stage(data []byte, end uint32) (tb metadata.TransferBufferHandle, cycle bool, oneShot bool, err error) {
	tb, cycle = r.staging.upload, true
	if end > StagingBufferSize {
		tb, err = r.backend.TransferBufferCreate(&metadata.TransferBufferCreateInfo{
			Size:  end,
			Usage: metadata.TransferBufferUsageUpload,
		})
		if err != nil {
			err = fmt.Errorf("failed to create a %d byte staging buffer: %s: %w", end, err, core.ErrDevice)
			core.LogError(err.Error())
			return metadata.NullHandle, false, false, err
		}
		cycle, oneShot = false, true
	}

	mem, err := r.backend.TransferBufferMap(tb, cycle)
	if err != nil {
		if oneShot {
			r.backend.TransferBufferRelease(tb)
		}
		err = fmt.Errorf("failed to map the staging buffer: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return metadata.NullHandle, false, false, err
	}
	copy(mem, data)
	r.backend.TransferBufferUnmap(tb)
	return tb, cycle, oneShot, nil
}

// UploadBufferData writes data into buf at offset. The buffer is
// (re)allocated when it is too small; previous contents are kept. The copy is
// recorded on the upload command buffer and is complete after the next Flush.
func (r *Renderer) UploadBufferData(buf *Buffer, data []byte, offset int) error {
	if err := r.ensureInitialized("UploadBufferData"); err != nil {
		return err
	}
	if buf == nil || buf.destroyed {
		err := fmt.Errorf("upload into a destroyed or missing buffer: %w", core.ErrInvalidOperation)
		core.LogError(err.Error())
		return err
	}
	if offset < 0 {
		err := fmt.Errorf("upload offset %d is negative: %w", offset, core.ErrInvalidArgument)
		core.LogError(err.Error())
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if uint64(offset)+uint64(len(data)) > math.MaxUint32 {
		err := fmt.Errorf("upload of %d bytes at offset %d exceeds the 4 GiB buffer limit: %w", len(data), offset, core.ErrInvalidArgument)
		core.LogError(err.Error())
		return err
	}
	end := uint32(offset + len(data))

	cp, err := r.uploadCmd.BeginCopyPass()
	if err != nil {
		err = fmt.Errorf("failed to begin copy pass: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	defer cp.End()

	if buf.handle == metadata.NullHandle || buf.size < end {
		if err := r.reallocate(cp, buf, end); err != nil {
			return err
		}
	}

	tb, cycle, oneShot, err := r.stage(data, end)
	if err != nil {
		return err
	}
	cp.UploadToBuffer(
		metadata.TransferBufferLocation{TransferBuffer: tb},
		metadata.BufferRegion{Buffer: buf.handle, Offset: uint32(offset), Size: uint32(len(data))},
		cycle,
	)
	if oneShot {
		r.backend.TransferBufferRelease(tb)
	}
	return nil
}

// reallocate grows buf to hold at least end bytes and records a copy of the
// old contents into the new storage.
func (r *Renderer) reallocate(cp metadata.CopyPass, buf *Buffer, end uint32) error {
	size := end
	if buf.Capacity > size {
		size = buf.Capacity
	}
	handle, err := r.backend.BufferCreate(&metadata.BufferCreateInfo{Size: size, Usage: buf.usage})
	if err != nil {
		err = fmt.Errorf("failed to allocate %d bytes for %s buffer `%s`: %s: %w", size, buf.usage, buf.name, err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	if buf.handle != metadata.NullHandle {
		if buf.size > 0 {
			cp.CopyBufferToBuffer(
				metadata.BufferRegion{Buffer: buf.handle, Size: buf.size},
				metadata.BufferRegion{Buffer: handle, Size: buf.size},
			)
		}
		r.backend.BufferRelease(buf.handle)
	}
	core.LogDebug("buffer `%s` resized %d -> %d bytes", buf.name, buf.size, size)
	buf.handle, buf.size = handle, size
	return nil
}

// UploadTextureData replaces the whole contents of tex. pixels must hold
// exactly width*height texels of the texture format.
func (r *Renderer) UploadTextureData(tex *Texture, pixels []byte) error {
	if err := r.ensureInitialized("UploadTextureData"); err != nil {
		return err
	}
	if tex == nil || tex.destroyed || tex.handle == metadata.NullHandle {
		err := fmt.Errorf("upload into a destroyed or missing texture: %w", core.ErrInvalidOperation)
		core.LogError(err.Error())
		return err
	}
	want := int(tex.Width) * int(tex.Height) * tex.Format.BytesPerPixel()
	if len(pixels) != want {
		err := fmt.Errorf("texture `%s` needs %d bytes, got %d: %w", tex.name, want, len(pixels), core.ErrInvalidArgument)
		core.LogError(err.Error())
		return err
	}

	tb, cycle, oneShot, err := r.stage(pixels, uint32(len(pixels)))
	if err != nil {
		return err
	}
	cp, err := r.uploadCmd.BeginCopyPass()
	if err != nil {
		if oneShot {
			r.backend.TransferBufferRelease(tb)
		}
		err = fmt.Errorf("failed to begin copy pass: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	cp.UploadToTexture(
		metadata.TransferBufferLocation{TransferBuffer: tb},
		metadata.TextureRegion{Texture: tex.handle, W: tex.Width, H: tex.Height},
		cycle,
	)
	cp.End()
	if oneShot {
		r.backend.TransferBufferRelease(tb)
	}
	return nil
}

// DownloadBufferData reads size bytes at offset back from buf. It flushes
// pending work and blocks until the data is on the host.
func (r *Renderer) DownloadBufferData(buf *Buffer, offset, size int) ([]byte, error) {
	if err := r.ensureInitialized("DownloadBufferData"); err != nil {
		return nil, err
	}
	if buf == nil || buf.destroyed || buf.handle == metadata.NullHandle {
		err := fmt.Errorf("download from a destroyed or unallocated buffer: %w", core.ErrInvalidOperation)
		core.LogError(err.Error())
		return nil, err
	}
	if offset < 0 || size < 0 || uint32(offset+size) > buf.size {
		err := fmt.Errorf("download range [%d, %d) outside buffer of %d bytes: %w", offset, offset+size, buf.size, core.ErrInvalidArgument)
		core.LogError(err.Error())
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}

	tb := r.staging.download
	if size > StagingBufferSize {
		var err error
		tb, err = r.backend.TransferBufferCreate(&metadata.TransferBufferCreateInfo{
			Size:  uint32(size),
			Usage: metadata.TransferBufferUsageDownload,
		})
		if err != nil {
			err = fmt.Errorf("failed to create a %d byte download buffer: %s: %w", size, err, core.ErrDevice)
			core.LogError(err.Error())
			return nil, err
		}
		defer r.backend.TransferBufferRelease(tb)
	}

	cp, err := r.uploadCmd.BeginCopyPass()
	if err != nil {
		err = fmt.Errorf("failed to begin copy pass: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return nil, err
	}
	cp.DownloadFromBuffer(
		metadata.BufferRegion{Buffer: buf.handle, Offset: uint32(offset), Size: uint32(size)},
		metadata.TransferBufferLocation{TransferBuffer: tb},
	)
	cp.End()

	if err := r.Flush(); err != nil {
		return nil, err
	}

	mem, err := r.backend.TransferBufferMap(tb, false)
	if err != nil {
		err = fmt.Errorf("failed to map the download buffer: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return nil, err
	}
	out := make([]byte, size)
	copy(out, mem[:size])
	r.backend.TransferBufferUnmap(tb)
	return out, nil
}
