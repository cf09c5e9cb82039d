package assets

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

type AssetType uint8

const (
	AssetTypeNone AssetType = iota
	AssetTypeShader
	AssetTypeImage
)

type AssetInfo struct {
	Path         string
	Type         AssetType
	LastModified time.Time
}

// AssetManager indexes the assets directory and watches it for changes.
// Changed shaders are queued by the watcher goroutine and handed out by
// PollChanges on the caller's goroutine.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	shaders shaderLoader
	images  imageLoader
	jobs    *core.JobSystem

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	started  bool
	isClosed bool
	changes  chan string
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	jobs, err := core.NewJobSystem(runtime.NumCPU(), 16)
	if err != nil {
		fsWatch.Close()
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		shaders:  &loaders.ShaderLoader{},
		images:   &loaders.ImageLoader{},
		jobs:     jobs,
		fsnotify: fsWatch,
		changes:  make(chan string, 64),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Initialize indexes and watches assetsDir. A missing directory is not an
// error: nothing is indexed and nothing reloads.
func (am *AssetManager) Initialize(assetsDir string) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root

	am.started = true
	go am.start()

	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		core.LogWarn("assets directory %s does not exist, hot reload disabled", root)
		return nil
	}
	if err := am.watchRecursive(root, false); err != nil {
		return err
	}
	core.LogInfo("Asset manager watching %s (%d assets).", root, am.Count())
	return nil
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	am.jobs.Shutdown()
	if !am.started {
		return am.fsnotify.Close()
	}
	close(am.done)
	<-am.stopped
	return nil
}

func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Lookup finds an asset by its path relative to the assets directory.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[am.abs(name)]
	return info, ok
}

// LoadShader reads a shader stage relative to the assets directory.
func (am *AssetManager) LoadShader(name string) ([]byte, error) {
	path, err := am.resolve(name, AssetTypeShader)
	if err != nil {
		return nil, err
	}
	return am.shaders.Load(path)
}

// LoadImage decodes an image relative to the assets directory into RGBA.
func (am *AssetManager) LoadImage(name string) (*image.RGBA, error) {
	if am.isClosed {
		return nil, fmt.Errorf("load of %s after shutdown: %w", name, core.ErrInvalidOperation)
	}
	path, err := am.resolve(name, AssetTypeImage)
	if err != nil {
		return nil, err
	}
	return am.images.Load(path)
}

// LoadImages decodes names in parallel on the job system. It fails with the
// first error seen, after every decode has finished.
func (am *AssetManager) LoadImages(names []string) (map[string]*image.RGBA, error) {
	if am.isClosed {
		return nil, fmt.Errorf("load of %d images after shutdown: %w", len(names), core.ErrInvalidOperation)
	}
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	out := make(map[string]*image.RGBA, len(names))
	for _, name := range names {
		name := name // per-iteration copy for the job closures (go < 1.22 loop semantics)
		path, err := am.resolve(name, AssetTypeImage)
		if err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		var img *image.RGBA
		err = am.jobs.Submit(core.Job{
			Run: func() (err error) {
				img, err = am.images.Load(path)
				return err
			},
			OnComplete: func() {
				mu.Lock()
				out[name] = img
				mu.Unlock()
				wg.Done()
			},
			OnFailure: func(err error) {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				wg.Done()
			},
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// PollChanges returns the shaders changed since the last call without
// blocking.
func (am *AssetManager) PollChanges() []string {
	var changed []string
	for {
		select {
		case p := <-am.changes:
			changed = append(changed, p)
		default:
			return changed
		}
	}
}

func (am *AssetManager) abs(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(am.root, name)
}

func (am *AssetManager) resolve(name string, want AssetType) (string, error) {
	path := am.abs(name)
	if t := determineAssetType(path); t != want {
		return "", fmt.Errorf("%s is not a %s asset: %w", name, want, core.ErrInvalidArgument)
	}
	return path, nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if am.handleFileEvent(e.Name) == AssetTypeShader {
					am.queueChange(e.Name)
				}
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// queueChange drops the change when the queue is full; the same file will be
// reported again on its next write.
func (am *AssetManager) queueChange(path string) {
	select {
	case am.changes <- path:
	default:
		core.LogWarn("asset change queue full, dropping %s", path)
	}
}

// watchRecursive adds every directory under path to the watch list and
// indexes the files it finds.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

func (am *AssetManager) handleFileEvent(path string) AssetType {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return assetType
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[filepath.Clean(path)] = AssetInfo{
		Path:         path,
		Type:         assetType,
		LastModified: time.Now(),
	}
	return assetType
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, filepath.Clean(path))
}

func determineAssetType(path string) AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vert", ".frag", ".glsl", ".spv":
		return AssetTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return AssetTypeImage
	default:
		return AssetTypeNone
	}
}

func (t AssetType) String() string {
	switch t {
	case AssetTypeShader:
		return "shader"
	case AssetTypeImage:
		return "image"
	default:
		return "unknown"
	}
}
