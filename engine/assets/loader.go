package assets

import "image"

// Loader reads one kind of asset from disk.
type Loader[T any] interface {
	Load(path string) (T, error)
}

type (
	shaderLoader = Loader[[]byte]
	imageLoader  = Loader[*image.RGBA]
)
