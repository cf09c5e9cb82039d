//go:build mage

package main

import "github.com/magefile/mage/mg"

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the renderer tests only; they use the headless backend and build
// without cgo, so they need neither a GPU nor a display.
func (Test) Renderer() error {
	_, err := executeCmd("go",
		withArgs("test", "./engine/renderer/", "./engine/renderer/headless/", "./engine/renderer/metadata/", "./engine/config/"),
		withEnv("CGO_ENABLED=0"),
		withStream())
	return err
}
