//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/schollz/progressbar/v3"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// Compiles every GLSL stage under assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	var sources []string
	for _, pattern := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(shaderDir, pattern))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		fmt.Printf("No shaders found in %s\n", shaderDir)
		return nil
	}

	bar := progressbar.Default(int64(len(sources)), "compiling shaders")
	for _, src := range sources {
		out := src + ".spv"
		if _, err := executeCmd("glslc", withArgs(filepath.Base(src), "-o", filepath.Base(out)), withDir(shaderDir)); err != nil {
			return fmt.Errorf("%s: %w", strings.TrimPrefix(src, shaderDir+"/"), err)
		}
		if err := bar.Add(1); err != nil {
			return err
		}
	}
	return bar.Finish()
}

// Builds the testbed binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/anima-gpu", "."), withStream())
	return err
}
