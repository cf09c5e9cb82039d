//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the testbed on the Vulkan backend.
func (Run) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run engine...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "testbed/config.toml"), withStream())
	return err
}

// Runs the testbed on the headless backend for a few frames.
func (Run) Headless() error {
	_, err := executeCmd("go", withArgs("run", ".", "-config", "testbed/headless.yaml"), withStream())
	return err
}
