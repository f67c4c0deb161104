// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"os"
	"sync"

	"glove.dev/gles/internal/compiler"
)

// registry is the process-wide state shared by every context.
var registry struct {
	mu          sync.Mutex
	initialized bool
	cfg         Config
	gen         compiler.SPIRVGenerator
	current     *Context
}

// Init initializes the process-wide configuration, logger and shader
// compiler backend. A nil cfg loads the file named by the GLOVE_CONFIG
// environment variable, or the defaults when it is unset. Calls after
// the first successful one are no-ops.
func Init(cfg *Config) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.initialized {
		return nil
	}
	var c Config
	switch {
	case cfg != nil:
		c = *cfg
		if err := c.Validate(); err != nil {
			return err
		}
	case os.Getenv(ConfigEnv) != "":
		var err error
		if c, err = LoadConfig(os.Getenv(ConfigEnv)); err != nil {
			return err
		}
	default:
		c = DefaultConfig()
	}
	level, _ := c.level()
	SetLogger(newLogger(level))
	registry.cfg = c
	registry.gen = compiler.NewGlslang(c.Compiler.Glslang)
	registry.initialized = true
	Logger().Info("initialized", "config", os.Getenv(ConfigEnv))
	return nil
}

// Terminate forgets the process-wide state. It is safe to call without
// Init and more than once. Contexts must be destroyed by their owners.
func Terminate() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.initialized = false
	registry.cfg = Config{}
	registry.gen = nil
	registry.current = nil
}

// processConfig returns the configuration and compiler backend set up by
// Init, or the defaults.
func processConfig() (Config, compiler.SPIRVGenerator) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if !registry.initialized {
		return DefaultConfig(), nil
	}
	return registry.cfg, registry.gen
}

// MakeCurrent makes c the current context of the process. A nil c
// releases the current context.
func MakeCurrent(c *Context) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.current = c
}

// CurrentContext returns the context made current by MakeCurrent.
func CurrentContext() *Context {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return registry.current
}

func releaseCurrent(c *Context) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.current == c {
		registry.current = nil
	}
}
