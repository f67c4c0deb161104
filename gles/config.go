// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"bytes"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// ConfigEnv names the environment variable holding the path of the
// configuration file read by Init.
const ConfigEnv = "GLOVE_CONFIG"

// Config holds the implementation limits and tuning knobs of contexts.
type Config struct {
	Limits     Limits     `toml:"limits"`
	Submission Submission `toml:"submission"`
	Pipeline   Pipelines  `toml:"pipeline"`
	Compiler   Compiler   `toml:"compiler"`
	Log        Log        `toml:"log"`
}

// Limits are the values reported by the MAX_* queries and enforced by
// the validation of the entry points.
type Limits struct {
	MaxVertexAttribs             int `toml:"max_vertex_attribs"`
	MaxVertexUniformVectors      int `toml:"max_vertex_uniform_vectors"`
	MaxFragmentUniformVectors    int `toml:"max_fragment_uniform_vectors"`
	MaxVaryingVectors            int `toml:"max_varying_vectors"`
	MaxTextureImageUnits         int `toml:"max_texture_image_units"`
	MaxCombinedTextureImageUnits int `toml:"max_combined_texture_image_units"`
	MaxTextureSize               int `toml:"max_texture_size"`
	MaxCubeMapTextureSize        int `toml:"max_cube_map_texture_size"`
	MaxRenderbufferSize          int `toml:"max_renderbuffer_size"`
	MaxViewportDims              int `toml:"max_viewport_dims"`
}

type Submission struct {
	// CommandBuffers is the size of the command buffer ring.
	CommandBuffers int `toml:"command_buffers"`
	// FenceTimeoutMS bounds fence waits; 0 waits forever.
	FenceTimeoutMS int `toml:"fence_timeout_ms"`
}

type Pipelines struct {
	// CacheEntries is the number of pipelines kept per context.
	CacheEntries int `toml:"cache_entries"`
}

type Compiler struct {
	// Glslang is the glslangValidator executable.
	Glslang string `toml:"glslang"`
}

type Log struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Limits: Limits{
			MaxVertexAttribs:             16,
			MaxVertexUniformVectors:      128,
			MaxFragmentUniformVectors:    64,
			MaxVaryingVectors:            15,
			MaxTextureImageUnits:         16,
			MaxCombinedTextureImageUnits: 16,
			MaxTextureSize:               4096,
			MaxCubeMapTextureSize:        4096,
			MaxRenderbufferSize:          4096,
			MaxViewportDims:              4096,
		},
		Submission: Submission{CommandBuffers: 2},
		Pipeline:   Pipelines{CacheEntries: 64},
		Compiler:   Compiler{Glslang: "glslangValidator"},
		Log:        Log{Level: "info"},
	}
}

// ParseConfig decodes TOML data over the defaults. Unknown keys are
// errors.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "gles: config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "gles: config")
	}
	return ParseConfig(data)
}

// Validate rejects limits and knobs no context can run with.
func (c *Config) Validate() error {
	limits := []struct {
		name string
		v    int
	}{
		{"max_vertex_attribs", c.Limits.MaxVertexAttribs},
		{"max_vertex_uniform_vectors", c.Limits.MaxVertexUniformVectors},
		{"max_fragment_uniform_vectors", c.Limits.MaxFragmentUniformVectors},
		{"max_varying_vectors", c.Limits.MaxVaryingVectors},
		{"max_texture_image_units", c.Limits.MaxTextureImageUnits},
		{"max_combined_texture_image_units", c.Limits.MaxCombinedTextureImageUnits},
		{"max_texture_size", c.Limits.MaxTextureSize},
		{"max_cube_map_texture_size", c.Limits.MaxCubeMapTextureSize},
		{"max_renderbuffer_size", c.Limits.MaxRenderbufferSize},
		{"max_viewport_dims", c.Limits.MaxViewportDims},
		{"cache_entries", c.Pipeline.CacheEntries},
	}
	for _, l := range limits {
		if l.v <= 0 {
			return errors.Errorf("gles: config: %s must be positive, got %d", l.name, l.v)
		}
	}
	if c.Limits.MaxCombinedTextureImageUnits < c.Limits.MaxTextureImageUnits {
		return errors.New("gles: config: max_combined_texture_image_units is less than max_texture_image_units")
	}
	if c.Submission.CommandBuffers < 2 {
		return errors.Errorf("gles: config: command_buffers must be at least 2, got %d", c.Submission.CommandBuffers)
	}
	if c.Submission.FenceTimeoutMS < 0 {
		return errors.Errorf("gles: config: negative fence_timeout_ms %d", c.Submission.FenceTimeoutMS)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.Errorf("gles: config: unknown log level %q", c.Log.Level)
	}
	return l, nil
}

// fenceTimeout returns the fence timeout in nanoseconds, 0 for none.
func (c *Config) fenceTimeout() uint64 {
	return uint64(time.Duration(c.Submission.FenceTimeoutMS) * time.Millisecond)
}
