// SPDX-License-Identifier: Unlicense OR MIT

//go:build cgo && !novulkan

package gles

import (
	// Register the Vulkan device constructors.
	_ "glove.dev/internal/vulkan"
)
