// SPDX-License-Identifier: Unlicense OR MIT

package gl

import "fmt"

type glslType struct {
	name    string
	base    Enum
	rows    int
	columns int
}

var glslTypes = map[Enum]glslType{
	FLOAT:        {"float", FLOAT, 1, 1},
	FLOAT_VEC2:   {"vec2", FLOAT, 2, 1},
	FLOAT_VEC3:   {"vec3", FLOAT, 3, 1},
	FLOAT_VEC4:   {"vec4", FLOAT, 4, 1},
	INT:          {"int", INT, 1, 1},
	INT_VEC2:     {"ivec2", INT, 2, 1},
	INT_VEC3:     {"ivec3", INT, 3, 1},
	INT_VEC4:     {"ivec4", INT, 4, 1},
	BOOL:         {"bool", BOOL, 1, 1},
	BOOL_VEC2:    {"bvec2", BOOL, 2, 1},
	BOOL_VEC3:    {"bvec3", BOOL, 3, 1},
	BOOL_VEC4:    {"bvec4", BOOL, 4, 1},
	FLOAT_MAT2:   {"mat2", FLOAT, 2, 2},
	FLOAT_MAT3:   {"mat3", FLOAT, 3, 3},
	FLOAT_MAT4:   {"mat4", FLOAT, 4, 4},
	SAMPLER_2D:   {"sampler2D", SAMPLER_2D, 1, 1},
	SAMPLER_CUBE: {"samplerCube", SAMPLER_CUBE, 1, 1},
}

var glslTypeNames = func() map[string]Enum {
	m := make(map[string]Enum, len(glslTypes))
	for t, info := range glslTypes {
		m[info.name] = t
	}
	return m
}()

// IsType reports whether t names a GLSL ES 1.00 uniform or attribute type.
func IsType(t Enum) bool {
	_, ok := glslTypes[t]
	return ok
}

// TypeFromName maps a GLSL keyword such as "vec3" to its GL type enum.
func TypeFromName(name string) (Enum, bool) {
	t, ok := glslTypeNames[name]
	return t, ok
}

// TypeName returns the GLSL keyword for t.
func TypeName(t Enum) string {
	if info, ok := glslTypes[t]; ok {
		return info.name
	}
	return fmt.Sprintf("<type %#x>", uint(t))
}

// TypeBase returns FLOAT, INT or BOOL for numeric types and the sampler
// type itself for samplers.
func TypeBase(t Enum) Enum {
	return glslTypes[t].base
}

// TypeRows returns the number of components of a vector type, or the
// number of rows of a matrix column.
func TypeRows(t Enum) int {
	return glslTypes[t].rows
}

// TypeColumns is 1 for all non-matrix types.
func TypeColumns(t Enum) int {
	return glslTypes[t].columns
}

// TypeComponents returns the total number of scalar components in t.
func TypeComponents(t Enum) int {
	info := glslTypes[t]
	return info.rows * info.columns
}

// TypeSize returns the tightly packed size in bytes of one element of t,
// as seen by the glUniform* and glGetUniform* entry points. Booleans and
// sampler units occupy 4 bytes.
func TypeSize(t Enum) int {
	return TypeComponents(t) * 4
}

func IsSampler(t Enum) bool {
	return t == SAMPLER_2D || t == SAMPLER_CUBE
}

func IsMatrix(t Enum) bool {
	return glslTypes[t].columns > 1
}

// LocationSlots returns the number of consecutive vertex attribute
// locations consumed by an attribute of type t.
func LocationSlots(t Enum) int {
	if c := glslTypes[t].columns; c > 0 {
		return c
	}
	return 1
}

// UniformVectors returns the number of vec4 registers one element of t
// counts against the uniform vector limits.
func UniformVectors(t Enum) int {
	return LocationSlots(t)
}

// VectorType returns the type of a vector of n components of base.
func VectorType(base Enum, n int) (Enum, bool) {
	for t, info := range glslTypes {
		if info.base == base && info.rows == n && info.columns == 1 && !IsSampler(t) {
			return t, true
		}
	}
	return 0, false
}

var enumNames = map[Enum]string{
	NO_ERROR:                      "NO_ERROR",
	INVALID_ENUM:                  "INVALID_ENUM",
	INVALID_VALUE:                 "INVALID_VALUE",
	INVALID_OPERATION:             "INVALID_OPERATION",
	OUT_OF_MEMORY:                 "OUT_OF_MEMORY",
	INVALID_FRAMEBUFFER_OPERATION: "INVALID_FRAMEBUFFER_OPERATION",
	VERTEX_SHADER:                 "VERTEX_SHADER",
	FRAGMENT_SHADER:               "FRAGMENT_SHADER",
	ARRAY_BUFFER:                  "ARRAY_BUFFER",
	ELEMENT_ARRAY_BUFFER:          "ELEMENT_ARRAY_BUFFER",
	TEXTURE_2D:                    "TEXTURE_2D",
	TEXTURE_CUBE_MAP:              "TEXTURE_CUBE_MAP",
	FRAMEBUFFER:                   "FRAMEBUFFER",
	RENDERBUFFER:                  "RENDERBUFFER",
}

func (e Enum) String() string {
	if n, ok := enumNames[e]; ok {
		return n
	}
	return fmt.Sprintf("%#04x", uint(e))
}
