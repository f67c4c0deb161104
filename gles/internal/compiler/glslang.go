// SPDX-License-Identifier: Unlicense OR MIT

package compiler

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"glove.dev/internal/driver"
)

// Glslang runs the glslangValidator reference compiler.
type Glslang struct {
	Bin string
	// WorkDir holds temporary output files; empty means os.TempDir.
	WorkDir string
}

func NewGlslang(bin string) *Glslang {
	if bin == "" {
		bin = "glslangValidator"
	}
	return &Glslang{Bin: bin}
}

// Generate compiles Vulkan GLSL to SPIR-V.
func (g *Glslang) Generate(stage driver.ShaderStage, glsl string) ([]byte, error) {
	dir, err := os.MkdirTemp(g.WorkDir, "glove-glslang")
	if err != nil {
		return nil, errors.Wrap(err, "glslang: work dir")
	}
	defer os.RemoveAll(dir)
	pathout := filepath.Join(dir, stageExt(stage)+".spv")

	cmd := exec.Command(g.Bin,
		"--stdin",
		"-V", // Vulkan semantics.
		"-S", stageExt(stage),
		"-o", pathout,
	)
	cmd.Stdin = strings.NewReader(glsl)
	if out, err := g.run(cmd); err != nil {
		return nil, errors.Wrapf(err, "%s\nglslang: failed to run %v", out, cmd.Args)
	}
	spirv, err := os.ReadFile(pathout)
	if err != nil {
		return nil, errors.Wrapf(err, "glslang: unable to read output %q", pathout)
	}
	return spirv, nil
}

// Validate checks ESSL 1.00 source. The error text is the validator's
// log.
func (g *Glslang) Validate(stage driver.ShaderStage, essl string) error {
	cmd := exec.Command(g.Bin, "--stdin", "-S", stageExt(stage))
	if !strings.Contains(essl, "#version") {
		essl = "#version 100\n" + essl
	}
	cmd.Stdin = strings.NewReader(essl)
	out, err := g.run(cmd)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	log := strings.TrimSpace(stripStdinBanner(out))
	if log == "" {
		log = err.Error()
	}
	return errors.New(log)
}

func (g *Glslang) run(cmd *exec.Cmd) ([]byte, error) {
	out, err := cmd.Output()
	if err != nil {
		var eerr *exec.Error
		if errors.As(err, &eerr) {
			return out, errors.Wrap(ErrUnavailable, eerr.Error())
		}
		return out, err
	}
	return out, nil
}

// stripStdinBanner drops the "stdin" file name line glslang prints
// before its diagnostics.
func stripStdinBanner(out []byte) string {
	lines := bytes.Split(out, []byte("\n"))
	var keep []string
	for _, l := range lines {
		s := string(bytes.TrimSpace(l))
		if s == "stdin" || strings.HasPrefix(s, "stdin.") {
			continue
		}
		keep = append(keep, string(l))
	}
	return strings.Join(keep, "\n")
}
