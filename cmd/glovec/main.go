// SPDX-License-Identifier: Unlicense OR MIT

// Command glovec compiles ESSL 1.00 shaders the way a glove.dev context
// does, and shows the intermediate results: the preprocessed source, the
// linked program interface and the GLSL 4.00 and SPIR-V handed to
// Vulkan.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"glove.dev/gles"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "TOML configuration with the implementation limits",
		EnvVars: []string{gles.ConfigEnv},
	}
	verboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Log compiler activity to stderr",
	}
	typeFlag = &cli.StringFlag{
		Name:  "type",
		Usage: "Shader stage, vertex or fragment; guessed from the file extension when empty",
	}
	bindFlag = &cli.StringSliceFlag{
		Name:  "bind",
		Usage: "Attribute location binding as name=location",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Directory receiving the translated stages",
		Value: ".",
	}
	spirvFlag = &cli.BoolFlag{
		Name:  "spirv",
		Usage: "Also compile the translated stages to SPIR-V",
	}
	glslangFlag = &cli.StringFlag{
		Name:  "glslang",
		Usage: "glslangValidator executable; defaults to the configured one",
	}
)

var (
	preprocessCommand = &cli.Command{
		Name:      "preprocess",
		Usage:     "Prints a shader after preprocessing",
		ArgsUsage: "<shader>",
		Flags:     []cli.Flag{typeFlag},
		Action:    preprocess,
	}
	reflectCommand = &cli.Command{
		Name:      "reflect",
		Aliases:   []string{"link"},
		Usage:     "Links a shader pair and prints its attributes, uniforms and uniform blocks",
		ArgsUsage: "<vertex> <fragment>",
		Flags:     []cli.Flag{bindFlag},
		Action:    reflectProgram,
	}
	translateCommand = &cli.Command{
		Name:      "translate",
		Usage:     "Writes the Vulkan GLSL, and optionally SPIR-V, of a shader pair",
		ArgsUsage: "<vertex> <fragment>",
		Flags:     []cli.Flag{bindFlag, outFlag, spirvFlag, glslangFlag},
		Action:    translate,
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:      "glovec",
		Usage:     "glove.dev shader compiler",
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Flags:     []cli.Flag{configFlag, verboseFlag},
		Before:    setup,
		Commands: []*cli.Command{
			preprocessCommand,
			reflectCommand,
			translateCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx *cli.Context) error {
	if ctx.Bool(verboseFlag.Name) {
		gles.SetLogger(slog.New(slog.NewTextHandler(ctx.App.ErrWriter, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return nil
}

// loadConfig returns the configuration named by the config flag, or the
// defaults.
func loadConfig(ctx *cli.Context) (gles.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return gles.DefaultConfig(), nil
	}
	return gles.LoadConfig(path)
}

func preprocess(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("preprocess: expected one shader file")
	}
	path := ctx.Args().First()
	typ, err := shaderType(path, ctx.String(typeFlag.Name))
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := gles.PreprocessShader(typ, string(src))
	if err != nil {
		return err
	}
	_, err = io.WriteString(ctx.App.Writer, out)
	return err
}

func reflectProgram(ctx *cli.Context) error {
	tr, err := translateArgs(ctx, nil)
	if err != nil {
		return err
	}
	return printInterface(ctx.App.Writer, tr)
}

func translate(ctx *cli.Context) error {
	var gen gles.SPIRVGenerator
	if ctx.Bool(spirvFlag.Name) {
		bin := ctx.String(glslangFlag.Name)
		if bin == "" {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			bin = cfg.Compiler.Glslang
		}
		gen = gles.NewGlslang(bin)
	}
	tr, err := translateArgs(ctx, gen)
	if err != nil {
		return err
	}
	dir := ctx.String(outFlag.Name)
	base := strings.TrimSuffix(filepath.Base(ctx.Args().Get(0)), filepath.Ext(ctx.Args().Get(0)))
	files := []output{
		{".vert.glsl", []byte(tr.VertexGLSL)},
		{".frag.glsl", []byte(tr.FragmentGLSL)},
	}
	if gen != nil {
		files = append(files, output{".vert.spv", tr.VertexSPIRV}, output{".frag.spv", tr.FragmentSPIRV})
	}
	for _, f := range files {
		path := filepath.Join(dir, base+f.ext)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, path)
	}
	return nil
}

type output struct {
	ext  string
	data []byte
}

// translateArgs links the shader pair named by the command arguments.
func translateArgs(ctx *cli.Context, gen gles.SPIRVGenerator) (*gles.Translation, error) {
	if ctx.NArg() != 2 {
		return nil, errors.Errorf("%s: expected a vertex and a fragment shader", ctx.Command.Name)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	bindings, err := parseBindings(ctx.StringSlice(bindFlag.Name))
	if err != nil {
		return nil, err
	}
	var srcs [2]string
	for i := range srcs {
		data, err := os.ReadFile(ctx.Args().Get(i))
		if err != nil {
			return nil, err
		}
		srcs[i] = string(data)
	}
	return gles.TranslateProgram(srcs[0], srcs[1], gles.TranslateOptions{
		Config:    &cfg,
		Bindings:  bindings,
		Generator: gen,
	})
}

func parseBindings(args []string) (map[string]int, error) {
	if len(args) == 0 {
		return nil, nil
	}
	bindings := make(map[string]int, len(args))
	for _, a := range args {
		name, loc, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, errors.Errorf("invalid binding %q, want name=location", a)
		}
		n, err := strconv.Atoi(loc)
		if err != nil || n < 0 {
			return nil, errors.Errorf("invalid location in binding %q", a)
		}
		bindings[name] = n
	}
	return bindings, nil
}

// shaderType resolves the stage of the shader at path.
func shaderType(path, stage string) (gles.Enum, error) {
	if stage == "" {
		switch filepath.Ext(path) {
		case ".vert", ".vs", ".vsh":
			stage = "vertex"
		case ".frag", ".fs", ".fsh":
			stage = "fragment"
		}
	}
	switch stage {
	case "vertex":
		return gles.VERTEX_SHADER, nil
	case "fragment":
		return gles.FRAGMENT_SHADER, nil
	case "":
		return 0, errors.Errorf("cannot guess the stage of %s, use --type", path)
	}
	return 0, errors.Errorf("unknown shader stage %q", stage)
}

func printInterface(w io.Writer, tr *gles.Translation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTRIBUTE\tTYPE\tLOCATION")
	for _, a := range tr.Attributes {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", a.Name, a.TypeName, a.Location)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "UNIFORM\tTYPE\tSIZE\tLOCATION\tBLOCK\tOFFSET")
	for _, u := range tr.Uniforms {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", u.Name, u.TypeName, u.Size, u.Location, u.Block, u.Offset)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "BLOCK\tBINDING\tSIZE\tOPAQUE")
	for _, b := range tr.Blocks {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%v\n", b.Name, b.Binding, b.Size, b.Opaque)
	}
	return tw.Flush()
}
