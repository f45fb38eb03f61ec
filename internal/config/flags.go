package config

import (
	"flag"
	"io"
	"path/filepath"
	"strings"
)

// ErrHelp is returned by ParseArgs when --help or -h was given.
var ErrHelp = flag.ErrHelp

// Options are the parsed command-line options.
type Options struct {
	Help       bool
	API        string
	APIGiven   bool   // set when --api/-a appeared, even with an empty value
	IBL        string // empty when not given
	Ubershader bool
	ConfigFile string
	Debug      bool

	// Args are the positional arguments left after the options.
	Args []string
}

// ScenePath returns the first positional argument, or "" when none was given.
func (o Options) ScenePath() string {
	if len(o.Args) == 0 {
		return ""
	}
	return o.Args[0]
}

const usageTemplate = `PROGRAM renders the specified glTF file, or a built-in file if none is specified
Usage:
    PROGRAM [options] <gltf file>
Options:
   --help, -h
       Prints this message

   --api, -a
       Specify the backend API: opengl (default), vulkan, or metal

   --ibl=<path to cmgen IBL>, -i <path>
       Override the built-in IBL

   --ubershader, -u
       Enable ubershaders (improves load time, adds shader complexity)

   --config=<path>
       Read settings from the given YAML file

   --debug
       Enable debug logging

`

// Usage writes the usage text with PROGRAM replaced by the executable's base name.
func Usage(w io.Writer, program string) {
	name := filepath.Base(program)
	_, _ = io.WriteString(w, strings.ReplaceAll(usageTemplate, "PROGRAM", name))
}

// ParseArgs parses args (without the program name). Parse failures such as
// an unknown option or a missing argument are returned as errors; flag's own
// diagnostic is written to errOut.
func ParseArgs(args []string, errOut io.Writer) (Options, error) {
	var o Options

	fs := flag.NewFlagSet("gltfview", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {}

	fs.BoolVar(&o.Help, "help", false, "print usage")
	fs.BoolVar(&o.Help, "h", false, "print usage")
	fs.StringVar(&o.API, "api", "", "backend API: opengl, vulkan or metal")
	fs.StringVar(&o.API, "a", "", "backend API: opengl, vulkan or metal")
	fs.StringVar(&o.IBL, "ibl", "", "path to cmgen IBL directory")
	fs.StringVar(&o.IBL, "i", "", "path to cmgen IBL directory")
	fs.BoolVar(&o.Ubershader, "ubershader", false, "enable ubershaders")
	fs.BoolVar(&o.Ubershader, "u", false, "enable ubershaders")
	fs.StringVar(&o.ConfigFile, "config", "", "path to settings file")
	fs.BoolVar(&o.Debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.Help {
		return o, ErrHelp
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "api" || f.Name == "a" {
			o.APIGiven = true
		}
	})
	o.Args = fs.Args()
	return o, nil
}
