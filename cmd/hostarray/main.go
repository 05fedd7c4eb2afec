// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// hostarray inspects and converts .npy, .npz and .mat files with the host array interoperability layer.
//
// Usage:
//
//	hostarray [flags] inspect <file.npy|file.npz|file.mat>
//	hostarray [flags] convert -o out.npz <in.npz>
//	hostarray [flags] render -o out.png <labelmap.npy>
//
// inspect reports, for each array, whether the vector, matrix or tensor views can be built from it,
// and why not. convert rewrites every rank 1 to 3 array in the layout the views expect (native byte
// order, column-major matrices and tensors). render draws a (height, width, V) label map as an image.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/gomlx/hostarray/pkg/support/fsutil"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"k8s.io/klog/v2"
)

var (
	flagDType = flag.String("dtype", "", "Value type of the views to build, e.g. \"float64\" or \"intc\". "+
		"Defaults to the dtype of each array.")
	flagIndex = flag.String("index", "", "Index type of the sparse views to build, \"intc\" or \"int64\". "+
		"Defaults to the index type of each sparse matrix, and \"int64\" for dense arrays.")
	flagMemoryLimit = flag.String("memory_limit", "", "Limit of the memory allocated for arrays, e.g. \"2GiB\". "+
		"Defaults to $"+host.MemoryLimitEnv+", or no limit.")
	flagVar      = flag.String("var", "labels", "Name of the variable to read from .mat files.")
	flagOutput   = flag.String("o", "", "Output file of the convert and render commands, and of inspect with -csv.")
	flagCSV      = flag.Bool("csv", false, "Write the inspect report as CSV instead of a table.")
	flagNoColor  = flag.Bool("nocolor", false, "Disable colors and styles in the output.")
	flagMaxValue = flag.Float64("max_value", 0, "Value rendered at full intensity. "+
		"Defaults to 1 for float label maps and 255 for integer ones.")
	flagScale = flag.Int("scale", 1, "Integer factor to enlarge rendered label maps.")
)

const usage = "See 'hostarray -help'."

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: hostarray [flags] inspect|convert|render <file>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		klog.Errorf("Expected a command and a file, got %d arguments. %s", len(args), usage)
		os.Exit(1)
	}
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	rt := newRuntime()

	command, filePath := args[0], must.M1(fsutil.ExpandHome(args[1]))
	var err error
	switch command {
	case "inspect":
		err = inspect(rt, filePath)
	case "convert":
		err = convert(rt, filePath, requireOutput(command))
	case "render":
		err = render(rt, filePath, requireOutput(command))
	default:
		klog.Errorf("Unknown command %q. %s", command, usage)
		os.Exit(1)
	}
	if err != nil {
		klog.Errorf("%s %s failed: %+v", command, filePath, err)
		os.Exit(1)
	}
}

// newRuntime returns the default runtime, with the limit of -memory_limit if set.
func newRuntime() *host.Runtime {
	rt := host.DefaultRuntime()
	if *flagMemoryLimit != "" {
		rt.WithMemoryLimit(must.M1(host.ParseMemoryLimit(*flagMemoryLimit)))
	}
	return rt
}

func requireOutput(command string) string {
	if *flagOutput == "" {
		klog.Errorf("Command %s requires an output file, set with -o. %s", command, usage)
		os.Exit(1)
	}
	return must.M1(fsutil.ExpandHome(*flagOutput))
}
