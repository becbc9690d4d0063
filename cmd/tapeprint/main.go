// Command tapeprint reads one or more tape files and renders them as
// human-readable lines on stdout. It is a thin wrapper around the
// codec/stringcache/printer/replay libraries — no flag package, just the
// same bare argument loop as the original CLI: "--color"/"-c" and
// "--no-color" toggle coloring, every other argument is a path to print.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/andrepuel/tapelog/codec"
	"github.com/andrepuel/tapelog/printer"
	"github.com/andrepuel/tapelog/replay"
	"github.com/andrepuel/tapelog/stringcache"
)

func main() {
	color := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	for _, arg := range os.Args[1:] {
		switch arg {
		case "--color", "-c":
			color = true
		case "--no-color":
			color = false
		default:
			if err := printLog(arg, color); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", arg, err)
			}
		}
	}
}

func printLog(path string, color bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	p := stringcache.NewUncache(printer.New(os.Stdout, color))
	load := codec.NewLoad(f)
	return replay.Run(load, p)
}
