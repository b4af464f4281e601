package main

import (
	"io"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// isTTY returns true if the given file descriptor is a terminal.
func isTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// colorize forces c on or off regardless of where output goes.
func colorize(useColor bool, c *color.Color) *color.Color {
	if useColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// printBanner prints the ASCII art banner. When useColor is true, lines
// fade from cyan to blue.
func printBanner(w io.Writer, useColor bool) {
	lines := []string{
		`                                                      `,
		`    ____  ____ ______________  ______  ____ _____     `,
		`   / __ \/ __ '/ ___/ ___/ _ \/ __ '__ \/ __ '/ _ \   `,
		`  / /_/ / /_/ (__  ) /__/  __/ / / / / / /_/ /  __/   `,
		` / .___/\__, /____/\___/\___/_/ /_/ /_/\__,_/\___/    `,
		`/_/    /____/          context server                 `,
		`                                                      `,
	}

	colors := []*color.Color{
		color.New(color.Bold, color.FgCyan),
		color.New(color.Bold, color.FgCyan),
		color.New(color.Bold, color.FgHiCyan),
		color.New(color.Bold, color.FgBlue),
		color.New(color.Bold, color.FgBlue),
		color.New(color.Bold, color.FgHiBlue),
		color.New(color.Reset),
	}
	for i, line := range lines {
		_, _ = colorize(useColor, colors[i%len(colors)]).Fprintln(w, line)
	}
}
