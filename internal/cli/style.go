// Package cli implements the storyctl subcommands.
package cli

import "github.com/fatih/color"

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	heading  = color.New(color.Bold).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
	warn     = color.New(color.FgYellow).SprintFunc()
)
