package banner

import (
	"fmt"
	"strings"
)

const logo = `
======================================================================
   ____      _ _
  / ___|__ _| | | ___ _ __
 | |   / _` + "`" + ` | | |/ _ \ '__|
 | |__| (_| | | |  __/ |
  \____\__,_|_|_|\___|_|
----------------------------------------------------------------------`

const footer = `======================================================================`

// ConfigLine represents a single configuration line to display
type ConfigLine struct {
	Label string
	Value string
}

// Print displays the startup banner with the worker name and configuration
func Print(workerName string, config []ConfigLine) {
	fmt.Println(logo)
	fmt.Printf("%s\n", workerName)

	// Find max label length for alignment
	maxLen := 0
	for _, c := range config {
		if len(c.Label) > maxLen {
			maxLen = len(c.Label)
		}
	}

	// Print config lines with alignment
	for _, c := range config {
		padding := strings.Repeat(" ", maxLen-len(c.Label))
		fmt.Printf("  %s%s : %s\n", c.Label, padding, c.Value)
	}

	fmt.Println()
	fmt.Println("Ready.")
	fmt.Println(footer)
	fmt.Println()
}
