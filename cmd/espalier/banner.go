package main

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// printBanner outputs the startup banner for interactive sessions.
func printBanner(version string) {
	p := termenv.ColorProfile()
	lines := []string{
		`                      _ _          `,
		`  ___  ___ _ __  __ _| (_) ___ _ _ `,
		` / _ \(_-<| '_ \/ _' | | |/ -_) '_|`,
		` \___//__/| .__/\__,_|_|_|\___|_|  `,
		`          |_|                      `,
	}
	colors := []string{"#34d399", "#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa"}

	fmt.Println()
	for i, line := range lines {
		fmt.Println(termenv.String(line).Foreground(p.Color(colors[i%len(colors)])))
	}
	fmt.Printf(" %s\n\n", termenv.String("v"+strings.TrimSpace(version)).Faint())
}
