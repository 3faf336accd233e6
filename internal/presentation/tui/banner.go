package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner for Cadenza.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Subtle gradient-like color scheme (Indigo/Violet)
	s1 := termenv.String("   ___          _                       ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("  / __|__ _  __| |___ _ _  ______ _     ").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String(" | (__/ _` |/ _` / -_) ' \\|_ / _` |    ").Foreground(p.Color("#c084fc"))
	s4 := termenv.String("  \\___\\__,_|\\__,_\\___|_||_/__\\__,_|").Foreground(p.Color("#e879f9"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println()
}
