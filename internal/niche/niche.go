// Package niche holds the closed set of content-category presets that drive
// the reel's colour grade and caption.
package niche

import (
	"fmt"
	"strings"
)

// Niche selects a style preset. The zero value is Default.
type Niche int

const (
	Default Niche = iota
	Fitness
	Cooking
	Tech
	Travel
	Business
)

// All lists the named niches in display order.
var All = []Niche{Fitness, Cooking, Tech, Travel, Business}

var names = map[Niche]string{
	Default:  "Default",
	Fitness:  "Fitness",
	Cooking:  "Cooking",
	Tech:     "Tech",
	Travel:   "Travel",
	Business: "Business",
}

// Grade holds eq filter parameters. Neutral values are 1, 1 and 0.
type Grade struct {
	Saturation float64
	Contrast   float64
	Brightness float64
}

// Preset pairs a colour grade with the burned-in caption text.
type Preset struct {
	Grade   Grade
	Caption string
}

var presets = map[Niche]Preset{
	Fitness:  {Grade{Saturation: 1.5, Contrast: 1.2}, "GO HARD! 🔥"},
	Cooking:  {Grade{Saturation: 1.2, Contrast: 1.1, Brightness: 0.05}, "YUMMY RECIPE! 🍳"},
	Tech:     {Grade{Saturation: 1.1, Contrast: 1.3}, "TECH HACK! 💻"},
	Travel:   {Grade{Saturation: 1.4, Contrast: 1}, "WANDERLUST! ✈️"},
	Business: {Grade{Saturation: 1, Contrast: 1.2}, "GROWTH TIP! 📈"},
	// unknown niches render with the Tech look
	Default: {Grade{Saturation: 1.1, Contrast: 1.3}, "TECH HACK! 💻"},
}

// Parse maps a free-text niche name to a Niche. Matching ignores case and
// surrounding space; anything unrecognised is Default.
func Parse(s string) Niche {
	s = strings.TrimSpace(s)
	for n, name := range names {
		if n != Default && strings.EqualFold(name, s) {
			return n
		}
	}
	return Default
}

// String returns the display name
func (n Niche) String() string {
	if name, ok := names[n]; ok {
		return name
	}
	return fmt.Sprintf("Niche(%d)", int(n))
}

// Preset returns the style preset, falling back to the Default entry.
func (n Niche) Preset() Preset {
	if p, ok := presets[n]; ok {
		return p
	}
	return presets[Default]
}

// MarshalText implements encoding.TextMarshaler
func (n Niche) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with Parse semantics
func (n *Niche) UnmarshalText(text []byte) error {
	*n = Parse(string(text))
	return nil
}
