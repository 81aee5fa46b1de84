package niche

import (
	"path/filepath"

	"github.com/keagan/reelforge/pkg/util"
)

var fallbackMusic = map[Niche]string{
	Fitness: "fitness.mp3",
	Cooking: "cooking.mp3",
	Tech:    "tech.mp3",
	Travel:  "travel.mp3",
}

const defaultMusic = "default.mp3"

// FallbackMusic returns the local background track for n inside dir, or ""
// when dir is unset or the file is missing.
func FallbackMusic(dir string, n Niche) string {
	if dir == "" {
		return ""
	}
	name, ok := fallbackMusic[n]
	if !ok {
		name = defaultMusic
	}
	path := filepath.Join(dir, name)
	if !util.FileExists(path) {
		return ""
	}
	return path
}
