package report

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const (
	titleFontSize = 22
	labelFontSize = 13
)

type fontSet struct {
	title font.Face
	label font.Face
}

// loadFonts parses the TrueType file at path into title and label faces.
// An empty path selects the built-in bitmap face, which has no Cyrillic glyphs.
func loadFonts(path string) (*fontSet, error) {
	if path == "" {
		return &fontSet{title: basicfont.Face7x13, label: basicfont.Face7x13}, nil
	}

	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}

	newFace := func(size float64) font.Face {
		return truetype.NewFace(parsed, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}
	return &fontSet{title: newFace(titleFontSize), label: newFace(labelFontSize)}, nil
}
