package mesh

import (
	"fmt"
	"hash/fnv"

	"github.com/chewxy/math32"

	"github.com/chazu/cityview/pkg/scene"
)

// Color is linear RGBA in [0, 1].
type Color [4]float32

var (
	ColorRed        = Color{1, 0, 0, 1}
	ColorYellow     = Color{1, 1, 0, 1}
	ColorGreen      = Color{0, 1, 0, 1}
	ColorBlue       = Color{0, 0, 1, 1}
	ColorFuchsia    = Color{1, 0, 1, 1}
	ColorSlate      = Color{0.2, 0.3, 0.3, 1}
	ColorLavender   = Color{0.8, 0.5, 0.9, 1}
	ColorVista      = Color{0.5, 0.6, 0.9, 1}
	ColorTurquoise  = Color{0.2, 0.8, 0.8, 1}
	ColorEmerald    = Color{0.5, 0.9, 0.6, 1}
	ColorGray       = Color{0.5, 0.5, 0.5, 1}
	ColorBrightGray = Color{0.75, 0.75, 0.75, 1}
	ColorDarkGray   = Color{0.25, 0.25, 0.25, 1}
	ColorWhite      = Color{1, 1, 1, 1}
	ColorBlack      = Color{0, 0, 0, 1}
)

// buildingPalette is cycled through by BuildingColor.
var buildingPalette = []Color{
	ColorSlate, ColorLavender, ColorVista, ColorTurquoise, ColorEmerald,
	{0.9, 0.6, 0.4, 1}, {0.7, 0.7, 0.5, 1}, {0.6, 0.4, 0.7, 1},
}

// RGBA8 quantizes the color to bytes.
func (c Color) RGBA8() [4]uint8 {
	var out [4]uint8
	for i, f := range c {
		out[i] = uint8(math32.Round(math32.Min(math32.Max(f, 0), 1) * 255))
	}
	return out
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	b := c.RGBA8()
	return fmt.Sprintf("#%02x%02x%02x", b[0], b[1], b[2])
}

// BuildingColor picks a stable palette color for a building id.
func BuildingColor(id string) Color {
	h := fnv.New32a()
	h.Write([]byte(id))
	return buildingPalette[h.Sum32()%uint32(len(buildingPalette))]
}

// CategoryColor is the display color for scene meshes.
func CategoryColor(c scene.Category, shade scene.Shade) Color {
	switch c {
	case scene.CategoryFlat:
		return ColorGray
	case scene.CategoryWater:
		return ColorBlue
	case scene.CategoryTree:
		return ColorEmerald
	case scene.CategoryBuilding:
		return ColorVista
	case scene.CategoryAmenity:
		return ColorTurquoise
	case scene.CategoryLandmark:
		return ColorLavender
	}
	switch shade {
	case scene.ShadeGray:
		return ColorGray
	case scene.ShadeBrightGray:
		return ColorBrightGray
	case scene.ShadeDarkGray:
		return ColorDarkGray
	}
	return ColorWhite
}

// IdentificationColor is the flat color a category is drawn with during an
// identification pass. Categories that report false are not drawn and read
// back as sky.
func IdentificationColor(c scene.Category) (Color, bool) {
	switch c {
	case scene.CategoryBuilding:
		return ColorRed, true
	case scene.CategoryAmenity:
		return ColorYellow, true
	case scene.CategoryLandmark:
		return ColorFuchsia, true
	case scene.CategoryTree:
		return ColorGreen, true
	case scene.CategoryWater:
		return ColorBlue, true
	}
	return Color{}, false
}
