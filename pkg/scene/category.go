package scene

import (
	"fmt"
	"strings"
)

// Category is the semantic class of a mesh. The order matters: categories
// strictly between Tree and Misc are the ones that receive oriented bounds.
type Category int

const (
	CategoryFlat Category = iota
	CategoryWater
	CategoryTree
	CategoryBuilding
	CategoryAmenity
	CategoryLandmark
	CategoryMisc
)

var categoryNames = [...]string{
	CategoryFlat:     "flat",
	CategoryWater:    "water",
	CategoryTree:     "tree",
	CategoryBuilding: "building",
	CategoryAmenity:  "amenity",
	CategoryLandmark: "landmark",
	CategoryMisc:     "misc",
}

func (c Category) String() string {
	if c >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory resolves a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("scene: unknown category %q", s)
}

// Oriented reports whether meshes of this category get PCA-aligned bounds.
func (c Category) Oriented() bool {
	return c > CategoryTree && c < CategoryMisc
}

// Shade refines the display color of Misc meshes.
type Shade int

const (
	ShadeNone Shade = iota
	ShadeWhite
	ShadeGray
	ShadeBrightGray
	ShadeDarkGray
)

// Metadata keys read by Classify.
const (
	KeyEntityType = "entity:type"
	KeyTerrain    = "terrain"
	KeyIdentifier = "geopipe:identifier"
	KeyAmenity    = "amenity"
	KeyName       = "name"
)

// Classify assigns a category to scene-node metadata. Rules are tried in
// order and the first match wins.
func Classify(meta map[string]string) (Category, Shade) {
	if meta[KeyEntityType] == "tree" {
		return CategoryTree, ShadeNone
	}
	if terrain, ok := meta[KeyTerrain]; ok {
		switch terrain {
		case "surface":
			return CategoryMisc, ShadeBrightGray
		case "road":
			return CategoryMisc, ShadeDarkGray
		case "sidewalk":
			return CategoryMisc, ShadeGray
		case "water":
			return CategoryWater, ShadeNone
		}
	}
	if _, ok := meta[KeyIdentifier]; ok {
		return CategoryBuilding, ShadeNone
	}
	if _, ok := meta[KeyAmenity]; ok {
		return CategoryAmenity, ShadeNone
	}
	if _, ok := meta[KeyName]; ok {
		return CategoryLandmark, ShadeNone
	}
	return CategoryMisc, ShadeWhite
}
