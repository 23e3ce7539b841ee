package model

// NoPick is the id of the background.
const NoPick int32 = 0

// PickID is the picking id of mesh index i.
func PickID(i int) int32 {
	return int32(i + 1)
}

// PickColor packs the picking id of mesh index i into an RGB triple, low
// byte first.
func PickColor(i int) [3]uint8 {
	id := uint32(PickID(i))
	return [3]uint8{uint8(id), uint8(id >> 8), uint8(id >> 16)}
}

// DecodePick unpacks an RGB triple into a picking id.
func DecodePick(rgb [3]uint8) int32 {
	return int32(rgb[0]) | int32(rgb[1])<<8 | int32(rgb[2])<<16
}

// PickIndex converts a picking id back to a mesh index. It reports false for
// the background.
func PickIndex(id int32) (int, bool) {
	if id <= NoPick {
		return -1, false
	}
	return int(id - 1), true
}

// Picked resolves an id against the model.
func (mdl *Model) Picked(id int32) (int, bool) {
	i, ok := PickIndex(id)
	if !ok || i >= mdl.Len() {
		return -1, false
	}
	return i, true
}
