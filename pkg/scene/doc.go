// Package scene defines the parsed intermediate records that source loaders
// produce and the mesh builder consumes: footprint polygons, pre-triangulated
// scene nodes and the semantic categories assigned to them.
package scene
