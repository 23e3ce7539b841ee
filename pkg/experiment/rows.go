package experiment

import (
	"strconv"

	"github.com/chazu/cityview/pkg/kernel"
)

// PerformanceHeader and DataHeader are the CSV column names.
var (
	PerformanceHeader = []string{"building_id", "num_camera_setups", "execution_time", "memory_usage"}
	DataHeader        = []string{
		"building_id",
		"origin_x", "origin_y", "origin_z",
		"x", "y", "z", "yaw",
		"building_rate", "landmark_rate", "amenity_rate", "tree_rate", "water_rate", "sky_rate",
		"min_depth", "max_depth", "avg_depth",
	}
)

// PerformanceRow summarizes one sampling run.
type PerformanceRow struct {
	BuildingID    int32
	Setups        int
	ExecutionTime float64 // seconds
	MemoryUsage   int64   // bytes added to the index cache
}

// DataRow is the result of one camera setup. Position is relative to
// Origin, the minimum corner of the sampled mesh's bounds.
type DataRow struct {
	BuildingID int32
	Origin     kernel.Vec3
	Position   kernel.Vec3
	Yaw        float64

	BuildingRate float64
	LandmarkRate float64
	AmenityRate  float64
	TreeRate     float64
	WaterRate    float64
	SkyRate      float64

	MinDepth float64
	MaxDepth float64
	AvgDepth float64
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// Record formats the row for CSV output.
func (r PerformanceRow) Record() []string {
	return []string{
		strconv.FormatInt(int64(r.BuildingID), 10),
		strconv.Itoa(r.Setups),
		ftoa(r.ExecutionTime),
		strconv.FormatInt(r.MemoryUsage, 10),
	}
}

// Record formats the row for CSV output.
func (r DataRow) Record() []string {
	return []string{
		strconv.FormatInt(int64(r.BuildingID), 10),
		ftoa(r.Origin.X), ftoa(r.Origin.Y), ftoa(r.Origin.Z),
		ftoa(r.Position.X), ftoa(r.Position.Y), ftoa(r.Position.Z),
		ftoa(r.Yaw),
		ftoa(r.BuildingRate), ftoa(r.LandmarkRate), ftoa(r.AmenityRate),
		ftoa(r.TreeRate), ftoa(r.WaterRate), ftoa(r.SkyRate),
		ftoa(r.MinDepth), ftoa(r.MaxDepth), ftoa(r.AvgDepth),
	}
}
