package models

// SitePoint is the representative point of one site's geometry in
// geodetic coordinates.
type SitePoint struct {
	SiteID int64
	Lon    float64
	Lat    float64
}

// Cluster is one occupied grid cell.
type Cluster struct {
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	Count     int     `json:"count"`
	SampleIDs []int64 `json:"sample_ids"`
}

// BoundingBox is expressed as [minLon, minLat, maxLon, maxLat].
type BoundingBox [4]float64

// ClusterResult is the grid aggregation of a project's site geometries.
type ClusterResult struct {
	ProjectID int64        `json:"project_id"`
	CellSize  float64      `json:"cell_size"`
	Clusters  []Cluster    `json:"clusters"`
	BBox      *BoundingBox `json:"bbox"`
	Total     int          `json:"total"`
}
