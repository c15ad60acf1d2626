package models

// Detection represents a single detected object in a frame.
type Detection struct {
	TrackID    int     `json:"track_id"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Center returns the centroid of the detection box.
func (d Detection) Center() (int, int) {
	return d.X + d.Width/2, d.Y + d.Height/2
}
