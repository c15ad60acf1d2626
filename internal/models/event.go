package models

// Vehicle and pedestrian classes the analyzer detects and counts.
// This set is closed - counts always carry exactly these keys.
const (
	ClassPerson     = "Person"
	ClassBicycle    = "Bicycle"
	ClassCar        = "Car"
	ClassMotorcycle = "Motorcycle"
	ClassBus        = "Bus"
	ClassTruck      = "Truck"
)

// TargetClasses lists every countable class in a stable order.
var TargetClasses = []string{
	ClassCar,
	ClassBus,
	ClassTruck,
	ClassMotorcycle,
	ClassBicycle,
	ClassPerson,
}

// Traffic severity levels.
const (
	LevelLow    = "LOW"
	LevelMedium = "MEDIUM"
	LevelHigh   = "HIGH"
)

// TrafficStatus is the coarse congestion classification broadcast with each frame.
type TrafficStatus struct {
	Level   string `json:"level"`
	Color   string `json:"color,omitempty"`
	Message string `json:"message"`
	Total   int    `json:"total"`
}

// VideoEvent is the payload of every "video_data" message sent to viewers.
// Image is a base64-encoded JPEG. Status may be absent when nothing changed.
type VideoEvent struct {
	Image  string         `json:"image"`
	Counts map[string]int `json:"counts"`
	Status *TrafficStatus `json:"status,omitempty"`
}

// NewBaselineCounts returns an all-zero count map over the closed class set.
func NewBaselineCounts() map[string]int {
	counts := make(map[string]int, len(TargetClasses))
	for _, class := range TargetClasses {
		counts[class] = 0
	}
	return counts
}
