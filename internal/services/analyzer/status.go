package analyzer

import "trafficwatch/internal/models"

// Congestion thresholds over the cumulative vehicle total.
const (
	lowMax    = 10
	mediumMax = 20
)

// StatusTotal sums the classes that feed the congestion score. Motorcycles
// are not part of the total.
func StatusTotal(counts map[string]int) int {
	return counts[models.ClassCar] +
		counts[models.ClassBus] +
		counts[models.ClassTruck] +
		counts[models.ClassPerson] +
		counts[models.ClassBicycle]
}

// Classify maps cumulative counts to a coarse traffic status.
func Classify(counts map[string]int) models.TrafficStatus {
	total := StatusTotal(counts)

	switch {
	case total <= lowMax:
		return models.TrafficStatus{
			Level:   models.LevelLow,
			Color:   "green",
			Message: "Smooth Traffic Flow",
			Total:   total,
		}
	case total <= mediumMax:
		return models.TrafficStatus{
			Level:   models.LevelMedium,
			Color:   "orange",
			Message: "Moderate Traffic Volume",
			Total:   total,
		}
	default:
		return models.TrafficStatus{
			Level:   models.LevelHigh,
			Color:   "red",
			Message: "Heavy Traffic Volume",
			Total:   total,
		}
	}
}
