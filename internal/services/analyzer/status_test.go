package analyzer

import (
	"testing"

	"trafficwatch/internal/models"
)

func TestClassify_Thresholds(t *testing.T) {
	tests := []struct {
		name    string
		counts  map[string]int
		level   string
		total   int
		message string
	}{
		{
			name:    "empty road",
			counts:  models.NewBaselineCounts(),
			level:   models.LevelLow,
			total:   0,
			message: "Smooth Traffic Flow",
		},
		{
			name:   "boundary low",
			counts: map[string]int{models.ClassCar: 10},
			level:  models.LevelLow,
			total:  10,
		},
		{
			name:   "just above low",
			counts: map[string]int{models.ClassCar: 8, models.ClassBus: 3},
			level:  models.LevelMedium,
			total:  11,
		},
		{
			name:   "boundary medium",
			counts: map[string]int{models.ClassCar: 12, models.ClassTruck: 8},
			level:  models.LevelMedium,
			total:  20,
		},
		{
			name:    "heavy",
			counts:  map[string]int{models.ClassCar: 15, models.ClassBus: 4, models.ClassPerson: 5},
			level:   models.LevelHigh,
			total:   24,
			message: "Heavy Traffic Volume",
		},
		{
			name:   "motorcycles excluded from total",
			counts: map[string]int{models.ClassCar: 9, models.ClassMotorcycle: 50},
			level:  models.LevelLow,
			total:  9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := Classify(tt.counts)
			if status.Level != tt.level {
				t.Errorf("expected level %s, got %s", tt.level, status.Level)
			}
			if status.Total != tt.total {
				t.Errorf("expected total %d, got %d", tt.total, status.Total)
			}
			if tt.message != "" && status.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, status.Message)
			}
			if status.Color == "" {
				t.Error("status color must always be set")
			}
		})
	}
}
