package analyzer

import (
	"math"
	"sync"

	"trafficwatch/internal/models"
)

const (
	// maxTrackHistory caps the stored centroid trail per track.
	maxTrackHistory = 30
	// maxMatchDistance is the largest centroid jump (px) still treated as
	// the same object between consecutive frames.
	maxMatchDistance = 80.0
)

type point struct {
	x, y int
}

type track struct {
	class   string
	history []point
}

// Tracker assigns stable ids to detections across frames by nearest-centroid
// matching and maintains cumulative per-class counts. A track is counted
// exactly once, when its centroid crosses the counting line downward.
type Tracker struct {
	mu       sync.Mutex
	lineY    int
	nextID   int
	tracks   map[int]*track
	counted  map[int]bool
	counts   map[string]int
	crossed  bool
}

// NewTracker creates a tracker counting crossings of the horizontal line at lineY.
func NewTracker(lineY int) *Tracker {
	return &Tracker{
		lineY:   lineY,
		tracks:  make(map[int]*track),
		counted: make(map[int]bool),
		counts:  models.NewBaselineCounts(),
	}
}

// SetLine moves the counting line, used when the video source changes size.
func (t *Tracker) SetLine(lineY int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lineY = lineY
}

// Update matches the frame's detections to existing tracks, updates counts,
// and returns the detections with TrackID filled in. Tracks absent from the
// frame are dropped so memory stays bounded.
func (t *Tracker) Update(detections []models.Detection) []models.Detection {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.crossed = false
	active := make(map[int]bool, len(detections))
	claimed := make(map[int]bool, len(detections))
	out := make([]models.Detection, 0, len(detections))

	for _, det := range detections {
		cx, cy := det.Center()
		id, ok := t.match(det.Class, cx, cy, claimed)
		if !ok {
			id = t.nextID
			t.nextID++
			t.tracks[id] = &track{class: det.Class}
		}
		claimed[id] = true
		active[id] = true

		tr := t.tracks[id]
		tr.history = append(tr.history, point{cx, cy})
		if len(tr.history) > maxTrackHistory {
			tr.history = tr.history[1:]
		}

		if len(tr.history) > 1 {
			prevY := tr.history[len(tr.history)-2].y
			currY := tr.history[len(tr.history)-1].y

			// Downward crossings only, once per track.
			if prevY < t.lineY && t.lineY <= currY && !t.counted[id] {
				t.counts[det.Class]++
				t.counted[id] = true
				t.crossed = true
			}
		}

		det.TrackID = id
		out = append(out, det)
	}

	for id := range t.tracks {
		if !active[id] {
			delete(t.tracks, id)
		}
	}

	return out
}

// match finds the nearest unclaimed track of the same class within
// maxMatchDistance of (cx, cy).
func (t *Tracker) match(class string, cx, cy int, claimed map[int]bool) (int, bool) {
	bestID := -1
	bestDist := maxMatchDistance

	for id, tr := range t.tracks {
		if claimed[id] || tr.class != class || len(tr.history) == 0 {
			continue
		}
		last := tr.history[len(tr.history)-1]
		dist := math.Hypot(float64(last.x-cx), float64(last.y-cy))
		if dist <= bestDist {
			bestDist = dist
			bestID = id
		}
	}

	if bestID < 0 {
		return 0, false
	}
	return bestID, true
}

// Counts returns a copy of the cumulative per-class counts.
func (t *Tracker) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make(map[string]int, len(t.counts))
	for class, n := range t.counts {
		counts[class] = n
	}
	return counts
}

// Counted reports whether the given track id has already been counted.
func (t *Tracker) Counted(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counted[id]
}

// CrossedThisUpdate reports whether the last Update counted a new crossing.
func (t *Tracker) CrossedThisUpdate() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.crossed
}

// Reset clears all tracks, counted ids and cumulative counts. Used when the
// video source is replaced through an upload.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracks = make(map[int]*track)
	t.counted = make(map[int]bool)
	t.counts = models.NewBaselineCounts()
	t.nextID = 0
	t.crossed = false
}
