package analyzer

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"trafficwatch/internal/config"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"

	"gocv.io/x/gocv"
)

// DetectionThreshold is the minimum confidence for a detection to count.
const DetectionThreshold = 0.5

// cocoClasses maps SSD COCO class ids to the closed class set. Ids outside
// the map are ignored.
var cocoClasses = map[int]string{
	1: models.ClassPerson,
	2: models.ClassBicycle,
	3: models.ClassCar,
	4: models.ClassMotorcycle,
	6: models.ClassBus,
	8: models.ClassTruck,
}

// Detector runs DNN object detection on video frames.
type Detector struct {
	net        gocv.Net
	modelPath  string
	configPath string
	logger     *logger.Logger
	ready      bool
}

// NewDetector loads the detection network from the configured model files.
// A missing model is a warning, not a fatal error - the analyzer then
// streams frames without detections.
func NewDetector(cfg *config.Config, logger *logger.Logger) *Detector {
	d := &Detector{
		modelPath:  cfg.ModelPath,
		configPath: cfg.ModelConfigPath,
		logger:     logger,
	}

	if err := d.initializeNet(); err != nil {
		logger.Warning("Could not initialize detection network: %v", err)
		return d
	}
	d.ready = true

	return d
}

func (d *Detector) initializeNet() error {
	if _, err := os.Stat(d.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", d.modelPath)
	}
	if _, err := os.Stat(d.configPath); os.IsNotExist(err) {
		return fmt.Errorf("model config file not found: %s", d.configPath)
	}

	net := gocv.ReadNet(d.modelPath, d.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		return fmt.Errorf("failed to set preferable backend or target")
	}

	d.net = net
	d.logger.Info("Detection network initialized successfully")
	return nil
}

// Ready reports whether the network loaded.
func (d *Detector) Ready() bool {
	return d.ready
}

// Detect runs the network on a decoded frame and returns detections from the
// closed class set above the confidence threshold.
func (d *Detector) Detect(mat gocv.Mat) ([]models.Detection, error) {
	if !d.ready || d.net.Empty() {
		return nil, fmt.Errorf("detection network not initialized")
	}
	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	var results []models.Detection

	outputReshaped := output.Reshape(1, output.Total()/7)
	defer outputReshaped.Close()

	for i := 0; i < outputReshaped.Rows(); i++ {
		confidence := outputReshaped.GetFloatAt(i, 2)
		if confidence <= DetectionThreshold {
			continue
		}

		classID := int(outputReshaped.GetFloatAt(i, 1))
		class, tracked := cocoClasses[classID]
		if !tracked {
			continue
		}

		x := int(outputReshaped.GetFloatAt(i, 3) * float32(mat.Cols()))
		y := int(outputReshaped.GetFloatAt(i, 4) * float32(mat.Rows()))
		width := int(outputReshaped.GetFloatAt(i, 5)*float32(mat.Cols())) - x
		height := int(outputReshaped.GetFloatAt(i, 6)*float32(mat.Rows())) - y

		results = append(results, models.Detection{
			Class:      class,
			Confidence: float64(confidence),
			X:          x,
			Y:          y,
			Width:      width,
			Height:     height,
		})
	}

	return results, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	if d.ready {
		return d.net.Close()
	}
	return nil
}

// Overlay colors.
var (
	colorLine    = color.RGBA{R: 255, A: 255}
	colorFlash   = color.RGBA{G: 255, A: 255}
	colorTracked = color.RGBA{B: 255, A: 255}
	colorCounted = color.RGBA{R: 255, G: 255, A: 255}
)

// DrawOverlays draws the counting line and the tracked boxes onto the frame.
// The line flashes green on the frame where a crossing was counted.
func DrawOverlays(mat *gocv.Mat, detections []models.Detection, tracker *Tracker, lineY int) {
	lineColor, thickness := colorLine, 2
	if tracker.CrossedThisUpdate() {
		lineColor, thickness = colorFlash, 4
	}
	gocv.Line(mat, image.Pt(0, lineY), image.Pt(mat.Cols(), lineY), lineColor, thickness)

	for _, det := range detections {
		boxColor := colorTracked
		if tracker.Counted(det.TrackID) {
			boxColor = colorCounted
		}

		rect := image.Rect(det.X, det.Y, det.X+det.Width, det.Y+det.Height)
		gocv.Rectangle(mat, rect, boxColor, 2)

		label := fmt.Sprintf("ID:%d %s", det.TrackID, det.Class)
		gocv.PutText(mat, label, image.Pt(det.X, det.Y-10), gocv.FontHersheySimplex, 0.5, boxColor, 2)
	}
}
