package analysis

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

//Detector is the object-detection capability consumed by the pipeline.
//Implementations run one frame at a time; the pipeline never calls Detect
//concurrently.
type Detector interface {
	Detect(frame gocv.Mat) ([]Detection, error)
}

//DNNConfig configures the gocv-backed detector
type DNNConfig struct {
	ModelPath      string
	ConfigPath     string
	ScoreThreshold float32
	MaxResults     int
	InputSize      int
	Labels         []string //class index -> label name, optional
}

//DNNDetector runs an SSD-style object detection model through gocv's DNN
//module. Loading the model can fail (missing file, unsupported backend);
//construction is expected to be memoized by the caller.
type DNNDetector struct {
	net gocv.Net
	cfg DNNConfig
}

//NewDNNDetector loads the model from cfg.ModelPath
func NewDNNDetector(cfg DNNConfig) (*DNNDetector, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("NewDNNDetector: no model path configured")
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 0.5
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 25
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 320
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("NewDNNDetector: could not load model '%s'", cfg.ModelPath)
	}

	return &DNNDetector{net: net, cfg: cfg}, nil
}

//Detect runs the model on given frame and decodes the SSD output layout
//[1, 1, N, 7] = (batch, classID, score, left, top, right, bottom), with
//coordinates normalized to the frame size
func (d *DNNDetector) Detect(frame gocv.Mat) ([]Detection, error) {
	if frame.Empty() {
		return nil, errors.New("Detect: empty frame")
	}

	size := d.cfg.InputSize
	blob := gocv.BlobFromImage(frame, 1.0/127.5, image.Pt(size, size), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	defer prob.Close()

	w := float64(frame.Cols())
	h := float64(frame.Rows())

	dets := make([]Detection, 0)
	for i := 0; i < prob.Total(); i += 7 {
		score := prob.GetFloatAt(0, i+2)
		if score < d.cfg.ScoreThreshold {
			continue
		}

		classID := int(prob.GetFloatAt(0, i+1))
		left := float64(prob.GetFloatAt(0, i+3)) * w
		top := float64(prob.GetFloatAt(0, i+4)) * h
		right := float64(prob.GetFloatAt(0, i+5)) * w
		bottom := float64(prob.GetFloatAt(0, i+6)) * h

		label := ""
		if classID >= 0 && classID < len(d.cfg.Labels) {
			label = d.cfg.Labels[classID]
		}

		dets = append(dets, Detection{
			Label: label,
			Index: classID,
			Score: float64(score),
			Box:   Box{OriginX: left, OriginY: top, Width: right - left, Height: bottom - top},
		})
		if len(dets) >= d.cfg.MaxResults {
			break
		}
	}

	return dets, nil
}

//Close releases the underlying network
func (d *DNNDetector) Close() error {
	return d.net.Close()
}
