package video

import (
	"errors"
	"fmt"
	"net/url"

	"gocv.io/x/gocv"

	"github.com/AdHoc10/gameplay-video-analyzer/pkg/utils"
)

//streamingHosts are sources that can be previewed but not analyzed - a
//streaming player cannot honor the exact-frame seek contract
var streamingHosts = []string{"www.youtube.com", "youtube.com", "youtu.be"}

//IsRestrictedSource returns true for streaming URLs that analysis must refuse
func IsRestrictedSource(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return utils.InSlice(u.Hostname(), streamingHosts)
}

//FileSampler samples exact frames from a local video file. It owns a single
//gocv capture with one playback position, so callers must not overlap
//SampleFrame calls.
type FileSampler struct {
	path string
	cap  *gocv.VideoCapture
}

//OpenFileSampler opens given video file for frame sampling
func OpenFileSampler(path string) (*FileSampler, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("OpenFileSampler: could not open '%s', got '%v'", path, err)
	}
	return &FileSampler{path: path, cap: cap}, nil
}

//Seekable is always true for local files
func (s *FileSampler) Seekable() bool {
	return true
}

//SampleFrame seeks to given time and decodes the frame there. The returned
//Mat is owned by the caller. Fails if the file cannot deliver a frame or the
//decoded frame has no dimensions.
func (s *FileSampler) SampleFrame(seconds float64) (gocv.Mat, error) {
	s.cap.Set(gocv.VideoCapturePosMsec, seconds*1000)

	frame := gocv.NewMat()
	if ok := s.cap.Read(&frame); !ok {
		frame.Close()
		return gocv.Mat{}, fmt.Errorf("SampleFrame: no frame decoded at %.3fs of '%s'", seconds, s.path)
	}
	if frame.Empty() || frame.Cols() == 0 || frame.Rows() == 0 {
		frame.Close()
		return gocv.Mat{}, errors.New("SampleFrame: decoded frame has no dimensions")
	}
	return frame, nil
}

//FPS reports the file's native frame rate
func (s *FileSampler) FPS() float64 {
	return s.cap.Get(gocv.VideoCaptureFPS)
}

//Duration reports the file length in seconds, or 0 when unknown
func (s *FileSampler) Duration() float64 {
	fps := s.cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		return 0
	}
	return s.cap.Get(gocv.VideoCaptureFrameCount) / fps
}

//Close releases the capture
func (s *FileSampler) Close() error {
	return s.cap.Close()
}
