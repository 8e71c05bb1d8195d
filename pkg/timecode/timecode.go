package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

//DefaultFPS is the frame rate assumed when none is configured
const DefaultFPS = 30.0

//Quantizer snaps raw playback times to a fixed frame grid. Every component
//that needs to decide whether two times are "the same instant" must go
//through Key - never compare raw floats.
type Quantizer struct {
	FPS float64
}

//NewQuantizer returns a Quantizer for given frame rate. Non-positive rates
//fall back to DefaultFPS.
func NewQuantizer(fps float64) Quantizer {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = DefaultFPS
	}
	return Quantizer{FPS: fps}
}

//Key returns the frame-aligned key for given time in seconds. It is total
//and idempotent; non-finite input yields 0 instead of propagating NaN.
func (q Quantizer) Key(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	return math.Round(t*q.FPS) / q.FPS
}

//Eps is half of one frame period. A candidate start within Eps of an
//interval bound counts as touching it.
func (q Quantizer) Eps() float64 {
	return 1 / q.FPS / 2
}

//FormatClock renders given seconds as "MM:SS.HH", rounded to the nearest
//hundredth (zero padded)
func FormatClock(s float64) string {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return "00:00.00"
	}
	total := int(math.Round(s * 100))
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d.%02d", total/6000, (total/100)%60, total%100)
}

//FormatMinuteSecond renders given seconds as "M.SS" - unpadded minutes,
//two-digit seconds. This is the numeric time encoding used by the CSV and
//JSON exports.
func FormatMinuteSecond(s float64) string {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return "0.00"
	}
	total := int(math.Floor(s))
	return fmt.Sprintf("%d.%02d", total/60, total%60)
}

var clockRe = regexp.MustCompile(`^(\d+):(\d{1,2})(?:\.(\d{1,3}))?$`)
var plainSecondsRe = regexp.MustCompile(`^\d+(\.\d+)?$`)

//ParseClock parses a user-entered time string, either "MM:SS.HH" or bare
//seconds. Returns false if the string is not a recognized time - the caller
//is expected to discard the edit and revert the display.
func ParseClock(str string) (float64, bool) {
	s := strings.TrimSpace(str)
	if s == "" {
		return 0, false
	}

	if plainSecondsRe.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}

	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	min, _ := strconv.Atoi(m[1])
	sec, _ := strconv.Atoi(m[2])
	frac := 0.0
	if m[3] != "" {
		f, _ := strconv.ParseFloat("0."+m[3], 64)
		frac = math.Round(f*100) / 100
	}

	return float64(min)*60 + float64(sec) + frac, true
}

var bareDigitsRe = regexp.MustCompile(`^\d+$`)
var shortDigitsRe = regexp.MustCompile(`^\d{2,3}$`)

//ParseImportTime decodes a schema CSV time cell. This format is more
//permissive than the export encoding:
//  "M.SS"          minutes and seconds split on the decimal point, seconds must be 0-59
//  2 bare digits   seconds only
//  3 bare digits   first digit minutes, trailing two seconds (seconds >59 invalid)
//  other digits    whole minutes
//Anything else is invalid and the row should be skipped.
func ParseImportTime(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ".") {
		parts := strings.Split(s, ".")
		minutes, ok := numberOrZero(parts[0])
		if !ok {
			return 0, false
		}
		seconds, ok := numberOrZero(parts[1])
		if !ok {
			return 0, false
		}
		if seconds < 0 || seconds > 59 {
			return 0, false
		}
		return minutes*60 + seconds, true
	}

	if shortDigitsRe.MatchString(s) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		if len(s) == 2 {
			return float64(n % 100), true
		}
		seconds := n % 100
		if seconds > 59 {
			return 0, false
		}
		return float64(n/100)*60 + float64(seconds), true
	}

	if bareDigitsRe.MatchString(s) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return float64(n) * 60, true
	}

	return 0, false
}

//numberOrZero parses a possibly empty numeric fragment, treating "" as 0
func numberOrZero(s string) (float64, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
