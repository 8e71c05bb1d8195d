package analysis

import "strings"

//Box is a detection bounding box in the detector's top-left origin
//coordinate convention
type Box struct {
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

//centerY is the vertical center of the box. Smaller values are closer to
//the top of the frame.
func (b Box) centerY() float64 {
	return b.OriginY + b.Height/2
}

//Detection is one object reported by the detector for a sampled frame.
//Index is the raw model class index, or -1 when the detector does not
//report one.
type Detection struct {
	Label string  `json:"label"`
	Index int     `json:"index"`
	Score float64 `json:"score"`
	Box   Box     `json:"boundingBox"`
}

//labelOf resolves a detection's effective label: the reported label when
//present, otherwise the configured fallback for its class index. Returns ""
//for detections that resolve to nothing.
func (c *Classifier) labelOf(d Detection) string {
	if name := strings.TrimSpace(d.Label); name != "" {
		return name
	}
	if d.Index >= 0 {
		return c.fallback[d.Index]
	}
	return ""
}

//RoleOf classifies a detection. Unrecognized labels and indices map to
//RoleNone and are ignored by the derivation rule.
func (c *Classifier) RoleOf(d Detection) Role {
	label := c.labelOf(d)
	switch {
	case c.carrier[label]:
		return RoleCarrier
	case c.defender[label]:
		return RoleDefender
	case c.attacker[label]:
		return RoleAttacker
	default:
		return RoleNone
	}
}

//CountDefendersInFront derives the per-window scalar: among all carrier
//detections the one with the highest score is taken as the carrier, and the
//result is the number of defenders whose vertical center sits above the
//carrier's. No carrier means zero, not an error. The rule is single-frame
//and geometry-only.
func (c *Classifier) CountDefendersInFront(dets []Detection) int {
	var carrier *Detection
	var defenders []Detection

	for i := range dets {
		switch c.RoleOf(dets[i]) {
		case RoleCarrier:
			if carrier == nil || dets[i].Score > carrier.Score {
				carrier = &dets[i]
			}
		case RoleDefender:
			defenders = append(defenders, dets[i])
		}
	}

	if carrier == nil {
		return 0
	}

	count := 0
	cy := carrier.Box.centerY()
	for _, d := range defenders {
		if d.Box.centerY() < cy {
			count++
		}
	}
	return count
}
