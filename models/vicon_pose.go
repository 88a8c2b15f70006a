package models

// ViconPose is one motion-capture pose. The orientation is a unit
// quaternion, written scalar-first.
type ViconPose struct {
	TimestampNs int64   `json:"timestamp_ns"`
	PX          float64 `json:"position_x"` // metres
	PY          float64 `json:"position_y"`
	PZ          float64 `json:"position_z"`
	QW          float64 `json:"orientation_w"`
	QX          float64 `json:"orientation_x"`
	QY          float64 `json:"orientation_y"`
	QZ          float64 `json:"orientation_z"`
}

func (ViconPose) CSVHeader() []string {
	return []string{
		"timestamp_ns",
		"position_x", "position_y", "position_z",
		"orientation_w", "orientation_x", "orientation_y", "orientation_z",
	}
}

func (p *ViconPose) CSVRow() []string {
	return []string{
		itoa64(p.TimestampNs),
		ftoa(p.PX), ftoa(p.PY), ftoa(p.PZ),
		ftoa(p.QW), ftoa(p.QX), ftoa(p.QY), ftoa(p.QZ),
	}
}
