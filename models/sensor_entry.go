package models

import (
	"fmt"
	"strings"
)

// SensorKind is the closed set of sensor types the converter understands.
type SensorKind int

const (
	KindUnknown SensorKind = iota
	KindCamera
	KindIMU
	KindVicon
)

var kindNames = map[SensorKind]string{
	KindCamera: "camera",
	KindIMU:    "imu",
	KindVicon:  "vicon",
}

func (k SensorKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// ParseSensorKind maps a configured type name to a SensorKind.
func ParseSensorKind(s string) (SensorKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown sensor type %q (want camera, imu or vicon)", s)
}

// SensorEntry is one configured sensor. Paths are relative to the output root.
type SensorEntry struct {
	Name    string
	Topic   string
	Kind    SensorKind
	CSVPath string
	DataDir string // empty when the sensor stores no binary artifacts
}

// HasDataDir reports whether the sensor writes files besides its CSV.
func (e SensorEntry) HasDataDir() bool { return e.DataDir != "" }
