package views

import (
	"fmt"

	"dataset-convertor/models"
)

// SchemaColumns returns the CSV header for a sensor kind. The model types'
// CSVHeader methods are the single source of truth for column ordering.
func SchemaColumns(kind models.SensorKind) ([]string, error) {
	row, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("no csv schema for sensor kind %s", kind)
	}
	return row.CSVHeader(), nil
}

var schemas = map[models.SensorKind]models.CSVRowWriter{
	models.KindCamera: models.CameraFrame{},
	models.KindIMU:    &models.IMUData{},
	models.KindVicon:  &models.ViconPose{},
}
