package controller

import (
	"image"
	"path/filepath"

	"dataset-convertor/models"
	"dataset-convertor/utils"
	"dataset-convertor/views"
)

// writeCameraRecord stores img as <data dir>/<ts>.png and appends its CSV
// row. A second frame with the same timestamp overwrites the first image.
func writeCameraRecord(sink *OutputSink, img image.Image, timestampNs int64) error {
	frame := models.CameraFrame{TimestampNs: timestampNs}
	path := filepath.Join(sink.DataDir, frame.FileName())
	if err := views.SavePNG(path, img); err != nil {
		return utils.WrapIO(err, "write image", path)
	}
	return appendRow(sink, frame)
}

func writeIMURecord(sink *OutputSink, d *models.IMUData) error {
	return appendRow(sink, d)
}

func writeViconRecord(sink *OutputSink, p *models.ViconPose) error {
	return appendRow(sink, p)
}

func appendRow(sink *OutputSink, r models.CSVRowWriter) error {
	if err := sink.CSV.WriteRow(r.CSVRow()); err != nil {
		return utils.WrapIO(err, "append csv row", sink.CSV.Path())
	}
	return nil
}
