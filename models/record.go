package models

// Record is one log entry on its way through the converter.
//
// Payload is *CameraImage, *IMUData or *ViconPose according to Kind, and nil
// when the log's message type is not one the converter decodes.
type Record struct {
	Topic       string
	DataType    string // message type name from the log, e.g. sensor_msgs/Imu
	Kind        SensorKind
	TimestampNs int64
	Payload     any
}

// RecordIterator yields records in stored order and io.EOF after the last one.
type RecordIterator interface {
	Next() (*Record, error)
}
