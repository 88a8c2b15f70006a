package ingest

import (
	"encoding/binary"
	"fmt"
	"math"

	"dataset-convertor/models"
	"dataset-convertor/utils"
)

// Message type names as recorded in connection headers.
const (
	TypeImage             = "sensor_msgs/Image"
	TypeImu               = "sensor_msgs/Imu"
	TypeTransformStamped  = "geometry_msgs/TransformStamped"
	covarianceLen         = 9
	maxSerializedElements = 1 << 30
)

// KindForDataType maps a message type to the sensor kind that consumes it.
func KindForDataType(dataType string) models.SensorKind {
	switch dataType {
	case TypeImage:
		return models.KindCamera
	case TypeImu:
		return models.KindIMU
	case TypeTransformStamped:
		return models.KindVicon
	default:
		return models.KindUnknown
	}
}

// DecodeMessage deserializes a message body. Types the converter does not
// understand produce a record with KindUnknown and no payload.
func DecodeMessage(dataType string, data []byte) (*models.Record, error) {
	rec := &models.Record{DataType: dataType, Kind: KindForDataType(dataType)}
	d := &rosDecoder{b: data}

	switch rec.Kind {
	case models.KindCamera:
		img := decodeImage(d)
		rec.TimestampNs, rec.Payload = img.TimestampNs, img
	case models.KindIMU:
		imu := decodeImu(d)
		rec.TimestampNs, rec.Payload = imu.TimestampNs, imu
	case models.KindVicon:
		pose := decodeTransform(d)
		rec.TimestampNs, rec.Payload = pose.TimestampNs, pose
	default:
		return rec, nil
	}
	if d.err != nil {
		return nil, fmt.Errorf("%s: %w", dataType, d.err)
	}
	return rec, nil
}

// std_msgs/Header: seq, stamp, frame_id. Only the stamp is kept.
func decodeHeader(d *rosDecoder) int64 {
	d.uint32() // seq
	secs, nsecs := d.uint32(), d.uint32()
	d.string() // frame_id
	return utils.RosTimeToNano(secs, nsecs)
}

func decodeImage(d *rosDecoder) *models.CameraImage {
	img := &models.CameraImage{TimestampNs: decodeHeader(d)}
	img.Height = int(d.uint32())
	img.Width = int(d.uint32())
	img.Encoding = d.string()
	img.BigEndian = d.uint8() != 0
	img.Step = int(d.uint32())
	img.Data = d.bytes()
	return img
}

func decodeImu(d *rosDecoder) *models.IMUData {
	imu := &models.IMUData{TimestampNs: decodeHeader(d)}
	d.skipFloat64s(4)             // orientation
	d.skipFloat64s(covarianceLen) // orientation_covariance
	imu.GyroX, imu.GyroY, imu.GyroZ = d.float64(), d.float64(), d.float64()
	d.skipFloat64s(covarianceLen)
	imu.AccelX, imu.AccelY, imu.AccelZ = d.float64(), d.float64(), d.float64()
	d.skipFloat64s(covarianceLen)
	return imu
}

func decodeTransform(d *rosDecoder) *models.ViconPose {
	p := &models.ViconPose{TimestampNs: decodeHeader(d)}
	d.string() // child_frame_id
	p.PX, p.PY, p.PZ = d.float64(), d.float64(), d.float64()
	// geometry_msgs/Quaternion is serialized x, y, z, w.
	p.QX, p.QY, p.QZ, p.QW = d.float64(), d.float64(), d.float64(), d.float64()
	return p
}

// rosDecoder reads little-endian ROS serialization. The first short read
// sets err and every later read returns zero values.
type rosDecoder struct {
	b   []byte
	err error
}

func (d *rosDecoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.b) {
		d.err = fmt.Errorf("message truncated: need %d bytes, have %d", n, len(d.b))
		return nil
	}
	out := d.b[:n]
	d.b = d.b[n:]
	return out
}

func (d *rosDecoder) uint8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *rosDecoder) uint32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *rosDecoder) float64() float64 {
	if b := d.take(8); b != nil {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

func (d *rosDecoder) skipFloat64s(n int) { d.take(8 * n) }

func (d *rosDecoder) bytes() []byte {
	n := d.uint32()
	if n > maxSerializedElements {
		d.err = fmt.Errorf("array of %d bytes", n)
		return nil
	}
	return d.take(int(n))
}

func (d *rosDecoder) string() string { return string(d.bytes()) }
