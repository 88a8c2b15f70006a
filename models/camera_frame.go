package models

// CameraImage is one encoded image message as stored in the log.
type CameraImage struct {
	TimestampNs int64  `json:"timestamp_ns"` // header stamp
	Height      int    `json:"height"`
	Width       int    `json:"width"`
	Encoding    string `json:"encoding"` // rgb8, bgr8, mono8 …
	BigEndian   bool   `json:"is_bigendian"`
	Step        int    `json:"step"` // row length in bytes
	Data        []byte `json:"-"`
}

// ImageExt is the extension of every stored camera image.
const ImageExt = ".png"

// CameraFrame is the CSV row of a stored camera image.
type CameraFrame struct {
	TimestampNs int64 `json:"timestamp_ns"`
}

// FileName is the stored image's name, derived from its timestamp. Two frames
// with the same timestamp share a name and the later one wins.
func (f CameraFrame) FileName() string {
	return itoa64(f.TimestampNs) + ImageExt
}

// CSVHeader returns the ordered column names for the camera CSV.
func (CameraFrame) CSVHeader() []string {
	return []string{"timestamp_ns", "filename"}
}

// CSVRow serialises one frame into a CSV-compatible string slice.
func (f CameraFrame) CSVRow() []string {
	return []string{itoa64(f.TimestampNs), f.FileName()}
}
