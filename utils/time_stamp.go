package utils

import (
	"path/filepath"
	"strings"
	"time"
)

// RosTimeToNano converts a (secs, nsecs) stamp to nanoseconds since the epoch.
func RosTimeToNano(secs, nsecs uint32) int64 {
	return int64(secs)*int64(time.Second) + int64(nsecs)
}

// DatasetDir returns the output root for a bag: the bag's directory joined
// with the bag file name minus its extension.
//
//	/data/run1.bag  ->  /data/run1
func DatasetDir(bagPath string) (string, error) {
	if !filepath.IsAbs(bagPath) {
		return "", ConfigErrorf("resolve bag path",
			"relative paths are not supported, use an absolute path instead: %q", bagPath)
	}
	dir, file := filepath.Split(filepath.Clean(bagPath))
	ext := filepath.Ext(file)
	name := strings.TrimSuffix(file, ext)
	if name == "" || ext == "" {
		// Without an extension the output root would be the bag itself.
		return "", ConfigErrorf("resolve bag path", "want <name>.<ext> bag file, got %q", bagPath)
	}
	return filepath.Join(dir, name), nil
}
