package controller

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-convertor/services/ingest"
	"dataset-convertor/testutil"
)

func convertBag(t *testing.T, conns []testutil.BagConn, msgs []testutil.BagMsg, opt testutil.BagOptions) (string, *ConversionDriver, []int) {
	t.Helper()
	bag, err := ingest.OpenBag(testutil.WriteBag(t, conns, msgs, opt))
	require.NoError(t, err)
	defer bag.Close()

	var totals []int
	root := filepath.Join(t.TempDir(), "run1")
	d := NewConversionDriver(DriverConfig{
		Params: sensorParams(), OutputRoot: root, Source: bag,
		Progress: func(seen, total int) { totals = append(totals, total) },
	})
	require.NoError(t, d.Run())
	return root, d, totals
}

func TestBagConversion_CameraFrame(t *testing.T) {
	conns := []testutil.BagConn{{ID: 0, Topic: "cam0/image", DataType: ingest.TypeImage}}
	msgs := []testutil.BagMsg{
		{Conn: 0, Data: testutil.EncodeImage(0, 1000, 2, 1, "mono8", 2, []byte{10, 200})},
	}
	for name, opt := range map[string]testutil.BagOptions{"plain": {}, "lz4": {Compression: "lz4"}} {
		t.Run(name, func(t *testing.T) {
			root, d, _ := convertBag(t, conns, msgs, opt)

			assert.Equal(t, "timestamp_ns,filename\n1000,1000.png\n", readFile(t, filepath.Join(root, "cam0", "data.csv")))
			f, err := os.Open(filepath.Join(root, "cam0", "data", "1000.png"))
			require.NoError(t, err)
			defer f.Close()
			img, err := png.Decode(f)
			require.NoError(t, err)
			r, _, _, _ := img.At(1, 0).RGBA()
			assert.Equal(t, uint32(200), r>>8)
			assert.Equal(t, RunStats{Total: 1, Seen: 1, Written: 1, Images: 1}, d.Stats())
		})
	}
}

func TestBagConversion_RoutedSubsetOnly(t *testing.T) {
	conns := []testutil.BagConn{
		{ID: 0, Topic: "/imu0", DataType: ingest.TypeImu},
		{ID: 1, Topic: "/rosout", DataType: "rosgraph_msgs/Log"},
		{ID: 2, Topic: "/vicon/pose", DataType: ingest.TypeTransformStamped},
	}
	msgs := []testutil.BagMsg{
		{Conn: 1, Data: []byte("starting")},
		{Conn: 0, Data: testutil.EncodeImu(1, 0, [3]float64{0.5, 0, 0}, [3]float64{0, 0, 9.81})},
		{Conn: 2, Data: testutil.EncodeTransform(1, 5, [3]float64{1, 2, 3}, [4]float64{0.5, 0.5, 0.5, 0.5})},
		{Conn: 1, Data: []byte("still going")},
		{Conn: 0, Data: testutil.EncodeImu(2, 0, [3]float64{0.25, 0, 0}, [3]float64{0, 0, 9.81})},
	}
	root, d, totals := convertBag(t, conns, msgs, testutil.BagOptions{PerChunk: 2})

	// The log topic is never read, so it neither counts toward the total nor gets skipped.
	assert.Equal(t, RunStats{Total: 3, Seen: 3, Written: 3}, d.Stats())
	assert.Equal(t, []int{3, 3, 3}, totals)

	assert.Equal(t, "timestamp_ns,angular_velocity_x,angular_velocity_y,angular_velocity_z,"+
		"linear_acceleration_x,linear_acceleration_y,linear_acceleration_z\n"+
		"1000000000,0.5,0,0,0,0,9.8100000000000005\n"+
		"2000000000,0.25,0,0,0,0,9.8100000000000005\n",
		readFile(t, filepath.Join(root, "imu0", "data.csv")))
	assert.Equal(t, "timestamp_ns,position_x,position_y,position_z,"+
		"orientation_w,orientation_x,orientation_y,orientation_z\n"+
		"1000000005,1,2,3,0.5,0.5,0.5,0.5\n",
		readFile(t, filepath.Join(root, "vicon0", "data.csv")))
}
