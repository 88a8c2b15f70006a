package ingest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-convertor/models"
	"dataset-convertor/testutil"
	"dataset-convertor/utils"
)

var sampleConns = []testutil.BagConn{
	{ID: 0, Topic: "/cam0/image_raw", DataType: TypeImage},
	{ID: 1, Topic: "/imu0", DataType: TypeImu},
	{ID: 2, Topic: "vicon/pose", DataType: TypeTransformStamped},
	{ID: 3, Topic: "/rosout", DataType: "rosgraph_msgs/Log"},
}

func sampleMessages() []testutil.BagMsg {
	return []testutil.BagMsg{
		{Conn: 1, Secs: 1, Data: testutil.EncodeImu(1, 5, [3]float64{0.1, 0.2, 0.3}, [3]float64{9.8, 0, -0.1})},
		{Conn: 0, Secs: 1, Data: testutil.EncodeImage(1, 10, 2, 1, "mono8", 2, []byte{0, 255})},
		{Conn: 3, Secs: 1, Data: []byte("log line")},
		{Conn: 2, Secs: 2, Data: testutil.EncodeTransform(2, 0, [3]float64{1, 2, 3}, [4]float64{0, 0, 0, 1})},
		{Conn: 1, Secs: 2, Data: testutil.EncodeImu(2, 5, [3]float64{1, 2, 3}, [3]float64{4, 5, 6})},
	}
}

// bz2ImuChunk is a bzip2 chunk holding connection 1 ("/imu0", sensor_msgs/Imu)
// and one message stamped 7s 9ns with gyro (1,2,3) and accel (4,5,6).
const (
	bz2ImuChunkSize = 458
	bz2ImuChunk     = "" +
		"425a68393141592653590a22d3b70000867f88feea44400510ca02c02000008e" +
		"a7dea00000c00020009286a9a0341a03d400007a9a682451468c868d9434d0d0" +
		"003476fe6340361c610029ba84904e75e3b6a2269acb2c272ce0095c98d80872" +
		"7f211d108277325bb27b66528db6f83d757e7b11c28e555baedef82c06a12904" +
		"05a42493099b6082c1562011857cf862006634e6c2a08aa6156f492e6007f177" +
		"2453850900a22d3b70"
)

func drain(t *testing.T, it models.RecordIterator) []*models.Record {
	t.Helper()
	var out []*models.Record
	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestBagReader_Variants(t *testing.T) {
	variants := map[string]testutil.BagOptions{
		"indexed":           {},
		"indexed lz4":       {Compression: "lz4"},
		"unindexed":         {Unindexed: true},
		"multi-chunk":       {PerChunk: 2},
		"multi-chunk lz4":   {PerChunk: 2, Compression: "lz4"},
		"unindexed chunked": {PerChunk: 1, Unindexed: true},
	}
	for name, opt := range variants {
		t.Run(name, func(t *testing.T) {
			bag, err := OpenBag(testutil.WriteBag(t, sampleConns, sampleMessages(), opt))
			require.NoError(t, err)
			defer bag.Close()

			assert.Equal(t, []string{"/cam0/image_raw", "/imu0", "/rosout", "vicon/pose"}, bag.Topics())
			assert.Equal(t, 5, bag.MessageCount(bag.Topics()))
			assert.Equal(t, 2, bag.MessageCount([]string{"/imu0"}))
			assert.Equal(t, 0, bag.MessageCount([]string{"/missing"}))

			recs := drain(t, bag.Messages([]string{"/imu0", "/cam0/image_raw", "vicon/pose"}))
			require.Len(t, recs, 4)

			// Stored order, not grouped by topic.
			assert.Equal(t, "/imu0", recs[0].Topic)
			assert.Equal(t, "/cam0/image_raw", recs[1].Topic)
			assert.Equal(t, "vicon/pose", recs[2].Topic)
			assert.Equal(t, "/imu0", recs[3].Topic)

			imu := recs[0].Payload.(*models.IMUData)
			assert.Equal(t, models.KindIMU, recs[0].Kind)
			assert.Equal(t, int64(1_000_000_005), imu.TimestampNs)
			assert.Equal(t, int64(1_000_000_005), recs[0].TimestampNs)
			assert.Equal(t, [6]float64{0.1, 0.2, 0.3, 9.8, 0, -0.1},
				[6]float64{imu.GyroX, imu.GyroY, imu.GyroZ, imu.AccelX, imu.AccelY, imu.AccelZ})

			img := recs[1].Payload.(*models.CameraImage)
			assert.Equal(t, "mono8", img.Encoding)
			assert.Equal(t, []byte{0, 255}, img.Data)

			pose := recs[2].Payload.(*models.ViconPose)
			assert.Equal(t, [7]float64{1, 2, 3, 1, 0, 0, 0},
				[7]float64{pose.PX, pose.PY, pose.PZ, pose.QW, pose.QX, pose.QY, pose.QZ})
		})
	}
}

func TestBagReader_UnknownTypeHasNoPayload(t *testing.T) {
	bag, err := OpenBag(testutil.WriteBag(t, sampleConns, sampleMessages(), testutil.BagOptions{}))
	require.NoError(t, err)
	defer bag.Close()

	recs := drain(t, bag.Messages([]string{"/rosout"}))
	require.Len(t, recs, 1)
	assert.Equal(t, models.KindUnknown, recs[0].Kind)
	assert.Equal(t, "rosgraph_msgs/Log", recs[0].DataType)
	assert.Nil(t, recs[0].Payload)
}

func TestBagReader_EmptyBag(t *testing.T) {
	bag, err := OpenBag(testutil.WriteBag(t, sampleConns[:1], nil, testutil.BagOptions{}))
	require.NoError(t, err)
	defer bag.Close()

	assert.Equal(t, 0, bag.MessageCount(bag.Topics()))
	assert.Empty(t, drain(t, bag.Messages(bag.Topics())))
}

func TestOpenBag_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenBag(filepath.Join(dir, "missing.bag"))
	require.Error(t, err)
	assert.True(t, utils.IsIOError(err))

	notBag := filepath.Join(dir, "not.bag")
	require.NoError(t, os.WriteFile(notBag, []byte("#ROSBAG V1.2\nxxxxxxxx"), 0644))
	_, err = OpenBag(notBag)
	assert.ErrorContains(t, err, "not a ROS bag v2.0 file")
	assert.True(t, utils.IsIOError(err))

	short := filepath.Join(dir, "short.bag")
	require.NoError(t, os.WriteFile(short, []byte(BagMagic+"\x10\x00"), 0644))
	_, err = OpenBag(short)
	assert.Error(t, err)
}

func TestBagReader_TruncatedMessageFails(t *testing.T) {
	msgs := []testutil.BagMsg{{Conn: 1, Secs: 1, Data: testutil.EncodeImu(1, 0, [3]float64{}, [3]float64{})[:40]}}
	bag, err := OpenBag(testutil.WriteBag(t, sampleConns, msgs, testutil.BagOptions{}))
	require.NoError(t, err)
	defer bag.Close()

	_, err = bag.Messages([]string{"/imu0"}).Next()
	require.Error(t, err)
	assert.True(t, utils.IsIOError(err))
	assert.ErrorContains(t, err, "truncated")
}

func TestParseFields(t *testing.T) {
	got, err := parseFields(testutil.Fields("op", []byte{opChunk}, "compression", []byte("a=b")))
	require.NoError(t, err)
	assert.Equal(t, []byte{opChunk}, got["op"])
	assert.Equal(t, []byte("a=b"), got["compression"], "only the first '=' separates")

	_, err = parseFields([]byte{5, 0, 0, 0, 'a'})
	assert.Error(t, err)
	_, err = parseFields(append(testutil.U32(3), []byte("abc")...))
	assert.ErrorContains(t, err, "without '='")
}

func TestDecodeMessage(t *testing.T) {
	rec, err := DecodeMessage(TypeTransformStamped,
		testutil.EncodeTransform(10, 20, [3]float64{-1, 0.5, 2}, [4]float64{0.1, 0.2, 0.3, 0.9}))
	require.NoError(t, err)
	assert.Equal(t, models.KindVicon, rec.Kind)
	pose := rec.Payload.(*models.ViconPose)
	assert.Equal(t, int64(10_000_000_020), pose.TimestampNs)
	assert.Equal(t, 0.9, pose.QW)
	assert.Equal(t, 0.1, pose.QX)

	_, err = DecodeMessage(TypeImage, []byte{1, 2, 3})
	assert.ErrorContains(t, err, TypeImage)

	assert.Equal(t, models.KindCamera, KindForDataType(TypeImage))
	assert.Equal(t, models.KindUnknown, KindForDataType("std_msgs/String"))
}

func TestBagReader_Bz2Chunk(t *testing.T) {
	payload, err := hex.DecodeString(bz2ImuChunk)
	require.NoError(t, err)

	bag, err := OpenBag(testutil.WriteRawChunkBag(t, "bz2", bz2ImuChunkSize, payload))
	require.NoError(t, err)
	defer bag.Close()

	assert.Equal(t, []string{"/imu0"}, bag.Topics())
	assert.Equal(t, 1, bag.MessageCount([]string{"/imu0"}))

	recs := drain(t, bag.Messages([]string{"/imu0"}))
	require.Len(t, recs, 1)
	imu := recs[0].Payload.(*models.IMUData)
	assert.Equal(t, int64(7_000_000_009), imu.TimestampNs)
	assert.Equal(t, [6]float64{1, 2, 3, 4, 5, 6},
		[6]float64{imu.GyroX, imu.GyroY, imu.GyroZ, imu.AccelX, imu.AccelY, imu.AccelZ})
}

func TestBagReader_UnsupportedCompression(t *testing.T) {
	_, err := OpenBag(testutil.WriteRawChunkBag(t, "zstd", 0, nil))
	require.Error(t, err)
	assert.True(t, utils.IsIOError(err))
	assert.ErrorContains(t, err, `unsupported chunk compression "zstd"`)
}

func TestDecoder_StreamsInStoredOrder(t *testing.T) {
	data, err := os.ReadFile(testutil.WriteBag(t, sampleConns, sampleMessages(), testutil.BagOptions{PerChunk: 2}))
	require.NoError(t, err)

	dec := NewDecoder(bytes.NewReader(data))
	var topics []string
	for {
		msg, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		topics = append(topics, msg.Conn.Topic)
	}
	assert.Equal(t, []string{"/imu0", "/cam0/image_raw", "/rosout", "vicon/pose", "/imu0"}, topics)
	assert.Len(t, dec.Connections(), 4)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}
