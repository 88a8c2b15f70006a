// Package testutil builds synthetic ROS bag v2.0 files for tests.
//
// The writer is independent of the reader in services/ingest: it encodes the
// record framing, chunks and index section from the format description, so a
// reader bug cannot cancel itself out.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

// BagMagic opens every ROS bag v2.0 file.
const BagMagic = "#ROSBAG V2.0\n"

const (
	opMessageData byte = 0x02
	opBagHeader   byte = 0x03
	opChunk       byte = 0x05
	opChunkInfo   byte = 0x06
	opConnection  byte = 0x07
)

// BagConn declares one connection of a synthetic bag.
type BagConn struct {
	ID       uint32
	Topic    string
	DataType string
}

// BagMsg is one message of a synthetic bag.
type BagMsg struct {
	Conn uint32
	Secs uint32
	Data []byte
}

// BagOptions shapes the written file.
type BagOptions struct {
	Compression string // "none" (default) or "lz4"
	Unindexed   bool
	PerChunk    int // messages per chunk, 0 means all in one
}

// WriteBag writes a bag into a fresh temp dir and returns its path.
func WriteBag(t testing.TB, conns []BagConn, msgs []BagMsg, opt BagOptions) string {
	t.Helper()
	return WriteBagAt(t, filepath.Join(t.TempDir(), "test.bag"), conns, msgs, opt)
}

// WriteBagAt writes a bag to path.
func WriteBagAt(t testing.TB, path string, conns []BagConn, msgs []BagMsg, opt BagOptions) string {
	t.Helper()
	if opt.Compression == "" {
		opt.Compression = "none"
	}
	if opt.PerChunk <= 0 {
		opt.PerChunk = len(msgs) + 1
	}

	var buf bytes.Buffer
	buf.WriteString(BagMagic)
	headerPos := buf.Len()
	writeBagHeader(&buf, 0, uint32(len(conns)), 0)

	type chunkInfo struct {
		pos    uint64
		counts map[uint32]uint32
	}
	var chunks []chunkInfo

	var groups [][]BagMsg
	for start := 0; start < len(msgs); start += opt.PerChunk {
		groups = append(groups, msgs[start:min(start+opt.PerChunk, len(msgs))])
	}
	if len(groups) == 0 {
		groups = [][]BagMsg{nil}
	}

	for i, group := range groups {
		var inner bytes.Buffer
		if i == 0 {
			for _, c := range conns {
				writeConnection(&inner, c)
			}
		}
		counts := map[uint32]uint32{}
		for _, m := range group {
			writeRecord(&inner, Fields(
				"op", []byte{opMessageData},
				"conn", U32(m.Conn),
				"time", append(U32(m.Secs), U32(0)...),
			), m.Data)
			counts[m.Conn]++
		}

		payload := inner.Bytes()
		if opt.Compression == "lz4" {
			var z bytes.Buffer
			zw := lz4.NewWriter(&z)
			_, err := zw.Write(payload)
			require.NoError(t, err)
			require.NoError(t, zw.Close())
			payload = z.Bytes()
		}
		chunks = append(chunks, chunkInfo{pos: uint64(buf.Len()), counts: counts})
		writeRecord(&buf, Fields(
			"op", []byte{opChunk},
			"compression", []byte(opt.Compression),
			"size", U32(uint32(inner.Len())),
		), payload)
	}

	if !opt.Unindexed {
		indexPos := uint64(buf.Len())
		for _, c := range conns {
			writeConnection(&buf, c)
		}
		for _, ci := range chunks {
			var data bytes.Buffer
			for _, c := range conns {
				if n, ok := ci.counts[c.ID]; ok {
					data.Write(U32(c.ID))
					data.Write(U32(n))
				}
			}
			writeRecord(&buf, Fields(
				"op", []byte{opChunkInfo},
				"ver", U32(1),
				"chunk_pos", U64(ci.pos),
				"start_time", U64(0),
				"end_time", U64(0),
				"count", U32(uint32(data.Len()/8)),
			), data.Bytes())
		}

		var hdr bytes.Buffer
		writeBagHeader(&hdr, indexPos, uint32(len(conns)), uint32(len(chunks)))
		copy(buf.Bytes()[headerPos:], hdr.Bytes())
	}

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

// WriteRawChunkBag writes an unindexed bag holding one chunk whose payload
// is already compressed. size is the uncompressed length.
func WriteRawChunkBag(t testing.TB, compression string, size uint32, payload []byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(BagMagic)
	writeBagHeader(&buf, 0, 1, 1)
	writeRecord(&buf, Fields(
		"op", []byte{opChunk},
		"compression", []byte(compression),
		"size", U32(size),
	), payload)

	path := filepath.Join(t.TempDir(), "raw.bag")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func writeBagHeader(buf *bytes.Buffer, indexPos uint64, connCount, chunkCount uint32) {
	writeRecord(buf, Fields(
		"op", []byte{opBagHeader},
		"index_pos", U64(indexPos),
		"conn_count", U32(connCount),
		"chunk_count", U32(chunkCount),
	), make([]byte, 32))
}

func writeConnection(buf *bytes.Buffer, c BagConn) {
	writeRecord(buf, Fields(
		"op", []byte{opConnection},
		"conn", U32(c.ID),
		"topic", []byte(c.Topic),
	), Fields(
		"topic", []byte(c.Topic),
		"type", []byte(c.DataType),
		"md5sum", []byte("*"),
	))
}

func writeRecord(buf *bytes.Buffer, header, data []byte) {
	buf.Write(U32(uint32(len(header))))
	buf.Write(header)
	buf.Write(U32(uint32(len(data))))
	buf.Write(data)
}

// Fields encodes alternating name, value pairs as a record header.
func Fields(kv ...any) []byte {
	var b bytes.Buffer
	for i := 0; i < len(kv); i += 2 {
		f := append([]byte(kv[i].(string)+"="), kv[i+1].([]byte)...)
		b.Write(U32(uint32(len(f))))
		b.Write(f)
	}
	return b.Bytes()
}

func U32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }
func U64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

// ─── ROS message encoding ───────────────────────────────────────────────

type rosEncoder struct{ bytes.Buffer }

func (e *rosEncoder) u8(v uint8)    { e.WriteByte(v) }
func (e *rosEncoder) u32(v uint32)  { e.Write(U32(v)) }
func (e *rosEncoder) f64(v float64) { e.Write(U64(math.Float64bits(v))) }
func (e *rosEncoder) str(s string) {
	e.u32(uint32(len(s)))
	e.WriteString(s)
}

func (e *rosEncoder) header(secs, nsecs uint32) {
	e.u32(0)
	e.u32(secs)
	e.u32(nsecs)
	e.str("world")
}

// EncodeImage serializes a sensor_msgs/Image.
func EncodeImage(secs, nsecs uint32, w, h int, encoding string, step int, data []byte) []byte {
	var e rosEncoder
	e.header(secs, nsecs)
	e.u32(uint32(h))
	e.u32(uint32(w))
	e.str(encoding)
	e.u8(0)
	e.u32(uint32(step))
	e.u32(uint32(len(data)))
	e.Write(data)
	return e.Bytes()
}

// EncodeImu serializes a sensor_msgs/Imu. Orientation and covariances are -1.
func EncodeImu(secs, nsecs uint32, gyro, accel [3]float64) []byte {
	var e rosEncoder
	e.header(secs, nsecs)
	for i := 0; i < 4+9; i++ {
		e.f64(-1)
	}
	for _, v := range gyro {
		e.f64(v)
	}
	for i := 0; i < 9; i++ {
		e.f64(-1)
	}
	for _, v := range accel {
		e.f64(v)
	}
	for i := 0; i < 9; i++ {
		e.f64(-1)
	}
	return e.Bytes()
}

// EncodeTransform serializes a geometry_msgs/TransformStamped. The rotation
// is given x, y, z, w as on the wire.
func EncodeTransform(secs, nsecs uint32, pos [3]float64, xyzw [4]float64) []byte {
	var e rosEncoder
	e.header(secs, nsecs)
	e.str("body")
	for _, v := range pos {
		e.f64(v)
	}
	for _, v := range xyzw {
		e.f64(v)
	}
	return e.Bytes()
}
