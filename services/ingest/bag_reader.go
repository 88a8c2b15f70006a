package ingest

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pierrec/lz4/v4"

	"dataset-convertor/models"
	"dataset-convertor/utils"
)

// BagMagic opens every ROS bag v2.0 file.
const BagMagic = "#ROSBAG V2.0\n"

// Record op codes.
const (
	opMessageData byte = 0x02
	opBagHeader   byte = 0x03
	opChunk       byte = 0x05
	opConnection  byte = 0x07
)

// maxRecordPart bounds a single header or data section; anything larger is
// treated as corruption rather than allocated.
const maxRecordPart = 1 << 30

// Connection is one topic/type pairing declared in the bag.
type Connection struct {
	ID       uint32
	Topic    string
	DataType string
}

// ─── Decoder ────────────────────────────────────────────────────────────

// BagMessage is one message-data record with its connection resolved.
type BagMessage struct {
	Conn *Connection
	Data []byte
}

// Decoder walks a ROS bag v2.0 stream record by record in stored order,
// descending into chunks. Index records are skipped; connection records are
// remembered so every message comes back with its topic and type.
type Decoder struct {
	r       io.Reader
	chunk   io.Reader
	started bool
	conns   map[uint32]*Connection
}

// NewDecoder reads a bag from r, which must be positioned at the magic.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, conns: make(map[uint32]*Connection)}
}

// Next returns the next message, or io.EOF after the last one.
func (d *Decoder) Next() (*BagMessage, error) {
	if !d.started {
		if err := d.readPreamble(); err != nil {
			return nil, err
		}
		d.started = true
	}
	for {
		src := d.r
		if d.chunk != nil {
			src = d.chunk
		}
		rec, err := readRecord(src)
		if errors.Is(err, io.EOF) {
			if d.chunk != nil {
				d.chunk = nil
				continue
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		switch rec.op {
		case opChunk:
			if d.chunk != nil {
				return nil, fmt.Errorf("chunk nested in chunk")
			}
			if d.chunk, err = openChunk(rec); err != nil {
				return nil, err
			}
		case opConnection:
			if err := d.addConnection(rec); err != nil {
				return nil, err
			}
		case opMessageData:
			id, err := rec.uint32Field("conn")
			if err != nil {
				return nil, err
			}
			c, ok := d.conns[id]
			if !ok {
				return nil, fmt.Errorf("message on undeclared connection %d", id)
			}
			return &BagMessage{Conn: c, Data: rec.data}, nil
		}
	}
}

// Connections returns every connection seen so far.
func (d *Decoder) Connections() map[uint32]*Connection { return d.conns }

func (d *Decoder) readPreamble() error {
	magic := make([]byte, len(BagMagic))
	if _, err := io.ReadFull(d.r, magic); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != BagMagic {
		return fmt.Errorf("not a ROS bag v2.0 file")
	}
	rec, err := readRecord(d.r)
	if err != nil {
		return fmt.Errorf("read bag header: %w", err)
	}
	if rec.op != opBagHeader {
		return fmt.Errorf("first record is op 0x%02x, want bag header", rec.op)
	}
	return nil
}

func (d *Decoder) addConnection(rec *bagRecord) error {
	id, err := rec.uint32Field("conn")
	if err != nil {
		return err
	}
	if _, ok := d.conns[id]; ok {
		return nil
	}
	topic, err := rec.stringField("topic")
	if err != nil {
		return err
	}
	c := &Connection{ID: id, Topic: topic}
	// The data section is itself a header holding type, md5sum and definition.
	if fields, err := parseFields(rec.data); err == nil {
		c.DataType = string(fields["type"])
	}
	d.conns[id] = c
	return nil
}

func openChunk(rec *bagRecord) (io.Reader, error) {
	compression, err := rec.stringField("compression")
	if err != nil {
		return nil, err
	}
	raw := bytes.NewReader(rec.data)
	switch compression {
	case "none":
		return raw, nil
	case "bz2":
		return bufio.NewReader(bzip2.NewReader(raw)), nil
	case "lz4":
		return bufio.NewReader(lz4.NewReader(raw)), nil
	default:
		return nil, fmt.Errorf("unsupported chunk compression %q", compression)
	}
}

// ─── BagReader ──────────────────────────────────────────────────────────

// BagReader serves a bag file as a MessageSource. OpenBag makes one counting
// pass over the file; every Messages call decodes it again from the start.
type BagReader struct {
	path   string
	f      *os.File
	size   int64
	conns  map[uint32]*Connection
	counts map[uint32]int
}

// OpenBag opens a bag and counts its messages per connection.
func OpenBag(path string) (*BagReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.WrapIO(err, "open bag", path)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, utils.WrapIO(err, "open bag", path)
	}
	b := &BagReader{path: path, f: f, size: st.Size(), counts: make(map[uint32]int)}

	dec := b.decoder()
	for {
		msg, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			f.Close()
			return nil, utils.WrapIO(err, "read bag", path)
		}
		b.counts[msg.Conn.ID]++
	}
	b.conns = dec.Connections()
	utils.L().Named("bag").Debug("%s: %d connections", path, len(b.conns))
	return b, nil
}

func (b *BagReader) decoder() *Decoder {
	return NewDecoder(bufio.NewReader(io.NewSectionReader(b.f, 0, b.size)))
}

// Topics returns the distinct topics present in the bag, sorted.
func (b *BagReader) Topics() []string {
	set := make(map[string]struct{}, len(b.conns))
	for _, c := range b.conns {
		set[c.Topic] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MessageCount returns how many messages the given topics hold in total.
func (b *BagReader) MessageCount(topics []string) int {
	want := topicSet(topics)
	total := 0
	for id, c := range b.conns {
		if _, ok := want[c.Topic]; ok {
			total += b.counts[id]
		}
	}
	return total
}

// Messages returns an iterator over the messages on topics, in stored order.
func (b *BagReader) Messages(topics []string) models.RecordIterator {
	return &MessageIterator{path: b.path, dec: b.decoder(), want: topicSet(topics)}
}

// Close releases the underlying file.
func (b *BagReader) Close() error {
	return b.f.Close()
}

func topicSet(topics []string) map[string]struct{} {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	return set
}

// MessageIterator decodes the wanted messages of a bag.
type MessageIterator struct {
	path string
	dec  *Decoder
	want map[string]struct{}
}

// Next returns the next wanted message, decoded by its message type.
func (it *MessageIterator) Next() (*models.Record, error) {
	for {
		msg, err := it.dec.Next()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, utils.WrapIO(err, "read bag", it.path)
		}
		if _, ok := it.want[msg.Conn.Topic]; !ok {
			continue
		}
		rec, err := DecodeMessage(msg.Conn.DataType, msg.Data)
		if err != nil {
			return nil, utils.WrapIO(err, "decode "+msg.Conn.Topic, it.path)
		}
		rec.Topic = msg.Conn.Topic
		return rec, nil
	}
}

// ─── Record framing ─────────────────────────────────────────────────────

type bagRecord struct {
	op     byte
	fields map[string][]byte
	data   []byte
}

// readRecord reads one <header_len><header><data_len><data> record. It
// returns io.EOF only when r is exhausted exactly at a record boundary.
func readRecord(r io.Reader) (*bagRecord, error) {
	header, err := readPart(r)
	if err != nil {
		return nil, err
	}
	data, err := readPart(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	fields, err := parseFields(header)
	if err != nil {
		return nil, err
	}
	op, ok := fields["op"]
	if !ok || len(op) != 1 {
		return nil, fmt.Errorf("record without op field")
	}
	return &bagRecord{op: op[0], fields: fields, data: data}, nil
}

func readPart(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxRecordPart {
		return nil, fmt.Errorf("record section of %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// parseFields splits a header into its <len><name>=<value> fields.
func parseFields(b []byte) (map[string][]byte, error) {
	fields := make(map[string][]byte)
	for len(b) > 0 {
		if len(b) < 4 {
			return nil, fmt.Errorf("truncated header field")
		}
		n := binary.LittleEndian.Uint32(b)
		b = b[4:]
		if uint64(n) > uint64(len(b)) {
			return nil, fmt.Errorf("header field of %d bytes, %d left", n, len(b))
		}
		field := b[:n]
		b = b[n:]
		eq := bytes.IndexByte(field, '=')
		if eq < 0 {
			return nil, fmt.Errorf("header field without '='")
		}
		fields[string(field[:eq])] = field[eq+1:]
	}
	return fields, nil
}

func (r *bagRecord) field(name string, size int) ([]byte, error) {
	v, ok := r.fields[name]
	if !ok {
		return nil, fmt.Errorf("op 0x%02x record: missing %q", r.op, name)
	}
	if size > 0 && len(v) != size {
		return nil, fmt.Errorf("op 0x%02x record: %q is %d bytes, want %d", r.op, name, len(v), size)
	}
	return v, nil
}

func (r *bagRecord) uint32Field(name string) (uint32, error) {
	v, err := r.field(name, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v), nil
}

func (r *bagRecord) stringField(name string) (string, error) {
	v, err := r.field(name, 0)
	if err != nil {
		return "", err
	}
	return string(v), nil
}
