package controller

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"dataset-convertor/models"
	"dataset-convertor/utils"
	"dataset-convertor/views"
)

// csvBufferSize is the bufio size behind every sensor CSV.
const csvBufferSize = 256 * 1024

// OutputSink is one sensor's open CSV stream plus, for sensors that store
// files, the absolute directory those files go to.
type OutputSink struct {
	Entry   models.SensorEntry
	CSV     *views.CSVWriter
	DataDir string
}

// SinkSet holds every sensor's sink, keyed by configured topic. It is owned
// by a single conversion run and closed exactly once.
type SinkSet struct {
	root   string
	sinks  map[string]*OutputSink
	closed bool
}

// BuildOutputLayout creates the output tree under root and opens one CSV per
// sensor with its header already written.
//
//	<root>/
//	  <sensor>/<csv file>
//	  <sensor>/<data dir>/        (sensors with a data dir)
//
// An existing root is removed first; runs are not incremental. Any failure is
// an IOError, and sinks opened before it are closed.
func BuildOutputLayout(root string, entries []models.SensorEntry) (*SinkSet, error) {
	log := utils.L().Named("layout")
	if _, err := os.Stat(root); err == nil {
		log.Info("cleaning previous dataset  %s", root)
		if err := os.RemoveAll(root); err != nil {
			return nil, utils.WrapIO(err, "remove output dir", root)
		}
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, utils.WrapIO(err, "create output dir", root)
	}

	set := &SinkSet{root: root, sinks: make(map[string]*OutputSink, len(entries))}
	for _, e := range entries {
		sink, err := openSink(log, root, e)
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.sinks[e.Topic] = sink
	}

	log.Info("output layout ready  root=%s  sensors=%d", root, len(entries))
	return set, nil
}

func openSink(log *utils.Logger, root string, e models.SensorEntry) (*OutputSink, error) {
	dir := filepath.Join(root, filepath.FromSlash(e.Name))
	if e.HasDataDir() {
		dir = filepath.Join(root, filepath.FromSlash(e.DataDir))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, utils.WrapIO(err, "create sensor dir", dir)
	}

	header, err := views.SchemaColumns(e.Kind)
	if err != nil {
		return nil, utils.ConfigErrorf("open sink", "sensor %q: %w", e.Name, err)
	}
	csvPath := filepath.Join(root, filepath.FromSlash(e.CSVPath))
	if err := os.MkdirAll(filepath.Dir(csvPath), 0755); err != nil {
		return nil, utils.WrapIO(err, "create sensor dir", filepath.Dir(csvPath))
	}
	w, err := views.NewCSVWriter(csvPath, csvBufferSize, header)
	if err != nil {
		return nil, utils.WrapIO(err, "open csv", csvPath)
	}

	sink := &OutputSink{Entry: e, CSV: w}
	switch {
	case e.HasDataDir():
		sink.DataDir = dir
	case e.Kind == models.KindCamera:
		// Cameras without a data dir keep their images next to the CSV.
		sink.DataDir = dir
	}
	log.Debug("sink %s (%s)  csv=%s  data=%s", e.Name, e.Kind, csvPath, sink.DataDir)
	return sink, nil
}

// Root returns the output root directory.
func (s *SinkSet) Root() string { return s.root }

// Lookup returns the sink for a configured topic.
func (s *SinkSet) Lookup(topic string) (*OutputSink, bool) {
	sink, ok := s.sinks[topic]
	return sink, ok
}

// Len returns the number of sinks.
func (s *SinkSet) Len() int { return len(s.sinks) }

// Close flushes and closes every sink. Later calls are no-ops.
func (s *SinkSet) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	topics := make([]string, 0, len(s.sinks))
	for t := range s.sinks {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	var errs []error
	for _, t := range topics {
		sink := s.sinks[t]
		if err := sink.CSV.Close(); err != nil {
			errs = append(errs, utils.WrapIO(err, "close csv", sink.CSV.Path()))
			continue
		}
		utils.L().Named("layout").Debug("closed %s  rows=%d", sink.CSV.Path(), sink.CSV.Rows())
	}
	return errors.Join(errs...)
}
