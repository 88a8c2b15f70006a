package controller

import (
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"dataset-convertor/models"
	"dataset-convertor/services/ingest"
	"dataset-convertor/utils"
)

// MessageSource is the log container the driver reads from.
type MessageSource interface {
	// Topics lists every topic present in the container.
	Topics() []string
	// MessageCount is the number of records Messages(topics) will yield.
	MessageCount(topics []string) int
	// Messages enumerates the records on topics in stored order.
	Messages(topics []string) models.RecordIterator
}

// ImageDecodeFunc turns an encoded camera payload into a pixel buffer.
type ImageDecodeFunc func(*models.CameraImage) (image.Image, error)

// ProgressFunc is told, after each record, how many records have been seen
// out of the total known up front.
type ProgressFunc func(seen, total int)

// DriverState is the phase a conversion run is in.
type DriverState int

const (
	StateInitializing DriverState = iota
	StateStreaming
	StateFinalizing
)

func (s DriverState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// DriverConfig wires a ConversionDriver to its collaborators.
type DriverConfig struct {
	Params      models.ParamSource
	OutputRoot  string
	Source      MessageSource
	DecodeImage ImageDecodeFunc   // defaults to ingest.DecodePixels
	Progress    ProgressFunc      // optional
	Metrics     *ConversionMetrics // optional
}

// RunStats summarises a conversion run.
type RunStats struct {
	Total   int // records expected, known before streaming
	Seen    int
	Written int
	Skipped int
	Images  int
}

// ConversionDriver turns one log container into a dataset tree. It moves
// Initializing → Streaming → Finalizing and never back; a driver runs once.
type ConversionDriver struct {
	cfg   DriverConfig
	state DriverState
	stats RunStats
	ran   bool
	log   *utils.Logger
}

// NewConversionDriver creates a driver in the Initializing state.
func NewConversionDriver(cfg DriverConfig) *ConversionDriver {
	if cfg.DecodeImage == nil {
		cfg.DecodeImage = ingest.DecodePixels
	}
	if cfg.Progress == nil {
		cfg.Progress = func(int, int) {}
	}
	return &ConversionDriver{cfg: cfg, log: utils.L().Named("driver")}
}

// State returns the current phase.
func (d *ConversionDriver) State() DriverState { return d.state }

// Stats returns the counters of the run so far.
func (d *ConversionDriver) Stats() RunStats { return d.stats }

// Run performs the conversion. Once the output sinks are open they are closed
// exactly once before Run returns, whether streaming finished or failed.
func (d *ConversionDriver) Run() (err error) {
	if d.ran {
		return fmt.Errorf("conversion driver already ran")
	}
	d.ran = true
	start := time.Now()
	defer func() { d.cfg.Metrics.finish(start, err) }()

	// ── Initializing ─────────────────────────────────────────────────
	d.log.Info("initializing sensor information")
	entries, err := models.BuildSensorEntries(d.cfg.Params)
	if err != nil {
		return err
	}
	resolver, err := NewTopicResolver(entries)
	if err != nil {
		return err
	}
	for _, e := range entries {
		d.log.Info("  sensor %-12s %-7s topic=%s", e.Name, e.Kind, e.Topic)
	}

	routed := resolver.RoutedTopics(d.cfg.Source.Topics())
	d.stats.Total = d.cfg.Source.MessageCount(routed)
	d.log.Info("routed topics: %d  records: %d", len(routed), d.stats.Total)

	d.log.Info("creating folders")
	sinks, err := BuildOutputLayout(d.cfg.OutputRoot, entries)
	if err != nil {
		return err
	}
	d.log.Info("writing %d sensors under %s", sinks.Len(), sinks.Root())

	// ── Finalizing ───────────────────────────────────────────────────
	defer func() {
		d.state = StateFinalizing
		d.log.Info("closing files")
		if cerr := sinks.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		d.log.Info("run finished  seen=%d written=%d skipped=%d images=%d",
			d.stats.Seen, d.stats.Written, d.stats.Skipped, d.stats.Images)
	}()

	// ── Streaming ────────────────────────────────────────────────────
	d.state = StateStreaming
	d.log.Info("reading bag")
	it := d.cfg.Source.Messages(routed)
	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := d.handle(resolver, sinks, rec); err != nil {
			return err
		}
	}
}

// handle routes one record to its serializer and advances progress.
func (d *ConversionDriver) handle(resolver *TopicResolver, sinks *SinkSet, rec *models.Record) error {
	d.stats.Seen++
	d.cfg.Metrics.seen()
	defer d.cfg.Progress(d.stats.Seen, d.stats.Total)

	entry, ok := resolver.Resolve(rec.Topic)
	if !ok {
		d.stats.Skipped++
		d.cfg.Metrics.skipped()
		d.log.Debug("skipping record on unmapped topic %s", rec.Topic)
		return nil
	}
	sink, ok := sinks.Lookup(entry.Topic)
	if !ok {
		return fmt.Errorf("no output sink for sensor %q", entry.Name)
	}
	if rec.Kind != entry.Kind || rec.Payload == nil {
		return utils.ConfigErrorf("dispatch record",
			"topic %s carries %q but sensor %q is configured as %s",
			rec.Topic, rec.DataType, entry.Name, entry.Kind)
	}

	var err error
	switch p := rec.Payload.(type) {
	case *models.CameraImage:
		var img image.Image
		if img, err = d.cfg.DecodeImage(p); err != nil {
			return utils.WrapIO(err, "decode image on "+rec.Topic, "")
		}
		if err = writeCameraRecord(sink, img, p.TimestampNs); err == nil {
			d.stats.Images++
			d.cfg.Metrics.image(entry.Name)
		}
	case *models.IMUData:
		err = writeIMURecord(sink, p)
	case *models.ViconPose:
		err = writeViconRecord(sink, p)
	default:
		err = fmt.Errorf("unexpected payload %T on %s", rec.Payload, rec.Topic)
	}
	if err != nil {
		return err
	}
	d.stats.Written++
	d.cfg.Metrics.written(entry.Name, entry.Kind.String())
	return nil
}
