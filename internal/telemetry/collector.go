package telemetry

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bbellwfu/moip-manager/internal/infrastructure/config"
	"github.com/bbellwfu/moip-manager/internal/inventory"
	"github.com/bbellwfu/moip-manager/internal/moip"
	"github.com/bbellwfu/moip-manager/internal/moip/rest"
)

// Defaults applied when the telemetry config leaves values unset. The worker
// bound matches the per-device query limit used for bulk video reads.
const (
	defaultInterval = 60 * time.Second
	maxWorkers      = 10
)

// VideoSource fetches live transmitter video stats.
type VideoSource interface {
	TransmitterVideo(ctx context.Context, index int) (*rest.VideoTx, error)
}

// Inventory lists the known devices.
type Inventory interface {
	List(ctx context.Context) ([]inventory.Device, error)
}

// MetricWriter records one video sample. Satisfied by the influxdb client.
type MetricWriter interface {
	WriteVideoMetric(txIndex, groupID, width, height int, fps float64, signalPresent bool)
}

// Logger is the logging surface the collector needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Collector periodically samples video stats for every known transmitter.
type Collector struct {
	source   VideoSource
	inv      Inventory
	writer   MetricWriter
	logger   Logger
	interval time.Duration
	workers  int
}

// New creates a collector from the telemetry config, clamping the worker
// count to the per-device query bound.
func New(source VideoSource, inv Inventory, writer MetricWriter, logger Logger, cfg config.TelemetryConfig) *Collector {
	interval := time.Duration(cfg.Interval) * time.Second
	if cfg.Interval <= 0 {
		interval = defaultInterval
	}

	workers := cfg.Workers
	if workers <= 0 || workers > maxWorkers {
		workers = maxWorkers
	}

	return &Collector{
		source:   source,
		inv:      inv,
		writer:   writer,
		logger:   logger,
		interval: interval,
		workers:  workers,
	}
}

// Run samples on the configured interval until the context is cancelled.
// The first pass runs immediately rather than waiting one full interval.
func (c *Collector) Run(ctx context.Context) {
	c.logger.Info("video telemetry collector started", "interval", c.interval, "workers", c.workers)

	c.Collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("video telemetry collector stopped")
			return
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect runs one sampling pass: list transmitters from the inventory and
// fan the video queries out across the worker pool. Per-device failures are
// skipped, never fatal.
func (c *Collector) Collect(ctx context.Context) {
	devices, err := c.inv.List(ctx)
	if err != nil {
		c.logger.Warn("telemetry pass skipped, inventory list failed", "error", err)
		return
	}

	var transmitters []inventory.Device
	for _, d := range devices {
		if d.DeviceType == moip.KindTransmitter {
			transmitters = append(transmitters, d)
		}
	}
	if len(transmitters) == 0 {
		return
	}

	jobs := make(chan inventory.Device)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				c.sample(ctx, d)
			}
		}()
	}

	for _, d := range transmitters {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- d:
		}
	}
	close(jobs)
	wg.Wait()

	c.logger.Debug("telemetry pass complete", "transmitters", len(transmitters))
}

// sample fetches and records one transmitter's video stats.
func (c *Collector) sample(ctx context.Context, d inventory.Device) {
	video, err := c.source.TransmitterVideo(ctx, d.DeviceIndex)
	if err != nil {
		c.logger.Debug("video stats fetch failed", "tx", d.DeviceIndex, "error", err)
		return
	}

	width, height := parseResolution(video.Status.Resolution)
	fps := parseFrameRate(video.Status.FrameRate)
	signal := video.Status.State == "streaming"

	c.writer.WriteVideoMetric(d.DeviceIndex, d.GroupID, width, height, fps, signal)
}

// parseResolution splits a display string like "3840x2160" into width and
// height. Unparseable strings (no signal reads "0x0" or empty) yield zeros.
func parseResolution(s string) (width, height int) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0
	}
	height, err = strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0
	}
	return width, height
}

// parseFrameRate reads a frame-rate string such as "60", "59.94", or
// "60Hz", tolerating a unit suffix. Unparseable strings yield zero.
func parseFrameRate(s string) float64 {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimSuffix(s, "hz")
	s = strings.TrimSuffix(s, "fps")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	fps, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return fps
}
