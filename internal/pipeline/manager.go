// Package pipeline wires the stages together: one scan, one preparer
// feeding a bounded ready channel, and a single encoder draining it.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"recode/internal/config"
	"recode/internal/encode"
	"recode/internal/ledger"
	"recode/internal/logging"
	"recode/internal/prepare"
	"recode/internal/registry"
	"recode/internal/renderdev"
	"recode/internal/scan"
	"recode/internal/services"
	"recode/internal/staging"
)

// Manager owns one run of the pipeline from scan to ledger write.
type Manager struct {
	cfg     *config.Config
	reg     *registry.Registry
	session *staging.Session
	store   *ledger.Store
	logger  *slog.Logger

	startedAt time.Time
}

// NewManager assembles a pipeline over an open staging session. store may be
// nil when run history is disabled.
func NewManager(cfg *config.Config, reg *registry.Registry, session *staging.Session, store *ledger.Store, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		reg:     reg,
		session: session,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Registry exposes the run's registry for the display layer.
func (m *Manager) Registry() *registry.Registry {
	return m.reg
}

// EncodeTimeout returns the configured per-encode limit, zero when disabled.
func (m *Manager) EncodeTimeout() time.Duration {
	if m.cfg.Encoder.EncodeTimeout <= 0 {
		return 0
	}
	return time.Duration(m.cfg.Encoder.EncodeTimeout) * time.Second
}

// Run executes one full pipeline pass and blocks until every record reaches
// a terminal status or ctx is cancelled. Cancelling ctx stops new work,
// interrupts the in-flight encode, and marks interrupted records Cancelled;
// the run summary is written either way.
func (m *Manager) Run(ctx context.Context) error {
	m.startedAt = time.Now()

	monitor := renderdev.New(m.cfg.Encoder.QSVDevice, m.logger, nil)
	_ = monitor.Start(ctx)
	defer monitor.Stop()

	scanner := scan.New(m.cfg, m.reg, m.session.Contains, m.logger)
	pending, err := scanner.Run(ctx)
	if err != nil {
		return err
	}

	capacity := m.cfg.Encoder.PrepareCapacity
	if capacity < 1 {
		capacity = 1
	}
	// The preparer blocks on send with one staged file in hand, so the
	// buffer plus the blocked sender together realize the configured bound.
	ready := make(chan int64, capacity-1)

	preparer := prepare.New(m.cfg, m.reg, m.session, m.logger)
	go preparer.Run(ctx, pending, ready)

	enc := &encode.Encoder{
		FFmpeg:      m.cfg.Encoder.FFmpeg,
		FFprobe:     m.cfg.Encoder.FFprobe,
		Device:      m.cfg.Encoder.QSVDevice,
		Preset:      m.cfg.Encoder.Preset,
		TargetCodec: m.cfg.Encoder.TargetCodec,
		Timeout:     m.EncodeTimeout(),
		Logger:      m.logger,
	}

	for id := range ready {
		m.encodeOne(ctx, enc, id)
	}

	m.recordRun(ctx)

	if ctx.Err() != nil {
		return services.Wrap(services.ErrCancelled, "pipeline", "run", "interrupted", ctx.Err())
	}
	return nil
}

// encodeOne drives a single Ready record to a terminal status.
func (m *Manager) encodeOne(ctx context.Context, enc *encode.Encoder, id int64) {
	defer m.releaseStaging(id)

	snap, ok := m.reg.Get(id)
	if !ok {
		return
	}
	ctx = services.WithStage(services.WithRecordID(ctx, id), "encoder")
	logger := logging.WithContext(ctx, m.logger)

	if snap.CancelRequested || ctx.Err() != nil {
		_ = m.reg.Transition(id, registry.StatusCancelled, "cancelled before encode")
		return
	}

	_ = m.reg.Update(id, func(rec *registry.Record) {
		rec.Status = registry.StatusEncoding
		rec.StatusNote = "FFmpeg running"
		rec.EncodeStartedAt = time.Now()
	})

	size, err := enc.Encode(ctx, encode.Request{
		StagedPath:   snap.StagedPath,
		OriginalPath: snap.SourcePath,
		InputCodec:   snap.Codec,
		Cancelled:    func() bool { return m.reg.CancelRequested(id) },
	})
	if err != nil {
		m.failEncode(id, err, logger)
		return
	}

	_ = m.reg.Update(id, func(rec *registry.Record) {
		rec.Status = registry.StatusSuccess
		rec.StatusNote = "AV1 Encoded"
		rec.EncodedSize = size
	})
}

func (m *Manager) failEncode(id int64, err error, logger *slog.Logger) {
	status := services.FailureStatus(err)
	note := "FFmpeg failed"
	switch {
	case errors.Is(err, services.ErrTimeout):
		note = "Timed out"
	case errors.Is(err, services.ErrCancelled):
		note = "Cancelled"
	}

	logger.Warn("encode did not complete",
		logging.String("status", string(status)),
		logging.Error(err))

	_ = m.reg.Update(id, func(rec *registry.Record) {
		rec.Status = status
		rec.StatusNote = note
		if status == registry.StatusError {
			rec.ErrorMessage = err.Error()
		}
	})
}

func (m *Manager) releaseStaging(id int64) {
	if err := m.session.ReleaseRecord(id); err != nil {
		m.logger.Warn("failed to remove staging directory",
			logging.Int64("record", id), logging.Error(err))
	}
}

// recordRun writes the run summary to the ledger. The write happens on a
// fresh context so a cancelled run is still recorded.
func (m *Manager) recordRun(ctx context.Context) {
	if m.store == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	runID, err := m.store.RecordRun(writeCtx, ledger.Run{
		SessionID:  m.session.ID(),
		SourceDir:  m.cfg.Paths.SourceDir,
		StartedAt:  m.startedAt,
		FinishedAt: time.Now(),
	}, m.reg.Snapshot())
	if err != nil {
		m.logger.Warn("failed to record run history", logging.Error(err))
		return
	}
	m.logger.Info("run recorded", logging.Int64("run", runID))

	if days := m.cfg.Ledger.RetentionDays; days > 0 {
		if removed, err := m.store.Prune(writeCtx, time.Duration(days)*24*time.Hour); err != nil {
			m.logger.Warn("failed to prune run history", logging.Error(err))
		} else if removed > 0 {
			m.logger.Info("pruned old runs", logging.Int64("removed", removed))
		}
	}
}
