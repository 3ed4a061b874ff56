// Package prepare consumes pending records, probes their codec, and stages
// copies into the session working area for the encoder.
package prepare

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"recode/internal/config"
	"recode/internal/fileutil"
	"recode/internal/logging"
	"recode/internal/media/ffprobe"
	"recode/internal/registry"
	"recode/internal/services"
	"recode/internal/staging"
)

const cancelPollInterval = 100 * time.Millisecond

// Preparer stages pending files ahead of the encoder. Pushing into the
// bounded ready channel is its backpressure point: it blocks there until the
// encoder consumes an entry.
type Preparer struct {
	cfg     *config.Config
	reg     *registry.Registry
	session *staging.Session
	logger  *slog.Logger
}

// New builds a preparer over the session staging area.
func New(cfg *config.Config, reg *registry.Registry, session *staging.Session, logger *slog.Logger) *Preparer {
	return &Preparer{
		cfg:     cfg,
		reg:     reg,
		session: session,
		logger:  logging.NewComponentLogger(logger, "preparer"),
	}
}

// Run processes pending records in order, sending ready IDs into the channel.
// The channel is closed when no more work will arrive, which is the
// encoder's end-of-input signal. On shutdown the remaining pending records
// are marked Cancelled.
func (p *Preparer) Run(ctx context.Context, pending []int64, ready chan<- int64) {
	defer close(ready)

	ctx = services.WithStage(ctx, "preparer")
	for i, id := range pending {
		if ctx.Err() != nil {
			p.cancelRemaining(pending[i:], "shutdown")
			return
		}

		staged, ok := p.prepareOne(ctx, id)
		if !ok {
			continue
		}

		select {
		case ready <- staged:
		case <-ctx.Done():
			// The staged copy is orphaned by shutdown; release it before
			// cancelling the rest.
			p.release(staged)
			_ = p.reg.Transition(staged, registry.StatusCancelled, "shutdown")
			p.cancelRemaining(pending[i+1:], "shutdown")
			return
		}
	}
}

// prepareOne moves a record from Pending to Ready, Skipped, or a terminal
// failure. It returns the ID and true only when the record reached Ready.
func (p *Preparer) prepareOne(ctx context.Context, id int64) (int64, bool) {
	snap, ok := p.reg.Get(id)
	if !ok {
		return 0, false
	}
	ctx = services.WithRecordID(ctx, id)
	logger := logging.WithContext(ctx, p.logger).With(logging.String("file", snap.Name))

	if snap.CancelRequested {
		_ = p.reg.Transition(id, registry.StatusCancelled, "cancelled before check")
		return 0, false
	}

	if err := p.reg.Transition(id, registry.StatusChecking, "Probing codec"); err != nil {
		return 0, false
	}

	result, err := ffprobe.Inspect(ctx, p.cfg.Encoder.FFprobe, snap.SourcePath)
	if err != nil {
		p.failProbe(id, snap.SourcePath, services.Wrap(services.ErrProbe, "preparer", "inspect", "", err), logger)
		return 0, false
	}
	codec := result.VideoCodec()
	if codec == "" {
		p.failProbe(id, snap.SourcePath,
			services.Wrap(services.ErrProbe, "preparer", "inspect", "no video stream", nil), logger)
		return 0, false
	}

	logger.Debug("probe result",
		logging.String("codec", codec),
		logging.Int("audio_streams", result.AudioStreamCount()),
		logging.Float64("duration_s", result.DurationSeconds()),
		logging.Int64("bit_rate", result.BitRate()))
	_ = p.reg.Update(id, func(rec *registry.Record) { rec.Codec = codec })

	if codec == p.cfg.Encoder.TargetCodec {
		logger.Info("skipping, already target codec", logging.String("codec", codec))
		_ = p.reg.Transition(id, registry.StatusSkipped, "already "+codec)
		return 0, false
	}

	if p.reg.CancelRequested(id) {
		_ = p.reg.Transition(id, registry.StatusCancelled, "cancelled before copy")
		return 0, false
	}

	if err := p.reg.Transition(id, registry.StatusTransferring, "Copying..."); err != nil {
		return 0, false
	}

	stagedPath, err := p.stage(ctx, id, snap)
	if err != nil {
		p.release(id)
		if errors.Is(err, services.ErrCancelled) {
			_ = p.reg.Transition(id, registry.StatusCancelled, "cancelled during copy")
		} else {
			logger.Error("staging copy failed", logging.Error(err))
			_ = p.reg.Update(id, func(rec *registry.Record) {
				rec.Status = registry.StatusError
				rec.StatusNote = "Copy failed"
				rec.ErrorMessage = err.Error()
			})
		}
		return 0, false
	}

	_ = p.reg.Update(id, func(rec *registry.Record) {
		rec.Status = registry.StatusReady
		rec.StatusNote = "Ready for encode"
		rec.StagedPath = stagedPath
	})
	logger.Info("staged for encode", logging.String("codec", codec))
	return id, true
}

// stage copies the source into the per-record staging directory. The copy
// context is cancelled when the operator cancels the record, so large
// transfers stop promptly.
func (p *Preparer) stage(ctx context.Context, id int64, snap registry.Snapshot) (string, error) {
	dir, err := p.session.RecordDir(id)
	if err != nil {
		return "", services.Wrap(services.ErrFilesystem, "preparer", "stage", "", err)
	}
	stagedPath := filepath.Join(dir, snap.Name)

	copyCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(cancelPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-copyCtx.Done():
				return
			case <-ticker.C:
				if p.reg.CancelRequested(id) {
					cancel()
					return
				}
			}
		}
	}()

	if err := fileutil.CopyFileVerified(copyCtx, snap.SourcePath, stagedPath); err != nil {
		if p.reg.CancelRequested(id) || ctx.Err() != nil {
			return "", services.Wrap(services.ErrCancelled, "preparer", "stage", "copy interrupted", err)
		}
		return "", services.Wrap(services.ErrFilesystem, "preparer", "stage", "", err)
	}
	return stagedPath, nil
}

func (p *Preparer) failProbe(id int64, sourcePath string, probeErr error, logger *slog.Logger) {
	if p.cfg.Scan.DeleteProbeErrors {
		if err := os.Remove(sourcePath); err != nil {
			logger.Error("failed to delete unprobeable file", logging.Error(err))
			_ = p.reg.Update(id, func(rec *registry.Record) {
				rec.Status = registry.StatusError
				rec.StatusNote = "Probe error (delete failed)"
				rec.ErrorMessage = err.Error()
			})
			return
		}
		logger.Info("deleted unprobeable file")
		_ = p.reg.Transition(id, registry.StatusDeleted, "probe error (deleted)")
		return
	}
	logger.Warn("probe failed", logging.Error(probeErr))
	_ = p.reg.Update(id, func(rec *registry.Record) {
		rec.Status = registry.StatusError
		rec.StatusNote = "Probe failed"
		rec.ErrorMessage = probeErr.Error()
	})
}

func (p *Preparer) release(id int64) {
	if err := p.session.ReleaseRecord(id); err != nil {
		p.logger.Warn("failed to remove staging directory", logging.Int64("record", id), logging.Error(err))
	}
}

func (p *Preparer) cancelRemaining(ids []int64, note string) {
	for _, id := range ids {
		if snap, ok := p.reg.Get(id); ok && snap.Status == registry.StatusPending {
			_ = p.reg.Transition(id, registry.StatusCancelled, note)
		}
	}
}
