package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/catalog"
	"github.com/charlie0129/vetcalc/pkg/events"
)

// Backup writes the export file of the custom set into a directory on a cron
// schedule.
type Backup struct {
	dir     string
	catalog *catalog.Catalog
	hub     *events.EventHub
	sched   *Scheduler
	now     func() time.Time
	logger  logrus.FieldLogger
}

func NewBackup(cat *catalog.Catalog, hub *events.EventHub, schedule, dir string) (*Backup, error) {
	if dir == "" {
		return nil, pkgerrors.New("backup directory is empty")
	}

	b := &Backup{
		dir:     dir,
		catalog: cat,
		hub:     hub,
		now:     time.Now,
		logger:  logrus.WithField("component", "backup"),
	}
	b.sched = NewScheduler(b.run, b.preCheck, b.onUpcoming, b.onError)
	b.sched.PreCheckRetries = 3
	if err := b.sched.Schedule(schedule); err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid backup schedule %q", schedule)
	}
	return b, nil
}

func (b *Backup) Start() {
	b.sched.Start()
	next, _ := b.sched.Status()
	b.logger.WithFields(logrus.Fields{
		"schedule": b.sched.Expr(),
		"dir":      b.dir,
		"nextRun":  next.Format(time.DateTime),
	}).Info("backups scheduled")
}

func (b *Backup) Stop() {
	b.sched.Stop()
}

func (b *Backup) Skip() error {
	return b.sched.Skip()
}

// Postpone moves the next backup d later. It fails when the postponed run
// would not come before the one after it.
func (b *Backup) Postpone(d time.Duration) error {
	if err := b.sched.Postpone(d); err != nil {
		return err
	}
	b.logger.WithField("duration", d.String()).Info("next backup postponed")
	return nil
}

func (b *Backup) Status() BackupStatus {
	next, running := b.sched.Status()
	return BackupStatus{
		Schedule: b.sched.Expr(),
		Dir:      b.dir,
		NextRun:  next,
		Running:  running,
	}
}

// preCheck makes sure the backup directory exists.
func (b *Backup) preCheck() error {
	return os.MkdirAll(b.dir, 0750)
}

// run writes one backup. An empty custom set is not an error, there is
// simply nothing to back up.
func (b *Backup) run() error {
	data, err := b.catalog.Export()
	if errors.Is(err, catalog.ErrNothingToExport) {
		b.logger.Debug("no custom calculators, skipping backup")
		return nil
	}
	if err != nil {
		return err
	}

	path := filepath.Join(b.dir, calculator.ExportFilename(b.now()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write backup %s", path)
	}

	b.logger.WithField("path", path).Info("backup written")
	return nil
}

func (b *Backup) onUpcoming(data any) {
	b.logger.WithField("at", data).Debug("backup is about to run")
}

func (b *Backup) onError(data any) {
	err, _ := data.(error)
	if err == nil {
		return
	}
	b.logger.WithError(err).Error("backup failed")
	b.hub.Publish(events.BackupFailed, events.BackupEvent{
		Path:    b.dir,
		Message: err.Error(),
		Ts:      b.now().Unix(),
	})
}
