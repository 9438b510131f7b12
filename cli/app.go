package cli

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/maastricht-university/nursecheck-triage/clients"
	"github.com/maastricht-university/nursecheck-triage/config"
	"github.com/maastricht-university/nursecheck-triage/directory"
	"github.com/maastricht-university/nursecheck-triage/lock"
	"github.com/maastricht-university/nursecheck-triage/orchestrator"
	"github.com/maastricht-university/nursecheck-triage/records"
	"github.com/maastricht-university/nursecheck-triage/render"
	"github.com/maastricht-university/nursecheck-triage/storage"
	"github.com/maastricht-university/nursecheck-triage/urgency"
)

// app holds the long-lived handles a command needs. close releases them.
type app struct {
	db       *gorm.DB
	dir      *directory.Store
	recs     *records.Store
	renderer *render.PDF
	pipeline *orchestrator.Pipeline
	redis    *lock.Redis
}

func openStores() (*app, error) {
	db, err := storage.Open(conf.Database, log)
	if err != nil {
		return nil, err
	}
	if err := directory.Migrate(db); err != nil {
		_ = storage.Close(db)
		return nil, fmt.Errorf("migrate directory: %w", err)
	}
	if err := records.Migrate(db); err != nil {
		_ = storage.Close(db)
		return nil, fmt.Errorf("migrate records: %w", err)
	}
	dir := directory.NewStore(db, log)
	return &app{
		db:       db,
		dir:      dir,
		recs:     records.NewStore(db, dir, log),
		renderer: render.NewPDF(conf.Paths.Records),
	}, nil
}

// openApp wires the full pipeline on top of the stores.
func openApp(ctx context.Context) (*app, error) {
	a, err := openStores()
	if err != nil {
		return nil, err
	}

	var locker lock.Locker
	switch conf.Lock.Backend {
	case "redis":
		r, err := lock.NewRedis(ctx, conf.Lock.RedisAddr, config.DurSeconds(conf.Lock.TTLSeconds))
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = r
		locker = r
	case "", "local":
		locker = lock.NewLocal()
	default:
		a.close()
		return nil, fmt.Errorf("unknown lock backend %q", conf.Lock.Backend)
	}

	h := clients.NewHTTP()
	svc := conf.Services
	a.pipeline = orchestrator.NewPipeline(orchestrator.Deps{
		Source:     clients.NewTranscriptSource(h, svc.Transcript, svc.Emotion.URL, log),
		Directory:  a.dir,
		Records:    a.recs,
		Classifier: urgency.NewClassifier(clients.NewOracle(svc.Oracle), log),
		Notifier:   clients.NewEmailNotifier(h, svc.Notify, a.dir, log),
		Renderer:   a.renderer,
		Locker:     locker,
		ReportsDir: conf.Paths.Reports,
		Log:        log,
	})
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.WithError(err).Warn("closing redis")
		}
	}
	if err := storage.Close(a.db); err != nil {
		log.WithError(err).Warn("closing database")
	}
}
