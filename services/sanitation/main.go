package sanitation

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"variationutil/api/models"
	"variationutil/api/utils"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

type (
	// SanitationService periodically removes import session directories
	// left behind in the scratch path.
	SanitationService struct {
		Initialized bool
		Config      *models.Config

		scheduler *gocron.Scheduler
		logger    *zap.Logger
		mu        sync.Mutex
	}
)

func NewSanitationService(cfg *models.Config, logger *zap.Logger) *SanitationService {
	ss := &SanitationService{
		Initialized: false,
		Config:      cfg,
		logger:      utils.OrNop(logger).Named("sanitation"),
	}

	ss.Init()

	return ss
}

func (ss *SanitationService) Init() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.Initialized {
		return
	}

	ss.scheduler = gocron.NewScheduler(time.UTC)
	ss.scheduler.Every(1).Days().At("04:00:00").Do(func() { // 12am EST
		ss.logger.Info("running session cleanup")
		removed, err := ss.Sweep(time.Now())
		if err != nil {
			ss.logger.Error("session cleanup failed", zap.Error(err))
			return
		}
		ss.logger.Info("session cleanup done", zap.Int("removed", len(removed)))
	})
	ss.scheduler.StartAsync()

	ss.Initialized = true
	ss.logger.Info("sanitation service initialized", zap.Int("maxAgeHours", ss.Config.Api.SessionMaxAgeHours))
}

func (ss *SanitationService) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.scheduler != nil {
		ss.scheduler.Stop()
	}
	ss.Initialized = false
}

// Sweep deletes the session directories under the scratch path last
// modified more than SessionMaxAgeHours before now, and returns them.
// A non-positive age keeps everything.
func (ss *SanitationService) Sweep(now time.Time) ([]string, error) {
	maxAge := time.Duration(ss.Config.Api.SessionMaxAgeHours) * time.Hour
	if maxAge <= 0 {
		return nil, nil
	}

	entries, err := os.ReadDir(ss.Config.Api.ScratchPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}

		dir := filepath.Join(ss.Config.Api.ScratchPath, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			ss.logger.Warn("unable to remove session", zap.String("dir", dir), zap.Error(err))
			continue
		}
		removed = append(removed, dir)
	}
	return removed, nil
}
