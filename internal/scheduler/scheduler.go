package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/config"
	"github.com/dimasfr/gudangbot/internal/service/recap"
	"github.com/dimasfr/gudangbot/pkg/clients/telegram"
)

// Scheduler broadcasts the full stock recap to a configured chat on a cron
// schedule.
type Scheduler struct {
	cron     *cron.Cron
	recapSvc *recap.Service
	bot      telegram.Client
	cfg      config.RecapConfig
	chatID   int64
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.RecapConfig, recapSvc *recap.Service, bot telegram.Client, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
	}

	var chatID int64
	if cfg.ChatID != "" {
		var err error
		chatID, err = strconv.ParseInt(cfg.ChatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid recap chat id %s: %w", cfg.ChatID, err)
		}
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		recapSvc: recapSvc,
		bot:      bot,
		cfg:      cfg,
		chatID:   chatID,
		logger:   logger,
	}, nil
}

// Start registers the recap broadcast and starts the cron loop. A missing
// chat id disables the broadcast without failing startup.
func (s *Scheduler) Start() {
	if s.chatID == 0 {
		s.logger.Info("recap broadcast disabled, no chat configured")
		return
	}
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sendStockRecap); err != nil {
		s.logger.Error("failed to schedule stock recap", zap.Error(err))
		return
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sendStockRecap() {
	s.logger.Info("generating stock recap broadcast")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.recapSvc.AllStock(ctx)
	if err != nil {
		s.logger.Error("failed to build stock recap", zap.Error(err))
		return
	}

	if err := s.bot.SendText(ctx, s.chatID, report, nil); err != nil {
		s.logger.Error("failed to send stock recap", zap.Error(err))
	} else {
		s.logger.Info("stock recap sent successfully")
	}
}
