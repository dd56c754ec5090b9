package cron

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/repository"
)

// Service 周期计数器归零调度。与请求路径共用同一套行级事务纪律，
// 单个计数器归零失败只记日志，下个周期重试
type Service struct {
	db          *gorm.DB
	counterRepo *repository.CounterRepository
	interval    time.Duration
	stopChan    chan struct{}
}

func NewService(db *gorm.DB, counterRepo *repository.CounterRepository, interval time.Duration) *Service {
	return &Service{
		db:          db,
		counterRepo: counterRepo,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runCounterReset()
	log.Println("Cron service started (usage counter reset)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

func (s *Service) runCounterReset() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.ResetDueCounters(time.Now().UTC())
		}
	}
}

// ResetDueCounters 扫描到期计数器并逐个归零。
// 边界从原 reset_date 推进而非从当前时间，避免漂移；
// 未到期的计数器不受影响，重复执行是空操作
func (s *Service) ResetDueCounters(now time.Time) {
	due, err := s.counterRepo.ListDue(now)
	if err != nil {
		log.Printf("Failed to list due counters: %v", err)
		return
	}

	reset := 0
	for _, counter := range due {
		next := model.NextBoundary(counter.CounterType, counter.ResetDate, now)
		err := s.db.Transaction(func(tx *gorm.DB) error {
			ok, err := s.counterRepo.Reset(tx, counter.ID, counter.ResetDate, next)
			if err != nil {
				return err
			}
			if ok {
				reset++
			}
			// ok=false：并发请求已推进过边界，视为空操作
			return nil
		})
		if err != nil {
			// 行被在途请求占用等瞬时错误，下个周期重试
			log.Printf("Failed to reset counter %d (sub=%s type=%s): %v",
				counter.ID, counter.Sub, counter.CounterType, err)
		}
	}

	if reset > 0 {
		log.Printf("Counter reset completed: %d counters rolled over", reset)
	}
}

// RunNow 立即执行一次归零扫描（用于测试或手动触发）
func (s *Service) RunNow() {
	log.Println("Manual counter reset triggered...")
	s.ResetDueCounters(time.Now().UTC())
}
