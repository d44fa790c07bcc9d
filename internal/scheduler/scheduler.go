package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// defaultCooldown пауза после ошибки полного цикла
const defaultCooldown = 60 * time.Second

// ScanRunner выполняет один проход сканирования
type ScanRunner interface {
	Scan(ctx context.Context) ([]*models.Signal, error)
}

// Notifier принимает структурированные результаты сканирования.
// Форматирование в пользовательский текст происходит на стороне получателя.
type Notifier interface {
	NotifySignal(ctx context.Context, signal *models.Signal) error
	NotifySummary(ctx context.Context, summary *models.ScanSummary) error
	NotifyError(ctx context.Context, scanErr error) error
}

// Stats накопительные счетчики процесса. Переживают циклы, но не рестарт.
type Stats struct {
	ScansTotal  atomic.Int64
	SignalsSent atomic.Int64
	StartTime   time.Time
}

// Scheduler повторяет проходы сканирования с фиксированным интервалом.
// Состояния: остановлен, работает, на паузе. Проходы никогда не
// перекрываются: новый не начинается, пока не завершился предыдущий
// вместе со своим сном.
type Scheduler struct {
	runner   ScanRunner
	notifier Notifier
	interval time.Duration
	cooldown time.Duration
	running  atomic.Bool
	paused   atomic.Bool
	stats    Stats
}

// NewScheduler создает новый планировщик
func NewScheduler(runner ScanRunner, notifier Notifier, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		notifier: notifier,
		interval: interval,
		cooldown: defaultCooldown,
	}
}

// Start входит в цикл сканирования и блокирует до Stop или отмены контекста
func (s *Scheduler) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warn("Планировщик уже запущен")
		return
	}

	s.stats.StartTime = time.Now()
	logger.Info("Планировщик запущен", zap.Duration("interval", s.interval))

	for s.running.Load() {
		delay := s.interval

		if !s.paused.Load() {
			if err := s.performScan(ctx); err != nil {
				if ctx.Err() != nil {
					break
				}
				// Ошибка цикла не фатальна: охлаждаемся и пробуем снова
				logger.Error("Ошибка цикла сканирования", zap.Error(err))
				s.notify(ctx, err)
				delay = s.cooldown
			}
		}

		select {
		case <-ctx.Done():
			s.running.Store(false)
		case <-time.After(delay):
		}
	}

	logger.Info("Планировщик остановлен")
}

// Stop останавливает цикл на ближайшей границе сна
func (s *Scheduler) Stop() {
	s.running.Store(false)
	logger.Info("Планировщику дана команда остановки")
}

// Pause приостанавливает проходы, не останавливая цикл
func (s *Scheduler) Pause() {
	s.paused.Store(true)
	logger.Info("Сканирование приостановлено")
}

// Resume возобновляет проходы
func (s *Scheduler) Resume() {
	s.paused.Store(false)
	logger.Info("Сканирование возобновлено")
}

// IsPaused сообщает, приостановлены ли проходы
func (s *Scheduler) IsPaused() bool {
	return s.paused.Load()
}

// Stats возвращает накопительные счетчики
func (s *Scheduler) Stats() *Stats {
	return &s.stats
}

// performScan запускает один проход и рассылает результаты
func (s *Scheduler) performScan(ctx context.Context) error {
	start := time.Now()
	logger.Info("Начат плановый проход сканирования")

	signals, err := s.runner.Scan(ctx)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	s.stats.ScansTotal.Add(1)

	if len(signals) == 0 {
		logger.Info("Сигналов не найдено", zap.Duration("elapsed", elapsed))
		return nil
	}

	var longs, shorts int
	for _, signal := range signals {
		if signal.Direction == models.DirectionLong {
			longs++
		} else {
			shorts++
		}

		if err := s.notifier.NotifySignal(ctx, signal); err != nil {
			logger.Error("Ошибка отправки сигнала", zap.String("symbol", signal.Symbol), zap.Error(err))
			continue
		}
		s.stats.SignalsSent.Add(1)
	}

	summary := &models.ScanSummary{
		Signals:   len(signals),
		Longs:     longs,
		Shorts:    shorts,
		Elapsed:   elapsed,
		Timestamp: time.Now(),
	}

	if err := s.notifier.NotifySummary(ctx, summary); err != nil {
		logger.Error("Ошибка отправки сводки", zap.Error(err))
	}

	return nil
}

// notify отправляет отчет об ошибке цикла, не ломаясь на ошибке доставки
func (s *Scheduler) notify(ctx context.Context, scanErr error) {
	if err := s.notifier.NotifyError(ctx, scanErr); err != nil {
		logger.Error("Ошибка отправки отчета об ошибке", zap.Error(err))
	}
}
