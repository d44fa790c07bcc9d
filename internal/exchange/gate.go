package exchange

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// gate ограничивает сетевые запросы к бирже: не более N запросов
// одновременно и не чаще заданной частоты. Через него проходят все
// вызовы рыночных данных, чтобы не упираться в лимиты биржи.
type gate struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// newGate создает ограничитель на maxConcurrent одновременных запросов
// с частотой не выше maxPerSecond запросов в секунду
func newGate(maxConcurrent, maxPerSecond int) *gate {
	return &gate{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		limiter: rate.NewLimiter(rate.Limit(maxPerSecond), 1),
	}
}

// enter занимает слот и выдерживает паузу перед запросом.
// Каждый успешный enter обязан сопровождаться leave.
func (g *gate) enter(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.sem.Release(1)
		return err
	}
	return nil
}

// leave освобождает слот
func (g *gate) leave() {
	g.sem.Release(1)
}
