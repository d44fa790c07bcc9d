package universe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// MarketClient описывает часть биржевого клиента, необходимую для
// построения списка ликвидных пар
type MarketClient interface {
	ListMarkets(ctx context.Context) ([]models.Market, error)
	FetchTicker(ctx context.Context, symbol string) (*models.Ticker, error)
}

// snapshot кэшированный список пар с меткой времени
type snapshot struct {
	pairs      []string
	capturedAt time.Time
}

// Service отбирает ликвидные бессрочные USDT-пары и кэширует результат.
// Кэш заменяется целиком атомарно: перекрытия проходов исключены
// планировщиком, поэтому блокировок сверх этого не требуется.
type Service struct {
	client MarketClient
	cfg    config.ScannerConfig
	cache  atomic.Pointer[snapshot]
	now    func() time.Time
}

// NewService создает новый сервис отбора пар
func NewService(client MarketClient, cfg config.ScannerConfig) *Service {
	return &Service{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

// GetLiquidPairs возвращает список ликвидных пар. Пока кэш не устарел,
// возвращается кэшированный список без обращений к бирже. Ошибка
// перестроения не фатальна: отдается устаревший кэш, а без кэша
// пустой список, и следующий цикл пробует снова.
func (s *Service) GetLiquidPairs(ctx context.Context) ([]string, error) {
	ttl := time.Duration(s.cfg.PairsCacheHours) * time.Hour

	if cached := s.cache.Load(); cached != nil && s.now().Sub(cached.capturedAt) < ttl {
		logger.Debug("Используем кэшированные пары", zap.Int("count", len(cached.pairs)))
		return cached.pairs, nil
	}

	pairs, err := s.derive(ctx)
	if err != nil {
		if cached := s.cache.Load(); cached != nil {
			logger.Warn("Ошибка обновления списка пар, используем устаревший кэш",
				zap.Int("count", len(cached.pairs)), zap.Error(err))
			return cached.pairs, nil
		}
		logger.Error("Ошибка построения списка пар", zap.Error(err))
		return nil, nil
	}

	s.cache.Store(&snapshot{pairs: pairs, capturedAt: s.now()})
	return pairs, nil
}

// derive строит список заново: все активные бессрочные USDT-контракты,
// прошедшие порог по суточному объему
func (s *Service) derive(ctx context.Context) ([]string, error) {
	markets, err := s.client.ListMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка рынков: %w", err)
	}

	var candidates []string
	for _, m := range markets {
		if m.ContractType == "PERPETUAL" && m.QuoteAsset == "USDT" && m.Active {
			candidates = append(candidates, m.Symbol)
		}
	}

	logger.Info("Найдены бессрочные USDT-контракты", zap.Int("count", len(candidates)))

	// Проверяем ликвидность параллельно; одновременность ограничивает
	// общий ограничитель запросов внутри клиента
	liquid := make([]bool, len(candidates))
	var wg sync.WaitGroup

	for i, symbol := range candidates {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			liquid[i] = s.checkLiquidity(ctx, symbol)
		}(i, symbol)
	}

	wg.Wait()

	// Порядок пар сохраняет порядок списка рынков
	var pairs []string
	for i, symbol := range candidates {
		if liquid[i] {
			pairs = append(pairs, symbol)
		}
	}

	logger.Info("Отобраны ликвидные пары",
		zap.Int("count", len(pairs)),
		zap.Float64("min_volume_musdt", s.cfg.MinVolumeUSDT/1e6))

	return pairs, nil
}

// checkLiquidity проверяет суточный объем символа. Ошибка тикера
// означает "не ликвиден", а не ошибку всего отбора.
func (s *Service) checkLiquidity(ctx context.Context, symbol string) bool {
	ticker, err := s.client.FetchTicker(ctx, symbol)
	if err != nil {
		logger.Warn("Ошибка проверки ликвидности", zap.String("symbol", symbol), zap.Error(err))
		return false
	}

	// Порог включительный
	return ticker.QuoteVolume >= s.cfg.MinVolumeUSDT
}
