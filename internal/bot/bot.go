package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/internal/scheduler"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// Scanner запускает внеплановый проход по команде пользователя
type Scanner interface {
	Scan(ctx context.Context) ([]*models.Signal, error)
}

// PairSource выдает текущую вселенную пар
type PairSource interface {
	GetLiquidPairs(ctx context.Context) ([]string, error)
}

// chatSettings пользовательские фильтры уведомлений.
// Влияют только на доставку, не на скоринг.
type chatSettings struct {
	minScore    int
	strongOnly  bool
	notifyLong  bool
	notifyShort bool
}

// Bot связывает ядро сканера с Telegram: принимает команды
// и доставляет сигналы, сводки и отчеты об ошибках
type Bot struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	config   *config.Config
	scanner  Scanner
	pairs    PairSource
	sched    *scheduler.Scheduler
	mu       sync.Mutex
	settings map[int64]*chatSettings
}

// New создает бота и проверяет токен у Telegram
func New(token string, chatID int64, cfg *config.Config, scanner Scanner, pairs PairSource) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Telegram-бота: %w", err)
	}

	logger.Info("Telegram-бот авторизован", zap.String("username", api.Self.UserName))

	return &Bot{
		api:      api,
		chatID:   chatID,
		config:   cfg,
		scanner:  scanner,
		pairs:    pairs,
		settings: make(map[int64]*chatSettings),
	}, nil
}

// SetScheduler привязывает планировщик. Бот и планировщик ссылаются
// друг на друга, поэтому связь устанавливается после создания обоих.
func (b *Bot) SetScheduler(sched *scheduler.Scheduler) {
	b.sched = sched
}

// Run принимает команды до отмены контекста
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		b.handleCommand(ctx, update.Message)
	}
}

// NotifySignal отправляет сигнал, если он проходит фильтры чата
func (b *Bot) NotifySignal(ctx context.Context, signal *models.Signal) error {
	if !b.shouldSend(signal) {
		logger.Debug("Сигнал отфильтрован настройками чата", zap.String("symbol", signal.Symbol))
		return nil
	}

	if err := b.send(formatSignal(signal)); err != nil {
		return err
	}

	logger.Info("Сигнал отправлен", zap.String("symbol", signal.Symbol), zap.String("direction", signal.Direction))

	// Небольшая пауза между сообщениями, чтобы не упереться в лимиты Telegram
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
	}

	return nil
}

// NotifySummary отправляет сводку прохода
func (b *Bot) NotifySummary(_ context.Context, summary *models.ScanSummary) error {
	return b.send(formatSummary(summary))
}

// NotifyError отправляет отчет об ошибке цикла
func (b *Bot) NotifyError(_ context.Context, scanErr error) error {
	return b.send(formatError(scanErr))
}

// SendStartup отправляет приветственное сообщение при запуске процесса
func (b *Bot) SendStartup() error {
	text := fmt.Sprintf(
		"🚀 <b>Futures Screener запущен!</b>\n\n"+
			"Интервал сканирования: %dс\n"+
			"Минимальный балл сигнала: %d\n\n"+
			"Используйте /start для списка команд.",
		b.config.Scanner.IntervalSeconds, b.config.Signal.MinScore)
	return b.send(text)
}

// handleCommand разбирает и выполняет одну команду
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	logger.Debug("Получена команда", zap.String("command", msg.Command()), zap.Int64("chat", msg.Chat.ID))

	switch msg.Command() {
	case "start":
		b.reply(msg, b.welcomeText())
	case "scan_now":
		b.handleScanNow(ctx, msg)
	case "stats":
		b.reply(msg, b.statsText())
	case "settings":
		b.reply(msg, b.settingsText(msg.Chat.ID))
	case "pairs":
		b.handlePairs(ctx, msg)
	case "pause":
		b.sched.Pause()
		b.reply(msg, "⏸ Сканирование приостановлено.\nИспользуйте /resume для возобновления.")
	case "resume":
		b.sched.Resume()
		b.reply(msg, "▶️ Сканирование возобновлено.")
	case "test":
		b.reply(msg, "🧪 <b>Тестовый сигнал:</b>\n\n"+formatSignal(testSignal()))
	case "set_score":
		b.handleSetScore(msg)
	case "toggle_long":
		s := b.updateChat(msg.Chat.ID, func(s *chatSettings) { s.notifyLong = !s.notifyLong })
		b.reply(msg, toggleText("LONG сигналы", s.notifyLong))
	case "toggle_short":
		s := b.updateChat(msg.Chat.ID, func(s *chatSettings) { s.notifyShort = !s.notifyShort })
		b.reply(msg, toggleText("SHORT сигналы", s.notifyShort))
	case "strong_only":
		s := b.updateChat(msg.Chat.ID, func(s *chatSettings) { s.strongOnly = !s.strongOnly })
		status := "выключен"
		if s.strongOnly {
			status = "включен"
		}
		b.reply(msg, fmt.Sprintf("✅ Фильтр 'Только сильные сигналы' %s", status))
	case "reset":
		b.mu.Lock()
		delete(b.settings, msg.Chat.ID)
		b.mu.Unlock()
		b.reply(msg, "✅ Настройки сброшены на значения по умолчанию")
	}
}

// handleScanNow запускает синхронный внеплановый проход
func (b *Bot) handleScanNow(ctx context.Context, msg *tgbotapi.Message) {
	b.reply(msg, "🔍 Запускаю ручное сканирование...")

	signals, err := b.scanner.Scan(ctx)
	if err != nil {
		logger.Error("Ошибка ручного сканирования", zap.Error(err))
		b.reply(msg, fmt.Sprintf("❌ Ошибка при сканировании:\n%s", err))
		return
	}

	if len(signals) == 0 {
		b.reply(msg, "❌ Сигналов не найдено.\nПопробуйте позже или измените параметры фильтрации.")
		return
	}

	b.reply(msg, fmt.Sprintf("✅ Сканирование завершено!\nНайдено сигналов: %d", len(signals)))
	for _, signal := range signals {
		if err := b.NotifySignal(ctx, signal); err != nil {
			logger.Error("Ошибка отправки сигнала", zap.Error(err))
		}
	}
}

// handlePairs показывает текущую вселенную пар
func (b *Bot) handlePairs(ctx context.Context, msg *tgbotapi.Message) {
	b.reply(msg, "⏳ Загружаю список пар...")

	pairs, err := b.pairs.GetLiquidPairs(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки списка пар", zap.Error(err))
		b.reply(msg, fmt.Sprintf("❌ Ошибка загрузки пар:\n%s", err))
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>📋 Отслеживаемые пары:</b>\n\n")

	shown := pairs
	if len(shown) > 50 {
		shown = shown[:50]
	}
	for _, pair := range shown {
		fmt.Fprintf(&sb, "• %s\n", pair)
	}
	if len(pairs) > 50 {
		fmt.Fprintf(&sb, "\n... и ещё %d пар", len(pairs)-50)
	}
	fmt.Fprintf(&sb, "\n<b>Всего:</b> %d пар", len(pairs))

	b.reply(msg, sb.String())
}

// handleSetScore устанавливает минимальный балл доставки для чата
func (b *Bot) handleSetScore(msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	score, err := strconv.Atoi(arg)
	if err != nil || score < 1 || score > models.MaxScore {
		b.reply(msg, "❌ Использование: /set_score [число от 1 до 10]\nПример: /set_score 6")
		return
	}

	b.updateChat(msg.Chat.ID, func(s *chatSettings) { s.minScore = score })
	b.reply(msg, fmt.Sprintf("✅ Минимальный балл установлен: %d", score))
}

// shouldSend проверяет сигнал против фильтров чата назначения.
// Фильтры копируются под блокировкой: их читает горутина планировщика,
// а меняет горутина команд.
func (b *Bot) shouldSend(signal *models.Signal) bool {
	b.mu.Lock()
	s, ok := b.settings[b.chatID]
	var filters chatSettings
	if ok {
		filters = *s
	}
	b.mu.Unlock()

	if !ok {
		return true
	}

	if signal.Score < filters.minScore {
		return false
	}
	if filters.strongOnly && signal.Strength != models.StrengthStrong {
		return false
	}
	if signal.Direction == models.DirectionLong && !filters.notifyLong {
		return false
	}
	if signal.Direction == models.DirectionShort && !filters.notifyShort {
		return false
	}

	return true
}

// chat возвращает копию настроек чата, создавая их при первом обращении
func (b *Bot) chat(chatID int64) chatSettings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.chatLocked(chatID)
}

// updateChat изменяет настройки чата под блокировкой и возвращает
// получившееся состояние
func (b *Bot) updateChat(chatID int64, change func(*chatSettings)) chatSettings {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.chatLocked(chatID)
	change(s)
	return *s
}

// chatLocked выдает настройки чата; вызывающий держит b.mu
func (b *Bot) chatLocked(chatID int64) *chatSettings {
	s, ok := b.settings[chatID]
	if !ok {
		s = &chatSettings{
			minScore:    b.config.Signal.MinScore,
			notifyLong:  true,
			notifyShort: true,
		}
		b.settings[chatID] = s
	}
	return s
}

// send отправляет HTML-сообщение в основной чат
func (b *Bot) send(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("ошибка отправки сообщения: %w", err)
	}
	return nil
}

// reply отвечает в чат команды
func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(out); err != nil {
		logger.Error("Ошибка ответа на команду", zap.Error(err))
	}
}

// welcomeText текст команды /start
func (b *Bot) welcomeText() string {
	return fmt.Sprintf(
		"🤖 <b>Futures Screener Bot</b>\n\n"+
			"<b>📋 Доступные команды:</b>\n"+
			"/start - Показать это сообщение\n"+
			"/scan_now - Запустить сканирование сейчас\n"+
			"/stats - Статистика работы бота\n"+
			"/settings - Настройки фильтров\n"+
			"/pairs - Список отслеживаемых пар\n"+
			"/pause - Приостановить сканирование\n"+
			"/resume - Возобновить сканирование\n"+
			"/test - Тестовое сообщение\n\n"+
			"<b>⚙️ Текущие настройки:</b>\n"+
			"• Интервал сканирования: %dс\n"+
			"• Минимальный балл сигнала: %d\n"+
			"• Минимальный объем: $%.0fM",
		b.config.Scanner.IntervalSeconds,
		b.config.Signal.MinScore,
		b.config.Scanner.MinVolumeUSDT/1_000_000)
}

// statsText текст команды /stats
func (b *Bot) statsText() string {
	stats := b.sched.Stats()
	uptime := time.Since(stats.StartTime)
	hours := int(uptime.Hours())
	minutes := int(uptime.Minutes()) % 60

	return fmt.Sprintf(
		"📊 <b>Статистика бота</b>\n\n"+
			"⏱ <b>Время работы:</b> %dч %dм\n"+
			"🔍 <b>Всего сканирований:</b> %d\n"+
			"📢 <b>Отправлено сигналов:</b> %d",
		hours, minutes,
		stats.ScansTotal.Load(),
		stats.SignalsSent.Load())
}

// settingsText текст команды /settings
func (b *Bot) settingsText(chatID int64) string {
	s := b.chat(chatID)

	return fmt.Sprintf(
		"⚙️ <b>Настройки фильтров</b>\n\n"+
			"<b>Текущие параметры:</b>\n"+
			"• Минимальный балл: %d\n"+
			"• Только сильные сигналы: %s\n"+
			"• Уведомления о LONG: %s\n"+
			"• Уведомления о SHORT: %s\n\n"+
			"<b>Изменить настройки:</b>\n"+
			"/set_score [число] - Установить мин. балл (1-10)\n"+
			"/strong_only - Только сильные сигналы\n"+
			"/toggle_long - Вкл/выкл LONG сигналы\n"+
			"/toggle_short - Вкл/выкл SHORT сигналы\n"+
			"/reset - Сбросить все настройки",
		s.minScore, onOff(s.strongOnly), onOff(s.notifyLong), onOff(s.notifyShort))
}

func onOff(v bool) string {
	if v {
		return "✅"
	}
	return "❌"
}

func toggleText(what string, enabled bool) string {
	if enabled {
		return fmt.Sprintf("✅ %s включены", what)
	}
	return fmt.Sprintf("✅ %s выключены", what)
}

// testSignal образец сигнала для команды /test
func testSignal() *models.Signal {
	return &models.Signal{
		Symbol:    "BTCUSDT",
		Direction: models.DirectionLong,
		Strength:  models.StrengthStrong,
		Score:     8,
		MaxScore:  models.MaxScore,
		Price:     45000.0,
		Details: []string{
			"✓ EMA9 > EMA21",
			"✓ Price > EMA21",
			"✓ RSI in LONG zone (58.5)",
			"✓✓ Strong volume (2.30x)",
			"✓ Pattern: Hammer",
			"✓ M1 confirmation (RSI: 62.1)",
			"✓ Near support: $44950.00",
			"✓✓ Perfect EMA alignment",
		},
		Indicators5m: &models.IndicatorSet{
			EMAFast:       45100,
			EMAMedium:     44900,
			EMASlow:       44500,
			RSI:           58.5,
			ATR:           250,
			VolumeSMA:     50_000_000,
			CurrentVolume: 115_000_000,
		},
		Indicators1m: &models.IndicatorSet{RSI: 62.1},
		Patterns:     []string{"Hammer"},
		SRLevel:      &models.SRLevel{Price: 44950.0, Size: 850_000},
		Timestamp:    time.Now(),
	}
}
