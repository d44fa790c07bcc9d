package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skalibog/screener/internal/bot"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/internal/exchange"
	"github.com/skalibog/screener/internal/scanner"
	"github.com/skalibog/screener/internal/scheduler"
	"github.com/skalibog/screener/internal/universe"
	"github.com/skalibog/screener/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Init()
	defer logger.GetLogger().Sync()

	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	logger.Info("Проверка наличия файла конфигурации", zap.String("path", *configPath))
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Fatal("Файл конфигурации не найден", zap.String("path", *configPath))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		logger.Fatal("Ошибка загрузки секретов", zap.Error(err))
	}
	if secrets.TelegramBotToken == "" {
		logger.Fatal("Не задан TELEGRAM_BOT_TOKEN")
	}
	chatID := cfg.Telegram.ChatID
	if secrets.TelegramChatID != 0 {
		chatID = secrets.TelegramChatID
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Обработка сигналов завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Завершение работы...")
		cancel()
		time.Sleep(3 * time.Second) // Даем горутинам время на завершение
		os.Exit(0)
	}()

	// Клиент биржи: ошибка инициализации фатальна
	client := exchange.NewBinanceClient(cfg.Binance, cfg.Scanner)
	if err := client.Init(ctx); err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}

	pairs := universe.NewService(client, cfg.Scanner)
	scan := scanner.NewScanner(client, pairs, cfg.Scanner, cfg.Signal)

	tgBot, err := bot.New(secrets.TelegramBotToken, chatID, cfg, scan, pairs)
	if err != nil {
		logger.Fatal("Ошибка инициализации Telegram-бота", zap.Error(err))
	}

	sched := scheduler.NewScheduler(scan, tgBot, time.Duration(cfg.Scanner.IntervalSeconds)*time.Second)
	tgBot.SetScheduler(sched)

	if err := tgBot.SendStartup(); err != nil {
		logger.Error("Не удалось отправить стартовое сообщение", zap.Error(err))
	}

	// Команды бота в отдельной горутине
	go tgBot.Run(ctx)

	// Цикл сканирования в основной горутине (блокирующий вызов)
	sched.Start(ctx)
}
