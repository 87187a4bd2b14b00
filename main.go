package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"family-story-bot/internal/app"
	"family-story-bot/internal/config"
	"family-story-bot/internal/interview"
	"family-story-bot/internal/logger"
	"family-story-bot/internal/metrics"
	"family-story-bot/internal/storage"
	"family-story-bot/internal/telegram"
)

func main() {
	fmt.Println("🚀 Запуск Family Story Bot...")

	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Файл .env не найден, используются переменные окружения")
	}

	appCfg := config.LoadAppConfig()
	if err := appCfg.Validate(); err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}
	if appCfg.Telegram.Token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN не установлен")
	}

	l := logger.New(appCfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Загружаем конфигурацию интервью
	cfg, err := config.Load(appCfg.Paths.InterviewConfig)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации интервью: %v", err)
	}
	store := config.NewStore(cfg)

	watcher, err := config.Watch(ctx, appCfg.Paths.InterviewConfig, store, l)
	if err != nil {
		l.Warn(ctx, "Горячая перезагрузка конфигурации недоступна: %v", err)
	} else {
		defer watcher.Stop()
	}

	// Инициализируем сервисы
	fmt.Println("🔧 Инициализация сервисов...")

	providers, err := app.NewProviders(ctx, appCfg, l)
	if err != nil {
		log.Fatalf("Ошибка инициализации сервисов: %v", err)
	}
	m := metrics.NewMetrics()

	bot := telegram.New(appCfg.Telegram.Token, l)
	handler := telegram.NewHandler(bot, telegram.Services{
		Store: store,
		NewInterview: func(cfg *config.Config) *interview.Controller {
			return providers.NewInterview(cfg, m)
		},
		Gate:    interview.NewGate(appCfg.Auth.SecretToken),
		Archive: storage.NewArchive(appCfg.Paths.ResultsDir),
		Metrics: m,
		Logger:  l,
	})
	handler.StartSessionCleanup(ctx)
	fmt.Println("✅ Telegram бот инициализирован")

	// Выводим информацию о конфигурации
	fmt.Println("\n📋 Конфигурация:")
	for _, line := range providers.Describe(cfg) {
		fmt.Println(line)
	}

	fmt.Println("\n🤖 Telegram бот запущен!")
	fmt.Println("⏳ Ожидание сообщений...")
	fmt.Println("📱 Найдите бота в Telegram и отправьте /start")

	// Запускаем polling
	err = bot.StartPolling(ctx, func(update telegram.Update) {
		handler.HandleUpdate(ctx, update)
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("Ошибка запуска бота: %v", err)
	}

	fmt.Println("\n👋 Бот остановлен")
}
