package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"family-story-bot/internal/app"
	"family-story-bot/internal/config"
	"family-story-bot/internal/console"
	"family-story-bot/internal/interview"
	"family-story-bot/internal/logger"
	"family-story-bot/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Файл .env не найден, используются переменные окружения")
	}

	appCfg := config.LoadAppConfig()
	if err := appCfg.Validate(); err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	// в консоли лог мешает диалогу: по умолчанию только предупреждения
	level := appCfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	l := logger.New(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(appCfg.Paths.InterviewConfig)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации интервью: %v", err)
	}

	providers, err := app.NewProviders(ctx, appCfg, l)
	if err != nil {
		log.Fatalf("Ошибка инициализации сервисов: %v", err)
	}

	fmt.Println("📖 Семейная история")
	for _, line := range providers.Describe(cfg) {
		fmt.Println(line)
	}
	fmt.Println()

	host := console.NewHost(
		console.NewTerminalPrompter(),
		interview.NewGate(appCfg.Auth.SecretToken),
		func() *interview.Controller { return providers.NewInterview(cfg, nil) },
		appCfg.Paths.OutputDir,
		storage.NewArchive(appCfg.Paths.ResultsDir),
		l,
	)

	if err := host.Run(ctx); err != nil {
		if interview.IsKind(err, interview.KindAuth) || errors.Is(err, context.Canceled) {
			os.Exit(1)
		}
		log.Fatalf("Ошибка: %v", err)
	}
}
