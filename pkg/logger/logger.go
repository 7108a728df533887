package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log является глобальным экземпляром логгера для всего приложения.
// Создается сразу, чтобы пакеты и тесты могли писать в лог до Init.
var Log = logrus.New()

// Init инициализирует глобальный логгер из окружения (LOG_LEVEL, LOG_FORMAT).
// Вызывается один раз при старте в main.go.
func Init() {
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}
	Configure(logLevel, os.Getenv("LOG_FORMAT"))
}

// Configure перенастраивает логгер уже после загрузки конфига.
// "json" - для продакшена и сбора логов, иначе цветной текст для разработки.
func Configure(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	Log.SetOutput(os.Stdout)
}

// Silence глушит вывод (тесты, консольный клиент).
func Silence() {
	Log.SetOutput(io.Discard)
}

// Component возвращает запись с полем component - так помечаются логи подсистем.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
