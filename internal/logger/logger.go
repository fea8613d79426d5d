package logger

import (
	"github.com/sirupsen/logrus"
)

// Log доступен сразу с настройками по умолчанию, Init уточняет их.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
