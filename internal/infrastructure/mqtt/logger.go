package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// libraryLogger adapts slog to paho's package-level logger interface.
type libraryLogger struct {
	logger *slog.Logger
	level  slog.Level
}

func (l libraryLogger) Println(v ...interface{}) {
	l.logger.Log(context.Background(), l.level, strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l libraryLogger) Printf(format string, v ...interface{}) {
	l.logger.Log(context.Background(), l.level, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// SetLibraryLogger routes paho's internal logging through logger.
//
// paho's ERROR, CRITICAL and WARN output is always forwarded. Its DEBUG
// output is very chatty and is forwarded at debugLevel only when
// includeDebug is set.
func SetLibraryLogger(logger *slog.Logger, includeDebug bool, debugLevel slog.Level) {
	logger = logger.With("component", "paho")

	pahomqtt.CRITICAL = libraryLogger{logger: logger, level: slog.LevelError}
	pahomqtt.ERROR = libraryLogger{logger: logger, level: slog.LevelError}
	pahomqtt.WARN = libraryLogger{logger: logger, level: slog.LevelWarn}
	if includeDebug {
		pahomqtt.DEBUG = libraryLogger{logger: logger, level: debugLevel}
	} else {
		pahomqtt.DEBUG = pahomqtt.NOOPLogger{}
	}
}
