package logger

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// LogWriter 适配 gorm logger.Writer，SQL 日志与业务日志写到同一个输出
type LogWriter struct {
	zapcore.WriteSyncer
}

func (l *LogWriter) Printf(format string, args ...interface{}) {
	_, _ = l.WriteSyncer.Write([]byte(fmt.Sprintf(format, args...) + "\n"))
	_ = l.WriteSyncer.Sync()
}

func GetWriter() *LogWriter {
	return logWriter
}
