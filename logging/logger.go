// Package logging 构建控制台 + 滚动文件双输出的zap日志
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 日志配置
type Options struct {
	Level string
	// Dir 为空时只输出到控制台
	Dir        string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    io.Writer
}

// ParseLevel 解析日志级别，兼容WARNING/CRITICAL等写法
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WARNING":
		return zapcore.WarnLevel, nil
	case "CRITICAL", "FATAL":
		return zapcore.ErrorLevel, nil
	case "":
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(strings.ToLower(s))
}

// New 创建日志器，返回的AtomicLevel可在运行时调整级别
func New(opts Options) (*zap.Logger, zap.AtomicLevel, func() error, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	level := zap.NewAtomicLevelAt(lvl)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level),
	}

	closeFn := func() error { return nil }
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, zap.AtomicLevel{}, nil, fmt.Errorf("create log dir: %w", err)
		}
		name := opts.FileName
		if name == "" {
			name = "app.log"
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, name),
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 7),
			MaxAge:     orDefault(opts.MaxAgeDays, 30),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file),
			level,
		))
		closeFn = file.Close
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, level, closeFn, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
