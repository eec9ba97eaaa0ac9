// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/u-root/u-smu/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	LogContainer     = logContainer{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	loggerInit       sync.Once
	simpleLoggerInit sync.Once
)

type logContainer struct {
	level        zap.AtomicLevel
	file         fileSyncer
	logger       *zap.Logger
	simpleLogger *zap.SugaredLogger
}

// fileSyncer holds the optional log file, so loggers handed out before
// Configure still reach the file afterwards.
type fileSyncer struct {
	m sync.Mutex
	f *os.File
}

func (f *fileSyncer) Write(p []byte) (int, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.f == nil {
		return len(p), nil
	}
	return f.f.Write(p)
}

func (f *fileSyncer) Sync() error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.f == nil {
		return nil
	}
	return f.f.Sync()
}

func (f *fileSyncer) isSet() bool {
	f.m.Lock()
	defer f.m.Unlock()
	return f.f != nil
}

// set swaps in file and closes the one it replaces.
func (f *fileSyncer) set(file *os.File) error {
	f.m.Lock()
	old := f.f
	f.f = file
	f.m.Unlock()
	if old == nil {
		return nil
	}
	return old.Close()
}

// Configure applies the log level and the optional JSON log file from c.
// A previously configured file is closed, an empty File stops file logging.
func (l *logContainer) Configure(c config.Log) error {
	if c.Level != "" {
		if err := l.level.UnmarshalText([]byte(c.Level)); err != nil {
			return fmt.Errorf("log level %q: %w", c.Level, err)
		}
	}
	var f *os.File
	if c.File != "" {
		var err error
		f, err = os.OpenFile(c.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("unable to open logfile: %w", err)
		}
	}
	if err := l.file.set(f); err != nil {
		return fmt.Errorf("unable to close previous logfile: %w", err)
	}
	return nil
}

// GetLogger returns the pointer to the logger and creates one if none exists
func (l *logContainer) GetLogger() *zap.Logger {
	loggerInit.Do(func() {
		l.logger = zap.New(l.getCombinedCore())
	})
	return l.logger
}

// GetSimpleLogger returns the pointer to the sugared logger and creates one
// if none exists
func (l *logContainer) GetSimpleLogger() *zap.SugaredLogger {
	simpleLoggerInit.Do(func() {
		l.simpleLogger = l.GetLogger().Sugar()
	})
	return l.simpleLogger
}

func getConsoleEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getJsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.EpochTimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func (l *logContainer) getConsoleCore() zapcore.Core {
	return zapcore.NewCore(getConsoleEncoder(), zapcore.Lock(os.Stderr), l.level)
}

// The JSON core is disabled while no file is set, so entries are not
// encoded only to be dropped.
func (l *logContainer) getJsonCore() zapcore.Core {
	enabled := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return l.file.isSet() && l.level.Enabled(lvl)
	})
	return zapcore.NewCore(getJsonEncoder(), &l.file, enabled)
}

func (l *logContainer) getCombinedCore() zapcore.Core {
	return zapcore.NewTee(l.getConsoleCore(), l.getJsonCore())
}
