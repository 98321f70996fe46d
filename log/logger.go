// Copyright (c) 2020 - for information on the respective copyright owner
// see the NOTICE file and/or the repository at
// https://github.com/direct-state-transfer/chainsheet
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is the interface used for logging by all components. It is satisfied by
// logrus.Logger and logrus.Entry.
type Logger = logrus.FieldLogger

var (
	mu     sync.RWMutex
	logger *logrus.Logger
)

func init() {
	logger = newLogger(logrus.InfoLevel, os.Stderr)
}

// InitLogger sets the level and the output of the root logger.
// Supported log levels are "debug", "info" and "error".
// Logs to stderr if logFile is an empty string.
//
// Loggers returned by NewLoggerWithField before InitLogger was called continue
// to use the previous configuration.
func InitLogger(levelStr, logFile string) error {
	if levelStr != "debug" && levelStr != "info" && levelStr != "error" {
		return errors.New("Unsupported log level, use debug, info or error")
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return errors.WithStack(err)
	}

	var out io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(filepath.Clean(logFile), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return errors.WithStack(err)
		}
		out = f
	}

	mu.Lock()
	logger = newLogger(level, out)
	mu.Unlock()
	return nil
}

// NewLoggerWithField returns a logger that includes the given field in all the log entries.
func NewLoggerWithField(key string, value interface{}) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.WithField(key, value)
}

// SetOutput changes the output of the root logger. It is meant for tests that need to
// inspect or silence log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	logger.SetOutput(w)
	mu.Unlock()
}

func newLogger(level logrus.Level, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(out)
	l.SetFormatter(&customTextFormatter{logrus.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        "2006-01-02 15:04:05 Z0700",
		DisableLevelTruncation: true,
	}})
	return l
}

// customTextFormatter is defined to override default formating options for log entry.
type customTextFormatter struct {
	logrus.TextFormatter
}

// Format modifies the default logging format.
func (f *customTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	originalText, err := f.TextFormatter.Format(entry)
	return append([]byte("▶ "), originalText...), err
}
