/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yugabyte/pg-seldump/src/config"
	"github.com/yugabyte/pg-seldump/src/constants"
	"github.com/yugabyte/pg-seldump/src/srcdb"
)

type MyFormatter struct{}

var levelList = []string{
	"PANIC",
	"FATAL",
	"ERROR",
	"WARN",
	"INFO",
	"DEBUG",
	"TRACE",
}

func (mf *MyFormatter) Format(entry *log.Entry) ([]byte, error) {
	level := levelList[int(entry.Level)]
	// Example log line:
	// 2022-03-23 12:16:42 INFO dump.go:27 loaded 3 rules from 1 files
	var msg string
	if entry.HasCaller() {
		msg = fmt.Sprintf("%s %s %s:%d %s\n",
			entry.Time.Format("2006-01-02 15:04:05"), level,
			filepath.Base(entry.Caller.File), entry.Caller.Line, entry.Message)
	} else {
		msg = fmt.Sprintf("%s %s %s\n",
			entry.Time.Format("2006-01-02 15:04:05"), level, entry.Message)
	}
	return []byte(msg), nil
}

// InitLogging sends the log to stderr and, if logFileName is set, to a
// rotating log file too.
func InitLogging(logFileName string) error {
	var out io.Writer = os.Stderr
	if logFileName != "" {
		logDir := filepath.Dir(logFileName)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("creating log directory %q: %w", logDir, err)
		}
		logRotator := &lumberjack.Logger{
			Filename:   logFileName,
			MaxSize:    200, // 200 MB log size before rotation
			MaxBackups: 10,  // Allow upto 10 logs at once before deleting oldest logs.
		}
		out = io.MultiWriter(os.Stderr, logRotator)
	}
	log.SetOutput(out)
	log.SetLevel(config.LogrusLevel())
	log.SetReportCaller(config.IsLogLevelDebugOrBelow())
	log.SetFormatter(&MyFormatter{})

	log.Debugf("Args: %v", redactedArgs(os.Args))
	log.Debugf("%s %s", constants.PRODUCT_NAME, strings.TrimSpace(getVersionInfo()))
	return nil
}

// redactedArgs hides the password of the connection strings in args.
func redactedArgs(args []string) []string {
	redacted := make([]string, len(args))
	copy(redacted, args)
	for i, arg := range redacted {
		switch {
		case arg == "--dsn" && i+1 < len(redacted):
			redacted[i+1] = srcdb.RedactDSN(redacted[i+1])
		case strings.HasPrefix(arg, "--dsn="):
			redacted[i] = "--dsn=" + srcdb.RedactDSN(strings.TrimPrefix(arg, "--dsn="))
		}
	}
	return redacted
}
