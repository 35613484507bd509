package logging

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// https://github.com/Sirupsen/logrus/issues/230#issuecomment-323387380

// LogrusFileHook writes every entry as a JSON line into a file
type LogrusFileHook struct {
	sync.Mutex
	file      *os.File
	formatter *logrus.JSONFormatter
	levels    []logrus.Level
}

func NewLogrusFileHook(file string, level logrus.Level) (*LogrusFileHook, error) {
	logFile, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to write file on filehook %v", err)
		return nil, err
	}

	levels := make([]logrus.Level, 0)
	for _, l := range logrus.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}

	return &LogrusFileHook{file: logFile, formatter: &logrus.JSONFormatter{}, levels: levels}, nil
}

// Fire event
func (hook *LogrusFileHook) Fire(entry *logrus.Entry) error {
	line, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	hook.Lock()
	defer hook.Unlock()

	_, err = hook.file.Write(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to write file on filehook(entry.String)%v", err)
		return err
	}

	return nil
}

func (hook *LogrusFileHook) Levels() []logrus.Level {
	return hook.levels
}

func (hook *LogrusFileHook) Close() error {
	return hook.file.Close()
}
