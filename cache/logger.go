package cache

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger      *logrus.Logger
	loggerMutex sync.RWMutex
)

func SetLogger(s *logrus.Logger) {
	loggerMutex.Lock()
	logger = s
	loggerMutex.Unlock()
}

func GetLogger() *logrus.Logger {
	loggerMutex.RLock()
	defer loggerMutex.RUnlock()

	if logger == nil {
		panic(errors.New("Tried to get logger before cache#SetLogger() was called"))
	}

	return logger
}

// HasLogger is used by code that may run before the launcher configured logging, tests mostly
func HasLogger() bool {
	loggerMutex.RLock()
	defer loggerMutex.RUnlock()

	return logger != nil
}
