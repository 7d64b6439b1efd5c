package feedstate

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Logging convention in the `feedstate` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on normal operation
//     this includes:
//     - push channel reconnects and auth errors
//     - unknown push message types
// Debug:
//     key events for trace debugging
//     this includes:
//     - reducer applies and stale drops with the mutation id as a filterable tag
//     - pagination no-ops

const LogLevelUrgent = 0
const LogLevelInfo = 50
const LogLevelDebug = 100

var GlobalLogLevel = LogLevelUrgent

var logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)

func Logger() *log.Logger {
	return logger
}

type LogFunction func(string, ...any)

// per-scope level overrides over `GlobalLogLevel`.
// an override applies to every `LogFn` created with that scope,
// including those created before the override.
var logScopeMutex sync.Mutex
var logScopeLevels = map[string]int{}

func SetLogScopeLevel(scope string, level int) {
	logScopeMutex.Lock()
	defer logScopeMutex.Unlock()
	logScopeLevels[scope] = level
}

func ResetLogScopeLevels() {
	logScopeMutex.Lock()
	defer logScopeMutex.Unlock()
	logScopeLevels = map[string]int{}
}

func logScopeLevel(scope string) int {
	logScopeMutex.Lock()
	defer logScopeMutex.Unlock()
	if level, ok := logScopeLevels[scope]; ok {
		return level
	}
	return GlobalLogLevel
}

func LogFn(level int, scope string) LogFunction {
	return func(format string, a ...any) {
		if level <= logScopeLevel(scope) {
			m := fmt.Sprintf(format, a...)
			Logger().Printf("%s: %s\n", scope, m)
		}
	}
}

func SubLogFn(level int, scope string, log LogFunction, tag string) LogFunction {
	return func(format string, a ...any) {
		if level <= logScopeLevel(scope) {
			m := fmt.Sprintf(format, a...)
			log("%s: %s", tag, m)
		}
	}
}
