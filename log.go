// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type accepted by this package.
// A nil *Logger discards every event.
type Logger = logiface.Logger[logiface.Event]

var packageLogger atomic.Pointer[Logger]

func init() {
	packageLogger.Store(NewLogger(os.Stderr, logiface.LevelWarning))
}

// NewLogger returns a stumpy JSON logger writing to w at the given level.
func NewLogger(w io.Writer, level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// SetLogger replaces the package logger used by components that were not
// given their own. Passing nil silences them.
func SetLogger(l *Logger) {
	packageLogger.Store(l)
}

func defaultLogger() *Logger {
	return packageLogger.Load()
}
