// Package profiling writes CPU and heap profiles for the command line flags.
package profiling

import (
	"io"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var osCreate = os.Create
var pprofStartCPUProfile = pprof.StartCPUProfile
var pprofStopCPUProfile = pprof.StopCPUProfile
var pprofWriteHeapProfile = pprof.WriteHeapProfile
var memProfilingInterval = 10 * time.Second

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

func SetLogger(l zerolog.Logger) {
	logger = l
}

// DoCPUProfiling starts CPU profiling into fileName and returns the function
// that stops it. Failures are logged and yield a no-op stop function.
func DoCPUProfiling(fileName string) (stop func()) {
	f, err := osCreate(fileName)
	if err != nil {
		logger.Error().Err(err).Str("file", fileName).Msg("could not create CPU profile")
		return func() {}
	}
	if err = pprofStartCPUProfile(f); err != nil {
		logger.Error().Err(err).Msg("could not start CPU profile")
		_ = f.Close()
		return func() {}
	}
	return func() {
		pprofStopCPUProfile()
		_ = f.Close()
	}
}

// DoMemProfiling rewrites the heap profile in fileName periodically and
// returns the function that stops the ticker and writes the final profile.
func DoMemProfiling(fileName string) (stop func()) {
	ticker := time.NewTicker(memProfilingInterval)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-ticker.C:
				writeHeapProfile(fileName)
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
			<-exited
			writeHeapProfile(fileName)
		})
	}
}

func writeHeapProfile(fileName string) {
	f, err := osCreate(fileName)
	if err != nil {
		logger.Error().Err(err).Str("file", fileName).Msg("could not create memory profile")
		return
	}
	defer func() {
		_ = f.Close()
	}()
	if err = pprofWriteHeapProfile(io.Writer(f)); err != nil {
		logger.Error().Err(err).Msg("could not write memory profile")
	}
}
