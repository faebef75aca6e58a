package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	warnCounts  sync.Map // map[string]*int64, keyed by component
	errorCounts sync.Map
	channels    sync.Map // map[string]*channelStat
)

// levelCounter tallies warnings and errors per component for the runtime report.
type levelCounter struct{}

func (levelCounter) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (levelCounter) Fire(entry *logrus.Entry) error {
	component, _ := entry.Data["component"].(string)
	if component == "" {
		component = "unknown"
	}
	if entry.Level == logrus.WarnLevel {
		recordWarn(component)
	} else {
		recordError(component)
	}
	return nil
}

func recordWarn(component string) {
	increment(&warnCounts, component)
}

func recordError(component string) {
	increment(&errorCounts, component)
}

func increment(counts *sync.Map, key string) {
	v, _ := counts.LoadOrStore(key, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// RecordChannelMessage counts a message of size bytes sent over the named
// channel.
func RecordChannelMessage(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(log)
			}
		}
	}()
}

// StartReport logs runtime and channel statistics every interval until ctx
// is done.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	if interval <= 0 {
		return
	}
	startReport(ctx, log, interval)
}

func reportFields() Fields {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		cs := v.(*channelStat)
		channelData[k.(string)] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	return Fields{
		"warnings":      snapshotCounts(&warnCounts),
		"errors":        snapshotCounts(&errorCounts),
		"channels":      channelData,
		"goroutines":    runtime.NumGoroutine(),
		"heap_alloc_mb": int64(mem.HeapAlloc) / 1024 / 1024,
		"gc_cycles":     mem.NumGC,
	}
}

func snapshotCounts(counts *sync.Map) map[string]int64 {
	out := map[string]int64{}
	counts.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return out
}

func logReport(log *Log) {
	log.WithComponent("report").WithFields(reportFields()).Info("runtime report")
}
