package bot

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

const (
	memWarnThresholdBytes  = 600 * 1024 * 1024
	memCritThresholdBytes  = 1200 * 1024 * 1024
	memCheckInterval       = 30 * time.Second
	memWarnEvery           = 10 * time.Minute
	goroutineWarnThreshold = 500
	goroutineCritThreshold = 1000
)

type memLevel int

const (
	memOK memLevel = iota
	memWarn
	memCrit
)

func classifyMemory(heap uint64, goroutines int) memLevel {
	switch {
	case goroutines >= goroutineCritThreshold || heap >= memCritThresholdBytes:
		return memCrit
	case goroutines >= goroutineWarnThreshold || heap > memWarnThresholdBytes:
		return memWarn
	default:
		return memOK
	}
}

// runMemoryWatcher alerts the admin chat when the heap or goroutine count
// grows past the warning thresholds, and stops the application past the
// critical ones.
func (b *TelegramBot) runMemoryWatcher(ctx context.Context) {
	ticker := time.NewTicker(memCheckInterval)
	defer ticker.Stop()

	var lastWarnAt time.Time

	b.log.Infof("memwatch: started (warn=%dMB, crit=%dMB, goroutines warn=%d crit=%d)",
		memWarnThresholdBytes/(1024*1024),
		memCritThresholdBytes/(1024*1024),
		goroutineWarnThreshold,
		goroutineCritThreshold,
	)

	for {
		select {
		case <-ctx.Done():
			b.log.Infof("memwatch: stopped")
			return
		case <-ticker.C:
			b.checkMemory(&lastWarnAt)
		}
	}
}

func (b *TelegramBot) checkMemory(lastWarnAt *time.Time) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	heapMB := ms.HeapAlloc / (1024 * 1024)
	sysMB := ms.Sys / (1024 * 1024)
	goroutines := runtime.NumGoroutine()

	switch classifyMemory(ms.HeapAlloc, goroutines) {
	case memCrit:
		b.log.Errorf("memwatch: CRITICAL heap=%dMB goroutines=%d", heapMB, goroutines)
		b.sendMemAlert(fmt.Sprintf(
			"🚨 Resource leak, shutting down!\nHeap: %d MB (limit: %d MB)\nSys: %d MB\nGoroutines: %d (limit: %d)",
			heapMB, memCritThresholdBytes/(1024*1024), sysMB, goroutines, goroutineCritThreshold,
		), true)
	case memWarn:
		if time.Since(*lastWarnAt) <= memWarnEvery {
			return
		}
		b.log.Warnf("memwatch: WARNING heap=%dMB goroutines=%d", heapMB, goroutines)
		b.sendMemAlert(fmt.Sprintf(
			"⚠️ High resource usage\nHeap: %d MB (limit: %d MB)\nSys: %d MB\nGoroutines: %d (limit: %d)",
			heapMB, memWarnThresholdBytes/(1024*1024), sysMB, goroutines, goroutineWarnThreshold,
		), false)
		runtime.GC()
		*lastWarnAt = time.Now()
	}
}

func (b *TelegramBot) sendMemAlert(msg string, emergency bool) {
	if b.adminChat != 0 {
		b.replyText(b.adminChat, msg)
		if emergency {
			// give the alert a moment to leave before shutting down
			time.Sleep(3 * time.Second)
		}
	} else {
		b.log.Warnf("memwatch: no admin chat, alert not delivered: %s", msg)
	}

	if emergency && b.cancelFunc != nil {
		b.log.Errorf("memwatch: calling cancelFunc to initiate emergency shutdown")
		b.cancelFunc()
	}
}
