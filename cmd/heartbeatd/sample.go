package main

import "runtime"

// heapAlertThresholdMB is the fixed in-use-heap threshold above which a
// sample becomes an ALERT line instead of silence.
const heapAlertThresholdMB = 512

type memSample struct {
	heapInUseMB uint64
}

func readMemSample(m *memSample) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.heapInUseMB = ms.HeapInuse / (1024 * 1024)
}
