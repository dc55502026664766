package corovisor

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks runtime statistics for a [Runtime]. All metrics are
// optional, low-overhead, and safe for concurrent use; enable collection via
// [WithMetrics].
//
//	rt, _ := corovisor.New(corovisor.WithMetrics(true))
//	stats := rt.Metrics()
//	fmt.Printf("spawns/sec=%.2f io p99=%v\n", stats.SpawnRate.TPS(), stats.IOLatency.P99)
type Metrics struct {
	// IOLatency tracks end-to-end latency of I/O completions, from ticket
	// submission (doAsyncIO allocating an eventData) to delivery
	// (eventData.deliver waking the waiting coroutine or thread).
	IOLatency LatencyMetrics

	// Queue tracks ready-queue depth as observed by every worker; one
	// QueueMetrics is shared by all workers' queues.
	Queue QueueMetrics

	// SpawnRate tracks coroutine spawns per second.
	SpawnRate *TPSCounter

	stealCount  atomic.Uint64
	parkCount   atomic.Uint64
	timeoutCount atomic.Uint64
}

// NewMetrics constructs a Metrics instance with a default 10s/100ms spawn
// rate window.
func NewMetrics() *Metrics {
	return &Metrics{
		SpawnRate: NewTPSCounter(10*time.Second, 100*time.Millisecond),
	}
}

// RecordSteal increments the work-stealing counter.
func (m *Metrics) RecordSteal() { m.stealCount.Add(1) }

// RecordPark increments the worker-park counter.
func (m *Metrics) RecordPark() { m.parkCount.Add(1) }

// RecordTimeout increments the I/O-timeout counter.
func (m *Metrics) RecordTimeout() { m.timeoutCount.Add(1) }

// StealCount returns the total number of successful work-steal operations.
func (m *Metrics) StealCount() uint64 { return m.stealCount.Load() }

// ParkCount returns the total number of times a worker parked due to no
// runnable work.
func (m *Metrics) ParkCount() uint64 { return m.parkCount.Load() }

// TimeoutCount returns the total number of I/O operations that completed
// via timeout rather than readiness.
func (m *Metrics) TimeoutCount() uint64 { return m.timeoutCount.Load() }

// LatencyMetrics tracks latency distribution with percentiles, using the
// P-Square algorithm for O(1) streaming percentile estimation.
type LatencyMetrics struct {
	psquare *pSquareMultiQuantile

	mu sync.RWMutex

	sampleIdx   int
	sampleCount int
	samples     [sampleSize]time.Duration

	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration

	Mean time.Duration
	Sum  time.Duration
}

// sampleSize is the maximum number of latency samples retained for exact
// percentiles below the P-Square warmup threshold.
const sampleSize = 1000

// Record records a single I/O completion latency sample: the elapsed time
// from when an eventData ticket was submitted to when it was delivered,
// whether that delivery came from the selector's readiness callback, a
// timer timeout, or an immediate retry before the ticket was ever
// registered with the selector (see eventData.deliver).
func (l *LatencyMetrics) Record(duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.psquare == nil {
		l.psquare = newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99)
	}
	l.psquare.Update(float64(duration))

	if l.sampleCount >= sampleSize {
		old := l.samples[l.sampleIdx]
		l.Sum -= old
	}

	l.samples[l.sampleIdx] = duration
	l.Sum += duration
	l.sampleIdx++
	if l.sampleIdx >= sampleSize {
		l.sampleIdx = 0
	}
	if l.sampleCount < sampleSize {
		l.sampleCount++
	}
}

// Sample recomputes the cached percentile fields and returns the number of
// samples used.
func (l *LatencyMetrics) Sample() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.sampleCount
	if count == 0 {
		return 0
	}

	if count < 5 || l.psquare == nil {
		sorted := make([]time.Duration, count)
		copy(sorted, l.samples[:count])
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		l.P50 = sorted[percentileIndex(count, 50)]
		l.P90 = sorted[percentileIndex(count, 90)]
		l.P95 = sorted[percentileIndex(count, 95)]
		l.P99 = sorted[percentileIndex(count, 99)]
		l.Max = sorted[count-1]
		l.Mean = l.Sum / time.Duration(count)
		return count
	}

	l.P50 = time.Duration(l.psquare.Quantile(0))
	l.P90 = time.Duration(l.psquare.Quantile(1))
	l.P95 = time.Duration(l.psquare.Quantile(2))
	l.P99 = time.Duration(l.psquare.Quantile(3))
	l.Max = time.Duration(l.psquare.Max())
	l.Mean = l.Sum / time.Duration(count)
	return count
}

func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}

// QueueMetrics tracks ready-queue depth. Each worker reports its own
// queue's depth into the same instance, so Current is the most recent
// report from any worker and Max is the largest seen across all of them.
type QueueMetrics struct {
	mu sync.RWMutex

	Current int
	Max     int
	Avg     float64

	emaInitialized bool
}

// UpdateDepth records an observed ready-queue depth, updating the running
// max and an exponential moving average (alpha=0.1).
func (q *QueueMetrics) UpdateDepth(depth int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.Current = depth
	if depth > q.Max {
		q.Max = depth
	}
	if !q.emaInitialized {
		q.Avg = float64(depth)
		q.emaInitialized = true
	} else {
		q.Avg = 0.9*q.Avg + 0.1*float64(depth)
	}
}

// TPSCounter tracks events per second over a rolling window, used here for
// coroutine spawn rate.
type TPSCounter struct {
	lastRotation atomic.Value // time.Time
	buckets      []int64
	bucketSize   time.Duration
	windowSize   time.Duration
	mu           sync.Mutex
}

// NewTPSCounter creates a rolling-window rate counter. windowSize and
// bucketSize must both be positive, and bucketSize must not exceed
// windowSize.
func NewTPSCounter(windowSize, bucketSize time.Duration) *TPSCounter {
	if windowSize <= 0 {
		panic("corovisor: windowSize must be positive")
	}
	if bucketSize <= 0 {
		panic("corovisor: bucketSize must be positive")
	}
	if bucketSize > windowSize {
		panic("corovisor: bucketSize cannot exceed windowSize")
	}

	bucketCount := int(windowSize / bucketSize)
	counter := &TPSCounter{
		buckets:    make([]int64, bucketCount),
		bucketSize: bucketSize,
		windowSize: windowSize,
	}
	counter.lastRotation.Store(time.Now())
	return counter
}

// Increment records one event occurrence.
func (t *TPSCounter) Increment() {
	t.rotate()
	t.mu.Lock()
	t.buckets[len(t.buckets)-1]++
	t.mu.Unlock()
}

func (t *TPSCounter) rotate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	lastRotation := t.lastRotation.Load().(time.Time)
	elapsed := now.Sub(lastRotation)

	bucketsToAdvanceInt64 := int64(elapsed) / int64(t.bucketSize)
	if bucketsToAdvanceInt64 < 0 {
		bucketsToAdvanceInt64 = int64(len(t.buckets))
	} else if bucketsToAdvanceInt64 > int64(len(t.buckets)) {
		bucketsToAdvanceInt64 = int64(len(t.buckets))
	}
	bucketsToAdvance := int(bucketsToAdvanceInt64)

	if bucketsToAdvance >= len(t.buckets) {
		for i := range t.buckets {
			t.buckets[i] = 0
		}
		t.lastRotation.Store(now)
		return
	}
	if bucketsToAdvance <= 0 {
		return
	}

	copy(t.buckets, t.buckets[bucketsToAdvance:])
	for i := len(t.buckets) - bucketsToAdvance; i < len(t.buckets); i++ {
		t.buckets[i] = 0
	}
	t.lastRotation.Store(lastRotation.Add(time.Duration(bucketsToAdvance) * t.bucketSize))
}

// TPS returns the current rate in events per second.
func (t *TPSCounter) TPS() float64 {
	t.rotate()

	t.mu.Lock()
	defer t.mu.Unlock()

	var sum int64
	for _, count := range t.buckets {
		sum += count
	}
	if sum == 0 {
		return 0
	}

	monitoredDuration := float64(len(t.buckets)) * t.bucketSize.Seconds()
	return float64(sum) / monitoredDuration
}
