package monitor

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkloadStats counts container operations. It is safe for concurrent use
// and can be registered with a prometheus registry.
type WorkloadStats struct {
	ReadCount      uint64
	WriteCount     uint64
	RemoveCount    uint64
	SizeQueryCount uint64
	SizeHitCount   uint64
	ShiftCount     uint64
	IteratorCount  uint64
}

func NewWorkloadStats() *WorkloadStats {
	return &WorkloadStats{}
}

func (ws *WorkloadStats) RecordRead() {
	atomic.AddUint64(&ws.ReadCount, 1)
}

func (ws *WorkloadStats) RecordWrite() {
	atomic.AddUint64(&ws.WriteCount, 1)
}

func (ws *WorkloadStats) RecordRemove() {
	atomic.AddUint64(&ws.RemoveCount, 1)
}

// RecordSize counts a size() call; hit reports whether the size cache served it.
func (ws *WorkloadStats) RecordSize(hit bool) {
	atomic.AddUint64(&ws.SizeQueryCount, 1)
	if hit {
		atomic.AddUint64(&ws.SizeHitCount, 1)
	}
}

func (ws *WorkloadStats) RecordShift() {
	atomic.AddUint64(&ws.ShiftCount, 1)
}

func (ws *WorkloadStats) RecordIterator() {
	atomic.AddUint64(&ws.IteratorCount, 1)
}

func (ws *WorkloadStats) GetReadWriteRatio() float64 {
	reads := atomic.LoadUint64(&ws.ReadCount)
	writes := atomic.LoadUint64(&ws.WriteCount)

	if writes == 0 {
		if reads > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(reads) / float64(writes)
}

// Snapshot returns the counters as a plain map, e.g. for JSON output.
func (ws *WorkloadStats) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"reads":        atomic.LoadUint64(&ws.ReadCount),
		"writes":       atomic.LoadUint64(&ws.WriteCount),
		"removes":      atomic.LoadUint64(&ws.RemoveCount),
		"size_queries": atomic.LoadUint64(&ws.SizeQueryCount),
		"size_hits":    atomic.LoadUint64(&ws.SizeHitCount),
		"index_shifts": atomic.LoadUint64(&ws.ShiftCount),
		"iterators":    atomic.LoadUint64(&ws.IteratorCount),
		"rw_ratio":     ws.GetReadWriteRatio(),
	}
}

var (
	readsDesc     = prometheus.NewDesc("dbc_reads_total", "Value lookups issued against container tables.", nil, nil)
	writesDesc    = prometheus.NewDesc("dbc_writes_total", "Put operations issued against container tables.", nil, nil)
	removesDesc   = prometheus.NewDesc("dbc_removes_total", "Remove operations issued against container tables.", nil, nil)
	sizesDesc     = prometheus.NewDesc("dbc_size_queries_total", "Size requests.", nil, nil)
	sizeHitsDesc  = prometheus.NewDesc("dbc_size_cache_hits_total", "Size requests served by the size cache.", nil, nil)
	shiftsDesc    = prometheus.NewDesc("dbc_index_shifts_total", "List index shift statements executed.", nil, nil)
	iteratorsDesc = prometheus.NewDesc("dbc_iterators_total", "Snapshot iterators opened.", nil, nil)
	ratioDesc     = prometheus.NewDesc("dbc_rw_ratio", "Reads per write.", nil, nil)
)

func (ws *WorkloadStats) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		readsDesc, writesDesc, removesDesc, sizesDesc, sizeHitsDesc, shiftsDesc, iteratorsDesc, ratioDesc,
	} {
		ch <- d
	}
}

func (ws *WorkloadStats) Collect(ch chan<- prometheus.Metric) {
	counter := func(d *prometheus.Desc, v *uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(atomic.LoadUint64(v)))
	}
	counter(readsDesc, &ws.ReadCount)
	counter(writesDesc, &ws.WriteCount)
	counter(removesDesc, &ws.RemoveCount)
	counter(sizesDesc, &ws.SizeQueryCount)
	counter(sizeHitsDesc, &ws.SizeHitCount)
	counter(shiftsDesc, &ws.ShiftCount)
	counter(iteratorsDesc, &ws.IteratorCount)
	ch <- prometheus.MustNewConstMetric(ratioDesc, prometheus.GaugeValue, ws.GetReadWriteRatio())
}
