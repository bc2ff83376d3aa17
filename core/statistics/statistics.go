package statistics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetric is one gauge row of the market table.
type MarketMetric struct {
	Market         string
	Reserve        float64
	TotalCollected float64
	Supply         float64
}

// MarketSource is polled by the statistic loop for the current market table.
type MarketSource interface {
	MarketMetrics() []MarketMetric
}

// Statistic polls the source and republishes per-market gauges until the
// context is done.
func (d *Data) Statistic(ctx context.Context, source MarketSource) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second * 10):
			metrics := source.MarketMetrics()

			d.ResetMarkets()
			for _, metric := range metrics {
				d.SetMarketMetric(metric)
			}
		}
	}
}

type Data struct {
	BlockStart struct {
		sync.RWMutex
		height    uint64
		time      time.Time
		timestamp float64
	}
	BlockEnd blockEnd

	Api    apiResponseTime
	Market marketGauges
	Trade  tradeCounters
}

type LastBlockInfo struct {
	Height    uint64
	Duration  float64
	Timestamp float64
}

type blockEnd struct {
	sync.RWMutex
	HeightProm    prometheus.Gauge
	DurationProm  prometheus.Gauge
	TimestampProm prometheus.Gauge
	LastBlockInfo LastBlockInfo
}
type apiResponseTime struct {
	sync.Mutex
	responseTime *prometheus.GaugeVec
}
type marketGauges struct {
	sync.Mutex
	reserve   *prometheus.GaugeVec
	collected *prometheus.GaugeVec
	supply    *prometheus.GaugeVec
}
type tradeCounters struct {
	sync.Mutex
	trades      *prometheus.CounterVec
	graduations prometheus.Counter
}

func New() *Data {
	apiVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api",
			Help: "Api DurationProm Paths",
		},
		[]string{"path"},
	)
	prometheus.MustRegister(apiVec)
	reserveVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "market_reserve",
			Help: "Value reserve per market",
		},
		[]string{"market"},
	)
	prometheus.MustRegister(reserveVec)
	collectedVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "market_collected",
			Help: "Total collected value per market",
		},
		[]string{"market"},
	)
	prometheus.MustRegister(collectedVec)
	supplyVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "market_supply",
			Help: "Token supply per market",
		},
		[]string{"market"},
	)
	prometheus.MustRegister(supplyVec)
	tradesVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades",
			Help: "Executed trades",
		},
		[]string{"type"},
	)
	prometheus.MustRegister(tradesVec)
	graduations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graduations",
			Help: "Graduated markets",
		},
	)
	prometheus.MustRegister(graduations)
	lastBlockDuration := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "last_block_duration",
			Help: "Last block duration",
		},
	)
	prometheus.MustRegister(lastBlockDuration)
	height := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "height",
			Help: "Current height",
		},
	)
	prometheus.MustRegister(height)
	timeBlock := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "last_block_timestamp",
			Help: "TimestampProm last block",
		},
	)
	prometheus.MustRegister(timeBlock)

	return &Data{
		Api:      apiResponseTime{responseTime: apiVec},
		Market:   marketGauges{reserve: reserveVec, collected: collectedVec, supply: supplyVec},
		Trade:    tradeCounters{trades: tradesVec, graduations: graduations},
		BlockEnd: blockEnd{HeightProm: height, DurationProm: lastBlockDuration, TimestampProm: timeBlock},
	}
}

func (d *Data) SetStartBlock(height uint64, now time.Time, headerTime time.Time) {
	if d == nil {
		return
	}

	d.BlockStart.Lock()
	defer d.BlockStart.Unlock()

	d.BlockStart.height = height
	d.BlockStart.time = now
	d.BlockStart.timestamp = float64(headerTime.UnixNano() / 1e09)
}

func (d *Data) SetEndBlockDuration(timeEnd time.Time, height uint64) {
	if d == nil {
		return
	}

	d.BlockStart.RLock()
	defer d.BlockStart.RUnlock()

	if height == d.BlockStart.height {
		d.BlockEnd.Lock()
		defer d.BlockEnd.Unlock()

		durationSeconds := timeEnd.Sub(d.BlockStart.time).Seconds()

		d.BlockEnd.HeightProm.Set(float64(height))
		d.BlockEnd.DurationProm.Set(durationSeconds)
		d.BlockEnd.TimestampProm.Set(d.BlockStart.timestamp)

		d.BlockEnd.LastBlockInfo.Height = height
		d.BlockEnd.LastBlockInfo.Duration = durationSeconds
		d.BlockEnd.LastBlockInfo.Timestamp = d.BlockStart.timestamp

		return
	}
}

func (d *Data) SetApiTime(duration time.Duration, path string) {
	if d == nil {
		return
	}

	d.Api.Lock()
	defer d.Api.Unlock()

	d.Api.responseTime.With(prometheus.Labels{"path": path}).Set(duration.Seconds())
}

func (d *Data) SetMarketMetric(metric MarketMetric) {
	if d == nil {
		return
	}

	d.Market.Lock()
	defer d.Market.Unlock()

	d.Market.reserve.With(prometheus.Labels{"market": metric.Market}).Set(metric.Reserve)
	d.Market.collected.With(prometheus.Labels{"market": metric.Market}).Set(metric.TotalCollected)
	d.Market.supply.With(prometheus.Labels{"market": metric.Market}).Set(metric.Supply)
}

func (d *Data) ResetMarkets() {
	if d == nil {
		return
	}

	d.Market.Lock()
	defer d.Market.Unlock()

	d.Market.reserve.Reset()
	d.Market.collected.Reset()
	d.Market.supply.Reset()
}

func (d *Data) CountTrade(tradeType string) {
	if d == nil {
		return
	}

	d.Trade.Lock()
	defer d.Trade.Unlock()

	d.Trade.trades.With(prometheus.Labels{"type": tradeType}).Inc()
}

func (d *Data) CountGraduation() {
	if d == nil {
		return
	}

	d.Trade.Lock()
	defer d.Trade.Unlock()

	d.Trade.graduations.Inc()
}

func (d *Data) GetLastBlockInfo() LastBlockInfo {
	if d == nil {
		return LastBlockInfo{}
	}

	d.BlockEnd.RLock()
	defer d.BlockEnd.RUnlock()

	return d.BlockEnd.LastBlockInfo
}
