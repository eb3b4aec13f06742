// Package feemodel estimates the bitcoin fee rate needed to confirm a
// transaction within a desired number of blocks. Two small pre-trained
// regression models are embedded at build time: one specialized for
// short confirmation targets (1-2 blocks), one for everything longer.
// A FeeModel is immutable after construction and safe for concurrent
// use.
package feemodel

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RCasatta/bitcoin-fee-model/internal/feature"
	"github.com/RCasatta/bitcoin-fee-model/internal/model"
)

//go:embed models/20210217-142524/model.cbor
var lowModelBytes []byte

//go:embed models/20210217-154050/model.cbor
var highModelBytes []byte

const (
	bucketCount = 50
	bucketMax   = 500.0

	// Only the first 16 of the 50 computed buckets are model inputs
	// (b0..b15); the trained input schema fixes this.
	bucketFeatures = 16

	// Targets at or below this go to the low model.
	lowTargetMax = 2
)

// Metrics receives estimation telemetry. All methods must be safe for
// concurrent use; a nil Metrics disables collection.
type Metrics interface {
	EstimatesInc()
	EstimateFailuresInc()
	EstimateLatencyObserve(float64)
	EstimatedRateObserve(float64)
}

// FeeModel holds the two loaded models.
type FeeModel struct {
	low     *model.Model
	high    *model.Model
	buckets *feature.Buckets
	now     func() time.Time
	metrics Metrics
}

// New loads the embedded model artifacts. The artifacts are fixed at
// build time and validated by the test suite, so a failure here means a
// corrupt binary and is not recoverable.
func New() (*FeeModel, error) {
	return NewWithMetrics(nil)
}

// NewWithMetrics is New with estimation telemetry attached.
func NewWithMetrics(metrics Metrics) (*FeeModel, error) {
	low, err := model.Load(lowModelBytes)
	if err != nil {
		return nil, fmt.Errorf("load low model: %w", err)
	}
	high, err := model.Load(highModelBytes)
	if err != nil {
		return nil, fmt.Errorf("load high model: %w", err)
	}
	buckets, err := feature.NewBuckets(bucketCount, bucketMax)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("low_features", len(low.Features)).
		Int("high_features", len(high.Features)).
		Msg("fee models loaded")
	return &FeeModel{
		low:     low,
		high:    high,
		buckets: buckets,
		now:     time.Now,
		metrics: metrics,
	}, nil
}

// Estimate is EstimateAt with the current wall-clock time.
//
// feeRates holds the fee rates of recently observed transactions whose
// inputs confirmed within roughly the last ten blocks, in the same unit
// the estimate is returned in (typically sat/vB). lastBlockTS is the
// epoch-second timestamp of the most recent block. An empty feeRates
// slice is valid and yields an all-zero histogram contribution.
func (f *FeeModel) Estimate(blockTarget uint16, feeRates []float64, lastBlockTS uint32) (float32, error) {
	return f.EstimateAt(blockTarget, uint32(f.now().Unix()), feeRates, lastBlockTS)
}

// EstimateAt estimates the fee rate required for a transaction to
// confirm within blockTarget blocks, as of the given epoch-second
// timestamp. Identical arguments produce bit-identical results.
func (f *FeeModel) EstimateAt(blockTarget uint16, timestamp uint32, feeRates []float64, lastBlockTS uint32) (float32, error) {
	start := time.Now()
	est, err := f.estimate(blockTarget, timestamp, feeRates, lastBlockTS)
	if f.metrics != nil {
		f.metrics.EstimateLatencyObserve(time.Since(start).Seconds())
		if err != nil {
			f.metrics.EstimateFailuresInc()
		} else {
			f.metrics.EstimatesInc()
			f.metrics.EstimatedRateObserve(float64(est))
		}
	}
	return est, err
}

func (f *FeeModel) estimate(blockTarget uint16, timestamp uint32, feeRates []float64, lastBlockTS uint32) (float32, error) {
	if blockTarget == 0 {
		return 0, fmt.Errorf("feemodel: block target must be positive")
	}

	counts := f.buckets.Build(feeRates)

	in := make(map[string]float32, 4+bucketFeatures)
	in["confirms_in"] = float32(blockTarget)

	t := time.Unix(int64(timestamp), 0).UTC()
	// time.Weekday counts from Sunday, the models from Monday.
	in["day_of_week"] = float32((int(t.Weekday()) + 6) % 7)
	in["hour"] = float32(t.Hour())
	// Signed: may be negative under clock skew.
	in["delta_last"] = float32(int64(timestamp) - int64(lastBlockTS))

	for i := 0; i < bucketFeatures; i++ {
		in[fmt.Sprintf("b%d", i)] = float32(counts[i])
	}

	m := f.high
	if blockTarget <= lowTargetMax {
		m = f.low
	}
	return m.Predict(in)
}
