// feeratd serves bitcoin fee-rate estimates from the embedded models.
// In daemon mode it keeps a rolling window of mempool fee observations
// fed over WebSocket, re-estimates the configured block targets on an
// interval, and exposes Prometheus metrics. With -once it takes a
// single REST snapshot, prints one estimate per target and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	feemodel "github.com/RCasatta/bitcoin-fee-model"
	"github.com/RCasatta/bitcoin-fee-model/internal/cfg"
	"github.com/RCasatta/bitcoin-fee-model/internal/chain"
	"github.com/RCasatta/bitcoin-fee-model/internal/metrics"
	"github.com/RCasatta/bitcoin-fee-model/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	once := flag.Bool("once", false, "take one snapshot, print estimates and exit")
	flag.Parse()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	m := metrics.New()
	fm, err := feemodel.NewWithMetrics(m)
	if err != nil {
		log.Fatal().Err(err).Msg("model load failed")
	}

	client := chain.NewREST(c.APIBase, c.RESTTimeout)

	if *once {
		if err := runOnce(c, client, fm); err != nil {
			log.Fatal().Err(err).Msg("estimation failed")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := initializeStore(c)
	if st != nil {
		defer st.Close()
	}

	obs := make(chan chain.Observation, 256)
	blocks := make(chan chain.Block, 8)
	errs := make(chan error, 32)

	startMetricsServer(ctx, c)

	feed := chain.NewFeed(c.WSURL)
	startFeed(ctx, feed, obs, blocks, errs, c.Ping)

	win := chain.NewRollingWindow(c.WindowTTL)
	var lastBlockTS atomic.Uint32
	seedFromREST(client, win, &lastBlockTS)

	var wg sync.WaitGroup
	startErrorHandler(ctx, &wg, errs, m)
	startFeedHandler(ctx, &wg, obs, blocks, win, &lastBlockTS, m)
	startEstimator(ctx, &wg, c, fm, win, &lastBlockTS, st, m)

	waitForShutdown(ctx, cancel, &wg)
}

func runOnce(c cfg.Settings, client *chain.Client, fm *feemodel.FeeModel) error {
	rates, err := client.RecentFeeRates()
	if err != nil {
		return fmt.Errorf("fetch observations: %w", err)
	}
	tip, err := client.TipTimestamp()
	if err != nil {
		return fmt.Errorf("fetch chain tip: %w", err)
	}

	for _, target := range c.Targets {
		est, err := fm.Estimate(target, rates, tip)
		if err != nil {
			return fmt.Errorf("estimate target %d: %w", target, err)
		}
		fmt.Printf("%3d blocks: %6.2f sat/vB\n", target, est)
	}
	return nil
}

func initializeStore(c cfg.Settings) *store.Store {
	if c.DataPath == "" {
		return nil
	}
	st, err := store.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("store initialization failed, continuing without persistence")
		return nil
	}
	return st
}

// seedFromREST fills the window and last-block timestamp once so the
// daemon can estimate before the feed delivers anything.
func seedFromREST(client *chain.Client, win *chain.RollingWindow, lastBlockTS *atomic.Uint32) {
	now := time.Now()
	if rates, err := client.RecentFeeRates(); err != nil {
		log.Warn().Err(err).Msg("initial observation fetch failed")
	} else {
		for _, r := range rates {
			win.Add(chain.Observation{FeeRate: r, Ts: now})
		}
	}
	if tip, err := client.TipTimestamp(); err != nil {
		log.Warn().Err(err).Msg("initial tip fetch failed")
	} else {
		lastBlockTS.Store(tip)
	}
}

func startMetricsServer(ctx context.Context, c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func startFeed(ctx context.Context, feed chain.Feed, obs chan chain.Observation, blocks chan chain.Block, errs chan error, ping time.Duration) {
	go func() {
		if err := feed.Stream(ctx, obs, blocks, errs, ping); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("feed stream ended")
			select {
			case errs <- err:
			default:
			}
		}
	}()
}

func startErrorHandler(ctx context.Context, wg *sync.WaitGroup, errs chan error, m *metrics.Metrics) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				log.Error().Err(err).Msg("background error")
				m.FeedReconnects.Inc()
				m.ErrorsTotal.Inc()
			}
		}
	}()
}

func startFeedHandler(ctx context.Context, wg *sync.WaitGroup, obs chan chain.Observation, blocks chan chain.Block,
	win *chain.RollingWindow, lastBlockTS *atomic.Uint32, m *metrics.Metrics,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case o := <-obs:
				win.Add(o)
				m.TxsReceived.Inc()
			case b := <-blocks:
				lastBlockTS.Store(b.Timestamp)
				m.BlocksReceived.Inc()
				log.Info().Int64("height", b.Height).Msg("new block")
			}
		}
	}()
}

func startEstimator(ctx context.Context, wg *sync.WaitGroup, c cfg.Settings, fm *feemodel.FeeModel,
	win *chain.RollingWindow, lastBlockTS *atomic.Uint32, st *store.Store, m *metrics.Metrics,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.Refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				estimateAll(c, fm, win, lastBlockTS, st, m)
			}
		}
	}()
}

func estimateAll(c cfg.Settings, fm *feemodel.FeeModel, win *chain.RollingWindow,
	lastBlockTS *atomic.Uint32, st *store.Store, m *metrics.Metrics,
) {
	now := time.Now()
	rates := win.Rates(now)
	tip := lastBlockTS.Load()
	if tip == 0 {
		log.Warn().Msg("no block timestamp yet, skipping estimation cycle")
		return
	}

	m.ObservationCount.Set(float64(len(rates)))
	m.LastBlockAge.Set(now.Sub(time.Unix(int64(tip), 0)).Seconds())

	ts := uint32(now.Unix())
	for _, target := range c.Targets {
		est, err := fm.EstimateAt(target, ts, rates, tip)
		if err != nil {
			log.Error().Err(err).Uint16("target", target).Msg("estimation failed")
			continue
		}
		log.Info().
			Uint16("target", target).
			Float32("sat_vb", est).
			Int("observations", len(rates)).
			Msg("fee estimate")

		if st != nil {
			rec := store.Estimate{
				Target:       target,
				FeeRate:      est,
				Timestamp:    ts,
				LastBlockTS:  tip,
				Observations: len(rates),
			}
			if err := st.StoreEstimate(rec); err != nil {
				log.Warn().Err(err).Msg("store estimate failed")
				m.StoreErrors.Inc()
			}
		}
	}

	if st != nil {
		if err := st.StoreSnapshot(store.Snapshot{Timestamp: ts, FeeRates: rates}); err != nil {
			log.Warn().Err(err).Msg("store snapshot failed")
			m.StoreErrors.Inc()
		}
	}
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
