// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package service runs the transaction pool as a non-preemptive,
// single-threaded event loop: one goroutine owns the pool and dispatches
// every event it sees (gossip, block import, TTL, new peers) to completion
// before looking at the next one, with heavy work pushed onto bounded
// worker pools so the loop itself never blocks on verification.
package service

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	gethmetrics "github.com/luxfi/geth/metrics"
	promclient "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/luxfi/txpool/ids"
	"github.com/luxfi/txpool/log"
	"github.com/luxfi/txpool/metrics/gatherer"
	promgatherer "github.com/luxfi/txpool/metrics/prometheus"
	"github.com/luxfi/txpool/txpool"
)

var serviceLog = log.New("module", "txpool/service")

// Verifier runs whatever out-of-band validation (signatures, script
// execution) a gossiped transaction needs before it is worth admitting.
// A nil Verifier means every transaction is treated as already valid.
type Verifier interface {
	Verify(ctx context.Context, tx txpool.Tx) error
}

// Service wires a Pool to its transport and time sources.
type Service struct {
	pool     *txpool.Pool
	p2p      txpool.P2P
	importer txpool.BlockImporter
	verifier Verifier

	ttlInterval time.Duration

	verifyQueue chan txpool.GossipTx
	verifySem   *semaphore.Weighted

	syncQueue chan txpool.PeerID
	syncSem   *semaphore.Weighted

	seen *lru.Cache

	registry gethmetrics.Registry

	wg sync.WaitGroup
}

// New constructs a Service. cfg bounds the heavy-work worker pools;
// ttlInterval is how often the expiry sweep runs. registry may be nil, in
// which case PrometheusGatherer and MetricGatherer return nil.
func New(pool *txpool.Pool, p2p txpool.P2P, importer txpool.BlockImporter, verifier Verifier, cfg txpool.HeavyWorkConfig, ttlInterval time.Duration, registry gethmetrics.Registry) (*Service, error) {
	seen, err := lru.New(cfg.VerifyQueueSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		pool:        pool,
		p2p:         p2p,
		importer:    importer,
		verifier:    verifier,
		ttlInterval: ttlInterval,
		verifyQueue: make(chan txpool.GossipTx, cfg.VerifyQueueSize),
		verifySem:   semaphore.NewWeighted(int64(cfg.VerifyThreads)),
		syncQueue:   make(chan txpool.PeerID, cfg.P2PSyncQueueSize),
		syncSem:     semaphore.NewWeighted(int64(cfg.P2PSyncThreads)),
		seen:        seen,
		registry:    registry,
	}, nil
}

// PrometheusGatherer exposes the service's metrics registry as a
// prometheus.Gatherer, for embedders that expose a Prometheus scrape
// endpoint. Returns nil if no registry was supplied to New.
func (s *Service) PrometheusGatherer() promclient.Gatherer {
	if s.registry == nil {
		return nil
	}
	return promgatherer.NewGatherer(s.registry)
}

// MetricGatherer exposes the service's metrics registry via the
// luxfi/metric.Gatherer interface, for embedders using that reporting path
// instead of Prometheus directly. Returns nil if no registry was supplied.
func (s *Service) MetricGatherer() *gatherer.Gatherer {
	if s.registry == nil {
		return nil
	}
	return gatherer.NewGatherer(s.registry)
}

// Run drains every event source until ctx is canceled. Block import and TTL
// expiry run on this goroutine; verified gossip is inserted by the verify
// workers, each admitted by its bounded-concurrency gate, so the pool's own
// mutex is the only thing serializing them against the loop. Sync workers
// never touch the pool.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.ttlInterval)
	defer ticker.Stop()

	s.startVerifyWorkers(ctx)
	s.startSyncWorkers(ctx)

	var blockCh <-chan txpool.Block
	if s.importer != nil {
		blockCh = s.importer.ImportedBlocks()
	}
	var txCh <-chan txpool.GossipTx
	var peerCh <-chan txpool.PeerID
	if s.p2p != nil {
		txCh = s.p2p.TxStream()
		peerCh = s.p2p.NewPeerStream()
	}

	for {
		select {
		case <-ctx.Done():
			close(s.verifyQueue)
			close(s.syncQueue)
			s.wg.Wait()
			return

		case block, ok := <-blockCh:
			if !ok {
				blockCh = nil
				continue
			}
			s.pool.RemoveTransactionsForBlock(block)

		case gtx, ok := <-txCh:
			if !ok {
				txCh = nil
				continue
			}
			s.dispatchGossip(gtx)

		case <-ticker.C:
			s.pool.ExpireTTL()

		case peer, ok := <-peerCh:
			if !ok {
				peerCh = nil
				continue
			}
			s.dispatchSync(peer)
		}
	}
}

// dispatchGossip enqueues a gossiped transaction for verification without
// blocking the event loop; a full queue is backpressure, reported to the
// peer immediately rather than silently dropped.
func (s *Service) dispatchGossip(gtx txpool.GossipTx) {
	if s.seen.Contains(gtx.Tx.ID()) {
		return
	}
	select {
	case s.verifyQueue <- gtx:
	default:
		serviceLog.Debug("verify queue full, rejecting gossiped tx", "txID", gtx.Tx.ID(), "from", gtx.From)
		if s.p2p != nil {
			_ = s.p2p.ReportValidity(context.Background(), gtx.From, gtx.Tx.ID(), false)
		}
	}
}

func (s *Service) dispatchSync(peer txpool.PeerID) {
	select {
	case s.syncQueue <- peer:
	default:
		serviceLog.Debug("sync queue full, dropping new-peer sync", "peer", peer)
	}
}

// startVerifyWorkers runs a single dispatcher goroutine that takes a
// semaphore slot per queued transaction and hands the actual verify-then-
// insert work to its own goroutine, so at most VerifyThreads run at once
// regardless of how deep the queue gets (grounded on the common
// Acquire-spawn-Release pattern for bounding concurrent outbound requests).
func (s *Service) startVerifyWorkers(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for gtx := range s.verifyQueue {
			if err := s.verifySem.Acquire(ctx, 1); err != nil {
				return
			}
			s.wg.Add(1)
			go func(gtx txpool.GossipTx) {
				defer s.wg.Done()
				defer s.verifySem.Release(1)
				s.processGossip(ctx, gtx)
			}(gtx)
		}
	}()
}

func (s *Service) processGossip(ctx context.Context, gtx txpool.GossipTx) {
	s.seen.Add(gtx.Tx.ID(), struct{}{})

	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, gtx.Tx); err != nil {
			s.reportValidity(ctx, gtx.From, gtx.Tx.ID(), false)
			return
		}
	}
	if poolErr := s.pool.Insert(ctx, gtx.Tx); poolErr != nil {
		s.reportValidity(ctx, gtx.From, gtx.Tx.ID(), false)
		return
	}
	s.reportValidity(ctx, gtx.From, gtx.Tx.ID(), true)
	if s.p2p != nil {
		_ = s.p2p.BroadcastTx(ctx, gtx.Tx)
	}
}

func (s *Service) reportValidity(ctx context.Context, from txpool.PeerID, id ids.TxID, valid bool) {
	if s.p2p == nil {
		return
	}
	if err := s.p2p.ReportValidity(ctx, from, id, valid); err != nil {
		serviceLog.Debug("failed to report validity", "peer", from, "txID", id, "err", err)
	}
}

// startSyncWorkers mirrors startVerifyWorkers for newly-connected peers:
// the p2p transport owns the actual sync protocol, the service only bounds
// how many syncs run concurrently.
func (s *Service) startSyncWorkers(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for peer := range s.syncQueue {
			if err := s.syncSem.Acquire(ctx, 1); err != nil {
				return
			}
			s.wg.Add(1)
			go func(peer txpool.PeerID) {
				defer s.wg.Done()
				defer s.syncSem.Release(1)
				serviceLog.Debug("syncing with new peer", "peer", peer)
			}(peer)
		}
	}()
}
