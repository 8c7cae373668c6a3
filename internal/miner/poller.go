package miner

import (
	"context"
	"errors"
	"time"

	"github.com/quantusnet/minercore/internal/noderpc"
)

// remoteSampleTimeout bounds one best-effort bootnode round trip.
const remoteSampleTimeout = 5 * time.Second

// pollLoop is the per-session status loop.
//
// Each iteration: drain one pending safe-mode toggle, ensure the local
// RPC session and new-heads subscription, read at most one message,
// issue health requests on a tick, sample the remote bootnode on a
// slower tick, and publish the snapshot when it changed.
//
// Local session errors tear the session down for reconnection on the
// next iteration; remote errors affect nothing. The loop ends when its
// context is cancelled, which a superseding Start always does.
func (s *Supervisor) pollLoop(ctx context.Context, chain, sessionID string, safe *SafeMode) {
	status := Status{SessionID: sessionID}
	var lastPublished *Status

	var (
		sess     *noderpc.Session
		subID    string
		subReqID uint64
	)

	teardown := func() {
		if sess != nil {
			sess.Close()
			sess = nil
		}
		subID = ""
		subReqID = 0
	}
	defer teardown()

	healthTicker := time.NewTicker(s.timings.HealthInterval)
	defer healthTicker.Stop()
	remoteTicker := time.NewTicker(s.timings.RemoteInterval)
	defer remoteTicker.Stop()

	publish := func() {
		if lastPublished != nil && status.Equal(*lastPublished) {
			return
		}
		snap := status.Clone()
		lastPublished = &snap
		s.pub.Publish(ChannelStatus, snap)
		if s.recorder != nil {
			s.recorder.RecordStatus(chain, snap)
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}

		// Drain one pending safe-mode toggle. A successful execution
		// restarts the whole session, superseding this loop; a failed
		// one leaves the session as-is and polling continues.
		if want, ok := safe.Drain(); ok {
			if want != safe.Active() && s.executeToggle(ctx, want, safe) {
				return
			}
		}

		if sess == nil {
			newSess, err := noderpc.Dial(ctx, s.localRPC)
			if err != nil {
				s.logger.Debug("local rpc unreachable", "endpoint", s.localRPC, "error", err)
				publish()
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.timings.ReconnectBackoff):
				}
				continue
			}
			sess = newSess
			s.logger.Debug("local rpc session established", "endpoint", s.localRPC)
		}

		if subID == "" && subReqID == 0 {
			id, err := sess.Send(ctx, noderpc.MethodSubscribeNewHeads, nil)
			if err != nil {
				teardown()
				continue
			}
			subReqID = id
		}

		msg, err := sess.ReadOne(s.timings.ReadTimeout)
		switch {
		case errors.Is(err, noderpc.ErrTimeout):
			// Quiet iteration; nothing arrived.
		case err != nil:
			s.logger.Debug("local rpc session lost", "error", err)
			teardown()
			publish()
			continue
		default:
			s.handleMessage(msg, &status, safe, subReqID, &subID)
		}

		select {
		case <-healthTicker.C:
			if _, err := sess.Send(ctx, noderpc.MethodSystemHealth, nil); err != nil {
				teardown()
			}
		default:
		}

		select {
		case <-remoteTicker.C:
			s.sampleRemote(ctx, chain, &status)
		default:
		}

		publish()
	}
}

// handleMessage folds one inbound RPC message into the snapshot.
// Malformed replies degrade the affected fields to unknown for this
// tick; they never propagate.
func (s *Supervisor) handleMessage(msg noderpc.Message, status *Status, safe *SafeMode, subReqID uint64, subID *string) {
	if msg.Notification {
		if msg.Method != noderpc.NotificationNewHead {
			return
		}
		var head noderpc.Head
		if err := msg.Decode(&head); err != nil {
			s.logger.Debug("malformed new-head notification", "error", err)
			return
		}
		h := head.Number.Uint64()
		status.CurrentBlock = &h
		if status.HighestBlock == nil || h > *status.HighestBlock {
			hh := h
			status.HighestBlock = &hh
		}
		safe.Observe(h)
		return
	}

	if msg.ID == subReqID {
		var id string
		if err := msg.Decode(&id); err != nil {
			s.logger.Debug("malformed subscription reply", "error", err)
			return
		}
		*subID = id
		return
	}

	if msg.Method == noderpc.MethodSystemHealth {
		var health noderpc.Health
		if err := msg.Decode(&health); err != nil {
			s.logger.Debug("malformed health reply", "error", err)
			status.Peers = nil
			status.IsSyncing = nil
			return
		}
		peers := health.Peers
		syncing := health.IsSyncing
		status.Peers = &peers
		status.IsSyncing = &syncing
	}
}

// sampleRemote folds the remote bootnode's highest block into the
// snapshot, keeping the larger of local and remote. Pure best-effort.
func (s *Supervisor) sampleRemote(ctx context.Context, chain string, status *Status) {
	url, ok := s.bootnodes[chain]
	if !ok || url == "" {
		return
	}

	rctx, cancel := context.WithTimeout(ctx, remoteSampleTimeout)
	defer cancel()

	state, err := noderpc.SyncStateOnce(rctx, url)
	if err != nil {
		s.logger.Debug("remote bootnode sample failed", "endpoint", url, "error", err)
		return
	}

	remote := state.HighestBlock.Uint64()
	if status.HighestBlock == nil || remote > *status.HighestBlock {
		status.HighestBlock = &remote
	}
}

// executeToggle applies a drained safe-mode toggle: restart the node
// with the restrictive flag spliced in or out of the extra args.
//
// Returns true when the restart happened, in which case the poller
// that called this has been superseded and must return immediately.
// On false the caller's session is untouched and polling continues.
func (s *Supervisor) executeToggle(ctx context.Context, want bool, safe *SafeMode) bool {
	cfg, err := s.lastConfigClone()
	if err != nil {
		s.logger.Warn("safe-mode toggle without a session", "error", err)
		return false
	}

	cfg.ExtraArgs = safe.SpliceFlag(cfg.ExtraArgs, want)

	s.mu.Lock()
	runCtx := s.runCtx
	s.mu.Unlock()
	if runCtx == nil {
		runCtx = context.Background()
	}

	verb := "disabling"
	if want {
		verb = "enabling"
	}
	s.publishUILine("Safe mode " + verb + ": restarting node")

	// Hold the lifecycle lock across the state flip and the restart so
	// a concurrent terminal Stop either happens before (and cancels us
	// via ctx) or after (and stops the restarted node). Flipping before
	// the spawn keeps the superseding poller from re-requesting the
	// same toggle off an early head.
	s.lifecycle.Lock()
	if ctx.Err() != nil {
		s.lifecycle.Unlock()
		return false
	}
	prev := safe.Active()
	safe.SetActive(want)
	err = s.startLocked(runCtx, cfg)
	s.lifecycle.Unlock()

	if err != nil {
		safe.SetActive(prev)
		s.logger.Error("safe-mode restart failed", "error", err)
		return false
	}
	return true
}
