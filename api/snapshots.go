package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aurumiq/aurumiq/journal"
	"github.com/aurumiq/aurumiq/pnl"
)

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	snapshots, count, err := s.store.ListSnapshots(page, pageSize)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	results := make([]snapshotResponse, 0, len(snapshots))
	for _, snap := range snapshots {
		results = append(results, buildSnapshotResponse(snap))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   count,
		"results": results,
	})
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var payload snapshotPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := payload.toSnapshot(0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := s.store.CreateSnapshot(snap)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, buildSnapshotResponse(created))
}

// handleGetSnapshot returns the snapshot with live movement merged in.
// Quote failures degrade to a plain snapshot view; they never fail the
// request.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshotID := pathID(r, "snapshot_id")

	snap, err := s.store.GetSnapshot(snapshotID)
	if errors.Is(err, journal.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := buildSnapshotResponse(snap)
	s.mergeMovement(r.Context(), snap, &resp)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshotID := pathID(r, "snapshot_id")

	var payload snapshotPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := payload.toSnapshot(snapshotID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := s.store.UpdateSnapshot(snap)
	if errors.Is(err, journal.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, buildSnapshotResponse(updated))
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshotID := pathID(r, "snapshot_id")

	err := s.store.DeleteSnapshot(snapshotID)
	if errors.Is(err, journal.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mergeMovement fetches current quotes for the snapshot's tickers and fills
// in the movement fields. Points and percentage are rounded to two places
// here, at the presentation boundary.
func (s *Server) mergeMovement(ctx context.Context, snap journal.Snapshot, resp *snapshotResponse) {
	today := time.Now()

	quoteMap := pnl.Quotes{}
	if s.broker != nil && s.broker.IsAuthenticated() && len(resp.Tickers) > 0 {
		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		prices, err := s.broker.LastPrices(fetchCtx, resp.Tickers)
		if err != nil {
			s.log.WithError(err).Warn("snapshot quote fetch failed")
		} else {
			quoteMap = prices
		}
	}

	for i, leg := range snap.Legs {
		cmp := pnl.CompareSnapshotLeg(leg, quoteMap, today)

		days := cmp.DaysSinceSnapshot
		resp.Legs[i].DaysSinceSnapshot = &days

		if cmp.CurrentPrice == nil {
			continue
		}
		resp.Legs[i].CurrentPrice = cmp.CurrentPrice

		points := round2(*cmp.PointsMoved)
		percent := round2(*cmp.PercentageMoved)
		resp.Legs[i].PointsMoved = &points
		resp.Legs[i].PercentageMoved = &percent
	}
}
