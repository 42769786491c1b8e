package gateway

import (
	"encoding/json"
	"errors"
	"time"

	"rally/cmd/internal/roster"
	v1 "rally/shared/contracts/coord/v1"
)

var (
	errRollPending      = errors.New("a roll selection is already in progress for this room")
	errNoPendingRoll    = errors.New("no roll selection is pending for this room")
	errNotRollInitiator = errors.New("only the roll initiator may pick exclusions")
)

// pendingRoll is an oversized-pool roll waiting for the initiator's
// exclusion picks. Exactly one may be pending per room.
type pendingRoll struct {
	connID   string
	pool     []string
	deadline time.Time
	timer    *time.Timer
}

func (g *Gateway) stagePendingRoll(roomID, connID string, pool []string, deadline time.Time) error {
	g.rollMu.Lock()
	defer g.rollMu.Unlock()

	if _, ok := g.rolls[roomID]; ok {
		return errRollPending
	}

	pr := &pendingRoll{
		connID:   connID,
		pool:     pool,
		deadline: deadline,
	}
	pr.timer = time.AfterFunc(time.Until(deadline), func() { g.expirePendingRoll(roomID) })
	g.rolls[roomID] = pr
	return nil
}

// resolvePendingRoll validates the exclusion picks and retires the pending
// roll. A bad exclusion set leaves the roll pending; the initiator may try
// again until the deadline.
func (g *Gateway) resolvePendingRoll(roomID, connID string, excluded []string) ([]string, error) {
	g.rollMu.Lock()
	defer g.rollMu.Unlock()

	pr, ok := g.rolls[roomID]
	if !ok {
		return nil, errNoPendingRoll
	}
	if pr.connID != connID {
		return nil, errNotRollInitiator
	}

	pool, err := roster.Narrow(pr.pool, excluded)
	if err != nil {
		return nil, err
	}

	pr.timer.Stop()
	delete(g.rolls, roomID)
	return pool, nil
}

// abandonPendingRoll drops a staged roll without firing its timeout.
func (g *Gateway) abandonPendingRoll(roomID, connID string) {
	g.rollMu.Lock()
	defer g.rollMu.Unlock()

	pr, ok := g.rolls[roomID]
	if !ok || pr.connID != connID {
		return
	}
	pr.timer.Stop()
	delete(g.rolls, roomID)
}

// expirePendingRoll fires when the selection window elapses with no valid
// exclusion set; the whole roll is abandoned and the initiator is told.
func (g *Gateway) expirePendingRoll(roomID string) {
	g.rollMu.Lock()
	pr, ok := g.rolls[roomID]
	if ok {
		delete(g.rolls, roomID)
	}
	g.rollMu.Unlock()
	if !ok {
		return
	}

	g.log.Info("roll.timeout", "room_id", roomID)
	payload, _ := json.Marshal(v1.ErrorPayload{
		Code:    "timeout",
		Message: roster.ErrSelectionTimeout.Error(),
	})
	g.hub.SendToConn(pr.connID, newEnvelope(v1.TypeError, payload, time.Now().UTC()))
}
