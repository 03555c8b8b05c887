package network

import (
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/engine"
)

// Simulation is the part of the engine the network layer drives.
type Simulation interface {
	TryEnqueue(id item.ID) bool
	AddItem(stackID int, id item.ID) bool
	RemoveItem(id item.ID) bool
	BeginDrag(id item.ID) bool
	DropOnStack(id item.ID, stackID int) (int, error)
	DropOnQueue(id item.ID) bool
	CancelDrag(id item.ID) bool
	Purchase() (engine.PurchaseResult, error)
	DismissDialog() bool
	StartSession() (string, error)
	Restart() (string, error)
	ForceFail() bool
	Snapshot() engine.Snapshot
	State() session.State
}

// Player action types accepted over the websocket.
const (
	ActionEnqueue       = "ENQUEUE"
	ActionAddToStack    = "ADD_TO_STACK"
	ActionRemove        = "REMOVE"
	ActionDrag          = "DRAG"
	ActionDropStack     = "DROP_STACK"
	ActionDropQueue     = "DROP_QUEUE"
	ActionCancelDrag    = "CANCEL_DRAG"
	ActionPurchase      = "PURCHASE"
	ActionDismissDialog = "DISMISS_DIALOG"
	ActionStart         = "START"
	ActionRestart       = "RESTART"
	ActionFail          = "FAIL"
)

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type    string  `json:"type"`
	ItemID  item.ID `json:"item_id,omitempty"`
	StackID int     `json:"stack_id,omitempty"`
}

// ActionResult is sent back to the client that issued an action.
type ActionResult struct {
	Type      string                 `json:"type"` // Echo of the action type
	OK        bool                   `json:"ok"`
	Error     string                 `json:"error,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	StackID   *int                   `json:"stack_id,omitempty"` // Where a drop landed
	Purchase  *engine.PurchaseResult `json:"purchase,omitempty"`
}

// ApplyAction routes one player action to the simulation.
func ApplyAction(sim Simulation, action PlayerAction) ActionResult {
	res := ActionResult{Type: action.Type}

	switch action.Type {
	case ActionEnqueue:
		res.OK = sim.TryEnqueue(action.ItemID)
	case ActionAddToStack:
		res.OK = sim.AddItem(action.StackID, action.ItemID)
	case ActionRemove:
		res.OK = sim.RemoveItem(action.ItemID)
	case ActionDrag:
		res.OK = sim.BeginDrag(action.ItemID)
	case ActionDropStack:
		placed, err := sim.DropOnStack(action.ItemID, action.StackID)
		if err != nil {
			res.Error = err.Error()
			break
		}
		res.OK = true
		res.StackID = &placed
	case ActionDropQueue:
		res.OK = sim.DropOnQueue(action.ItemID)
	case ActionCancelDrag:
		res.OK = sim.CancelDrag(action.ItemID)
	case ActionPurchase:
		p, err := sim.Purchase()
		if err != nil {
			res.Error = err.Error()
			break
		}
		res.OK = true
		res.Purchase = &p
	case ActionDismissDialog:
		res.OK = sim.DismissDialog()
	case ActionStart:
		id, err := sim.StartSession()
		if err != nil {
			res.Error = err.Error()
			break
		}
		res.OK, res.SessionID = true, id
	case ActionRestart:
		id, err := sim.Restart()
		if err != nil {
			res.Error = err.Error()
			break
		}
		res.OK, res.SessionID = true, id
	case ActionFail:
		res.OK = sim.ForceFail()
	default:
		res.Error = "unknown action type: " + action.Type
	}
	return res
}
