package store

import "hopes-corner-sync/internal/models"

// Action is the closed set of mutation kinds a store can apply or broadcast.
type Action uint8

const (
	ActionUnknown Action = iota
	ActionAdd
	ActionUpdate
	ActionRemove
	ActionBulkRemove
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionUpdate:
		return "update"
	case ActionRemove:
		return "remove"
	case ActionBulkRemove:
		return "bulkRemove"
	default:
		return "unknown"
	}
}

// ParseAction maps a wire-level action name back to an Action.
// Unrecognized names map to ActionUnknown, which ApplyRemote ignores.
func ParseAction(s string) Action {
	switch s {
	case "add":
		return ActionAdd
	case "update":
		return ActionUpdate
	case "remove":
		return ActionRemove
	case "bulkRemove":
		return ActionBulkRemove
	default:
		return ActionUnknown
	}
}

// Mutation is an externally sourced record change to reconcile into a store.
// Record carries the payload for add/update/remove; IDs carries the id list
// for bulkRemove.
type Mutation[T models.Record] struct {
	Action Action
	Record T
	IDs    []string
}
