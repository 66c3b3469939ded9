package feed

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
	"hopes-corner-sync/internal/store"
)

// Raw row shapes as the backend's change feed delivers them: nullable columns
// are pointers, and a delete's old row may carry the primary key only.

type guestRow struct {
	GuestID   string    `json:"guest_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type mealRow struct {
	MealID         string    `json:"meal_id"`
	GuestID        *string   `json:"guest_id"`
	Kind           string    `json:"kind"`
	Quantity       int       `json:"quantity"`
	Notes          *string   `json:"notes"`
	IdempotencyKey *string   `json:"idempotency_key"`
	ServedAt       time.Time `json:"served_at"`
}

type serviceRow struct {
	ServiceID string    `json:"service_id"`
	GuestID   string    `json:"guest_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type donationRow struct {
	DonationID     string    `json:"donation_id"`
	GuestID        *string   `json:"guest_id"`
	Category       string    `json:"category"`
	Quantity       int       `json:"quantity"`
	Notes          *string   `json:"notes"`
	IdempotencyKey *string   `json:"idempotency_key"`
	ReceivedAt     time.Time `json:"received_at"`
}

type reminderRow struct {
	ReminderID string    `json:"reminder_id"`
	GuestID    string    `json:"guest_id"`
	Text       string    `json:"text"`
	DueAt      time.Time `json:"due_at"`
	Done       bool      `json:"done"`
	CreatedAt  time.Time `json:"created_at"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func actionFor(t EventType) store.Action {
	switch t {
	case EventInsert:
		return store.ActionAdd
	case EventUpdate:
		return store.ActionUpdate
	case EventDelete:
		return store.ActionRemove
	default:
		return store.ActionUnknown
	}
}

// rowOf picks the row an event describes: New for insert/update, Old for
// delete.
func rowOf(ev Event) json.RawMessage {
	if ev.Type == EventDelete {
		return ev.Old
	}
	return ev.New
}

// GuestHandler reconciles guest table events into the guest store.
func GuestHandler(st *store.Store[models.Guest], logger *zap.Logger) Handler {
	return func(ev Event) {
		var row guestRow
		if !decodeRow(rowOf(ev), &row, logger) || row.GuestID == "" {
			return
		}
		st.ApplyRemote(store.Mutation[models.Guest]{
			Action: actionFor(ev.Type),
			Record: models.Guest{
				ID:        row.GuestID,
				FirstName: row.FirstName,
				LastName:  row.LastName,
				Notes:     deref(row.Notes),
				CreatedAt: row.CreatedAt,
			},
		})
	}
}

// MealHandler reconciles meal table events into the meal store.
func MealHandler(st *store.Store[models.Meal], logger *zap.Logger) Handler {
	return func(ev Event) {
		var row mealRow
		if !decodeRow(rowOf(ev), &row, logger) || row.MealID == "" {
			return
		}
		st.ApplyRemote(store.Mutation[models.Meal]{
			Action: actionFor(ev.Type),
			Record: models.Meal{
				ID:             row.MealID,
				GuestID:        deref(row.GuestID),
				Kind:           models.MealKind(row.Kind),
				Quantity:       row.Quantity,
				Notes:          deref(row.Notes),
				IdempotencyKey: deref(row.IdempotencyKey),
				ServedAt:       row.ServedAt,
			},
		})
	}
}

// ServiceHandler reconciles shared services table events into one per-kind
// store. Rows of another kind are silently skipped; a delete whose old row
// carries no kind is applied anyway, since removing an absent id is a no-op.
func ServiceHandler(st *store.ServiceStore, logger *zap.Logger) Handler {
	return func(ev Event) {
		var row serviceRow
		if !decodeRow(rowOf(ev), &row, logger) || row.ServiceID == "" {
			return
		}
		if row.Kind != "" && row.Kind != string(st.Kind()) {
			return
		}
		st.ApplyRemote(store.Mutation[models.Service]{
			Action: actionFor(ev.Type),
			Record: models.Service{
				ID:        row.ServiceID,
				GuestID:   row.GuestID,
				Kind:      models.ServiceKind(row.Kind),
				Status:    models.ServiceStatus(row.Status),
				Notes:     deref(row.Notes),
				CreatedAt: row.CreatedAt,
				UpdatedAt: row.UpdatedAt,
			},
		})
	}
}

// DonationHandler reconciles donation table events into the donation store.
func DonationHandler(st *store.Store[models.Donation], logger *zap.Logger) Handler {
	return func(ev Event) {
		var row donationRow
		if !decodeRow(rowOf(ev), &row, logger) || row.DonationID == "" {
			return
		}
		st.ApplyRemote(store.Mutation[models.Donation]{
			Action: actionFor(ev.Type),
			Record: models.Donation{
				ID:             row.DonationID,
				GuestID:        deref(row.GuestID),
				Category:       row.Category,
				Quantity:       row.Quantity,
				Notes:          deref(row.Notes),
				IdempotencyKey: deref(row.IdempotencyKey),
				ReceivedAt:     row.ReceivedAt,
			},
		})
	}
}

// ReminderHandler reconciles reminder table events into the reminder store.
func ReminderHandler(st *store.Store[models.Reminder], logger *zap.Logger) Handler {
	return func(ev Event) {
		var row reminderRow
		if !decodeRow(rowOf(ev), &row, logger) || row.ReminderID == "" {
			return
		}
		st.ApplyRemote(store.Mutation[models.Reminder]{
			Action: actionFor(ev.Type),
			Record: models.Reminder{
				ID:        row.ReminderID,
				GuestID:   row.GuestID,
				Text:      row.Text,
				DueAt:     row.DueAt,
				Done:      row.Done,
				CreatedAt: row.CreatedAt,
			},
		})
	}
}

func decodeRow(raw json.RawMessage, into any, logger *zap.Logger) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, into); err != nil {
		logger.Debug("ignoring malformed feed row", zap.Error(err))
		return false
	}
	return true
}
