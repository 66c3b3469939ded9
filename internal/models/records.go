package models

import "time"

// Record is implemented by every domain record held in a store.
// RecordID must be unique within one domain's collection.
type Record interface {
	RecordID() string
}

// MealKind distinguishes guest-level meal entries from bulk/aggregate ones.
type MealKind string

const (
	MealGuest     MealKind = "guest"
	MealLunchBag  MealKind = "lunch_bag"
	MealDayCenter MealKind = "day_center"
	MealRV        MealKind = "rv"
	MealExtra     MealKind = "extra"
)

// ServiceKind identifies the logical sub-collection within the shared
// services table. Each service store merges only rows of its own kind.
type ServiceKind string

const (
	ServiceShower  ServiceKind = "shower"
	ServiceLaundry ServiceKind = "laundry"
	ServiceBicycle ServiceKind = "bicycle"
	ServiceHaircut ServiceKind = "haircut"
	ServiceHoliday ServiceKind = "holiday"
)

// ServiceStatus is the lifecycle status of a service record.
// Not every kind uses every status (laundry uses washing, showers use booked).
type ServiceStatus string

const (
	StatusWaiting    ServiceStatus = "waiting"
	StatusBooked     ServiceStatus = "booked"
	StatusInProgress ServiceStatus = "in_progress"
	StatusWashing    ServiceStatus = "washing"
	StatusDone       ServiceStatus = "done"
	StatusCancelled  ServiceStatus = "cancelled"
)

// Guest is a person checked in at the front desk.
type Guest struct {
	ID        string    `json:"guest_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (g Guest) RecordID() string { return g.ID }

// Meal is one meal entry. GuestID is empty for bulk entries (lunch bags,
// RV counts, extras) that are not attributed to a single guest.
type Meal struct {
	ID             string    `json:"meal_id"`
	GuestID        string    `json:"guest_id,omitempty"`
	Kind           MealKind  `json:"kind"`
	Quantity       int       `json:"quantity"`
	Notes          string    `json:"notes,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	ServedAt       time.Time `json:"served_at"`
}

func (m Meal) RecordID() string { return m.ID }

// Service is one row of the shared services table: a shower slot, a laundry
// load, a bicycle repair, a haircut or a holiday service.
type Service struct {
	ID        string        `json:"service_id"`
	GuestID   string        `json:"guest_id"`
	Kind      ServiceKind   `json:"kind"`
	Status    ServiceStatus `json:"status"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (s Service) RecordID() string { return s.ID }

// Donation is a received donation entry. GuestID is optional.
type Donation struct {
	ID             string    `json:"donation_id"`
	GuestID        string    `json:"guest_id,omitempty"`
	Category       string    `json:"category"`
	Quantity       int       `json:"quantity"`
	Notes          string    `json:"notes,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

func (d Donation) RecordID() string { return d.ID }

// Reminder is a follow-up note attached to a guest.
type Reminder struct {
	ID        string    `json:"reminder_id"`
	GuestID   string    `json:"guest_id"`
	Text      string    `json:"text"`
	DueAt     time.Time `json:"due_at"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

func (r Reminder) RecordID() string { return r.ID }
