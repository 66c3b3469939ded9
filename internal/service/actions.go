package service

import (
	"context"

	"hopes-corner-sync/internal/actionlog"
	"hopes-corner-sync/internal/models"
	"hopes-corner-sync/internal/store"
)

// inverses maps each loggable action to the operation that reverses it.
// Every inverse is a best-effort delete on the owning store.
func (s *SyncService) inverses() map[actionlog.Kind]actionlog.InverseFunc {
	deleteFrom := func(st interface {
		Delete(ctx context.Context, id string)
	}) actionlog.InverseFunc {
		return func(ctx context.Context, data actionlog.Data) error {
			st.Delete(ctx, data.RecordID)
			return nil
		}
	}

	return map[actionlog.Kind]actionlog.InverseFunc{
		actionlog.KindMealAdded:        deleteFrom(s.stores.Meals),
		actionlog.KindShowerBooked:     deleteFrom(s.stores.Showers),
		actionlog.KindLaundryAdded:     deleteFrom(s.stores.Laundry),
		actionlog.KindBicycleAdded:     deleteFrom(s.stores.Bicycles),
		actionlog.KindHaircutAdded:     deleteFrom(s.stores.Haircuts),
		actionlog.KindHolidayAdded:     deleteFrom(s.stores.Holidays),
		actionlog.KindDonationRecorded: deleteFrom(s.stores.Donations),
		actionlog.KindReminderAdded:    deleteFrom(s.stores.Reminders),
	}
}

// AddMeal records a meal and logs it for undo.
func (s *SyncService) AddMeal(ctx context.Context, m models.Meal) (models.Meal, error) {
	rec, err := s.stores.Meals.Add(ctx, m)
	if err != nil {
		return models.Meal{}, err
	}
	s.actions.Push(actionlog.KindMealAdded, actionlog.Data{
		RecordID: rec.ID,
		GuestID:  rec.GuestID,
		Label:    string(rec.Kind),
	})
	return rec, nil
}

// AddService books a service of the store's kind and logs it for undo.
func (s *SyncService) AddService(ctx context.Context, st *store.ServiceStore, svc models.Service) (models.Service, error) {
	rec, err := st.Add(ctx, svc)
	if err != nil {
		return models.Service{}, err
	}
	s.actions.Push(serviceKind(st.Kind()), actionlog.Data{
		RecordID: rec.ID,
		GuestID:  rec.GuestID,
		Label:    string(rec.Kind),
	})
	return rec, nil
}

// AddDonation records a donation and logs it for undo.
func (s *SyncService) AddDonation(ctx context.Context, d models.Donation) (models.Donation, error) {
	rec, err := s.stores.Donations.Add(ctx, d)
	if err != nil {
		return models.Donation{}, err
	}
	s.actions.Push(actionlog.KindDonationRecorded, actionlog.Data{
		RecordID: rec.ID,
		GuestID:  rec.GuestID,
		Label:    rec.Category,
	})
	return rec, nil
}

// AddReminder records a reminder and logs it for undo.
func (s *SyncService) AddReminder(ctx context.Context, r models.Reminder) (models.Reminder, error) {
	rec, err := s.stores.Reminders.Add(ctx, r)
	if err != nil {
		return models.Reminder{}, err
	}
	s.actions.Push(actionlog.KindReminderAdded, actionlog.Data{
		RecordID: rec.ID,
		GuestID:  rec.GuestID,
		Label:    rec.Text,
	})
	return rec, nil
}

// Undo reverses the logged action with the given id. It reports whether the
// inverse ran and the entry was removed.
func (s *SyncService) Undo(ctx context.Context, actionID string) bool {
	return s.actions.Undo(ctx, actionID)
}

func serviceKind(kind models.ServiceKind) actionlog.Kind {
	switch kind {
	case models.ServiceShower:
		return actionlog.KindShowerBooked
	case models.ServiceLaundry:
		return actionlog.KindLaundryAdded
	case models.ServiceBicycle:
		return actionlog.KindBicycleAdded
	case models.ServiceHaircut:
		return actionlog.KindHaircutAdded
	default:
		return actionlog.KindHolidayAdded
	}
}
