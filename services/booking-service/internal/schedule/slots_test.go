package schedule

import (
	"reflect"
	"testing"
	"time"

	"github.com/matheuslc/horacerta/services/booking-service/internal/identity"
	"github.com/matheuslc/horacerta/services/booking-service/internal/model"
)

var (
	day       = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	providers = []identity.User{
		{ID: "provider-1", Name: "Carla", Capabilities: identity.CapProvider},
		{ID: "provider-2", Name: "Jonas", Capabilities: identity.CapProvider},
	}
	clients = []identity.User{
		{ID: "client-1", Name: "Ana"},
		{ID: "client-2", Name: "Pedro"},
	}
)

func at(hour int) time.Time {
	return time.Date(2025, 1, 10, hour, 0, 0, 0, time.UTC)
}

func slotByLabel(t *testing.T, slots []TimeSlot, label string) TimeSlot {
	t.Helper()
	for _, s := range slots {
		if s.Label == label {
			return s
		}
	}
	t.Fatalf("no slot labeled %q", label)
	return TimeSlot{}
}

func TestDayAvailability_EmptyDay(t *testing.T) {
	slots := DayAvailability(day, DefaultTemplate, providers, clients, nil)

	if len(slots) != len(DefaultTemplate) {
		t.Fatalf("expected %d slots, got %d", len(DefaultTemplate), len(slots))
	}
	if slots[0].Label != "08:00" || slots[len(slots)-1].Label != "20:00" {
		t.Fatalf("unexpected slot range: %s .. %s", slots[0].Label, slots[len(slots)-1].Label)
	}
	for _, s := range slots {
		if len(s.AvailableProviders) != 2 || len(s.AvailableClients) != 2 {
			t.Fatalf("slot %s: everyone should be free on an empty day", s.Label)
		}
	}
}

func TestDayAvailability_BookedSlotExcludesBothParties(t *testing.T) {
	appts := []model.Appointment{
		{ID: "a1", ClientID: "client-1", ProviderID: "provider-1", ScheduledAt: at(14)},
	}
	slots := DayAvailability(day, DefaultTemplate, providers, clients, appts)

	booked := slotByLabel(t, slots, "14:00")
	if !reflect.DeepEqual(booked.AvailableProviders, []string{"provider-2"}) {
		t.Fatalf("14:00 providers: got %v", booked.AvailableProviders)
	}
	if !reflect.DeepEqual(booked.AvailableClients, []string{"client-2"}) {
		t.Fatalf("14:00 clients: got %v", booked.AvailableClients)
	}

	// Adjacent hours are unaffected.
	next := slotByLabel(t, slots, "15:00")
	if len(next.AvailableProviders) != 2 || len(next.AvailableClients) != 2 {
		t.Fatalf("15:00 should be fully free, got %v / %v", next.AvailableProviders, next.AvailableClients)
	}
}

func TestDayAvailability_MatchesInstantAcrossLocations(t *testing.T) {
	// 11:00 -03:00 is the same instant as 14:00 UTC; the slot must be
	// occupied no matter which location the stored timestamp carries.
	saoPaulo := time.FixedZone("America/Sao_Paulo", -3*60*60)
	appts := []model.Appointment{
		{ID: "a1", ClientID: "client-1", ProviderID: "provider-1",
			ScheduledAt: time.Date(2025, 1, 10, 11, 0, 0, 0, saoPaulo)},
	}
	slots := DayAvailability(day, DefaultTemplate, providers, clients, appts)

	booked := slotByLabel(t, slots, "14:00")
	if !reflect.DeepEqual(booked.AvailableProviders, []string{"provider-2"}) {
		t.Fatalf("14:00 providers: got %v", booked.AvailableProviders)
	}
	if !reflect.DeepEqual(booked.AvailableClients, []string{"client-2"}) {
		t.Fatalf("14:00 clients: got %v", booked.AvailableClients)
	}
}

func TestDayAvailability_CanceledAppointmentFreesSlot(t *testing.T) {
	canceledAt := at(10)
	appts := []model.Appointment{
		{ID: "a1", ClientID: "client-1", ProviderID: "provider-1", ScheduledAt: at(14), CanceledAt: &canceledAt},
	}
	slots := DayAvailability(day, DefaultTemplate, providers, clients, appts)

	s := slotByLabel(t, slots, "14:00")
	if len(s.AvailableProviders) != 2 || len(s.AvailableClients) != 2 {
		t.Fatalf("canceled appointment must not occupy the slot, got %v / %v", s.AvailableProviders, s.AvailableClients)
	}
}

func TestDayAvailability_IgnoresOtherDays(t *testing.T) {
	appts := []model.Appointment{
		{ID: "a1", ClientID: "client-1", ProviderID: "provider-1", ScheduledAt: at(14).AddDate(0, 0, 1)},
	}
	slots := DayAvailability(day, DefaultTemplate, providers, clients, appts)

	s := slotByLabel(t, slots, "14:00")
	if len(s.AvailableProviders) != 2 {
		t.Fatalf("another day's appointment must not affect this day, got %v", s.AvailableProviders)
	}
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		raw  string
		want Template
	}{
		{"9,10,11", Template{9, 10, 11}},
		{" 8 , 12 ,16 ", Template{8, 12, 16}},
		{"7,25,-1,oops,13", Template{7, 13}},
		{"", DefaultTemplate},
		{"x,y", DefaultTemplate},
	}
	for _, tc := range tests {
		if got := ParseHours(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseHours(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
