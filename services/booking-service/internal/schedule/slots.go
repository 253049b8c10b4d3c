package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matheuslc/horacerta/services/booking-service/internal/identity"
	"github.com/matheuslc/horacerta/services/booking-service/internal/model"
)

// Template is the ordered list of bookable hours in a business day. It is
// configuration, not derived from data.
type Template []int

// DefaultTemplate spans 08:00 through 20:00 inclusive, one slot per hour.
var DefaultTemplate = Template{8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}

// TimeSlot is one hour of a day's availability grid. Not persisted.
type TimeSlot struct {
	Label              string
	Instant            time.Time
	AvailableProviders []string
	AvailableClients   []string
}

// DayAvailability computes the availability grid for one calendar day. A user
// is excluded from a slot iff they hold a non-canceled appointment at that
// exact instant (providers matched by provider id, clients by client id).
// Pure over its inputs; appointments outside the day or template hours are
// simply never matched.
func DayAvailability(date time.Time, tmpl Template, providers, clients []identity.User, appts []model.Appointment) []TimeSlot {
	// Keys are Unix seconds so matching compares instants, not time.Time
	// representations, regardless of the location a timestamp carries.
	busyProviders := map[int64]map[string]bool{}
	busyClients := map[int64]map[string]bool{}
	for _, a := range appts {
		if !a.Active() {
			continue
		}
		at := a.ScheduledAt.Unix()
		if busyProviders[at] == nil {
			busyProviders[at] = map[string]bool{}
			busyClients[at] = map[string]bool{}
		}
		busyProviders[at][a.ProviderID] = true
		busyClients[at][a.ClientID] = true
	}

	slots := make([]TimeSlot, 0, len(tmpl))
	for _, hour := range tmpl {
		instant := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
		slots = append(slots, TimeSlot{
			Label:              fmt.Sprintf("%02d:00", hour),
			Instant:            instant,
			AvailableProviders: freeIDs(providers, busyProviders[instant.Unix()]),
			AvailableClients:   freeIDs(clients, busyClients[instant.Unix()]),
		})
	}
	return slots
}

func freeIDs(users []identity.User, busy map[string]bool) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if busy[u.ID] {
			continue
		}
		ids = append(ids, u.ID)
	}
	return ids
}

// ParseHours parses a comma-separated list of hours (0-23) into a Template,
// preserving order. Invalid entries are dropped; an empty result falls back
// to DefaultTemplate.
func ParseHours(raw string) Template {
	var tmpl Template
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hour, err := strconv.Atoi(part)
		if err != nil || hour < 0 || hour > 23 {
			continue
		}
		tmpl = append(tmpl, hour)
	}
	if len(tmpl) == 0 {
		return DefaultTemplate
	}
	return tmpl
}
