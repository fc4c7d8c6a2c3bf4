package dispatcher

import (
	"context"

	"github.com/garyjia/pm-status-review/internal/domain/event"
)

// Handler processes session notices
type Handler func(ctx context.Context, evt *event.Event) error

// Filter selects the notices a handler receives
type Filter func(evt *event.Event) bool

// Everything matches every notice
func Everything(*event.Event) bool { return true }

// ForTypes matches notices of the given types
func ForTypes(types ...event.Type) Filter {
	set := make(map[event.Type]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(evt *event.Event) bool {
		_, ok := set[evt.Type]
		return ok
	}
}

// AtLevel matches notices displayed with one of the given levels
func AtLevel(levels ...event.Level) Filter {
	return func(evt *event.Event) bool {
		for _, l := range levels {
			if evt.Level == l {
				return true
			}
		}
		return false
	}
}
