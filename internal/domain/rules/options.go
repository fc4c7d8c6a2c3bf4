package rules

import "github.com/garyjia/pm-status-review/internal/domain/entity"

// FilterOption is a status filter choice offered for a session mode.
type FilterOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

var (
	viewFilters   = []string{entity.FilterAll, entity.FilterInDevelopment, entity.FilterGoLive, entity.FilterClosed}
	updateFilters = []string{entity.FilterDueToday, entity.FilterInDevelopment, entity.FilterGoLive, entity.FilterClosed}
)

// StatusFilters lists the filters available in mode.
func StatusFilters(mode entity.Mode) []string {
	if mode == entity.ModeView {
		return append([]string(nil), viewFilters...)
	}
	return append([]string(nil), updateFilters...)
}

// StatusFilterOptions lists the filters for mode with selected marked.
func StatusFilterOptions(mode entity.Mode, selected string) []FilterOption {
	values := StatusFilters(mode)
	opts := make([]FilterOption, 0, len(values))
	for _, v := range values {
		opts = append(opts, FilterOption{Value: v, Label: v, Selected: v == selected})
	}
	return opts
}

// IsFilterAllowed reports whether filter may be used in mode.
func IsFilterAllowed(mode entity.Mode, filter string) bool {
	for _, v := range StatusFilters(mode) {
		if v == filter {
			return true
		}
	}
	return false
}

// MeetingOptions returns the follow-up choices offered for a project status.
// Go Live and Closed projects only choose between Yes and No.
func MeetingOptions(status string) []entity.PicklistOption {
	values := entity.MeetingScheduledValues
	if isClosedOrGoLive(status) {
		values = []string{entity.MeetingYes, entity.MeetingNo}
	}
	opts := make([]entity.PicklistOption, 0, len(values))
	for _, v := range values {
		opts = append(opts, entity.PicklistOption{Value: v, Label: v})
	}
	return opts
}

// FilterStatusOptions drops picklist sentinels that are never valid
// project statuses.
func FilterStatusOptions(opts []entity.PicklistOption) []entity.PicklistOption {
	out := make([]entity.PicklistOption, 0, len(opts))
	for _, o := range opts {
		if o.Value == entity.PicklistValueNone || o.Value == entity.PicklistValueOpen {
			continue
		}
		out = append(out, o)
	}
	return out
}

// StatusLabel resolves a status value to its picklist label, falling back
// to the value itself.
func StatusLabel(opts []entity.PicklistOption, value string) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
