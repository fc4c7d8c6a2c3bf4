package entity

// ProjectManager is a selectable manager with optional review statistics.
type ProjectManager struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TotalTasks   int    `json:"totalTasks"`
	UpdatedToday int    `json:"updatedToday"`
}

// Pending returns the number of tasks not yet updated today.
func (m ProjectManager) Pending() int {
	if m.TotalTasks < m.UpdatedToday {
		return 0
	}
	return m.TotalTasks - m.UpdatedToday
}

// PicklistOption is a value/label pair from picklist metadata.
type PicklistOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
