package allocation

// Occupancy and wait thresholds for the static baseline provider. The
// model-backed providers that normally feed these recommendations live
// outside this service.
const (
	highOccupancyPercent   = 90
	raisedOccupancyPercent = 70
	longWaitMinutes        = 60
)

// StaticBaselineProvider derives recommendations from fixed occupancy and
// wait thresholds. It is the default when no scoring provider is wired.
type StaticBaselineProvider struct{}

// RecommendedActions returns baseline staffing guidance for the given
// snapshot. Always returns at least one entry.
func (StaticBaselineProvider) RecommendedActions(m Metrics) []string {
	var actions []string
	if m.OccupancyPercent > highOccupancyPercent {
		actions = append(actions, "Open overflow capacity and divert non-urgent arrivals")
	} else if m.OccupancyPercent > raisedOccupancyPercent {
		actions = append(actions, "Prepare overflow capacity; occupancy is trending high")
	}
	if m.AverageWaitMinutes > longWaitMinutes {
		actions = append(actions, "Re-triage the waiting room and post updated wait times")
	}
	if len(actions) == 0 {
		actions = append(actions, "Staffing within normal operating range")
	}
	return actions
}
