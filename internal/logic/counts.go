package logic

// EventCounts tracks cumulative event counts since startup.
type EventCounts struct {
	WarningsOn  int
	WarningsOff int
	Charging    int
	Discharging int
	ViewChanges int
}

// Add counts each event by type.
func (c *EventCounts) Add(events []Event) {
	for _, e := range events {
		switch e.Type {
		case EventWarningOn:
			c.WarningsOn++
		case EventWarningOff:
			c.WarningsOff++
		case EventCharging:
			c.Charging++
		case EventDischarge:
			c.Discharging++
		case EventViewSpeed, EventViewDetail:
			c.ViewChanges++
		}
	}
}
