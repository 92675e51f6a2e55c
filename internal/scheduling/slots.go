package scheduling

import (
	"errors"
	"time"
)

const (
	// SlotInterval is the fixed appointment length.
	SlotInterval = 30 * time.Minute

	openingHour = 8  // 08:00 inclusive
	closingHour = 18 // 18:00 exclusive
)

var (
	ErrWeekendNotAllowed    = errors.New("appointments are allowed on weekdays only")
	ErrOutsideServiceWindow = errors.New("time is outside service hours (08:00-18:00)")
	ErrSlotMisaligned       = errors.New("time must align to a 30-minute slot")
)

// NormalizeWallClock turns an incoming date-time into the wall-clock value the
// scheduling domain works with. A UTC-tagged instant is first converted to
// server local time, because browser clients encode their local wall clock as
// UTC; afterwards only the numeric fields are kept, re-anchored in a neutral
// location so that equality and storage ignore zones entirely.
func NormalizeWallClock(t time.Time) time.Time {
	if _, offset := t.Zone(); offset == 0 {
		t = t.In(time.Local)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// DayOf truncates a wall-clock value to midnight of its calendar day.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SlotsForDay returns the canonical grid of bookable times for one calendar
// day: 08:00, 08:30, ... 17:30. The grid is the same for every day of the
// week; weekday rules are enforced at booking time, not here, so the grid can
// still be rendered for display on closed days.
func SlotsForDay(day time.Time) []time.Time {
	start := time.Date(day.Year(), day.Month(), day.Day(), openingHour, 0, 0, 0, time.UTC)
	end := time.Date(day.Year(), day.Month(), day.Day(), closingHour, 0, 0, 0, time.UTC)

	slots := make([]time.Time, 0, int(end.Sub(start)/SlotInterval))
	for t := start; t.Before(end); t = t.Add(SlotInterval) {
		slots = append(slots, t)
	}
	return slots
}

// ValidateBookingTime applies the pure business rules to a normalized
// wall-clock time, failing fast with the first violated rule.
func ValidateBookingTime(t time.Time) error {
	if err := validateWeekday(t); err != nil {
		return err
	}
	if err := validateWindow(t); err != nil {
		return err
	}
	return validateAlignment(t)
}

func validateWeekday(t time.Time) error {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return ErrWeekendNotAllowed
	}
	return nil
}

func validateWindow(t time.Time) error {
	minutes := t.Hour()*60 + t.Minute()
	if minutes < openingHour*60 || minutes >= closingHour*60 {
		return ErrOutsideServiceWindow
	}
	return nil
}

func validateAlignment(t time.Time) error {
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return ErrSlotMisaligned
	}
	if (t.Hour()*60+t.Minute())%int(SlotInterval.Minutes()) != 0 {
		return ErrSlotMisaligned
	}
	return nil
}
