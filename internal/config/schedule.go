package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// CronParser accepts five or six fields (seconds optional) and descriptors
// such as @daily, so both "0 17 * * 5" and "0 0 17 * * 5" parse.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour |
		cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// EntryName is the schedule's name, or <automation>-<i> when unnamed.
func (s ScheduleConfig) EntryName(i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s-%d", s.Automation, i)
}

// ValidateSchedules checks every entry parses, targets a known automation
// and has a name no other entry uses.
func ValidateSchedules(schedules []ScheduleConfig) error {
	seen := make(map[string]int, len(schedules))
	for i, s := range schedules {
		if s.Cron == "" {
			return fmt.Errorf("schedules[%d]: cron is required", i)
		}
		if s.Automation != AutomationMenus && s.Automation != AutomationLevels {
			return fmt.Errorf("schedules[%d]: unknown automation %q", i, s.Automation)
		}
		if _, err := CronParser.Parse(s.Cron); err != nil {
			return fmt.Errorf("schedules[%d] %q: %w", i, s.Cron, err)
		}
		name := s.EntryName(i)
		if j, dup := seen[name]; dup {
			return fmt.Errorf("schedules[%d]: name %q already used by schedules[%d]", i, name, j)
		}
		seen[name] = i
	}
	return nil
}
