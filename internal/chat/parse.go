// Package chat turns chat commands into booking operations and their results
// into replies.
package chat

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/class-booker/internal/calendar"
)

// ErrBadArgument is returned for day or time tokens that cannot be parsed.
var ErrBadArgument = errors.New("chat: bad argument")

// ParseDay resolves a day token relative to today. Weekday names, English or
// Hebrew, mean the next such day strictly after today.
func ParseDay(token string, today calendar.Date) (calendar.Date, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	switch t {
	case "today", "היום":
		return today, nil
	case "tomorrow", "מחר":
		return today.AddDays(1), nil
	}
	if day, ok := calendar.ParseWeekday(t); ok {
		return calendar.FollowingOccurrence(day, today), nil
	}
	return calendar.Date{}, fmt.Errorf("%w: unknown day %q", ErrBadArgument, token)
}

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})(am|pm)?$`)
	meridiemPattern = regexp.MustCompile(`^(\d{1,2})(am|pm)$`)
	militaryPattern = regexp.MustCompile(`^\d{3,4}$`)
)

// ParseTime normalises a time token to 24 hour "HH:MM". It accepts "HH:MM",
// "H[:MM]am|pm" and bare three or four digit military time.
func ParseTime(token string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	var hour, minute int
	var meridiem string

	switch {
	case clockPattern.MatchString(t):
		m := clockPattern.FindStringSubmatch(t)
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		meridiem = m[3]
	case meridiemPattern.MatchString(t):
		m := meridiemPattern.FindStringSubmatch(t)
		hour, _ = strconv.Atoi(m[1])
		meridiem = m[2]
	case militaryPattern.MatchString(t):
		raw, _ := strconv.Atoi(t)
		hour, minute = raw/100, raw%100
	default:
		return "", fmt.Errorf("%w: unknown time %q", ErrBadArgument, token)
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("%w: hour out of range in %q", ErrBadArgument, token)
		}
		switch {
		case meridiem == "pm" && hour < 12:
			hour += 12
		case meridiem == "am" && hour == 12:
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return "", fmt.Errorf("%w: time out of range %q", ErrBadArgument, token)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// parseSlot parses "<day> <time>" arguments.
func parseSlot(args []string, today calendar.Date) (calendar.Date, string, error) {
	if len(args) < 2 {
		return calendar.Date{}, "", fmt.Errorf("%w: expected <day> <time>", ErrBadArgument)
	}
	date, err := ParseDay(args[0], today)
	if err != nil {
		return calendar.Date{}, "", err
	}
	start, err := ParseTime(args[1])
	if err != nil {
		return calendar.Date{}, "", err
	}
	return date, start, nil
}

// Split separates a message into a command name and its arguments. A leading
// slash and a "@botname" suffix are dropped.
func Split(text string) (command string, args []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	command = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), fields[1:]
}
