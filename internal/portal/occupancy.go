package portal

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	occupancyPattern = regexp.MustCompile(`(\d+)/(\d+)`)
	startPattern     = regexp.MustCompile(`^(\d{2}:\d{2})`)
	clockPattern     = regexp.MustCompile(`\d{1,2}:\d{2}`)
)

// Occupancy is the "taken/total" fraction shown on a card.
type Occupancy struct {
	Taken int
	Total int
	Known bool
}

// ParseOccupancy extracts the first "N/M" fraction from a card label.
func ParseOccupancy(label string) Occupancy {
	m := occupancyPattern.FindStringSubmatch(label)
	if m == nil {
		return Occupancy{}
	}
	taken, err1 := strconv.Atoi(m[1])
	total, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return Occupancy{}
	}
	return Occupancy{Taken: taken, Total: total, Known: true}
}

// Full reports whether no places remain. Labels without a fraction are never full.
func (o Occupancy) Full() bool {
	return o.Known && o.Taken >= o.Total
}

// String renders the fraction, or "?" when the label carried none.
func (o Occupancy) String() string {
	if !o.Known {
		return "?"
	}
	return strconv.Itoa(o.Taken) + "/" + strconv.Itoa(o.Total)
}

// StartTime returns the leading "HH:MM" of a card label.
func StartTime(label string) (string, bool) {
	m := startPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// startFilter matches a card by its start boundary only: "08:00 -" matches
// "08:00 - 09:00" but not "07:00 - 08:00".
func startFilter(start string) string {
	return start + " -"
}

// signature strips time tokens and whitespace differences from a label, leaving
// the parts that identify one rendered session (class, instructor, occupancy).
func signature(label string) string {
	stripped := clockPattern.ReplaceAllString(label, "")
	stripped = strings.ReplaceAll(stripped, "-", " ")
	return strings.Join(strings.Fields(stripped), " ")
}
