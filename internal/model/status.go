package model

import (
	"fmt"
	"strconv"
	"strings"
)

// NavStatus is the AIS navigational status code (0-15).
type NavStatus int

const (
	StatusUnderWayUsingEngine       NavStatus = 0
	StatusAtAnchor                  NavStatus = 1
	StatusNotUnderCommand           NavStatus = 2
	StatusRestrictedManoeuvrability NavStatus = 3
	StatusConstrainedByDraught      NavStatus = 4
	StatusMoored                    NavStatus = 5
	StatusAground                   NavStatus = 6
	StatusEngagedInFishing          NavStatus = 7
	StatusUnderWaySailing           NavStatus = 8
	StatusTowingAstern              NavStatus = 11
	StatusPushingAhead              NavStatus = 12
	StatusAISSARTActive             NavStatus = 14
	StatusUndefined                 NavStatus = 15
)

var statusNames = map[NavStatus]string{
	StatusUnderWayUsingEngine:       "under way using engine",
	StatusAtAnchor:                  "at anchor",
	StatusNotUnderCommand:           "not under command",
	StatusRestrictedManoeuvrability: "restricted manoeuvrability",
	StatusConstrainedByDraught:      "constrained by her draught",
	StatusMoored:                    "moored",
	StatusAground:                   "aground",
	StatusEngagedInFishing:          "engaged in fishing",
	StatusUnderWaySailing:           "under way sailing",
	9:                               "reserved (HSC)",
	10:                              "reserved (WIG)",
	StatusTowingAstern:              "power-driven vessel towing astern",
	StatusPushingAhead:              "power-driven vessel pushing ahead or towing alongside",
	13:                              "reserved",
	StatusAISSARTActive:             "AIS-SART active",
	StatusUndefined:                 "undefined",
}

// Short aliases accepted by ParseNavStatus in addition to the full names.
var statusAliases = map[string]NavStatus{
	"underway":   StatusUnderWayUsingEngine,
	"anchored":   StatusAtAnchor,
	"anchor":     StatusAtAnchor,
	"fishing":    StatusEngagedInFishing,
	"sailing":    StatusUnderWaySailing,
	"towing":     StatusTowingAstern,
	"pushing":    StatusPushingAhead,
	"sart":       StatusAISSARTActive,
	"default":    StatusUndefined,
	"notdefined": StatusUndefined,
}

func (s NavStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is an AIS status code.
func (s NavStatus) Valid() bool {
	return s >= 0 && s <= 15
}

// ParseNavStatus accepts a numeric code or a status name. Names are matched
// ignoring case, spaces, dashes and underscores.
func ParseNavStatus(v string) (NavStatus, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		s := NavStatus(n)
		if !s.Valid() {
			return 0, fmt.Errorf("status code out of range: %d", n)
		}
		return s, nil
	}

	key := normalizeStatus(v)
	if key == "" {
		return 0, fmt.Errorf("empty status")
	}
	for code, name := range statusNames {
		if normalizeStatus(name) == key {
			return code, nil
		}
	}
	if s, ok := statusAliases[key]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("unknown navigational status: %q", v)
}

func normalizeStatus(v string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(v) {
		switch r {
		case ' ', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
