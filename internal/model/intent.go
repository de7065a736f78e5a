package model

// IntentKind discriminates QueryIntent variants.
type IntentKind string

const (
	KindLookupByIdentifier IntentKind = "lookupByIdentifier"
	KindLookupByName       IntentKind = "lookupByName"
	KindLookupByArea       IntentKind = "lookupByArea"
	KindLookupByTimeRange  IntentKind = "lookupByTimeRange"
	KindCompoundFilter     IntentKind = "compoundFilter"
)

// IntentKinds lists every kind in declaration order.
var IntentKinds = []IntentKind{
	KindLookupByIdentifier,
	KindLookupByName,
	KindLookupByArea,
	KindLookupByTimeRange,
	KindCompoundFilter,
}

// Valid reports whether k is a known kind.
func (k IntentKind) Valid() bool {
	for _, known := range IntentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// QueryIntent is a validated, structured request. Exactly one parameter
// block is set, the one matching Kind.
type QueryIntent struct {
	Kind       IntentKind       `json:"kind"`
	Identifier *IdentifierQuery `json:"identifier,omitempty"`
	Name       *NameQuery       `json:"name,omitempty"`
	Area       *AreaQuery       `json:"area,omitempty"`
	TimeRange  *TimeRangeQuery  `json:"timeRange,omitempty"`
	Compound   *CompoundQuery   `json:"compound,omitempty"`
}

// IdentifierQuery looks up one vessel by MMSI.
type IdentifierQuery struct {
	MMSI    int64 `json:"mmsi"`
	History bool  `json:"history,omitempty"` // return every observation, not just the latest
}

// NameQuery matches a fragment of the vessel name.
type NameQuery struct {
	Name string `json:"name"`
}

// AreaQuery selects vessels observed inside a box, optionally within a time range.
type AreaQuery struct {
	BBox  BBox      `json:"bbox"`
	Range TimeRange `json:"range"`
	Limit int       `json:"limit,omitempty"`
}

// TimeRangeQuery selects vessels observed within a time range.
type TimeRangeQuery struct {
	Range TimeRange `json:"range"`
	Limit int       `json:"limit,omitempty"`
}

// CompoundQuery is a conjunction of filters. Nil or empty fields do not filter.
type CompoundQuery struct {
	MMSI               *int64      `json:"mmsi,omitempty"`
	Name               string      `json:"name,omitempty"`
	BBox               *BBox       `json:"bbox,omitempty"`
	Range              TimeRange   `json:"range"`
	IMO                string      `json:"imo,omitempty"`
	CallSign           string      `json:"callSign,omitempty"`
	VesselTypes        []int       `json:"vesselTypes,omitempty"`        // any of
	Cargo              []int       `json:"cargo,omitempty"`              // any of
	Statuses           []NavStatus `json:"statuses,omitempty"`           // any of
	TransceiverClasses []string    `json:"transceiverClasses,omitempty"` // any of, "A" or "B"
	Limit              int         `json:"limit,omitempty"`
}
