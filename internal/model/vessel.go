package model

import "time"

// VesselRecord is a single AIS observation as read from the extract.
// Records are never modified after the store has been loaded.
type VesselRecord struct {
	MMSI             int64           `json:"mmsi"`
	Timestamp        time.Time       `json:"timestamp"` // UTC
	Position         Position        `json:"position"`
	SpeedOverGround  float64         `json:"speedOverGround"`  // knots, SpeedNotAvailable when unreported
	CourseOverGround float64         `json:"courseOverGround"` // degrees, CourseNotAvailable when unreported
	Heading          float64         `json:"heading"`          // degrees, HeadingNotAvailable when unreported
	Identity         *Identity       `json:"identity,omitempty"`
	Classification   Classification  `json:"classification"`
	Dimensions       *Dimensions     `json:"dimensions,omitempty"`
	Status           NavStatus       `json:"status"`
	Extra            *ReportingExtra `json:"extra,omitempty"`
}

// AIS "not available" values. Empty or unreadable kinematic cells decode to
// these, never to 0.
const (
	SpeedNotAvailable   = 102.3
	CourseNotAvailable  = 360.0
	HeadingNotAvailable = 511.0
)

// Position is a WGS84 coordinate pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the position is inside [-90,90]x[-180,180].
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Identity holds the static voyage fields; nil when none were reported.
type Identity struct {
	VesselName string `json:"vesselName,omitempty"`
	IMO        string `json:"imo,omitempty"` // e.g. "IMO9434761"
	CallSign   string `json:"callSign,omitempty"`
}

// Classification holds the numeric AIS codes describing the vessel.
// Zero means "not reported" for the integer codes.
type Classification struct {
	VesselType       int    `json:"vesselType,omitempty"`
	Cargo            int    `json:"cargo,omitempty"`
	TransceiverClass string `json:"transceiverClass,omitempty"` // "A" or "B"
	AISVersion       int    `json:"aisVersion,omitempty"`
}

// Dimensions are reported in meters; nil when the extract carries none.
type Dimensions struct {
	Length float64 `json:"length,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Draft  float64 `json:"draft,omitempty"`
}

// ReportingExtra carries the rarely populated message metadata columns.
type ReportingExtra struct {
	RegionalMsgID       int `json:"regionalMsgId,omitempty"`
	TypeOfElectronicFix int `json:"typeOfElectronicFix,omitempty"`
}

// Name returns the reported vessel name or "".
func (r *VesselRecord) Name() string {
	if r.Identity == nil {
		return ""
	}
	return r.Identity.VesselName
}

// BBox is a latitude/longitude box. MinLon > MaxLon means the box crosses
// the antimeridian.
type BBox struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

// Contains reports whether p lies inside the box, edges inclusive.
func (b BBox) Contains(p Position) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.MinLon <= b.MaxLon {
		return p.Lon >= b.MinLon && p.Lon <= b.MaxLon
	}
	return p.Lon >= b.MinLon || p.Lon <= b.MaxLon
}

// TimeRange bounds observations by timestamp. A nil end is unbounded.
type TimeRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Unbounded reports whether neither end is set.
func (t TimeRange) Unbounded() bool {
	return t.Start == nil && t.End == nil
}

// Contains reports whether ts falls within the range, ends inclusive.
func (t TimeRange) Contains(ts time.Time) bool {
	if t.Start != nil && ts.Before(*t.Start) {
		return false
	}
	if t.End != nil && ts.After(*t.End) {
		return false
	}
	return true
}
