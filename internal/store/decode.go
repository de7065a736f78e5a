package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/vesselinfo/internal/model"
)

// Column names of the MarineCadastre AIS extract.
const (
	ColMMSI                = "MMSI"
	ColBaseDateTime        = "BaseDateTime"
	ColLat                 = "LAT"
	ColLon                 = "LON"
	ColSOG                 = "SOG"
	ColCOG                 = "COG"
	ColHeading             = "Heading"
	ColVesselName          = "VesselName"
	ColIMO                 = "IMO"
	ColCallSign            = "CallSign"
	ColVesselType          = "VesselType"
	ColStatus              = "Status"
	ColLength              = "Length"
	ColWidth               = "Width"
	ColDraft               = "Draft"
	ColCargo               = "Cargo"
	ColTransceiverClass    = "TransceiverClass"
	ColAISVersion          = "AISVersion"
	ColRegionalMsgID       = "RegionalMsgID"
	ColTypeOfElectronicFix = "TypeOfElectronicFix"
)

// RequiredColumns must be present in every source and non-empty in every row.
var RequiredColumns = []string{ColMMSI, ColBaseDateTime, ColLat, ColLon}

// Columns lists every known column in extract order.
var Columns = []string{
	ColMMSI, ColBaseDateTime, ColLat, ColLon, ColSOG, ColCOG, ColHeading,
	ColVesselName, ColIMO, ColCallSign, ColVesselType, ColStatus,
	ColLength, ColWidth, ColDraft, ColCargo, ColTransceiverClass,
	ColAISVersion, ColRegionalMsgID, ColTypeOfElectronicFix,
}

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp parses the BaseDateTime formats seen in extracts and
// database exports. Values without a zone are UTC.
func ParseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}

// decoder turns rows into records and counts optional cells it could not read.
type decoder struct {
	malformed int
}

func (d *decoder) decode(row Row) (model.VesselRecord, error) {
	var rec model.VesselRecord

	mmsiText, ok := row.Get(ColMMSI)
	if !ok {
		return rec, model.NewLoadError(row.Source, row.Line, ColMMSI, "missing value", nil)
	}
	mmsi, err := strconv.ParseInt(mmsiText, 10, 64)
	if err != nil {
		return rec, model.NewLoadError(row.Source, row.Line, ColMMSI, "malformed value", err)
	}
	if mmsi <= 0 {
		return rec, model.NewLoadError(row.Source, row.Line, ColMMSI, "must be positive", nil)
	}
	rec.MMSI = mmsi

	tsText, ok := row.Get(ColBaseDateTime)
	if !ok {
		return rec, model.NewLoadError(row.Source, row.Line, ColBaseDateTime, "missing value", nil)
	}
	rec.Timestamp, err = ParseTimestamp(tsText)
	if err != nil {
		return rec, model.NewLoadError(row.Source, row.Line, ColBaseDateTime, "malformed value", err)
	}

	lat, err := requiredFloat(row, ColLat)
	if err != nil {
		return rec, err
	}
	lon, err := requiredFloat(row, ColLon)
	if err != nil {
		return rec, err
	}
	rec.Position = model.Position{Lat: lat, Lon: lon}
	if lat < -90 || lat > 90 {
		return rec, model.NewLoadError(row.Source, row.Line, ColLat, fmt.Sprintf("out of range: %v", lat), nil)
	}
	if lon < -180 || lon > 180 {
		return rec, model.NewLoadError(row.Source, row.Line, ColLon, fmt.Sprintf("out of range: %v", lon), nil)
	}

	rec.SpeedOverGround = d.floatOr(row, ColSOG, model.SpeedNotAvailable)
	rec.CourseOverGround = d.floatOr(row, ColCOG, model.CourseNotAvailable)
	rec.Heading = d.floatOr(row, ColHeading, model.HeadingNotAvailable)

	name, _ := row.Get(ColVesselName)
	imo, _ := row.Get(ColIMO)
	callSign, _ := row.Get(ColCallSign)
	if name != "" || imo != "" || callSign != "" {
		rec.Identity = &model.Identity{VesselName: name, IMO: imo, CallSign: callSign}
	}

	class, _ := row.Get(ColTransceiverClass)
	rec.Classification = model.Classification{
		VesselType:       d.int(row, ColVesselType),
		Cargo:            d.int(row, ColCargo),
		TransceiverClass: class,
		AISVersion:       d.int(row, ColAISVersion),
	}

	length, width, draft := d.float(row, ColLength), d.float(row, ColWidth), d.float(row, ColDraft)
	if length != 0 || width != 0 || draft != 0 {
		rec.Dimensions = &model.Dimensions{Length: length, Width: width, Draft: draft}
	}

	rec.Status = model.StatusUndefined
	if v, ok := row.Get(ColStatus); ok {
		status, err := parseStatusCell(v)
		if err != nil {
			d.malformed++
		} else {
			rec.Status = status
		}
	}

	regional, fix := d.int(row, ColRegionalMsgID), d.int(row, ColTypeOfElectronicFix)
	if regional != 0 || fix != 0 {
		rec.Extra = &model.ReportingExtra{RegionalMsgID: regional, TypeOfElectronicFix: fix}
	}

	return rec, nil
}

func requiredFloat(row Row, column string) (float64, error) {
	v, ok := row.Get(column)
	if !ok {
		return 0, model.NewLoadError(row.Source, row.Line, column, "missing value", nil)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, model.NewLoadError(row.Source, row.Line, column, "malformed value", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, model.NewLoadError(row.Source, row.Line, column, "not a finite number", nil)
	}
	return f, nil
}

func (d *decoder) float(row Row, column string) float64 {
	return d.floatOr(row, column, 0)
}

// floatOr returns absent for an empty or unreadable cell.
func (d *decoder) floatOr(row Row, column string, absent float64) float64 {
	v, ok := row.Get(column)
	if !ok {
		return absent
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		d.malformed++
		return absent
	}
	return f
}

// int accepts "70" as well as "70.0", which some exports produce.
func (d *decoder) int(row Row, column string) int {
	v, ok := row.Get(column)
	if !ok {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		d.malformed++
		return 0
	}
	return int(f)
}

func parseStatusCell(v string) (model.NavStatus, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) {
		v = strconv.Itoa(int(f))
	}
	return model.ParseNavStatus(v)
}
