// Package intent turns loosely typed tool arguments into a validated
// model.QueryIntent.
//
// The adapter performs structural validation and normalization only. It
// never interprets free text: a name fragment stays a name fragment, and the
// calling model is responsible for choosing the kind.
package intent

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/vesselinfo/internal/lookup"
	"github.com/ppiankov/vesselinfo/internal/model"
)

// Parameter names accepted in the parameters object.
const (
	ParamMMSI             = "mmsi"
	ParamHistory          = "history"
	ParamName             = "name"
	ParamBBox             = "bbox"
	ParamStart            = "start"
	ParamEnd              = "end"
	ParamLimit            = "limit"
	ParamIMO              = "imo"
	ParamCallSign         = "callSign"
	ParamVesselType       = "vesselType"
	ParamCargo            = "cargo"
	ParamStatus           = "status"
	ParamTransceiverClass = "transceiverClass"
)

// Fields lists the recognized parameters per kind.
var Fields = map[model.IntentKind][]string{
	model.KindLookupByIdentifier: {ParamMMSI, ParamHistory},
	model.KindLookupByName:       {ParamName},
	model.KindLookupByArea:       {ParamBBox, ParamStart, ParamEnd, ParamLimit},
	model.KindLookupByTimeRange:  {ParamStart, ParamEnd, ParamLimit},
	model.KindCompoundFilter: {
		ParamMMSI, ParamName, ParamBBox, ParamStart, ParamEnd, ParamIMO,
		ParamCallSign, ParamVesselType, ParamCargo, ParamStatus,
		ParamTransceiverClass, ParamLimit,
	},
}

// Adapter extracts QueryIntents. It is safe for concurrent use.
type Adapter struct {
	vesselTypes *lookup.Table
	cargo       *lookup.Table
}

// NewAdapter creates an adapter that resolves vesselType and cargo
// description fragments through the given tables. Nil tables fall back to
// the built-in defaults.
func NewAdapter(vesselTypes, cargo *lookup.Table) *Adapter {
	if vesselTypes == nil {
		vesselTypes = lookup.DefaultVesselTypes()
	}
	if cargo == nil {
		cargo = lookup.DefaultCargo()
	}
	return &Adapter{vesselTypes: vesselTypes, cargo: cargo}
}

// Extract validates kind and params and builds the matching intent.
// Failures are *model.InvalidIntentError.
func (a *Adapter) Extract(kind string, params map[string]any) (*model.QueryIntent, error) {
	k := model.IntentKind(kind)
	if !k.Valid() {
		return nil, model.NewInvalidIntentError(k, "kind", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	if params == nil {
		params = map[string]any{}
	}
	if err := checkFields(k, params); err != nil {
		return nil, err
	}

	p := &parser{kind: k, params: params}
	intent := &model.QueryIntent{Kind: k}

	switch k {
	case model.KindLookupByIdentifier:
		mmsi, ok := p.mmsi()
		if !ok && p.err == nil {
			p.fail(ParamMMSI, "required", nil)
		}
		intent.Identifier = &model.IdentifierQuery{MMSI: mmsi, History: p.flag(ParamHistory)}

	case model.KindLookupByName:
		name := p.name()
		if name == "" && p.err == nil {
			p.fail(ParamName, "required", nil)
		}
		intent.Name = &model.NameQuery{Name: name}

	case model.KindLookupByArea:
		bbox := p.bbox()
		if bbox == nil && p.err == nil {
			p.fail(ParamBBox, "required", nil)
		}
		q := &model.AreaQuery{Range: p.timeRange(), Limit: p.limit()}
		if bbox != nil {
			q.BBox = *bbox
		}
		intent.Area = q

	case model.KindLookupByTimeRange:
		tr := p.timeRange()
		if tr.Unbounded() && p.err == nil {
			p.fail(ParamStart, "start or end is required", nil)
		}
		intent.TimeRange = &model.TimeRangeQuery{Range: tr, Limit: p.limit()}

	case model.KindCompoundFilter:
		intent.Compound = a.compound(p)
	}

	if p.err != nil {
		return nil, p.err
	}
	return intent, nil
}

func (a *Adapter) compound(p *parser) *model.CompoundQuery {
	q := &model.CompoundQuery{}
	if mmsi, ok := p.mmsi(); ok {
		q.MMSI = &mmsi
	}
	q.Name = p.name()
	q.BBox = p.bbox()
	q.Range = p.timeRange()
	q.IMO = p.imo()
	q.CallSign = strings.ToUpper(p.text(ParamCallSign))
	q.VesselTypes = p.codes(ParamVesselType, a.vesselTypes)
	q.Cargo = p.codes(ParamCargo, a.cargo)
	q.Statuses = p.statuses()
	q.TransceiverClasses = p.classes()
	q.Limit = p.limit()

	if p.err != nil {
		return q
	}
	if q.MMSI == nil && q.Name == "" && q.BBox == nil && q.Range.Unbounded() &&
		q.IMO == "" && q.CallSign == "" && len(q.VesselTypes) == 0 &&
		len(q.Cargo) == 0 && len(q.Statuses) == 0 && len(q.TransceiverClasses) == 0 {
		p.fail("", "at least one filter is required", nil)
	}
	return q
}

func checkFields(kind model.IntentKind, params map[string]any) error {
	allowed := make(map[string]bool, len(Fields[kind]))
	for _, f := range Fields[kind] {
		allowed[f] = true
	}

	var unknown []string
	for key := range params {
		if !allowed[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return model.NewInvalidIntentError(kind, "parameters."+unknown[0], "unrecognized field", nil)
}

// parser reads typed fields and records the first failure.
type parser struct {
	kind   model.IntentKind
	params map[string]any
	err    *model.InvalidIntentError
}

func (p *parser) fail(field, reason string, cause error) {
	if p.err != nil {
		return
	}
	path := "parameters"
	if field != "" {
		path += "." + field
	}
	p.err = model.NewInvalidIntentError(p.kind, path, reason, cause)
}

func (p *parser) get(field string) (any, bool) {
	v, ok := p.params[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (p *parser) mmsi() (int64, bool) {
	v, ok := p.get(ParamMMSI)
	if !ok {
		return 0, false
	}
	n, ok := toInt64(v)
	if !ok {
		p.fail(ParamMMSI, fmt.Sprintf("must be an integer, got %v", v), nil)
		return 0, false
	}
	if n <= 0 || n > maxMMSI {
		p.fail(ParamMMSI, fmt.Sprintf("out of range: %d", n), nil)
		return 0, false
	}
	return n, true
}

const maxMMSI = 999_999_999

func (p *parser) flag(field string) bool {
	v, ok := p.get(field)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0", "":
			return false
		}
	}
	p.fail(field, fmt.Sprintf("must be a boolean, got %v", v), nil)
	return false
}

func (p *parser) text(field string) string {
	v, ok := p.get(field)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.fail(field, fmt.Sprintf("must be a string, got %T", v), nil)
		return ""
	}
	return strings.TrimSpace(s)
}

// name trims and collapses interior whitespace.
func (p *parser) name() string {
	return strings.Join(strings.Fields(p.text(ParamName)), " ")
}

// imo normalizes "9434761" and "imo 9434761" to "IMO9434761".
func (p *parser) imo() string {
	s := strings.ToUpper(strings.ReplaceAll(p.text(ParamIMO), " ", ""))
	if s == "" {
		return ""
	}
	digits := strings.TrimPrefix(s, "IMO")
	if digits == "" {
		p.fail(ParamIMO, fmt.Sprintf("malformed IMO number %q", s), nil)
		return ""
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			p.fail(ParamIMO, fmt.Sprintf("malformed IMO number %q", s), nil)
			return ""
		}
	}
	return "IMO" + digits
}

func (p *parser) limit() int {
	v, ok := p.get(ParamLimit)
	if !ok {
		return 0
	}
	n, ok := toInt64(v)
	if !ok || n <= 0 {
		p.fail(ParamLimit, fmt.Sprintf("must be a positive integer, got %v", v), nil)
		return 0
	}
	return int(n)
}

var bboxFields = []string{"minLat", "minLon", "maxLat", "maxLon"}

func (p *parser) bbox() *model.BBox {
	v, ok := p.get(ParamBBox)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		p.fail(ParamBBox, "must be an object with minLat, minLon, maxLat, maxLon", nil)
		return nil
	}
	for key := range m {
		known := false
		for _, f := range bboxFields {
			if key == f {
				known = true
				break
			}
		}
		if !known {
			p.fail(ParamBBox+"."+key, "unrecognized field", nil)
			return nil
		}
	}

	var corners [4]float64
	for i, f := range bboxFields {
		raw, ok := m[f]
		if !ok || raw == nil {
			p.fail(ParamBBox+"."+f, "required", nil)
			return nil
		}
		x, ok := toFloat(raw)
		if !ok {
			p.fail(ParamBBox+"."+f, fmt.Sprintf("must be a number, got %v", raw), nil)
			return nil
		}
		corners[i] = x
	}

	box := model.BBox{MinLat: corners[0], MinLon: corners[1], MaxLat: corners[2], MaxLon: corners[3]}
	switch {
	case box.MinLat < -90 || box.MinLat > 90:
		p.fail(ParamBBox+".minLat", fmt.Sprintf("out of range: %v", box.MinLat), nil)
	case box.MaxLat < -90 || box.MaxLat > 90:
		p.fail(ParamBBox+".maxLat", fmt.Sprintf("out of range: %v", box.MaxLat), nil)
	case box.MinLon < -180 || box.MinLon > 180:
		p.fail(ParamBBox+".minLon", fmt.Sprintf("out of range: %v", box.MinLon), nil)
	case box.MaxLon < -180 || box.MaxLon > 180:
		p.fail(ParamBBox+".maxLon", fmt.Sprintf("out of range: %v", box.MaxLon), nil)
	case box.MinLat > box.MaxLat:
		p.fail(ParamBBox, "minLat must not exceed maxLat", nil)
	default:
		return &box
	}
	return nil
}

func (p *parser) timeRange() model.TimeRange {
	var tr model.TimeRange
	if s := p.text(ParamStart); s != "" {
		ts, _, err := ParseTime(s)
		if err != nil {
			p.fail(ParamStart, "malformed timestamp", err)
		} else {
			tr.Start = &ts
		}
	}
	if s := p.text(ParamEnd); s != "" {
		ts, dateOnly, err := ParseTime(s)
		if err != nil {
			p.fail(ParamEnd, "malformed timestamp", err)
		} else {
			if dateOnly {
				// a bare date as end means through the end of that day
				ts = ts.Add(24*time.Hour - time.Nanosecond)
			}
			tr.End = &ts
		}
	}
	if tr.Start != nil && tr.End != nil && tr.Start.After(*tr.End) {
		p.fail(ParamStart, "start is after end", nil)
	}
	return tr
}

// codes reads a code, description fragment or list of either.
func (p *parser) codes(field string, table *lookup.Table) []int {
	v, ok := p.get(field)
	if !ok {
		return nil
	}
	items, isList := v.([]any)
	if !isList {
		items = []any{v}
	}

	seen := make(map[int]bool)
	var out []int
	add := func(c int) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, item := range items {
		if n, ok := toInt64(item); ok {
			add(int(n))
			continue
		}
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			p.fail(field, fmt.Sprintf("must be a code or description, got %v", item), nil)
			return nil
		}
		matches := table.Match(s)
		if len(matches) == 0 {
			p.fail(field, fmt.Sprintf("no %s matches %q", field, s), nil)
			return nil
		}
		for _, c := range matches {
			add(c)
		}
	}
	sort.Ints(out)
	return out
}

func (p *parser) statuses() []model.NavStatus {
	v, ok := p.get(ParamStatus)
	if !ok {
		return nil
	}
	items, isList := v.([]any)
	if !isList {
		items = []any{v}
	}

	seen := make(map[model.NavStatus]bool)
	var out []model.NavStatus
	for _, item := range items {
		var (
			st  model.NavStatus
			err error
		)
		if n, ok := toInt64(item); ok {
			st, err = model.ParseNavStatus(fmt.Sprint(n))
		} else if s, ok := item.(string); ok {
			st, err = model.ParseNavStatus(s)
		} else {
			err = fmt.Errorf("unsupported type %T", item)
		}
		if err != nil {
			p.fail(ParamStatus, "unknown navigational status", err)
			return nil
		}
		if !seen[st] {
			seen[st] = true
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// classes reads "A", "B" or a list of them; "class b" is accepted too.
func (p *parser) classes() []string {
	v, ok := p.get(ParamTransceiverClass)
	if !ok {
		return nil
	}
	items, isList := v.([]any)
	if !isList {
		items = []any{v}
	}

	var out []string
	for _, item := range items {
		s, _ := item.(string)
		class := strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "CLASS"))
		if class != "A" && class != "B" {
			p.fail(ParamTransceiverClass, fmt.Sprintf("must be A or B, got %v", item), nil)
			return nil
		}
		if !slices.Contains(out, class) {
			out = append(out, class)
		}
	}
	sort.Strings(out)
	return out
}
