package tool

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/vesselinfo/internal/intent"
	"github.com/ppiankov/vesselinfo/internal/model"
)

// JSON types a parameter may take.
const (
	typeString  = "string"
	typeNumber  = "number"
	typeInteger = "integer"
	typeBoolean = "boolean"
	typeObject  = "object"
	typeArray   = "array"
)

type paramSpec struct {
	name        string
	types       []string
	description string
	items       []string // element types when types includes array
}

var paramSpecs = []paramSpec{
	{name: intent.ParamMMSI, types: []string{typeInteger, typeString}, description: "Maritime Mobile Service Identity, 9 digits"},
	{name: intent.ParamHistory, types: []string{typeBoolean}, description: "lookupByIdentifier: return every observation instead of the latest"},
	{name: intent.ParamName, types: []string{typeString}, description: "Vessel name or fragment, case-insensitive"},
	{name: intent.ParamBBox, types: []string{typeObject}, description: "Bounding box {minLat, minLon, maxLat, maxLon}; minLon > maxLon crosses the antimeridian"},
	{name: intent.ParamStart, types: []string{typeString}, description: "Start time, RFC3339 or YYYY-MM-DD (UTC)"},
	{name: intent.ParamEnd, types: []string{typeString}, description: "End time, inclusive, RFC3339 or YYYY-MM-DD (UTC)"},
	{name: intent.ParamLimit, types: []string{typeInteger}, description: "Maximum number of vessels to return"},
	{name: intent.ParamIMO, types: []string{typeString}, description: "IMO number, e.g. IMO9434761"},
	{name: intent.ParamCallSign, types: []string{typeString}, description: "Radio call sign"},
	{name: intent.ParamVesselType, types: []string{typeInteger, typeString, typeArray}, items: []string{typeInteger, typeString}, description: "AIS vessel type code or description fragment, e.g. 70 or \"tanker\""},
	{name: intent.ParamCargo, types: []string{typeInteger, typeString, typeArray}, items: []string{typeInteger, typeString}, description: "AIS cargo code or description fragment"},
	{name: intent.ParamStatus, types: []string{typeInteger, typeString, typeArray}, items: []string{typeInteger, typeString}, description: "Navigational status code or name, e.g. 5 or \"moored\""},
	{name: intent.ParamTransceiverClass, types: []string{typeString, typeArray}, items: []string{typeString}, description: "AIS transceiver class, \"A\" or \"B\""},
}

var bboxCorners = []string{"minLat", "minLon", "maxLat", "maxLon"}

const toolDescription = `Look up vessels in the loaded AIS (Automatic Identification System) data.
Choose one kind:
- lookupByIdentifier {mmsi, history?}: latest position of one vessel, or its track.
- lookupByName {name}: vessels whose name contains the fragment. resultStatus "ambiguous" means several vessels matched; ask the user which one.
- lookupByArea {bbox, start?, end?, limit?}: vessels seen inside a box.
- lookupByTimeRange {start and/or end, limit?}: vessels seen in a period.
- compoundFilter {mmsi?, name?, bbox?, start?, end?, imo?, callSign?, vesselType?, cargo?, status?, transceiverClass?, limit?}: all filters must hold.
resultStatus "empty" means the data has no answer; say so instead of guessing.`

func kindNames() []string {
	names := make([]string, len(model.IntentKinds))
	for i, k := range model.IntentKinds {
		names[i] = string(k)
	}
	return names
}

func typeSchema(types []string) map[string]any {
	if len(types) == 1 {
		return map[string]any{"type": types[0]}
	}
	return map[string]any{"type": types}
}

// InputSchema returns the JSON schema of the tool arguments.
func InputSchema() json.RawMessage {
	props := make(map[string]any, len(paramSpecs))
	for _, p := range paramSpecs {
		s := typeSchema(p.types)
		s["description"] = p.description
		if len(p.items) > 0 {
			s["items"] = typeSchema(p.items)
		}
		if p.name == intent.ParamBBox {
			corners := make(map[string]any, len(bboxCorners))
			for _, c := range bboxCorners {
				corners[c] = map[string]any{"type": typeNumber}
			}
			s["properties"] = corners
			s["required"] = bboxCorners
			s["additionalProperties"] = false
		}
		props[p.name] = s
	}

	schema := map[string]any{
		"type": typeObject,
		"properties": map[string]any{
			"kind": map[string]any{
				"type":        typeString,
				"enum":        kindNames(),
				"description": "Which lookup to perform",
			},
			"parameters": map[string]any{
				"type":        typeObject,
				"description": "Parameters for the chosen kind",
				"properties":  props,
			},
		},
		"required":             []string{"kind", "parameters"},
		"additionalProperties": false,
	}

	data, _ := json.Marshal(schema)
	return data
}

// outputProperties describes a Response.
func outputProperties() map[string]any {
	statuses := make([]string, len(model.ResultStatuses))
	for i, s := range model.ResultStatuses {
		statuses[i] = string(s)
	}
	return map[string]any{
		"resultStatus": map[string]any{"type": typeString, "enum": statuses},
		"records": map[string]any{
			"type": typeArray,
			"items": map[string]any{
				"type": typeObject,
				"properties": map[string]any{
					"mmsi":                  map[string]any{"type": typeInteger},
					"timestamp":             map[string]any{"type": typeString, "format": "date-time"},
					"position":              map[string]any{"type": typeObject},
					"speedOverGround":       map[string]any{"type": typeNumber},
					"courseOverGround":      map[string]any{"type": typeNumber},
					"heading":               map[string]any{"type": typeNumber},
					"identity":              map[string]any{"type": typeObject},
					"classification":        map[string]any{"type": typeObject},
					"dimensions":            map[string]any{"type": typeObject},
					"status":                map[string]any{"type": typeInteger},
					"vesselTypeDescription": map[string]any{"type": typeString},
					"cargoDescription":      map[string]any{"type": typeString},
					"statusDescription":     map[string]any{"type": typeString},
				},
				"required": []string{"mmsi", "timestamp", "position"},
			},
		},
		"truncated": map[string]any{"type": typeBoolean},
		"total":     map[string]any{"type": typeInteger},
		"message":   map[string]any{"type": typeString},
	}
}

var outputRequired = []string{"resultStatus", "records", "truncated", "total"}

// Validate checks args against the input schema. Unknown parameter names are
// left to the intent adapter, which knows the per-kind field sets.
func Validate(args map[string]any) (kind string, params map[string]any, err error) {
	if args == nil {
		return "", nil, &model.SchemaValidationError{Reason: "arguments must be an object"}
	}

	var extra []string
	for key := range args {
		if key != "kind" && key != "parameters" {
			extra = append(extra, key)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return "", nil, &model.SchemaValidationError{Field: extra[0], Reason: "unexpected property"}
	}

	rawKind, ok := args["kind"]
	if !ok || rawKind == nil {
		return "", nil, &model.SchemaValidationError{Field: "kind", Reason: "required"}
	}
	kind, ok = rawKind.(string)
	if !ok {
		return "", nil, &model.SchemaValidationError{Field: "kind", Reason: "must be a string, got " + jsonType(rawKind)}
	}

	rawParams, ok := args["parameters"]
	if !ok || rawParams == nil {
		return "", nil, &model.SchemaValidationError{Field: "parameters", Reason: "required"}
	}
	params, ok = rawParams.(map[string]any)
	if !ok {
		return "", nil, &model.SchemaValidationError{Field: "parameters", Reason: "must be an object, got " + jsonType(rawParams)}
	}

	for _, spec := range paramSpecs {
		v, present := params[spec.name]
		if !present || v == nil {
			continue
		}
		field := "parameters." + spec.name
		if !typeMatches(v, spec.types) {
			return "", nil, &model.SchemaValidationError{
				Field:  field,
				Reason: fmt.Sprintf("must be %s, got %s", strings.Join(spec.types, " or "), jsonType(v)),
			}
		}
		if list, isList := v.([]any); isList {
			for i, item := range list {
				if !typeMatches(item, spec.items) {
					return "", nil, &model.SchemaValidationError{
						Field:  fmt.Sprintf("%s[%d]", field, i),
						Reason: fmt.Sprintf("must be %s, got %s", strings.Join(spec.items, " or "), jsonType(item)),
					}
				}
			}
		}
		if spec.name == intent.ParamBBox {
			if err := validateBBox(v.(map[string]any)); err != nil {
				return "", nil, err
			}
		}
	}

	return kind, params, nil
}

func validateBBox(box map[string]any) error {
	for _, c := range bboxCorners {
		v, ok := box[c]
		if !ok || v == nil {
			return &model.SchemaValidationError{Field: "parameters.bbox." + c, Reason: "required"}
		}
		if !typeMatches(v, []string{typeNumber}) {
			return &model.SchemaValidationError{Field: "parameters.bbox." + c, Reason: "must be number, got " + jsonType(v)}
		}
	}
	return nil
}

func typeMatches(v any, types []string) bool {
	actual := jsonType(v)
	for _, t := range types {
		switch {
		case t == actual:
			return true
		case t == typeNumber && actual == typeInteger:
			return true
		}
	}
	return false
}

// jsonType names the JSON type of a decoded value. Whole numbers are integers.
func jsonType(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return typeString
	case bool:
		return typeBoolean
	case float64:
		if n == float64(int64(n)) {
			return typeInteger
		}
		return typeNumber
	case float32:
		return typeNumber
	case int, int32, int64:
		return typeInteger
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return typeInteger
		}
		return typeNumber
	case map[string]any:
		return typeObject
	case []any:
		return typeArray
	default:
		return fmt.Sprintf("%T", v)
	}
}
