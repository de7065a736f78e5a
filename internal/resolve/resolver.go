// Package resolve answers QueryIntents from the record store.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/vesselinfo/internal/cache"
	"github.com/ppiankov/vesselinfo/internal/model"
	"github.com/ppiankov/vesselinfo/internal/store"
)

// DefaultMaxResults caps the records returned by one query.
const DefaultMaxResults = 100

// Store is the read side of the record store used by the resolver.
type Store interface {
	FindByMMSI(mmsi int64) []model.VesselRecord
	FindByArea(bbox *model.BBox, tr model.TimeRange) []model.VesselRecord
	FindByName(fragment string) []model.VesselRecord
	Identities(mmsi int64) []model.Identity
	Scan(f store.Filter, fn func(model.VesselRecord) bool)
}

// Resolver maps intents to results. It holds no per-call state and is safe
// for concurrent use.
type Resolver struct {
	store      Store
	maxResults int
	cache      *cache.ResultCache
	log        *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxResults sets the result cap. Values below 1 keep the default.
func WithMaxResults(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxResults = n
		}
	}
}

// WithCache memoizes results.
func WithCache(c *cache.ResultCache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// New creates a resolver over s.
func New(s Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:      s,
		maxResults: DefaultMaxResults,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxResults returns the configured cap.
func (r *Resolver) MaxResults() int { return r.maxResults }

// Resolve answers intent. Empty and ambiguous outcomes are results, not
// errors; an error means the intent itself is unusable.
func (r *Resolver) Resolve(ctx context.Context, intent *model.QueryIntent) (*model.QueryResult, error) {
	if err := checkIntent(intent); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.cache != nil {
		if res, ok := r.cache.Get(intent); ok {
			r.log.Debug("result cache hit", zap.String("kind", string(intent.Kind)))
			return res, nil
		}
	}

	var res *model.QueryResult
	switch intent.Kind {
	case model.KindLookupByIdentifier:
		res = r.byIdentifier(intent.Identifier)
	case model.KindLookupByName:
		res = r.byName(intent.Name)
	case model.KindLookupByArea:
		q := intent.Area
		bbox := q.BBox
		res = r.ranked(r.store.FindByArea(&bbox, q.Range), q.Limit)
	case model.KindLookupByTimeRange:
		q := intent.TimeRange
		res = r.ranked(r.store.FindByArea(nil, q.Range), q.Limit)
	case model.KindCompoundFilter:
		res = r.compound(intent.Compound)
	}

	if r.cache != nil {
		if err := r.cache.Put(intent, res); err != nil {
			r.log.Warn("result cache write failed", zap.Error(err))
		}
	}
	return res, nil
}

// checkIntent rejects intents whose parameter block does not match the kind.
func checkIntent(intent *model.QueryIntent) error {
	if intent == nil {
		return model.NewInvalidIntentError("", "", "missing intent", nil)
	}
	var ok bool
	switch intent.Kind {
	case model.KindLookupByIdentifier:
		ok = intent.Identifier != nil
	case model.KindLookupByName:
		ok = intent.Name != nil
	case model.KindLookupByArea:
		ok = intent.Area != nil
	case model.KindLookupByTimeRange:
		ok = intent.TimeRange != nil
	case model.KindCompoundFilter:
		ok = intent.Compound != nil
	default:
		return model.NewInvalidIntentError(intent.Kind, "kind", "unknown kind", nil)
	}
	if !ok {
		return model.NewInvalidIntentError(intent.Kind, "parameters", "missing parameters for kind", nil)
	}
	return nil
}

func (r *Resolver) byIdentifier(q *model.IdentifierQuery) *model.QueryResult {
	history := r.store.FindByMMSI(q.MMSI)
	if len(history) == 0 {
		res := model.EmptyResult()
		res.Message = fmt.Sprintf("no observations for MMSI %d", q.MMSI)
		return res
	}

	if !q.History {
		return &model.QueryResult{
			Status:  model.ResultOK,
			Records: history[len(history)-1:],
			Total:   1,
		}
	}

	// keep the most recent observations, still ascending
	res := &model.QueryResult{Status: model.ResultOK, Records: history, Total: len(history)}
	if len(history) > r.maxResults {
		res.Records = history[len(history)-r.maxResults:]
		res.Truncated = true
		res.Message = fmt.Sprintf("showing the latest %d of %d observations", r.maxResults, len(history))
	}
	return res
}

func (r *Resolver) byName(q *model.NameQuery) *model.QueryResult {
	matches := r.store.FindByName(q.Name)
	switch len(matches) {
	case 0:
		res := model.EmptyResult()
		res.Message = fmt.Sprintf("no vessel name contains %q", q.Name)
		return res
	case 1:
		return &model.QueryResult{Status: model.ResultOK, Records: matches, Total: 1}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ni, nj := matches[i].Name(), matches[j].Name()
		if ni != nj {
			return ni < nj
		}
		return matches[i].MMSI < matches[j].MMSI
	})

	res := &model.QueryResult{
		Status:  model.ResultAmbiguous,
		Records: matches,
		Total:   len(matches),
		Message: fmt.Sprintf("%d vessels match %q; ask which one is meant", len(matches), q.Name),
	}
	if len(matches) > r.maxResults {
		res.Records = matches[:r.maxResults]
		res.Truncated = true
		res.Message = fmt.Sprintf("%d vessels match %q, showing the first %d; ask which one is meant or narrow the name",
			len(matches), q.Name, r.maxResults)
	}
	return res
}

func (r *Resolver) compound(q *model.CompoundQuery) *model.QueryResult {
	filter := store.Filter{
		VesselTypes:        q.VesselTypes,
		Cargo:              q.Cargo,
		Statuses:           q.Statuses,
		TransceiverClasses: q.TransceiverClasses,
	}
	inScope := func(rec model.VesselRecord) bool {
		if q.BBox != nil && !q.BBox.Contains(rec.Position) {
			return false
		}
		return q.Range.Contains(rec.Timestamp)
	}
	identified := r.identityMatcher(q)

	var records []model.VesselRecord
	keep := func(rec model.VesselRecord) {
		if inScope(rec) && identified(rec.MMSI) {
			records = append(records, rec)
		}
	}
	if q.MMSI != nil {
		for _, rec := range r.store.FindByMMSI(*q.MMSI) {
			if matchesFilter(rec, filter) {
				keep(rec)
			}
		}
	} else {
		r.store.Scan(filter, func(rec model.VesselRecord) bool {
			keep(rec)
			return true
		})
	}

	res := r.ranked(records, q.Limit)
	if q.Name != "" || q.IMO != "" || q.CallSign != "" {
		for i := range res.Records {
			if res.Records[i].Identity != nil {
				continue
			}
			if ids := r.store.Identities(res.Records[i].MMSI); len(ids) > 0 {
				id := ids[0]
				res.Records[i].Identity = &id
			}
		}
	}
	return res
}

// identityMatcher answers the name, IMO and call sign filters per vessel
// against every identity it ever reported, so a latest observation without
// static data still counts. Verdicts are memoized per MMSI.
func (r *Resolver) identityMatcher(q *model.CompoundQuery) func(mmsi int64) bool {
	if q.Name == "" && q.IMO == "" && q.CallSign == "" {
		return func(int64) bool { return true }
	}
	name := strings.ToLower(q.Name)
	verdicts := make(map[int64]bool)
	return func(mmsi int64) bool {
		if ok, seen := verdicts[mmsi]; seen {
			return ok
		}
		var nameOK, imoOK, callOK bool
		for _, id := range r.store.Identities(mmsi) {
			nameOK = nameOK || strings.Contains(strings.ToLower(id.VesselName), name)
			imoOK = imoOK || strings.EqualFold(id.IMO, q.IMO)
			callOK = callOK || strings.EqualFold(id.CallSign, q.CallSign)
		}
		ok := (name == "" || nameOK) && (q.IMO == "" || imoOK) && (q.CallSign == "" || callOK)
		verdicts[mmsi] = ok
		return ok
	}
}

func matchesFilter(rec model.VesselRecord, f store.Filter) bool {
	if len(f.VesselTypes) > 0 && !containsInt(f.VesselTypes, rec.Classification.VesselType) {
		return false
	}
	if len(f.Cargo) > 0 && !containsInt(f.Cargo, rec.Classification.Cargo) {
		return false
	}
	if len(f.TransceiverClasses) > 0 && !containsString(f.TransceiverClasses, rec.Classification.TransceiverClass) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if s == rec.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ranked reduces records to the latest observation per MMSI, orders them by
// timestamp descending then MMSI ascending and applies the cap.
func (r *Resolver) ranked(records []model.VesselRecord, limit int) *model.QueryResult {
	latest := make(map[int64]int, len(records))
	out := make([]model.VesselRecord, 0, len(records))
	for _, rec := range records {
		i, seen := latest[rec.MMSI]
		if !seen {
			latest[rec.MMSI] = len(out)
			out = append(out, rec)
			continue
		}
		if rec.Timestamp.After(out[i].Timestamp) {
			out[i] = rec
		}
	}

	if len(out) == 0 {
		res := model.EmptyResult()
		res.Message = "no vessels match"
		return res
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].MMSI < out[j].MMSI
	})

	limitCap := r.maxResults
	if limit > 0 && limit < limitCap {
		limitCap = limit
	}

	res := &model.QueryResult{Status: model.ResultOK, Records: out, Total: len(out)}
	if len(out) > limitCap {
		res.Records = out[:limitCap]
		res.Truncated = true
		res.Message = fmt.Sprintf("showing %d of %d vessels", limitCap, len(out))
	}
	return res
}
