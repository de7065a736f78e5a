package resolve

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/vesselinfo/internal/cache"
	"github.com/ppiankov/vesselinfo/internal/model"
	"github.com/ppiankov/vesselinfo/internal/store"
)

var (
	t1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 = t1.Add(3 * time.Minute)
)

func obs(mmsi int64, ts time.Time, lat, lon float64, name string) model.VesselRecord {
	r := model.VesselRecord{
		MMSI:      mmsi,
		Timestamp: ts,
		Position:  model.Position{Lat: lat, Lon: lon},
		Status:    model.StatusUndefined,
	}
	if name != "" {
		r.Identity = &model.Identity{VesselName: name}
	}
	return r
}

func resolve(t *testing.T, r *Resolver, intent *model.QueryIntent) *model.QueryResult {
	t.Helper()
	res, err := r.Resolve(context.Background(), intent)
	require.NoError(t, err)
	return res
}

func byIdentifier(mmsi int64, history bool) *model.QueryIntent {
	return &model.QueryIntent{
		Kind:       model.KindLookupByIdentifier,
		Identifier: &model.IdentifierQuery{MMSI: mmsi, History: history},
	}
}

func TestResolve_IdentifierLatest(t *testing.T) {
	s := store.New([]model.VesselRecord{
		obs(366123456, t2, 37.80513, -122.41988, "SEA STAR"),
		obs(366123456, t1, 37.80512, -122.41987, "SEA STAR"),
	})
	r := New(s)

	res := resolve(t, r, byIdentifier(366123456, false))
	assert.Equal(t, model.ResultOK, res.Status)
	require.Len(t, res.Records, 1)
	assert.Equal(t, t2, res.Records[0].Timestamp)
	assert.Equal(t, 37.80513, res.Records[0].Position.Lat)
	assert.Equal(t, 1, res.Total)
	assert.False(t, res.Truncated)
}

func TestResolve_IdentifierAbsent(t *testing.T) {
	r := New(store.New([]model.VesselRecord{obs(1, t1, 0, 0, "")}))

	res := resolve(t, r, byIdentifier(999999999, false))
	assert.Equal(t, model.ResultEmpty, res.Status)
	assert.Empty(t, res.Records)
	assert.NotNil(t, res.Records)
	assert.Contains(t, res.Message, "999999999")
}

func TestResolve_IdentifierHistory(t *testing.T) {
	var records []model.VesselRecord
	for i := 0; i < 5; i++ {
		records = append(records, obs(7, t1.Add(time.Duration(i)*time.Minute), 0, 0, ""))
	}
	r := New(store.New(records), WithMaxResults(3))

	res := resolve(t, r, byIdentifier(7, true))
	assert.Equal(t, model.ResultOK, res.Status)
	require.Len(t, res.Records, 3)
	assert.True(t, res.Truncated)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, t1.Add(2*time.Minute), res.Records[0].Timestamp, "latest observations kept")
	for i := 1; i < len(res.Records); i++ {
		assert.True(t, res.Records[i-1].Timestamp.Before(res.Records[i].Timestamp))
	}
}

func TestResolve_NameAmbiguous(t *testing.T) {
	s := store.New([]model.VesselRecord{
		obs(222, t1, 1, 1, "SEA STARLET"),
		obs(111, t1, 2, 2, "SEA STAR"),
		obs(111, t2, 2.1, 2.1, "SEA STAR"),
		obs(333, t1, 3, 3, "NORTHERN LIGHT"),
	})
	r := New(s)

	res := resolve(t, r, &model.QueryIntent{Kind: model.KindLookupByName, Name: &model.NameQuery{Name: "SEA STAR"}})
	assert.Equal(t, model.ResultAmbiguous, res.Status)
	require.Len(t, res.Records, 2)
	assert.Equal(t, int64(111), res.Records[0].MMSI)
	assert.Equal(t, int64(222), res.Records[1].MMSI)
	assert.Equal(t, t2, res.Records[0].Timestamp, "one latest record per candidate")
	assert.Contains(t, res.Message, "2 vessels")
}

func TestResolve_NameAmbiguousCapped(t *testing.T) {
	var records []model.VesselRecord
	for i := 1; i <= 5; i++ {
		records = append(records, obs(int64(i), t1, 1, 1, fmt.Sprintf("STAR %d", i)))
	}
	r := New(store.New(records), WithMaxResults(3))

	res := resolve(t, r, &model.QueryIntent{Kind: model.KindLookupByName, Name: &model.NameQuery{Name: "star"}})
	assert.Equal(t, model.ResultAmbiguous, res.Status)
	assert.Equal(t, 5, res.Total)
	assert.True(t, res.Truncated)
	require.Len(t, res.Records, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{res.Records[0].MMSI, res.Records[1].MMSI, res.Records[2].MMSI})
	assert.Contains(t, res.Message, "showing the first 3")
}

func TestResolve_NameSingleAndNone(t *testing.T) {
	s := store.New([]model.VesselRecord{
		obs(111, t1, 2, 2, "SEA STAR"),
		obs(333, t1, 3, 3, "NORTHERN LIGHT"),
	})
	r := New(s)

	res := resolve(t, r, &model.QueryIntent{Kind: model.KindLookupByName, Name: &model.NameQuery{Name: "northern"}})
	assert.Equal(t, model.ResultOK, res.Status)
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(333), res.Records[0].MMSI)

	res = resolve(t, r, &model.QueryIntent{Kind: model.KindLookupByName, Name: &model.NameQuery{Name: "OCEAN"}})
	assert.Equal(t, model.ResultEmpty, res.Status)
}

func TestResolve_AreaCapAndOrder(t *testing.T) {
	var records []model.VesselRecord
	for i := 1; i <= 10; i++ {
		records = append(records, obs(int64(i), t1.Add(time.Duration(i%4)*time.Minute), 37.5, -122.5, ""))
	}
	records = append(records, obs(1, t1.Add(time.Hour), 37.6, -122.4, ""))
	records = append(records, obs(50, t1, 10, 10, ""))
	s := store.New(records)

	area := func(limit int) *model.QueryIntent {
		return &model.QueryIntent{Kind: model.KindLookupByArea, Area: &model.AreaQuery{
			BBox:  model.BBox{MinLat: 37, MinLon: -123, MaxLat: 38, MaxLon: -122},
			Limit: limit,
		}}
	}

	res := resolve(t, New(s), area(0))
	assert.Equal(t, model.ResultOK, res.Status)
	require.Len(t, res.Records, 10)
	assert.False(t, res.Truncated)
	assert.Equal(t, int64(1), res.Records[0].MMSI, "latest timestamp first")
	assert.Equal(t, 37.6, res.Records[0].Position.Lat, "latest observation per vessel")
	for i := 1; i < len(res.Records); i++ {
		prev, cur := res.Records[i-1], res.Records[i]
		if prev.Timestamp.Equal(cur.Timestamp) {
			assert.Less(t, prev.MMSI, cur.MMSI)
		} else {
			assert.True(t, prev.Timestamp.After(cur.Timestamp))
		}
	}

	res = resolve(t, New(s, WithMaxResults(4)), area(0))
	assert.Len(t, res.Records, 4)
	assert.True(t, res.Truncated)
	assert.Equal(t, 10, res.Total)

	res = resolve(t, New(s, WithMaxResults(4)), area(2))
	assert.Len(t, res.Records, 2, "a smaller caller limit wins")
	assert.True(t, res.Truncated)

	res = resolve(t, New(s, WithMaxResults(4)), area(50))
	assert.Len(t, res.Records, 4, "the configured cap is never exceeded")

	res = resolve(t, New(s, WithMaxResults(10)), area(0))
	assert.Len(t, res.Records, 10)
	assert.False(t, res.Truncated, "exactly at the cap is not truncated")
}

func TestResolve_AreaEmpty(t *testing.T) {
	r := New(store.New([]model.VesselRecord{obs(1, t1, 0, 0, "")}))
	res := resolve(t, r, &model.QueryIntent{Kind: model.KindLookupByArea, Area: &model.AreaQuery{
		BBox: model.BBox{MinLat: 10, MinLon: 10, MaxLat: 11, MaxLon: 11},
	}})
	assert.Equal(t, model.ResultEmpty, res.Status)
	assert.Empty(t, res.Records)
}

func TestResolve_TimeRange(t *testing.T) {
	s := store.New([]model.VesselRecord{
		obs(1, t1, 0, 0, ""),
		obs(1, t2, 0, 0, ""),
		obs(2, t1.Add(time.Hour), 0, 0, ""),
	})
	end := t2
	res := resolve(t, New(s), &model.QueryIntent{
		Kind:      model.KindLookupByTimeRange,
		TimeRange: &model.TimeRangeQuery{Range: model.TimeRange{End: &end}},
	})
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(1), res.Records[0].MMSI)
	assert.Equal(t, t2, res.Records[0].Timestamp)
}

func TestResolve_Compound(t *testing.T) {
	tanker := obs(1, t1, 37.5, -122.5, "OCEAN TANKER")
	tanker.Classification.VesselType = 80
	tanker.Status = model.StatusMoored
	tanker.Identity.IMO = "IMO9434761"

	tug := obs(2, t1, 37.5, -122.5, "HARBOR TUG")
	tug.Classification.VesselType = 52
	tug.Status = model.StatusMoored

	farTanker := obs(3, t1, 10, 10, "FAR TANKER")
	farTanker.Classification.VesselType = 81
	farTanker.Status = model.StatusMoored

	r := New(store.New([]model.VesselRecord{tanker, tug, farTanker}))
	bbox := &model.BBox{MinLat: 37, MinLon: -123, MaxLat: 38, MaxLon: -122}

	compound := func(q model.CompoundQuery) *model.QueryResult {
		return resolve(t, r, &model.QueryIntent{Kind: model.KindCompoundFilter, Compound: &q})
	}

	res := compound(model.CompoundQuery{BBox: bbox, VesselTypes: []int{80, 81}})
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(1), res.Records[0].MMSI)

	res = compound(model.CompoundQuery{Statuses: []model.NavStatus{model.StatusMoored}, Name: "tanker"})
	assert.Len(t, res.Records, 2)

	res = compound(model.CompoundQuery{IMO: "imo9434761"})
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(1), res.Records[0].MMSI)

	mmsi := int64(2)
	res = compound(model.CompoundQuery{MMSI: &mmsi, VesselTypes: []int{52}})
	require.Len(t, res.Records, 1)

	res = compound(model.CompoundQuery{MMSI: &mmsi, VesselTypes: []int{80}})
	assert.Equal(t, model.ResultEmpty, res.Status)

	res = compound(model.CompoundQuery{CallSign: "NOPE"})
	assert.Equal(t, model.ResultEmpty, res.Status)
}

func TestResolve_CompoundIdentityAcrossReports(t *testing.T) {
	named := obs(111, t1, 10, 10, "SEA STAR")
	named.Identity.CallSign = "WDC1234"
	named.Classification.TransceiverClass = "A"
	nameless := obs(111, t2, 11, 10, "")
	nameless.Classification.TransceiverClass = "A"

	other := obs(222, t2, 20, 20, "NORTH STAR")
	other.Classification.TransceiverClass = "B"

	r := New(store.New([]model.VesselRecord{named, nameless, other}))
	compound := func(q model.CompoundQuery) *model.QueryResult {
		return resolve(t, r, &model.QueryIntent{Kind: model.KindCompoundFilter, Compound: &q})
	}

	res := compound(model.CompoundQuery{Name: "sea star"})
	require.Len(t, res.Records, 1)
	got := res.Records[0]
	assert.Equal(t, int64(111), got.MMSI)
	assert.Equal(t, t2, got.Timestamp, "latest observation, not the last named one")
	assert.Equal(t, 11.0, got.Position.Lat)
	assert.Equal(t, "SEA STAR", got.Name(), "identity carried from an earlier report")

	res = compound(model.CompoundQuery{CallSign: "wdc1234"})
	require.Len(t, res.Records, 1)
	assert.Equal(t, t2, res.Records[0].Timestamp)

	// a bbox around only the earlier position keeps that observation
	res = compound(model.CompoundQuery{Name: "star", BBox: &model.BBox{MinLat: 9.5, MinLon: 9.5, MaxLat: 10.5, MaxLon: 10.5}})
	require.Len(t, res.Records, 1)
	assert.Equal(t, t1, res.Records[0].Timestamp)

	res = compound(model.CompoundQuery{Name: "star", TransceiverClasses: []string{"B"}})
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(222), res.Records[0].MMSI)

	mmsi := int64(111)
	res = compound(model.CompoundQuery{MMSI: &mmsi, TransceiverClasses: []string{"B"}})
	assert.Equal(t, model.ResultEmpty, res.Status)

	res = compound(model.CompoundQuery{Name: "sea star", CallSign: "OTHER"})
	assert.Equal(t, model.ResultEmpty, res.Status)
}

func TestResolve_Idempotent(t *testing.T) {
	var records []model.VesselRecord
	for i := 0; i < 50; i++ {
		records = append(records, obs(int64(100+i%7), t1.Add(time.Duration(i)*time.Second), 37.5, -122.5, fmt.Sprintf("VESSEL %d", i%7)))
	}
	s := store.New(records)
	intents := []*model.QueryIntent{
		byIdentifier(101, true),
		{Kind: model.KindLookupByName, Name: &model.NameQuery{Name: "vessel"}},
		{Kind: model.KindLookupByArea, Area: &model.AreaQuery{BBox: model.BBox{MinLat: 37, MinLon: -123, MaxLat: 38, MaxLon: -122}, Limit: 3}},
	}

	plain := New(s)
	cached := New(s, WithCache(cache.NewResultCache(cache.NewMemoryCache(time.Minute, time.Minute), 0)))

	for _, intent := range intents {
		first := resolve(t, plain, intent)
		assert.Equal(t, first, resolve(t, plain, intent))
		assert.Equal(t, first, resolve(t, cached, intent))
		assert.Equal(t, first, resolve(t, cached, intent), "served from cache")
	}
}

func TestResolve_InvalidIntent(t *testing.T) {
	r := New(store.New(nil))

	_, err := r.Resolve(context.Background(), nil)
	var ie *model.InvalidIntentError
	assert.ErrorAs(t, err, &ie)

	_, err = r.Resolve(context.Background(), &model.QueryIntent{Kind: model.KindLookupByArea})
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, model.KindLookupByArea, ie.Kind)

	_, err = r.Resolve(context.Background(), &model.QueryIntent{Kind: "lookupByColor"})
	assert.ErrorAs(t, err, &ie)
}

func TestResolve_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(store.New(nil)).Resolve(ctx, byIdentifier(1, false))
	assert.ErrorIs(t, err, context.Canceled)
}
