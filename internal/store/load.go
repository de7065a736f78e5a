package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/vesselinfo/internal/model"
)

// Options controls how sources are expanded and parsed.
type Options struct {
	Delimiter rune
	Workers   int // concurrent source parsers, defaults to 4
	Logger    *zap.Logger

	// S3Client is used for s3:// sources. When nil one is built from S3.
	S3Client S3Client
	S3       model.S3Config
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return 4
	}
	return o.Workers
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Load expands specs and loads every source. Loading is all or nothing: the
// first malformed row aborts the load with a *model.LoadError.
func Load(ctx context.Context, specs []string, opts Options) (*Store, error) {
	sources, err := ExpandSources(ctx, specs, opts)
	if err != nil {
		if errors.Is(err, ErrNoSources) {
			return nil, err
		}
		return nil, model.NewLoadError(fmt.Sprint(specs), 0, "", "expand sources", err)
	}
	return LoadSources(ctx, sources, opts)
}

type parsed struct {
	records   []model.VesselRecord
	malformed int
}

// LoadSources parses sources concurrently and concatenates them in the
// given order, so record order is source order then row order.
func LoadSources(ctx context.Context, sources []Source, opts Options) (*Store, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	log := opts.logger()
	started := time.Now()

	results := make([]parsed, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for i, src := range sources {
		g.Go(func() error {
			res, err := readSource(gctx, src)
			if err != nil {
				return err
			}
			results[i] = res
			log.Debug("source parsed",
				zap.String("source", src.Name()),
				zap.Int("rows", len(res.records)))
			if res.malformed > 0 {
				log.Warn("unreadable optional cells treated as absent",
					zap.String("source", src.Name()),
					zap.Int("cells", res.malformed))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, res := range results {
		total += len(res.records)
	}
	if total == 0 {
		return nil, ErrNoRecords
	}
	all := make([]model.VesselRecord, 0, total)
	var sourceStats []SourceStats
	malformed := 0
	for i, res := range results {
		all = append(all, res.records...)
		malformed += res.malformed
		sourceStats = append(sourceStats, SourceStats{Name: sources[i].Name(), Rows: len(res.records)})
	}

	s := New(all)
	s.stats.Sources = sourceStats
	s.stats.MalformedOptional = malformed

	log.Info("store loaded",
		zap.Int("sources", len(sources)),
		zap.Int("records", s.Len()),
		zap.Int("vessels", s.Vessels()),
		zap.Int("duplicates", s.stats.Duplicates),
		zap.Duration("elapsed", time.Since(started)))
	return s, nil
}

func readSource(ctx context.Context, src Source) (parsed, error) {
	var (
		res parsed
		dec decoder
	)
	err := src.Scan(ctx, func(row Row) error {
		rec, err := dec.decode(row)
		if err != nil {
			return err
		}
		res.records = append(res.records, rec)
		return nil
	})
	res.malformed = dec.malformed
	if err != nil {
		var le *model.LoadError
		if errors.As(err, &le) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return parsed{}, err
		}
		return parsed{}, model.NewLoadError(src.Name(), 0, "", "read failed", err)
	}
	return res, nil
}
