package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/service"
)

// FetchCall records one call to a FakeFetcher.
type FetchCall struct {
	Region       model.Region
	DownloadType model.DownloadType
}

// FakeFetcher serves scripted element sets by region descriptor.
type FakeFetcher struct {
	sets  map[string]model.ElementSet
	errs  map[string]error
	calls []FetchCall
	mu    sync.Mutex
}

var _ service.ElementFetcher = (*FakeFetcher)(nil)

// NewFakeFetcher creates a fetcher with no scripted regions.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		sets: make(map[string]model.ElementSet),
		errs: make(map[string]error),
	}
}

// WithElements scripts the elements returned for region. Elements are
// split by their power tag.
func (f *FakeFetcher) WithElements(region model.Region, elements ...model.RawElement) *FakeFetcher {
	var set model.ElementSet
	for _, el := range elements {
		switch el.PowerRole() {
		case model.PowerGenerator:
			set.Generators = append(set.Generators, el)
		default:
			set.Plants = append(set.Plants, el)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets[region.Descriptor()] = set
	return f
}

// WithError scripts a failure for region.
func (f *FakeFetcher) WithError(region model.Region, err error) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[region.Descriptor()] = err
	return f
}

// Fetch returns the scripted set, filtered by download type. Unscripted
// regions return an empty set.
func (f *FakeFetcher) Fetch(ctx context.Context, region model.Region, downloadType model.DownloadType) (*model.ElementSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, FetchCall{Region: region, DownloadType: downloadType})

	if err := f.errs[region.Descriptor()]; err != nil {
		return nil, fmt.Errorf("fetch %s: %w", region.Label(), err)
	}

	set := f.sets[region.Descriptor()]
	out := &model.ElementSet{}
	if downloadType.IncludesPlants() {
		out.Plants = append(out.Plants, set.Plants...)
	}
	if downloadType.IncludesGenerators() {
		out.Generators = append(out.Generators, set.Generators...)
	}
	return out, nil
}

// Calls returns the calls made so far.
func (f *FakeFetcher) Calls() []FetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FetchCall(nil), f.calls...)
}
