package creatives

import (
	"context"
	"errors"
	"sync"

	"github.com/patrickwarner/adcreatives/internal/graph"
)

// fakeGraph is an in-memory Graph that counts calls.
type fakeGraph struct {
	mu sync.Mutex

	account    *graph.Account
	accountErr error
	ads        []graph.Ad
	adsErr     error
	insights   map[string][]graph.InsightRow
	insightErr map[string]error
	creatives  map[string]*graph.Creative
	videos     map[string]*graph.Video
	videoErr   map[string]error

	calls map[string]int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		account:    &graph.Account{ID: "act_1", TimezoneName: "UTC"},
		insights:   map[string][]graph.InsightRow{},
		insightErr: map[string]error{},
		creatives:  map[string]*graph.Creative{},
		videos:     map[string]*graph.Video{},
		videoErr:   map[string]error{},
		calls:      map[string]int{},
	}
}

func (f *fakeGraph) count(call string) {
	f.mu.Lock()
	f.calls[call]++
	f.mu.Unlock()
}

func (f *fakeGraph) Calls(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

func (f *fakeGraph) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGraph) GetAccount(ctx context.Context, token, accountID string) (*graph.Account, error) {
	f.count(graph.CallAccount)
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func (f *fakeGraph) ListAds(ctx context.Context, token, accountID string) ([]graph.Ad, error) {
	f.count(graph.CallAds)
	return f.ads, f.adsErr
}

func (f *fakeGraph) GetInsights(ctx context.Context, token, adID, since, until string) ([]graph.InsightRow, error) {
	f.count(graph.CallInsights)
	if err := f.insightErr[adID]; err != nil {
		return nil, err
	}
	return f.insights[adID], nil
}

func (f *fakeGraph) GetCreative(ctx context.Context, token, creativeID string) (*graph.Creative, error) {
	f.count(graph.CallCreative)
	cr, ok := f.creatives[creativeID]
	if !ok {
		return nil, errors.New("creative not found")
	}
	return cr, nil
}

func (f *fakeGraph) GetVideo(ctx context.Context, token, videoID string) (*graph.Video, error) {
	f.count(graph.CallVideo)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.videoErr[videoID]; err != nil {
		return nil, err
	}
	if v, ok := f.videos[videoID]; ok {
		return v, nil
	}
	return &graph.Video{ID: videoID}, nil
}
