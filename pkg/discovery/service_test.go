package discovery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/civicchain/petition-discovery/pkg/contract"
	"github.com/civicchain/petition-discovery/pkg/petition"
	"github.com/civicchain/petition-discovery/pkg/signers"
)

var testNow = time.Unix(1_700_000_000, 0)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) AllPetitions(ctx context.Context) ([]petition.Record, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]petition.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) ActiveBoostedPetitions(ctx context.Context) ([]petition.Record, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]petition.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) Petition(ctx context.Context, id uint64) (petition.Record, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(petition.Record), args.Error(1)
}

func (m *mockSource) TotalPetitions(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockSource) HasSigned(ctx context.Context, id uint64, signer string) (bool, error) {
	args := m.Called(ctx, id, signer)
	return args.Bool(0), args.Error(1)
}

// fakeResolver fails for ids in failing and tracks peak concurrency.
type fakeResolver struct {
	signers map[uint64][]string
	failing map[uint64]bool
	delay   time.Duration

	inFlight atomic.Int32
	mu       sync.Mutex
	peak     int32
}

func (f *fakeResolver) Lookup(ctx context.Context, id uint64) ([]string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	f.mu.Lock()
	f.peak = max(f.peak, n)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failing[id] {
		return nil, signers.ErrLogQuery
	}
	if s, ok := f.signers[id]; ok {
		return s, nil
	}
	return []string{}, nil
}

func (f *fakeResolver) Resolve(ctx context.Context, id uint64) signers.Result {
	s, err := f.Lookup(ctx, id)
	if err != nil {
		return signers.Result{PetitionID: id, Signers: []string{}, Err: err}
	}
	return signers.Result{PetitionID: id, Signers: s}
}

func record(id uint64, title, creator string, created int64, sigs uint64, boostEnd int64, priority uint64) petition.Record {
	return petition.Record{
		ID:             id,
		Title:          title,
		Creator:        creator,
		CreatedAt:      created,
		SignatureCount: sigs,
		BoostEndTime:   boostEnd,
		BoostPriority:  priority,
	}
}

func fixture() []petition.Record {
	future := testNow.Unix() + 3600
	return []petition.Record{
		record(1, "Clean rivers", "0xaaa", 100, 50, 0, 0),
		record(2, "Bike lanes", "0xbbb", 500, 5, future, 1),
		record(3, "River parks", "0xaaa", 200, 80, 0, 0),
		record(4, "Library hours", "0xccc", 400, 1, future, 9),
	}
}

func ids(records []petition.Record) []uint64 {
	out := make([]uint64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func newTestService(t *testing.T, src Source, res SignerResolver) *Service {
	t.Helper()
	return New(src, res, zaptest.NewLogger(t).Sugar(), WithClock(func() time.Time { return testNow }))
}

func TestService_List(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  []uint64
	}{
		{"default is trending", Query{}, []uint64{4, 2, 3, 1}},
		{"newest", Query{Mode: petition.ModeNewest}, []uint64{2, 4, 3, 1}},
		{"featured", Query{Mode: petition.ModeFeatured}, []uint64{4, 2, 3, 1}},
		{"search then rank", Query{Search: "RIVER"}, []uint64{3, 1}},
		{"creator", Query{Creator: "0xAAA", Mode: petition.ModeNewest}, []uint64{3, 1}},
		{"limit", Query{Limit: 2}, []uint64{4, 2}},
		{"no match", Query{Search: "zzz"}, []uint64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{}
			src.On("AllPetitions", mock.Anything).Return(fixture(), nil).Once()

			got, err := newTestService(t, src, &fakeResolver{}).List(t.Context(), tt.query)
			require.NoError(t, err)
			require.Equal(t, tt.want, ids(got))
			src.AssertExpectations(t)
		})
	}
}

func TestService_List_FeaturedDefaultLimit(t *testing.T) {
	records := make([]petition.Record, 0, 15)
	for i := range 15 {
		records = append(records, record(uint64(i+1), "p", "0x1", int64(i), 0, 0, 0))
	}
	src := &mockSource{}
	src.On("AllPetitions", mock.Anything).Return(records, nil)
	svc := newTestService(t, src, &fakeResolver{})

	featured, err := svc.List(t.Context(), Query{Mode: petition.ModeFeatured})
	require.NoError(t, err)
	require.Len(t, featured, FeaturedLimit)
	require.Equal(t, uint64(15), featured[0].ID)

	trending, err := svc.List(t.Context(), Query{})
	require.NoError(t, err)
	require.Len(t, trending, 15)
}

func TestService_List_SourceError(t *testing.T) {
	src := &mockSource{}
	src.On("AllPetitions", mock.Anything).Return(nil, errors.New("rpc down"))

	_, err := newTestService(t, src, &fakeResolver{}).List(t.Context(), Query{})
	require.ErrorContains(t, err, "rpc down")
}

func TestService_Get(t *testing.T) {
	src := &mockSource{}
	src.On("Petition", mock.Anything, uint64(2)).Return(fixture()[1], nil)
	src.On("Petition", mock.Anything, uint64(9)).Return(petition.Record{}, contract.ErrNotFound)
	svc := newTestService(t, src, &fakeResolver{})

	rec, err := svc.Get(t.Context(), 2)
	require.NoError(t, err)
	require.Equal(t, "Bike lanes", rec.Title)

	_, err = svc.Get(t.Context(), 9)
	require.ErrorIs(t, err, contract.ErrNotFound)
}

func TestService_Signers(t *testing.T) {
	res := &fakeResolver{
		signers: map[uint64][]string{1: {"0x01", "0x02"}},
		failing: map[uint64]bool{2: true},
	}
	svc := newTestService(t, &mockSource{}, res)

	ok := svc.Signers(t.Context(), 1)
	require.False(t, ok.Failed())
	require.Equal(t, []string{"0x01", "0x02"}, ok.Signers)

	failed := svc.Signers(t.Context(), 2)
	require.True(t, failed.Failed())
	require.Empty(t, failed.Signers)

	_, err := svc.LookupSigners(t.Context(), 2)
	require.ErrorIs(t, err, signers.ErrLogQuery)
}

func TestService_SignersBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	res := &fakeResolver{
		signers: map[uint64][]string{1: {"0x01"}, 3: {"0x03"}},
		failing: map[uint64]bool{2: true},
		delay:   10 * time.Millisecond,
	}
	svc := newTestService(t, &mockSource{}, res)

	results := svc.SignersBatch(t.Context(), []uint64{1, 2, 3, 4, 5, 6}, 2)
	require.Len(t, results, 6)
	for i, r := range results {
		require.Equal(t, uint64(i+1), r.PetitionID)
	}
	require.Equal(t, []string{"0x01"}, results[0].Signers)
	require.True(t, results[1].Failed())
	require.Equal(t, []string{"0x03"}, results[2].Signers)
	require.False(t, results[3].Failed())
	require.LessOrEqual(t, res.peak, int32(2))

	require.Empty(t, svc.SignersBatch(t.Context(), nil, 0))
}

func TestService_HasSigned(t *testing.T) {
	src := &mockSource{}
	src.On("HasSigned", mock.Anything, uint64(1), "0xabc").Return(true, nil)
	src.On("HasSigned", mock.Anything, uint64(2), "0xabc").Return(false, errors.New("reverted"))
	svc := newTestService(t, src, &fakeResolver{})

	ok, err := svc.HasSigned(t.Context(), 1, "0xabc")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.HasSigned(t.Context(), 2, "0xabc")
	require.ErrorContains(t, err, "reverted")
}

func TestService_Stats(t *testing.T) {
	src := &mockSource{}
	all := fixture()
	src.On("TotalPetitions", mock.Anything).Return(uint64(4), nil)
	src.On("AllPetitions", mock.Anything).Return(all, nil)
	src.On("ActiveBoostedPetitions", mock.Anything).Return([]petition.Record{all[1], all[3]}, nil)

	stats, err := newTestService(t, src, &fakeResolver{}).Stats(t.Context())
	require.NoError(t, err)
	require.Equal(t, Stats{
		Total:           4,
		Listed:          4,
		Boosted:         2,
		TotalSignatures: 136,
		Creators:        3,
		AsOf:            testNow.UTC(),
	}, stats)
}

func TestService_Stats_Error(t *testing.T) {
	src := &mockSource{}
	src.On("TotalPetitions", mock.Anything).Return(uint64(0), errors.New("eth_call failed"))
	src.On("AllPetitions", mock.Anything).Return([]petition.Record{}, nil).Maybe()
	src.On("ActiveBoostedPetitions", mock.Anything).Return([]petition.Record{}, nil).Maybe()

	_, err := newTestService(t, src, &fakeResolver{}).Stats(t.Context())
	require.ErrorContains(t, err, "eth_call failed")
}
