package qdrant

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

// --- Mocks ---

// mockPoints keeps upserted points in a map keyed by UUID.
type mockPoints struct {
	stored    map[string]*pb.PointStruct
	upsertErr error
	getErr    error
	searchErr error

	searchResp *pb.SearchResponse
	lastSearch *pb.SearchPoints
	count      uint64
}

func newMockPoints() *mockPoints {
	return &mockPoints{stored: make(map[string]*pb.PointStruct)}
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	for _, p := range in.GetPoints() {
		m.stored[p.GetId().GetUuid()] = p
	}
	return &pb.PointsOperationResponse{}, nil
}

func (m *mockPoints) Get(_ context.Context, in *pb.GetPoints, _ ...grpc.CallOption) (*pb.GetResponse, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	resp := &pb.GetResponse{}
	for _, id := range in.GetIds() {
		if p, ok := m.stored[id.GetUuid()]; ok {
			resp.Result = append(resp.Result, &pb.RetrievedPoint{Id: p.GetId(), Payload: p.GetPayload()})
		}
	}
	return resp, nil
}

func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.lastSearch = in
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.searchResp != nil {
		return m.searchResp, nil
	}
	return &pb.SearchResponse{}, nil
}

func (m *mockPoints) Count(_ context.Context, _ *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	return &pb.CountResponse{Result: &pb.CountResult{Count: m.count}}, nil
}

type mockCollections struct {
	listResp  *pb.ListCollectionsResponse
	listErr   error
	createErr error
	created   *pb.CreateCollection
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if m.listResp == nil {
		return &pb.ListCollectionsResponse{}, nil
	}
	return m.listResp, nil
}

func (m *mockCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = in
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func hit(id string, score float32, seq int64, metadata string) *pb.ScoredPoint {
	return &pb.ScoredPoint{
		Id:    pointID(id),
		Score: score,
		Payload: map[string]*pb.Value{
			payloadID:       {Kind: &pb.Value_StringValue{StringValue: id}},
			payloadContent:  {Kind: &pb.Value_StringValue{StringValue: "content of " + id}},
			payloadMetadata: {Kind: &pb.Value_StringValue{StringValue: metadata}},
			payloadSeq:      {Kind: &pb.Value_IntegerValue{IntegerValue: seq}},
		},
	}
}

// --- Tests ---

func TestNewWithClients_Defaults(t *testing.T) {
	s := NewWithClients(newMockPoints(), &mockCollections{}, "", 3)
	assert.Equal(t, DefaultCollection, s.collection)
	assert.NoError(t, s.Close())
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, PointID("guide.md-0"), PointID("guide.md-0"))
	assert.NotEqual(t, PointID("guide.md-0"), PointID("guide.md-1"))
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("existing collection is left alone", func(t *testing.T) {
		cols := &mockCollections{listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "documents"}},
		}}
		s := NewWithClients(newMockPoints(), cols, "documents", 3)

		require.NoError(t, s.Initialize(ctx))
		assert.Nil(t, cols.created)
	})

	t.Run("creates cosine collection", func(t *testing.T) {
		cols := &mockCollections{}
		s := NewWithClients(newMockPoints(), cols, "documents", 1536)

		require.NoError(t, s.Initialize(ctx))
		require.NotNil(t, cols.created)
		params := cols.created.GetVectorsConfig().GetParams()
		assert.Equal(t, uint64(1536), params.GetSize())
		assert.Equal(t, pb.Distance_Cosine, params.GetDistance())
	})

	t.Run("list failure is a storage error", func(t *testing.T) {
		cols := &mockCollections{listErr: errors.New("unavailable")}
		s := NewWithClients(newMockPoints(), cols, "documents", 3)

		assert.ErrorIs(t, s.Initialize(ctx), domain.ErrStorage)
	})
}

func TestInsert_PreservesSeqOnUpsert(t *testing.T) {
	ctx := context.Background()
	points := newMockPoints()
	s := NewWithClients(points, &mockCollections{}, "documents", 2)
	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time { return clock }

	rec := domain.Record{
		ID:        "a.md-0",
		Content:   "first",
		Metadata:  domain.ChunkMetadata("a.md", 0, "A"),
		Embedding: []float32{1, 0},
	}
	require.NoError(t, s.Insert(ctx, rec))

	stored := points.stored[PointID("a.md-0")]
	require.NotNil(t, stored)
	firstSeq := stored.GetPayload()[payloadSeq].GetIntegerValue()
	assert.Equal(t, "first", stored.GetPayload()[payloadContent].GetStringValue())
	assert.JSONEq(t, `{"chunkIndex":0,"sourcePath":"a.md","title":"A"}`,
		stored.GetPayload()[payloadMetadata].GetStringValue())

	// Same clock reading still yields a later seq for a new record.
	require.NoError(t, s.Insert(ctx, domain.Record{ID: "b", Embedding: []float32{0, 1}}))
	assert.Greater(t, points.stored[PointID("b")].GetPayload()[payloadSeq].GetIntegerValue(), firstSeq)

	rec.Content = "second"
	require.NoError(t, s.Insert(ctx, rec))
	stored = points.stored[PointID("a.md-0")]
	assert.Equal(t, "second", stored.GetPayload()[payloadContent].GetStringValue())
	assert.Equal(t, firstSeq, stored.GetPayload()[payloadSeq].GetIntegerValue())
}

func TestInsert_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong dimension", func(t *testing.T) {
		s := NewWithClients(newMockPoints(), &mockCollections{}, "documents", 3)
		err := s.Insert(ctx, domain.Record{ID: "x", Embedding: []float32{1}})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("upsert failure", func(t *testing.T) {
		points := newMockPoints()
		points.upsertErr = errors.New("deadline exceeded")
		s := NewWithClients(points, &mockCollections{}, "documents", 1)

		err := s.Insert(ctx, domain.Record{ID: "x", Embedding: []float32{1}})
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.Contains(t, err.Error(), "deadline exceeded")
	})

	t.Run("get failure", func(t *testing.T) {
		points := newMockPoints()
		points.getErr = errors.New("unavailable")
		s := NewWithClients(points, &mockCollections{}, "documents", 1)

		err := s.Insert(ctx, domain.Record{ID: "x", Embedding: []float32{1}})
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	points := newMockPoints()
	points.searchResp = &pb.SearchResponse{Result: []*pb.ScoredPoint{
		hit("B", 0.73, 20, `{}`),
		hit("late", 0.91, 30, `{}`),
		hit("A", 0.91, 10, `{"title":"Alpha"}`),
		hit("C", 0.40, 5, ``),
	}}
	s := NewWithClients(points, &mockCollections{}, "documents", 2)

	results, err := s.Search(ctx, []float32{1, 0}, 0.5, 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].ID)
	assert.Equal(t, "Alpha", results[0].Title())
	assert.InDelta(t, 0.91, results[0].Similarity, 1e-6)
	assert.Equal(t, "late", results[1].ID)

	require.NotNil(t, points.lastSearch)
	assert.Equal(t, uint64(4), points.lastSearch.GetLimit())
	assert.InDelta(t, 0.5, points.lastSearch.GetScoreThreshold(), 1e-6)
}

func TestSearch_KeepsScoreEqualToThreshold(t *testing.T) {
	points := newMockPoints()
	points.searchResp = &pb.SearchResponse{Result: []*pb.ScoredPoint{
		hit("edge", float32(0.7), 1, `{}`),
		hit("below", math.Nextafter32(float32(0.7), 0), 2, `{}`),
	}}
	s := NewWithClients(points, &mockCollections{}, "documents", 2)

	results, err := s.Search(context.Background(), []float32{1, 0}, 0.7, 5)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "edge", results[0].ID)
	assert.Equal(t, float32(0.7), points.lastSearch.GetScoreThreshold())
}

func TestSearch_EmptyAndErrors(t *testing.T) {
	ctx := context.Background()

	points := newMockPoints()
	s := NewWithClients(points, &mockCollections{}, "documents", 2)

	results, err := s.Search(ctx, []float32{1, 0}, 0.5, 3)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	_, err = s.Search(ctx, []float32{1, 0}, 0.5, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	points.searchErr = errors.New("unavailable")
	_, err = s.Search(ctx, []float32{1, 0}, 0.5, 3)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestCount(t *testing.T) {
	points := newMockPoints()
	points.count = 12
	s := NewWithClients(points, &mockCollections{}, "documents", 2)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}
