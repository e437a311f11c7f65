// Package qdrant provides a vector repository backed by a Qdrant collection
// over gRPC.
package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.VectorRepository = (*Store)(nil)
	_ driven.RecordCounter    = (*Store)(nil)
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "documents"

// Payload keys.
const (
	payloadID       = "id"
	payloadContent  = "content"
	payloadMetadata = "metadata"
	payloadSeq      = "seq"
)

// idNamespace derives stable point UUIDs from record IDs.
var idNamespace = uuid.MustParse("6f1c6c1e-3b1d-4c6e-9a55-2f0f6d8f1a10")

// pointsAPI is the subset of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

// collectionsAPI is the subset of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store keeps records as points in one collection.
type Store struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	dimensions  int

	seqMu   sync.Mutex
	lastSeq int64
	now     func() time.Time
}

// New dials Qdrant at addr (host:port of the gRPC listener).
func New(addr, collection string, dimensions int) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: %w: dial %s: %w", domain.ErrStorage, addr, err)
	}
	s := NewWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection, dimensions)
	s.conn = conn
	return s, nil
}

// NewWithClients builds a store on pre-built clients.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, dimensions int) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		points:      points,
		collections: collections,
		collection:  collection,
		dimensions:  dimensions,
		now:         time.Now,
	}
}

// Close closes the gRPC connection if the store owns one.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Initialize creates the collection with cosine distance if it does not exist.
func (s *Store) Initialize(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant: %w: list collections: %w", domain.ErrStorage, err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	if s.dimensions <= 0 {
		return fmt.Errorf("qdrant: %w: dimensions must be positive", domain.ErrValidation)
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dimensions),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: %w: create collection %s: %w", domain.ErrStorage, s.collection, err)
	}
	return nil
}

// PointID returns the point UUID that stores the record with the given ID.
func PointID(recordID string) string {
	return uuid.NewSHA1(idNamespace, []byte(recordID)).String()
}

func pointID(recordID string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(recordID)}}
}

func withPayload() *pb.WithPayloadSelector {
	return &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}}
}

// nextSeq returns a strictly increasing sequence seeded from the clock so
// that separate processes writing the same collection stay roughly ordered.
func (s *Store) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	seq := s.now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

// existingSeq returns the stored seq of a point, or false if it does not exist.
func (s *Store) existingSeq(ctx context.Context, id *pb.PointId) (int64, bool, error) {
	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: s.collection,
		Ids:            []*pb.PointId{id},
		WithPayload:    withPayload(),
	})
	if err != nil {
		return 0, false, err
	}
	for _, p := range resp.GetResult() {
		if v, ok := p.GetPayload()[payloadSeq]; ok {
			return v.GetIntegerValue(), true, nil
		}
	}
	return 0, false, nil
}

// Insert upserts a record. A replaced record keeps its original seq.
func (s *Store) Insert(ctx context.Context, rec domain.Record) error {
	if err := domain.ValidateRecord(rec, s.dimensions); err != nil {
		return err
	}

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("qdrant: %w: marshalling metadata: %w", domain.ErrValidation, err)
	}

	id := pointID(rec.ID)
	seq, found, err := s.existingSeq(ctx, id)
	if err != nil {
		return fmt.Errorf("qdrant: %w: get point %s: %w", domain.ErrStorage, rec.ID, err)
	}
	if !found {
		seq = s.nextSeq()
	}

	wait := true
	_, err = s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: id,
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: rec.Embedding},
				},
			},
			Payload: map[string]*pb.Value{
				payloadID:       {Kind: &pb.Value_StringValue{StringValue: rec.ID}},
				payloadContent:  {Kind: &pb.Value_StringValue{StringValue: rec.Content}},
				payloadMetadata: {Kind: &pb.Value_StringValue{StringValue: string(metadataJSON)}},
				payloadSeq:      {Kind: &pb.Value_IntegerValue{IntegerValue: seq}},
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: %w: upsert %s: %w", domain.ErrStorage, rec.ID, err)
	}
	return nil
}

// Search runs a k-NN query and re-ranks the hits. Twice matchCount points
// are requested so that ties at the boundary can be ordered by seq.
func (s *Store) Search(ctx context.Context, query []float32, matchThreshold float64, matchCount int) ([]domain.QueryResult, error) {
	if err := domain.ValidateSearch(query, s.dimensions, matchCount); err != nil {
		return nil, err
	}

	threshold := float32(matchThreshold)
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         query,
		Limit:          uint64(matchCount) * 2,
		ScoreThreshold: &threshold,
		WithPayload:    withPayload(),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: %w: search: %w", domain.ErrStorage, err)
	}

	candidates := make([]similarity.Candidate, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		payload := hit.GetPayload()
		result := domain.QueryResult{
			ID:         payload[payloadID].GetStringValue(),
			Content:    payload[payloadContent].GetStringValue(),
			Similarity: float64(hit.GetScore()),
		}
		if raw := payload[payloadMetadata].GetStringValue(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &result.Metadata); err != nil {
				return nil, fmt.Errorf("qdrant: %w: decoding metadata of %s: %w", domain.ErrStorage, result.ID, err)
			}
		}
		candidates = append(candidates, similarity.Candidate{
			Result: result,
			Seq:    payload[payloadSeq].GetIntegerValue(),
		})
	}

	// Scores arrive as float32, so re-rank against the same rounded
	// threshold the server applied.
	return similarity.Rank(candidates, float64(threshold), matchCount), nil
}

// Count returns the exact number of points in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: %w: count: %w", domain.ErrStorage, err)
	}
	return int(resp.GetResult().GetCount()), nil
}
