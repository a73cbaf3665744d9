// Package qdrant implements the vector index on a Qdrant server via its
// official gRPC client.
package qdrant

import (
	"context"
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"

	"medisearch/internal/domain"
)

// Storage implements domain.Storage against a Qdrant collection.
type Storage struct {
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string
	logger      *zap.Logger
}

// Config contains connection details for a Qdrant index.
type Config struct {
	// Addr is the gRPC address, e.g. "localhost:6334".
	Addr string

	// Collection is the collection name holding the disease vectors.
	Collection string
}

// NewStorage connects to Qdrant. The collection is created on Init, once the
// vector dimension is known.
func NewStorage(cfg Config, logger *zap.Logger) (*Storage, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6334"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "diseases"
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}

	return &Storage{
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  collection,
		logger:      logger,
	}, nil
}

// Init creates the collection with cosine distance if it does not exist.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	_, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: s.collection,
	})
	if err == nil {
		return nil
	}

	s.logger.Info("creating qdrant collection",
		zap.String("collection", s.collection),
		zap.Int("dimension", dimension),
	)
	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert writes entries as points keyed by record ordinal, with the record
// name carried in the payload.
func (s *Storage) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		points = append(points, &qdrant.PointStruct{
			Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: uint64(e.Ordinal)}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{
				Vector: &qdrant.Vector{Data: e.Vector},
			}},
			Payload: map[string]*qdrant.Value{
				"ordinal": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(e.Ordinal)}},
				"name":    {Kind: &qdrant.Value_StringValue{StringValue: e.Name}},
			},
		})
	}

	_, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search runs a similarity query and maps points back to ordinals.
func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	if topK <= 0 {
		topK = 5
	}

	result, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	hits := make([]domain.Hit, 0, len(result.GetResult()))
	for _, hit := range result.GetResult() {
		payload := hit.GetPayload()
		if payload == nil {
			continue
		}
		hits = append(hits, domain.Hit{
			Ordinal: int(payload["ordinal"].GetIntegerValue()),
			Name:    payload["name"].GetStringValue(),
			Score:   hit.GetScore(),
		})
	}
	return hits, nil
}

// Clear drops the collection.
func (s *Storage) Clear(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &qdrant.DeleteCollection{
		CollectionName: s.collection,
	})
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

var _ domain.Storage = (*Storage)(nil)
