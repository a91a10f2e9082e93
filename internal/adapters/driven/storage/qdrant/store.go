// Package qdrant provides a VectorStore backed by a Qdrant server over gRPC.
//
// Each collection maps to a Qdrant collection of the same name. A passage's
// fingerprint (16 MD5 bytes) is used directly as its UUID point id, so the
// fingerprint can be recovered from the id alone. The payload keeps the
// fingerprint, text, title and source.
package qdrant

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
)

// DefaultAddr is the default Qdrant gRPC address.
const DefaultAddr = "localhost:6334"

// scrollPageSize is the page size used when listing fingerprints.
const scrollPageSize = 256

// Payload keys.
const (
	fieldFingerprint = "fingerprint"
	fieldText        = "text"
	fieldTitle       = "title"
	fieldSource      = "source"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a Qdrant-backed VectorStore.
type Store struct {
	conn        *grpc.ClientConn
	points      qc.PointsClient
	collections qc.CollectionsClient

	mu      sync.Mutex
	handles map[string]*collection
}

// NewStore connects to Qdrant at addr. The connection is established lazily
// by gRPC; the first call reports an unreachable server.
func NewStore(addr string) (*Store, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}
	s := newStore(qc.NewPointsClient(conn), qc.NewCollectionsClient(conn))
	s.conn = conn
	return s, nil
}

func newStore(points qc.PointsClient, collections qc.CollectionsClient) *Store {
	return &Store{
		points:      points,
		collections: collections,
		handles:     make(map[string]*collection),
	}
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// HasCollection reports whether the named collection exists.
func (s *Store) HasCollection(ctx context.Context, name string) (bool, error) {
	resp, err := s.collections.CollectionExists(ctx, &qc.CollectionExistsRequest{CollectionName: name})
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	return resp.GetResult().GetExists(), nil
}

// CreateCollection defines a new collection.
func (s *Store) CreateCollection(ctx context.Context, spec domain.CollectionSpec) (driven.Collection, error) {
	if spec.Name == "" || spec.Dimension <= 0 || !spec.Metric.IsValid() {
		return nil, fmt.Errorf("%w: collection spec %+v", domain.ErrInvalidInput, spec)
	}

	exists, err := s.HasCollection(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("collection %s: %w", spec.Name, domain.ErrAlreadyExists)
	}

	_, err = s.collections.Create(ctx, &qc.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: toDistance(spec.Metric),
		}),
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, fmt.Errorf("collection %s: %w", spec.Name, domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("creating collection %s: %w", spec.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &collection{store: s, spec: spec}
	s.handles[spec.Name] = c
	return c, nil
}

// OpenCollection returns the cached handle for an existing collection.
func (s *Store) OpenCollection(ctx context.Context, name string) (driven.Collection, error) {
	s.mu.Lock()
	if c, ok := s.handles[name]; ok {
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	exists, err := s.HasCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}

	info, err := s.collections.Get(ctx, &qc.GetCollectionInfoRequest{CollectionName: name})
	if err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", name, err)
	}
	params := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return nil, fmt.Errorf("collection %s has no single vector config", name)
	}
	metric, err := fromDistance(params.GetDistance())
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.handles[name]; ok {
		return c, nil
	}
	c := &collection{store: s, spec: domain.CollectionSpec{
		Name:      name,
		Dimension: int(params.GetSize()),
		Metric:    metric,
	}}
	s.handles[name] = c
	return c, nil
}

func toDistance(m domain.Metric) qc.Distance {
	if m == domain.MetricIP {
		return qc.Distance_Dot
	}
	return qc.Distance_Euclid
}

func fromDistance(d qc.Distance) (domain.Metric, error) {
	switch d {
	case qc.Distance_Euclid:
		return domain.MetricL2, nil
	case qc.Distance_Dot:
		return domain.MetricIP, nil
	default:
		return "", fmt.Errorf("unsupported distance %s", d)
	}
}

// pointID maps a fingerprint to its UUID point id.
func pointID(fingerprint string) (*qc.PointId, error) {
	raw, err := hex.DecodeString(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("%w: fingerprint %q", domain.ErrInvalidInput, fingerprint)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: fingerprint %q", domain.ErrInvalidInput, fingerprint)
	}
	return &qc.PointId{PointIdOptions: &qc.PointId_Uuid{Uuid: id.String()}}, nil
}

// fingerprintOf recovers the fingerprint from a UUID point id.
func fingerprintOf(id *qc.PointId) (string, bool) {
	u, ok := id.GetPointIdOptions().(*qc.PointId_Uuid)
	if !ok {
		return "", false
	}
	parsed, err := uuid.Parse(u.Uuid)
	if err != nil {
		return "", false
	}
	return hex.EncodeToString(parsed[:]), true
}

func stringValue(s string) *qc.Value {
	return &qc.Value{Kind: &qc.Value_StringValue{StringValue: s}}
}

// payloadString returns a pointer to a string payload field, nil when absent.
func payloadString(payload map[string]*qc.Value, key string) *string {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil
	}
	kind, ok := v.GetKind().(*qc.Value_StringValue)
	if !ok {
		return nil
	}
	s := kind.StringValue
	return &s
}
