package qdrant

import (
	"context"
	"fmt"
	"sync"

	qc "github.com/qdrant/go-client/qdrant"
	"google.golang.org/protobuf/proto"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
)

// collection implements driven.Collection over one Qdrant collection.
type collection struct {
	store *Store
	spec  domain.CollectionSpec

	mu     sync.RWMutex
	loaded bool
}

var _ driven.Collection = (*collection)(nil)

func (c *collection) Spec() domain.CollectionSpec {
	return c.spec
}

// BulkInsert upserts the batch after checking none of its ids is stored.
func (c *collection) BulkInsert(ctx context.Context, batch *domain.EntryBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := batch.Validate(c.spec.Dimension); err != nil {
		return err
	}

	ids := make([]*qc.PointId, batch.Len())
	points := make([]*qc.PointStruct, batch.Len())
	for i := 0; i < batch.Len(); i++ {
		e := batch.Entry(i)
		id, err := pointID(e.Fingerprint)
		if err != nil {
			return err
		}
		ids[i] = id

		payload := map[string]*qc.Value{
			fieldFingerprint: stringValue(e.Fingerprint),
			fieldText:        stringValue(domain.Truncate(e.Text, domain.MaxTextLength)),
		}
		if e.Title != "" {
			payload[fieldTitle] = stringValue(domain.Truncate(e.Title, domain.MaxTitleLength))
		}
		if e.Source != "" {
			payload[fieldSource] = stringValue(domain.Truncate(e.Source, domain.MaxSourceLength))
		}

		points[i] = &qc.PointStruct{
			Id:      id,
			Vectors: &qc.Vectors{VectorsOptions: &qc.Vectors_Vector{Vector: &qc.Vector{Data: e.Vector}}},
			Payload: payload,
		}
	}

	existing, err := c.store.points.Get(ctx, &qc.GetPoints{
		CollectionName: c.spec.Name,
		Ids:            ids,
		WithPayload:    &qc.WithPayloadSelector{SelectorOptions: &qc.WithPayloadSelector_Enable{Enable: false}},
	})
	if err != nil {
		return fmt.Errorf("checking existing points: %w", err)
	}
	if found := existing.GetResult(); len(found) > 0 {
		fp, _ := fingerprintOf(found[0].GetId())
		return fmt.Errorf("%w: %s", domain.ErrDuplicateFingerprint, fp)
	}

	_, err = c.store.points.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: c.spec.Name,
		Points:         points,
		Wait:           proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

// Delete removes one entry. Missing keys are ignored.
func (c *collection) Delete(ctx context.Context, fingerprint string) error {
	id, err := pointID(fingerprint)
	if err != nil {
		return err
	}
	_, err = c.store.points.Delete(ctx, &qc.DeletePoints{
		CollectionName: c.spec.Name,
		Wait:           proto.Bool(true),
		Points: &qc.PointsSelector{
			PointsSelectorOneOf: &qc.PointsSelector_Points{
				Points: &qc.PointsIdsList{Ids: []*qc.PointId{id}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting point %s: %w", fingerprint, err)
	}
	return nil
}

// ListFingerprints scrolls through every point id.
func (c *collection) ListFingerprints(ctx context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	var offset *qc.PointId

	for {
		resp, err := c.store.points.Scroll(ctx, &qc.ScrollPoints{
			CollectionName: c.spec.Name,
			Offset:         offset,
			Limit:          proto.Uint32(scrollPageSize),
			WithPayload:    &qc.WithPayloadSelector{SelectorOptions: &qc.WithPayloadSelector_Enable{Enable: false}},
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling points: %w", err)
		}
		for _, p := range resp.GetResult() {
			if fp, ok := fingerprintOf(p.GetId()); ok {
				out[fp] = struct{}{}
			}
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			return out, nil
		}
	}
}

// Count returns the exact number of points.
func (c *collection) Count(ctx context.Context) (int, error) {
	resp, err := c.store.points.Count(ctx, &qc.CountPoints{
		CollectionName: c.spec.Name,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Load marks the handle searchable. Qdrant indexes points as they arrive.
func (c *collection) Load(_ context.Context) error {
	c.mu.Lock()
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Loaded reports whether Load has been called.
func (c *collection) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Search queries the server. Before Load it returns an empty result.
func (c *collection) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchHit, error) {
	if !c.Loaded() || k <= 0 {
		return nil, nil
	}
	if len(vector) != c.spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %d",
			domain.ErrDimensionMismatch, len(vector), c.spec.Dimension)
	}

	resp, err := c.store.points.Search(ctx, &qc.SearchPoints{
		CollectionName: c.spec.Name,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &qc.WithPayloadSelector{SelectorOptions: &qc.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		payload := p.GetPayload()
		fp := ""
		if v := payloadString(payload, fieldFingerprint); v != nil {
			fp = *v
		} else if recovered, ok := fingerprintOf(p.GetId()); ok {
			fp = recovered
		}
		hits = append(hits, domain.SearchHit{
			Fingerprint: fp,
			Raw:         float64(p.GetScore()),
			Text:        payloadString(payload, fieldText),
			Title:       payloadString(payload, fieldTitle),
			Source:      payloadString(payload, fieldSource),
		})
	}
	return hits, nil
}
