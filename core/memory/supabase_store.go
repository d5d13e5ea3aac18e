package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/royalbit/daneel/core/vector"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

// matchVectorsRPC is the name of the Postgres function DANEEL expects the
// operator to have installed (a pgvector `<=>` nearest-neighbor query
// wrapped as an RPC, since PostgREST has no native ANN operator). It takes
// (collection text, query_embedding vector, match_count int) and returns
// rows shaped like row.
const matchVectorsRPC = "match_vectors"

type row struct {
	ID        string         `json:"id"`
	Embedding []float64      `json:"embedding"`
	Payload   map[string]any `json:"payload"`
	Score     float64        `json:"score,omitempty"`
}

// SupabaseStore implements VectorStore against a Supabase/Postgres backend,
// grounded on core/deeptreeecho/supabase_persistence.go's client.From(...)
// chain in the teacher.
type SupabaseStore struct {
	client *supa.Client
}

// NewSupabaseStore connects to Supabase using the given URL/key, matching
// the teacher's NewSupabasePersistence construction.
func NewSupabaseStore(url, key string) (*SupabaseStore, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

func (s *SupabaseStore) Upsert(ctx context.Context, collection Collection, rec Record) error {
	r := row{ID: rec.ID, Embedding: []float64(rec.Vector), Payload: rec.Payload}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, _, err = s.client.From(string(collection)).Upsert(data, "id", "", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", collection, err)
	}
	return nil
}

func (s *SupabaseStore) Get(ctx context.Context, collection Collection, id string) (*Record, error) {
	data, _, err := s.client.From(string(collection)).
		Select("*", "", false).
		Eq("id", id).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s row: %w", collection, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return toRecord(rows[0]), nil
}

func (s *SupabaseStore) Delete(ctx context.Context, collection Collection, id string) error {
	_, _, err := s.client.From(string(collection)).Delete("", "").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	return nil
}

// KNN performs nearest-neighbor search via the match_vectors RPC. filter
// keys are passed through as additional RPC parameters verbatim; the
// installed function is responsible for applying them as payload
// predicates.
func (s *SupabaseStore) KNN(ctx context.Context, collection Collection, query vector.Vector, k int, filter map[string]any) ([]Record, error) {
	params := map[string]any{
		"collection":      string(collection),
		"query_embedding": []float64(query),
		"match_count":     k,
	}
	for key, val := range filter {
		params[key] = val
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal KNN params: %w", err)
	}

	resp := s.client.Rpc(matchVectorsRPC, "", string(paramsJSON))
	if resp == "" {
		return nil, nil
	}

	var rows []row
	if err := json.Unmarshal([]byte(resp), &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal KNN response: %w", err)
	}

	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, *toRecord(r))
	}
	return out, nil
}

func toRecord(r row) *Record {
	return &Record{ID: r.ID, Vector: vector.Vector(r.Embedding), Payload: r.Payload, Score: r.Score}
}

// orderDesc returns descending postgrest.OrderOpts, matching the teacher's
// postgrest.OrderOpts usage. Nothing in this package calls it (dream
// sampling goes through KNN), and column is not used.
func orderDesc(column string) *postgrest.OrderOpts {
	return &postgrest.OrderOpts{Ascending: false}
}
