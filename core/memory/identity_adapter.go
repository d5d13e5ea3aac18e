package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/royalbit/daneel/core/identity"
)

// identityRecordID is the fixed key under which the single identity record
// lives in the identity collection (§3: "a single record").
const identityRecordID = "self"

// IdentityAdapter satisfies identity.Store on top of a VectorStore, storing
// the record as a vectorless payload in CollectionIdentity. This keeps
// core/identity free of any dependency on core/memory (§2 dependency
// order: Identity is constructed before the VectorStore's consumers).
type IdentityAdapter struct {
	store VectorStore
}

// NewIdentityAdapter wraps store for use as an identity.Store.
func NewIdentityAdapter(store VectorStore) *IdentityAdapter {
	return &IdentityAdapter{store: store}
}

func (a *IdentityAdapter) LoadIdentity(ctx context.Context) (*identity.Record, error) {
	rec, err := a.store.Get(ctx, CollectionIdentity, identityRecordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity record: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	raw, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal identity payload: %w", err)
	}

	var out identity.Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity record: %w", err)
	}
	return &out, nil
}

func (a *IdentityAdapter) SaveIdentity(ctx context.Context, r *identity.Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal identity record: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal identity payload: %w", err)
	}

	if err := a.store.Upsert(ctx, CollectionIdentity, Record{ID: identityRecordID, Payload: payload}); err != nil {
		return fmt.Errorf("failed to save identity record: %w", err)
	}
	return nil
}
