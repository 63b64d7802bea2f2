package tracker

import (
	"encoding/json"
	"fmt"

	"github.com/fintrack-dev/fintrack/internal/model"
)

func metaJSON(meta model.Metadata) ([]byte, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	return raw, nil
}

func metaFromJSON(raw []byte) (*model.Metadata, error) {
	var meta model.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return &meta, nil
}

func snapshotJSON(snap *model.Snapshot) ([]byte, error) {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	return raw, nil
}
