package entity

import (
	"fmt"

	"archie-core-attribution-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
)

// DecodeRow converts a generic store row into a typed document
func DecodeRow(row ports.Row, out interface{}) error {
	raw, err := bson.Marshal(bson.M(row))
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}

// EncodeDoc converts a typed document into a generic store row
func EncodeDoc(doc interface{}) (ports.Row, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return ports.Row(m), nil
}
