package trackingid

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Prefix marks every tracking id minted by this service
const Prefix = "TRK"

// Generator mints random tracking ids of the form TRK<32 uppercase hex digits>
type Generator struct{}

// NewGenerator creates a new tracking id generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a fresh globally unique tracking id
func (g *Generator) Generate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate tracking id: %w", err)
	}
	return Prefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")), nil
}
