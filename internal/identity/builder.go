package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// KeyScanner reports the largest trailing numeric suffix among existing
// identifiers sharing a prefix. It only feeds first-use counter seeding;
// steady-state minting never scans.
type KeyScanner interface {
	MaxKeySuffix(ctx context.Context, prefix string) (int64, error)
}

// Builder mints the externally visible conversation and customer keys.
// Key generation sits on the critical path of ticket creation: any error
// here must fail the request, because an unidentified ticket is not a
// valid state.
type Builder struct {
	sequences     repository.SequenceRepository
	codes         CodeTable
	conversations KeyScanner
	customers     KeyScanner
}

// NewBuilder constructs the builder.
func NewBuilder(sequences repository.SequenceRepository, codes CodeTable, conversations, customers KeyScanner) *Builder {
	return &Builder{
		sequences:     sequences,
		codes:         codes,
		conversations: conversations,
		customers:     customers,
	}
}

// NextConversationKey mints TKT-<YYMM>-<SEQ3>, sequence unique within the
// month partition.
func (b *Builder) NextConversationKey(ctx context.Context, now time.Time) (string, error) {
	prefix := "TKT-" + yearMonth(now)
	seq, err := b.sequences.Next(ctx, prefix, b.seedFrom(b.conversations, prefix+"-"))
	if err != nil {
		return "", fmt.Errorf("next conversation sequence for %s: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%03d", prefix, seq), nil
}

// NextCustomerKey mints CUST-<YYMM>-<CAT>-<PROD>-<SEQ3>, sequence unique
// within the (month, category, product) partition.
func (b *Builder) NextCustomerKey(ctx context.Context, category, productModel string, now time.Time) (string, error) {
	prefix := fmt.Sprintf("CUST-%s-%s-%s", yearMonth(now), b.codes.CategoryCode(category), b.codes.ProductCode(productModel))
	seq, err := b.sequences.Next(ctx, prefix, b.seedFrom(b.customers, prefix+"-"))
	if err != nil {
		return "", fmt.Errorf("next customer sequence for %s: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%03d", prefix, seq), nil
}

// seedFrom adapts a key scanner into a counter seed for partitions that
// predate the counter table. Legacy keys with embedded codes count too:
// the scan takes the numeric value of the last dash segment only.
func (b *Builder) seedFrom(scanner KeyScanner, prefix string) repository.SeedFunc {
	if scanner == nil {
		return nil
	}
	return func(ctx context.Context) (int64, error) {
		return scanner.MaxKeySuffix(ctx, prefix)
	}
}

func yearMonth(now time.Time) string {
	return now.Format("0601")
}
