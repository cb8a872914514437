package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// fakeSequences reproduces the counter contract in memory: one mutex per
// repository standing in for the row lock, seed invoked only on first use
// of a partition.
type fakeSequences struct {
	mu     sync.Mutex
	values map[string]int64
	seeded map[string]bool
}

func newFakeSequences() *fakeSequences {
	return &fakeSequences{values: map[string]int64{}, seeded: map[string]bool{}}
}

func (f *fakeSequences) Next(ctx context.Context, key string, seed repository.SeedFunc) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.seeded[key] {
		f.seeded[key] = true
		if seed != nil {
			base, err := seed(ctx)
			if err != nil {
				return 0, err
			}
			f.values[key] = base
		}
	}
	f.values[key]++
	return f.values[key], nil
}

type fakeScanner struct {
	max      int64
	prefixes []string
}

func (f *fakeScanner) MaxKeySuffix(ctx context.Context, prefix string) (int64, error) {
	f.prefixes = append(f.prefixes, prefix)
	return f.max, nil
}

var january2025 = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

func newTestBuilder(sequences repository.SequenceRepository, conversations, customers KeyScanner) *Builder {
	return NewBuilder(sequences, DefaultCodeTable(), conversations, customers)
}

func TestNextConversationKeyFormatAndMonotonicity(t *testing.T) {
	builder := newTestBuilder(newFakeSequences(), &fakeScanner{}, &fakeScanner{})

	want := []string{"TKT-2501-001", "TKT-2501-002", "TKT-2501-003"}
	for _, expected := range want {
		key, err := builder.NextConversationKey(context.Background(), january2025)
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if key != expected {
			t.Fatalf("got %s, want %s", key, expected)
		}
	}
}

func TestNextConversationKeyMonthPartitions(t *testing.T) {
	builder := newTestBuilder(newFakeSequences(), &fakeScanner{}, &fakeScanner{})

	if key, _ := builder.NextConversationKey(context.Background(), january2025); key != "TKT-2501-001" {
		t.Fatalf("january: got %s", key)
	}
	february := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	if key, _ := builder.NextConversationKey(context.Background(), february); key != "TKT-2502-001" {
		t.Fatalf("new month must restart sequence, got %s", key)
	}
	if key, _ := builder.NextConversationKey(context.Background(), january2025); key != "TKT-2501-002" {
		t.Fatalf("old partition must keep counting, got %s", key)
	}
}

func TestNextConversationKeySeedsFromLegacyKeys(t *testing.T) {
	scanner := &fakeScanner{max: 41}
	builder := newTestBuilder(newFakeSequences(), scanner, &fakeScanner{})

	key, err := builder.NextConversationKey(context.Background(), january2025)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if key != "TKT-2501-042" {
		t.Fatalf("expected continuation past legacy maximum, got %s", key)
	}
	if len(scanner.prefixes) != 1 || scanner.prefixes[0] != "TKT-2501-" {
		t.Fatalf("unexpected scan prefixes: %v", scanner.prefixes)
	}

	// Second mint hits the counter, not the scanner.
	if _, err := builder.NextConversationKey(context.Background(), january2025); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if len(scanner.prefixes) != 1 {
		t.Fatalf("steady-state mint must not scan, got %v", scanner.prefixes)
	}
}

func TestNextConversationKeyConcurrentMintsAreDistinct(t *testing.T) {
	builder := newTestBuilder(newFakeSequences(), &fakeScanner{}, &fakeScanner{})

	const n = 50
	keys := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := builder.NextConversationKey(context.Background(), january2025)
			if err != nil {
				t.Errorf("mint: %v", err)
				return
			}
			keys <- key
		}()
	}
	wg.Wait()
	close(keys)

	seen := map[string]bool{}
	for key := range keys {
		if seen[key] {
			t.Fatalf("duplicate key %s", key)
		}
		seen[key] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct keys, got %d", n, len(seen))
	}
}

func TestNextCustomerKeyEmbedsCodes(t *testing.T) {
	builder := newTestBuilder(newFakeSequences(), &fakeScanner{}, &fakeScanner{})

	key, err := builder.NextCustomerKey(context.Background(), "billing", "X-200", january2025)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if key != "CUST-2501-BIL-X20-001" {
		t.Fatalf("got %s", key)
	}
}

func TestNextCustomerKeyPartitionsByCodes(t *testing.T) {
	builder := newTestBuilder(newFakeSequences(), &fakeScanner{}, &fakeScanner{})

	first, _ := builder.NextCustomerKey(context.Background(), "billing", "X-200", january2025)
	second, _ := builder.NextCustomerKey(context.Background(), "technical", "X-200", january2025)
	third, _ := builder.NextCustomerKey(context.Background(), "billing", "X-200", january2025)

	if first != "CUST-2501-BIL-X20-001" || second != "CUST-2501-TEC-X20-001" || third != "CUST-2501-BIL-X20-002" {
		t.Fatalf("unexpected keys: %s %s %s", first, second, third)
	}
}

func TestNextCustomerKeyUnknownCategoryFallsBack(t *testing.T) {
	builder := newTestBuilder(newFakeSequences(), &fakeScanner{}, &fakeScanner{})

	key, err := builder.NextCustomerKey(context.Background(), "kayaks", "", january2025)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if key != "CUST-2501-GEN-GEN-001" {
		t.Fatalf("got %s", key)
	}
}
