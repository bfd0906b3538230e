package ops

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/config"
	"github.com/hpungsan/timeless/internal/db"
	"github.com/hpungsan/timeless/internal/logging"
	"github.com/hpungsan/timeless/internal/store"
)

// testNow is the fixed clock used by ops tests.
var testNow = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	s := store.New(db.NewKV(database), store.Options{Logger: logging.Discard()})
	s.Load(context.Background())
	return s
}

func newTestBuilder(s *store.Store, gen *fakeGenerator) *Builder {
	return NewBuilder(s, gen, config.DefaultConfig(), logging.Discard()).
		WithClock(func() time.Time { return testNow })
}

// fakeGenerator is a configurable gateway.Generator.
type fakeGenerator struct {
	mu    sync.Mutex
	text  string
	image string
	song  string
	err   error

	// onCover runs inside GenerateCoverImage when set
	onCover func(ctx context.Context)

	coverCalls int
}

func (f *fakeGenerator) GenerateMessage(context.Context, string) (string, error) {
	return f.text, f.err
}

func (f *fakeGenerator) GenerateCoverImage(ctx context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.coverCalls++
	hook := f.onCover
	f.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
	return f.image, f.err
}

func (f *fakeGenerator) GenerateWelcomeSong(context.Context) (string, error) {
	return f.song, f.err
}

// mustCreate stores a capsule through the builder.
func mustCreate(t *testing.T, b *Builder, in CreateInput) *CreateOutput {
	t.Helper()
	out, err := b.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return out
}

func digitalInput(name, date string) CreateInput {
	return CreateInput{
		Method:         string(capsule.MethodDigital),
		RecipientName:  name,
		RecipientEmail: name + "@example.com",
		DeliveryDate:   date,
		Message:        "Hello " + name,
	}
}

func physicalInput(name, date string) CreateInput {
	return CreateInput{
		Method:           string(capsule.MethodPhysical),
		RecipientName:    name,
		RecipientAddress: "1 Main St, Springfield",
		DeliveryDate:     date,
		Message:          "Dear " + name,
	}
}
