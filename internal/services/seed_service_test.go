package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"txdash/internal/amqp"
	"txdash/internal/core"
	"txdash/internal/seed"
	"txdash/internal/storage/memory"
	"txdash/internal/storage/storetest"
)

type fakeSource struct {
	records []seed.Record
	err     error
	calls   atomic.Int32
	started chan struct{}
	gate    chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context) ([]seed.Record, error) {
	if f.calls.Add(1) == 1 && f.started != nil {
		close(f.started)
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.records, f.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.DatasetInitializedMessage
	err  error
}

func (p *recordingPublisher) PublishDatasetInitialized(_ context.Context, msg *amqp.DatasetInitializedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func records() []seed.Record {
	return []seed.Record{
		{ID: 1, Title: "Shirt", Price: "50", Category: "A", Sold: true, DateOfSale: "2022-03-02T12:00:00Z"},
		{ID: 2, Title: "Jacket", Price: "150", Category: "B", DateOfSale: "2021-03-20T17:30:00+05:30"},
		{ID: 3, Title: "Broken", Price: "", Category: "A", DateOfSale: "2022-04-01T00:00:00Z"},
		{ID: 4, Title: "Hat", Price: "50", Category: "A", Sold: true, DateOfSale: "2022-04-01T12:00:00Z"},
	}
}

func TestSeedService_Initialize(t *testing.T) {
	store := memory.New(storetest.Fake(1, 40))
	pub := &recordingPublisher{}
	svc := NewSeedService(&fakeSource{records: records()}, store, pub)
	ctx := context.Background()

	res, err := svc.Initialize(ctx)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if res.Inserted != 3 || res.Skipped != 1 || res.Source != "fake" {
		t.Errorf("result = %+v, want 3 inserted, 1 skipped from fake", res)
	}

	// The 40 fake records are gone.
	n, _ := store.Count(ctx)
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	stats, _ := store.Statistics(ctx, 3)
	if stats != (core.Statistics{TotalSales: 200, SoldCount: 1, UnsoldCount: 1}) {
		t.Errorf("march statistics = %+v", stats)
	}

	if len(pub.msgs) != 1 || pub.msgs[0].Inserted != 3 || pub.msgs[0].Skipped != 1 {
		t.Errorf("published = %+v", pub.msgs)
	}
}

func TestSeedService_InitializeIsIdempotent(t *testing.T) {
	store := memory.New(nil)
	svc := NewSeedService(&fakeSource{records: records()}, store, nil)
	ctx := context.Background()

	if _, err := svc.Initialize(ctx); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	first, _ := store.ListTransactions(ctx, core.ListQuery{PerPage: 100})
	if _, err := svc.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	second, _ := store.ListTransactions(ctx, core.ListQuery{PerPage: 100})

	if first.Total != second.Total || len(first.Items) != len(second.Items) {
		t.Fatalf("record sets differ: %d vs %d", first.Total, second.Total)
	}
	for i := range first.Items {
		if first.Items[i] != second.Items[i] {
			t.Errorf("item %d differs: %+v vs %+v", i, first.Items[i], second.Items[i])
		}
	}
}

func TestSeedService_FailuresLeaveStoreUntouched(t *testing.T) {
	errUpstream := errors.New("upstream down")
	tests := []struct {
		name    string
		source  *fakeSource
		wantErr error
	}{
		{"fetch error", &fakeSource{err: errUpstream}, errUpstream},
		{"empty dataset", &fakeSource{records: []seed.Record{}}, ErrEmptyDataset},
		{"nothing valid", &fakeSource{records: []seed.Record{{ID: 1, Price: "x"}}}, ErrEmptyDataset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New(storetest.Scenario())
			pub := &recordingPublisher{}
			svc := NewSeedService(tt.source, store, pub)

			_, err := svc.Initialize(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if n, _ := store.Count(context.Background()); n != 3 {
				t.Errorf("count = %d, want the previous 3", n)
			}
			if len(pub.msgs) != 0 {
				t.Errorf("failed run published %d events", len(pub.msgs))
			}
		})
	}
}

func TestSeedService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	svc := NewSeedService(&fakeSource{records: records()}, memory.New(nil), pub)

	if _, err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Errorf("publish attempts = %d, want 1", len(pub.msgs))
	}
}

func TestSeedService_ConcurrentCallsShareOneRun(t *testing.T) {
	src := &fakeSource{
		records: records(),
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	svc := NewSeedService(src, memory.New(nil), nil)

	const callers = 8
	results := make([]InitializeResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Initialize(context.Background())
		}(i)
	}

	<-src.started
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	shared := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].Inserted != 3 {
			t.Errorf("caller %d inserted %d, want 3", i, results[i].Inserted)
		}
		if results[i].Shared {
			shared++
		}
	}
	if calls := src.calls.Load(); calls >= callers {
		t.Errorf("fetches = %d, want fewer than %d", calls, callers)
	}
	if shared == 0 {
		t.Error("no caller shared a run")
	}
}

func TestSeedService_CallerCancellation(t *testing.T) {
	src := &fakeSource{records: records(), gate: make(chan struct{})}
	store := memory.New(nil)
	svc := NewSeedService(src, store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := svc.Initialize(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want DeadlineExceeded", err)
	}

	// The detached run still completes once the source answers.
	close(src.gate)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := store.Count(context.Background()); n == 3 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("detached initialization did not complete")
}

func TestSeedService_InitializeIfEmpty(t *testing.T) {
	ctx := context.Background()

	populated := NewSeedService(&fakeSource{records: records()}, memory.New(storetest.Scenario()), nil)
	ran, _, err := populated.InitializeIfEmpty(ctx)
	if err != nil || ran {
		t.Errorf("populated store: ran=%v err=%v, want no run", ran, err)
	}

	src := &fakeSource{records: records()}
	empty := NewSeedService(src, memory.New(nil), nil)
	ran, res, err := empty.InitializeIfEmpty(ctx)
	if err != nil || !ran || res.Inserted != 3 {
		t.Errorf("empty store: ran=%v res=%+v err=%v", ran, res, err)
	}
}
