package history

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleAt(step int, price int64) Sample {
	return Sample{Time: testBase.Add(time.Duration(step) * time.Minute), Price: decimal.NewFromInt(price)}
}

func TestAppendEvictsOldest(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		if err := b.Append(sampleAt(i, int64(100+i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if b.Len() != 3 {
		t.Fatalf("len = %d, want 3", b.Len())
	}
	snap := b.Snapshot()
	for i, want := range []int64{102, 103, 104} {
		if !snap[i].Price.Equal(decimal.NewFromInt(want)) {
			t.Errorf("snapshot[%d].Price = %s, want %d", i, snap[i].Price, want)
		}
	}
	for i := 1; i < len(snap); i++ {
		if !snap[i].Time.After(snap[i-1].Time) {
			t.Errorf("snapshot[%d] not after snapshot[%d]", i, i-1)
		}
	}
}

func TestAppendRejectsStaleSample(t *testing.T) {
	b := NewBuffer(3)
	if err := b.Append(sampleAt(5, 100)); err != nil {
		t.Fatalf("append: %v", err)
	}
	for _, step := range []int{5, 4} {
		err := b.Append(sampleAt(step, 999))
		if !errors.Is(err, ErrStaleSample) {
			t.Fatalf("append step %d: err = %v, want ErrStaleSample", step, err)
		}
	}
	if b.Len() != 1 {
		t.Fatalf("len = %d, want 1", b.Len())
	}
	last, ok := b.Last()
	if !ok || !last.Price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("last = %v %v, want price 100", last, ok)
	}
}

func TestBulkLoadSeedsEmptyBuffer(t *testing.T) {
	b := NewBuffer(60)
	samples := make([]Sample, 60)
	for i := range samples {
		samples[i] = sampleAt(i, int64(i))
	}
	if err := b.BulkLoad(samples); err != nil {
		t.Fatalf("bulk load: %v", err)
	}
	if b.Len() != 60 {
		t.Fatalf("len = %d, want 60", b.Len())
	}
	if last, _ := b.Last(); !last.Price.Equal(decimal.NewFromInt(59)) {
		t.Fatalf("last price = %s, want 59", last.Price)
	}
}

func TestBulkLoadKeepsNewestWhenOverCapacity(t *testing.T) {
	b := NewBuffer(3)
	samples := make([]Sample, 10)
	for i := range samples {
		samples[i] = sampleAt(i, int64(i))
	}
	if err := b.BulkLoad(samples); err != nil {
		t.Fatalf("bulk load: %v", err)
	}
	snap := b.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	for i, want := range []int64{7, 8, 9} {
		if !snap[i].Price.Equal(decimal.NewFromInt(want)) {
			t.Errorf("snapshot[%d].Price = %s, want %d", i, snap[i].Price, want)
		}
	}
}

func TestBulkLoadFailsWhenPopulated(t *testing.T) {
	b := NewBuffer(3)
	if err := b.Append(sampleAt(0, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := b.BulkLoad([]Sample{sampleAt(1, 2), sampleAt(2, 3)})
	if !errors.Is(err, ErrAlreadyPopulated) {
		t.Fatalf("err = %v, want ErrAlreadyPopulated", err)
	}
	if b.Len() != 1 {
		t.Fatalf("len = %d, want 1 (buffer must be unchanged)", b.Len())
	}
}

func TestBulkLoadSkipsOutOfOrderSamples(t *testing.T) {
	b := NewBuffer(10)
	in := []Sample{sampleAt(0, 1), sampleAt(2, 2), sampleAt(2, 3), sampleAt(1, 4), sampleAt(3, 5)}
	if err := b.BulkLoad(in); err != nil {
		t.Fatalf("bulk load: %v", err)
	}
	snap := b.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	for i, want := range []int64{1, 2, 5} {
		if !snap[i].Price.Equal(decimal.NewFromInt(want)) {
			t.Errorf("snapshot[%d].Price = %s, want %d", i, snap[i].Price, want)
		}
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	b := NewBuffer(3)
	if err := b.Append(sampleAt(0, 100)); err != nil {
		t.Fatalf("append: %v", err)
	}
	snap := b.Snapshot()
	snap[0].Price = decimal.NewFromInt(-1)
	if last, _ := b.Last(); !last.Price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("buffer mutated through snapshot: last = %s", last.Price)
	}
}

func TestLastOnEmptyBuffer(t *testing.T) {
	b := NewBuffer(3)
	if _, ok := b.Last(); ok {
		t.Fatal("Last on empty buffer reported ok")
	}
	if got := b.Snapshot(); len(got) != 0 {
		t.Fatalf("snapshot of empty buffer has %d samples", len(got))
	}
}

func TestNewBufferDefaultCapacity(t *testing.T) {
	if got := NewBuffer(0).Cap(); got != DefaultCapacity {
		t.Fatalf("cap = %d, want %d", got, DefaultCapacity)
	}
	if got := NewBuffer(-5).Cap(); got != DefaultCapacity {
		t.Fatalf("cap = %d, want %d", got, DefaultCapacity)
	}
}
