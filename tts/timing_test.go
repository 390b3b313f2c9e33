package tts

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEstimateDuration(t *testing.T) {
	text := "one two three four five six seven eight nine ten"

	normal := EstimateDuration(text, 1.0)
	if normal < 3*time.Second || normal > 5*time.Second {
		t.Errorf("EstimateDuration() = %v, want about 4s", normal)
	}

	fast := EstimateDuration(text, 2.0)
	if fast >= normal {
		t.Errorf("double rate took %v, normal %v", fast, normal)
	}

	if d := EstimateDuration("", 1.0); d <= 0 {
		t.Errorf("empty text duration = %v, want positive", d)
	}
	if d := EstimateDuration(text, 0); d != normal {
		t.Errorf("zero rate = %v, want %v", d, normal)
	}
}

func TestEstimateWordTimings(t *testing.T) {
	text := `He said "stop." Then left.`
	total := 2 * time.Second

	timings := EstimateWordTimings(text, total)
	want := []struct {
		index, length int
	}{
		{0, 2},
		{3, 4},
		{9, 6},
		{16, 4},
		{21, 5},
	}

	if len(timings) != len(want) {
		t.Fatalf("got %d timings, want %d", len(timings), len(want))
	}

	for i, w := range want {
		if timings[i].CharIndex != w.index || timings[i].Length != w.length {
			t.Errorf("timing %d = %+v, want index %d length %d", i, timings[i], w.index, w.length)
		}
		if i > 0 && timings[i].Start <= timings[i-1].Start {
			t.Errorf("timing %d starts at %v, not after %v", i, timings[i].Start, timings[i-1].Start)
		}
		if timings[i].Start >= total {
			t.Errorf("timing %d starts at %v, past the total", i, timings[i].Start)
		}
	}

	if timings[0].Start != 0 {
		t.Errorf("first word starts at %v", timings[0].Start)
	}
	if got := EstimateWordTimings("   ", total); len(got) != 0 {
		t.Errorf("whitespace produced %d timings", len(got))
	}
}

func TestPaceWords(t *testing.T) {
	timings := []WordTiming{
		{Start: 0, CharIndex: 0, Length: 3},
		{Start: 100 * time.Millisecond, CharIndex: 4, Length: 3},
		{Start: 200 * time.Millisecond, CharIndex: 8, Length: 5},
	}

	t.Run("follows position", func(t *testing.T) {
		var pos atomic.Int64
		emitted := make(chan int, len(timings))
		errc := make(chan error, 1)

		go func() {
			errc <- PaceWords(context.Background(), timings,
				func() time.Duration { return time.Duration(pos.Load()) },
				nil,
				func(w WordTiming) { emitted <- w.CharIndex })
		}()

		if got := <-emitted; got != 0 {
			t.Fatalf("first word at %d, want 0", got)
		}
		select {
		case got := <-emitted:
			t.Fatalf("word %d emitted before its time", got)
		case <-time.After(50 * time.Millisecond):
		}

		pos.Store(int64(250 * time.Millisecond))
		for _, want := range []int{4, 8} {
			select {
			case got := <-emitted:
				if got != want {
					t.Errorf("word at %d, want %d", got, want)
				}
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for word")
			}
		}
		if err := <-errc; err != nil {
			t.Errorf("PaceWords() error = %v", err)
		}
	})

	t.Run("done flushes", func(t *testing.T) {
		done := make(chan struct{})
		close(done)

		var count int
		err := PaceWords(context.Background(), timings,
			func() time.Duration { return 0 },
			done,
			func(WordTiming) { count++ })
		if err != nil {
			t.Errorf("PaceWords() error = %v", err)
		}
		if count != len(timings) {
			t.Errorf("emitted %d words, want %d", count, len(timings))
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var count int
		err := PaceWords(ctx, timings,
			func() time.Duration { return 0 },
			nil,
			func(WordTiming) { count++ })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("PaceWords() error = %v, want context.Canceled", err)
		}
		if count != 1 {
			t.Errorf("emitted %d words, want 1", count)
		}
	})
}
