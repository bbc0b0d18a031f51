package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"timeline-pipeline/config"
	"timeline-pipeline/store"
	"timeline-pipeline/types"
)

func testStages(n int) []types.StageSpec {
	stages := make([]types.StageSpec, n)
	for i := range stages {
		stages[i] = types.StageSpec{
			Index:           i,
			Title:           fmt.Sprintf("Stage %d", i),
			Explanation:     fmt.Sprintf("explanation %d", i),
			NarrationScript: fmt.Sprintf("narration %d", i),
			ImagePrompt:     fmt.Sprintf("prompt %d", i),
		}
	}
	return stages
}

func newTestGenerator(t *testing.T, speech SpeechService, image ImageService) (*Generator, *store.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Generation.MaxConcurrent = 2
	st := store.New(t.TempDir())
	if err := st.EnsureRun("run1"); err != nil {
		t.Fatalf("ensure run: %v", err)
	}
	return New(cfg, st, speech, image, fakeProber{dur: 4.2}), st
}

func TestGenerateAssetsSuccess(t *testing.T) {
	speech := &fakeSpeech{audio: []byte("mp3-bytes")}
	image := &fakeImage{img: []byte("jpg-bytes-long-enough")}
	gen, st := newTestGenerator(t, speech, image)

	results, err := gen.GenerateAssets(context.Background(), testStages(3), "run1", "en")
	if err != nil {
		t.Fatalf("GenerateAssets: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.StageIndex != i {
			t.Fatalf("result %d has stage index %d", i, r.StageIndex)
		}
		if r.AudioDurationSec != 4.2 {
			t.Fatalf("stage %d duration %v, want measured 4.2", i, r.AudioDurationSec)
		}
		if r.AudioPath != st.AudioPath("run1", i) {
			t.Fatalf("stage %d audio path %q", i, r.AudioPath)
		}
		for _, p := range []string{r.AudioPath, r.ImagePath} {
			info, err := os.Stat(p)
			if err != nil {
				t.Fatalf("stage %d asset missing: %v", i, err)
			}
			if info.Size() == 0 {
				t.Fatalf("stage %d asset empty: %s", i, p)
			}
		}
	}
}

func TestGenerateAssetsOneStageFails(t *testing.T) {
	speech := &fakeSpeech{audio: []byte("mp3-bytes"), failFor: map[string]bool{"narration 1": true}}
	image := &fakeImage{img: []byte("jpg-bytes-long-enough")}
	gen, st := newTestGenerator(t, speech, image)

	_, err := gen.GenerateAssets(context.Background(), testStages(3), "run1", "en")
	var age *types.AssetGenerationError
	if !errors.As(err, &age) {
		t.Fatalf("expected AssetGenerationError, got %v", err)
	}
	failed := age.FailedStages()
	if len(failed) != 1 || failed[0] != 1 {
		t.Fatalf("expected failed stages [1], got %v", failed)
	}

	// Sibling stages must have run to completion despite the failure.
	for _, i := range []int{0, 2} {
		if _, err := os.Stat(st.AudioPath("run1", i)); err != nil {
			t.Fatalf("stage %d audio should exist: %v", i, err)
		}
	}
	// All images were generated independently of the audio failure.
	for i := 0; i < 3; i++ {
		if _, err := os.Stat(st.ImagePath("run1", i)); err != nil {
			t.Fatalf("stage %d image should exist: %v", i, err)
		}
	}
}

func TestGenerateAssetsBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	track := func() func() {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		return func() { atomic.AddInt32(&inFlight, -1) }
	}

	speech := &fakeSpeech{audio: []byte("mp3-bytes"), onCall: track}
	image := &fakeImage{img: []byte("jpg-bytes-long-enough"), onCall: track}
	gen, _ := newTestGenerator(t, speech, image)

	if _, err := gen.GenerateAssets(context.Background(), testStages(8), "run1", "en"); err != nil {
		t.Fatalf("GenerateAssets: %v", err)
	}
	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Fatalf("peak concurrent remote calls %d exceeds configured max 2", got)
	}
}

func TestGenerateCoverFailureIsTolerated(t *testing.T) {
	speech := &fakeSpeech{audio: []byte("mp3-bytes")}
	image := &fakeImage{err: errors.New("quota exceeded")}
	gen, _ := newTestGenerator(t, speech, image)

	path, ok := gen.GenerateCover(context.Background(), "cover prompt", "run1")
	if ok || path != "" {
		t.Fatalf("expected cover failure to be tolerated, got %q %v", path, ok)
	}

	if _, ok := gen.GenerateCover(context.Background(), "", "run1"); ok {
		t.Fatal("empty cover prompt should not generate")
	}
}

// fakes

type fakeSpeech struct {
	mu      sync.Mutex
	audio   []byte
	failFor map[string]bool
	onCall  func() func()
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	if f.onCall != nil {
		done := f.onCall()
		defer done()
	}
	f.mu.Lock()
	fail := f.failFor[text]
	f.mu.Unlock()
	if fail {
		return nil, errors.New("tts unavailable")
	}
	return f.audio, nil
}

type fakeImage struct {
	img    []byte
	err    error
	onCall func() func()
}

func (f *fakeImage) Generate(_ context.Context, _ string) ([]byte, error) {
	if f.onCall != nil {
		done := f.onCall()
		defer done()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

type fakeProber struct {
	dur float64
}

func (f fakeProber) ProbeDuration(_ context.Context, _ string) (float64, error) {
	return f.dur, nil
}
