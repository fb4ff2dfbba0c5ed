package retriever

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/babelcloud/mediaprobe/internal/mediatest"
	"github.com/babelcloud/mediaprobe/pkg/future"
	"github.com/babelcloud/mediaprobe/pkg/media"
	"github.com/babelcloud/mediaprobe/pkg/resolver"
)

const waitTimeout = 5 * time.Second

func get(t *testing.T, f *future.Future[media.TrackGroupArray]) (media.TrackGroupArray, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	groups, err := f.Get(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "retrieval did not finish")
	return groups, err
}

// memResolver serves in-memory streams and keeps them for inspection.
type memResolver struct {
	mu      sync.Mutex
	data    map[string][]byte
	stalls  int
	streams []*mediatest.Stream
}

func newMemResolver() *memResolver {
	return &memResolver{data: make(map[string][]byte)}
}

func (m *memResolver) add(name string, data []byte) media.Reference {
	m.data[name] = data
	return media.MustParseReference("mem:///" + name)
}

func (m *memResolver) Open(ctx context.Context, ref media.Reference) (resolver.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[ref.Path()[1:]]
	if !ok {
		return nil, resolver.ErrNotFound
	}
	s := mediatest.NewStream(data).Stall(m.stalls)
	m.streams = append(m.streams, s)
	return s, nil
}

func (m *memResolver) opened() []*mediatest.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*mediatest.Stream(nil), m.streams...)
}

func newMemRetriever(res *memResolver, opts ...Option) *Retriever {
	mux := resolver.NewMux()
	mux.Handle("mem", res)
	return New(append([]Option{WithResolver(mux)}, opts...)...)
}

func TestRetrieveVideoAndAudio(t *testing.T) {
	path := mediatest.WriteFile(t, "sample.mp4", mediatest.MP4(t))

	groups, err := get(t, New().Retrieve(context.Background(), media.MustParseReference(path)))
	require.NoError(t, err)
	require.Equal(t, 2, groups.Len())
	assert.Equal(t, media.VideoH264, groups.Get(0).Format(0).SampleMIMEType)
	assert.Equal(t, media.AudioAAC, groups.Get(1).Format(0).SampleMIMEType)
}

func TestRetrieveMotionPhoto(t *testing.T) {
	data, expected := mediatest.MotionPhotoHEIC(t)
	path := mediatest.WriteFile(t, "sample_MP.heic", data)

	groups, err := get(t, New().RetrieveURI(context.Background(), "file://"+path))
	require.NoError(t, err)
	require.Equal(t, 1, groups.Len())

	md := groups.Get(0).Format(0).Metadata
	require.Equal(t, 1, md.Len())
	assert.Equal(t, expected, md.Get(0))
}

func TestRetrieveStillImage(t *testing.T) {
	path := mediatest.WriteFile(t, "sample_still_photo.heic", mediatest.HEIC(t))

	groups, err := get(t, New().Retrieve(context.Background(), media.MustParseReference(path)))
	require.NoError(t, err)
	require.Equal(t, 1, groups.Len())
	assert.Nil(t, groups.Get(0).Format(0).Metadata)
}

func TestRetrieveFromAssets(t *testing.T) {
	path := mediatest.WriteFile(t, "clip.mp3", mediatest.MP3(nil, 3))
	mux := resolver.Default(filepath.Dir(path))

	groups, err := get(t, New(WithResolver(mux)).RetrieveURI(context.Background(), "asset:///clip.mp3"))
	require.NoError(t, err)
	require.Equal(t, 1, groups.Len())
	assert.Equal(t, media.AudioMPEG, groups.Get(0).Format(0).SampleMIMEType)
}

func TestRetrieveFailures(t *testing.T) {
	truncated := mediatest.MP4(t)[:64]
	tests := []struct {
		name     string
		data     []byte
		expected error
		kind     Kind
	}{
		{name: "missing", data: nil, expected: ErrResourceOpen, kind: KindResourceOpen},
		{name: "unrecognized", data: []byte("definitely not a media file"), expected: ErrFormatUnrecognized, kind: KindFormatUnrecognized},
		{name: "empty", data: []byte{}, expected: ErrFormatUnrecognized, kind: KindFormatUnrecognized},
		{name: "truncated", data: truncated, expected: ErrMalformedContainer, kind: KindMalformedContainer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newMemResolver()
			ref := media.MustParseReference("mem:///missing")
			if tt.data != nil {
				ref = res.add(tt.name, tt.data)
			}

			_, err := get(t, newMemRetriever(res).Retrieve(context.Background(), ref))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, tt.kind, KindOf(err))
			for _, s := range res.opened() {
				assert.True(t, s.Closed(), "stream is released on failure")
			}
		})
	}
}

func TestRetrieveNonexistentFile(t *testing.T) {
	ref := media.MustParseReference(filepath.Join(t.TempDir(), "nonexistent.mp4"))
	_, err := get(t, New().Retrieve(context.Background(), ref))
	assert.ErrorIs(t, err, ErrResourceOpen)
	assert.ErrorIs(t, err, resolver.ErrNotFound)
}

func TestRetrieveURIInvalid(t *testing.T) {
	f := New().RetrieveURI(context.Background(), "")
	require.True(t, f.IsDone())
	_, err := f.Result()
	assert.ErrorIs(t, err, ErrResourceOpen)
}

func TestStateTransitions(t *testing.T) {
	res := newMemResolver()
	good := res.add("good.mp4", mediatest.MP4(t))
	bad := res.add("bad.bin", []byte("garbage input"))

	tests := []struct {
		name     string
		ref      media.Reference
		expected []State
	}{
		{name: "completed", ref: good, expected: []State{StateOpening, StateProbing, StateExtracting, StateCompleted}},
		{name: "unrecognized", ref: bad, expected: []State{StateOpening, StateProbing, StateFailed}},
		{name: "missing", ref: media.MustParseReference("mem:///none"), expected: []State{StateOpening, StateFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []State
			from := StateCreated
			hook := func(taskID string, ref media.Reference, f, to State) {
				assert.NotEmpty(t, taskID)
				assert.Equal(t, tt.ref, ref)
				assert.Equal(t, from, f)
				from = to
				got = append(got, to)
			}
			_, _ = get(t, newMemRetriever(res, WithStateHook(hook)).Retrieve(context.Background(), tt.ref))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRetrieveReleasesStream(t *testing.T) {
	res := newMemResolver()
	ref := res.add("a.mp4", mediatest.MP4(t))

	_, err := get(t, newMemRetriever(res).Retrieve(context.Background(), ref))
	require.NoError(t, err)
	streams := res.opened()
	require.Len(t, streams, 1)
	assert.True(t, streams[0].Closed())
}

func TestRetrieveRetriesOnClock(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	res := newMemResolver()
	res.stalls = 2
	ref := res.add("a.mp4", mediatest.MP4(t))

	f := newMemRetriever(res, WithClock(clk), WithRetryDelay(time.Second)).Retrieve(context.Background(), ref)
	for i := 0; i < 2; i++ {
		require.Eventually(t, clk.HasWaiters, waitTimeout, time.Millisecond)
		assert.False(t, f.IsDone())
		clk.Step(time.Second)
	}

	groups, err := get(t, f)
	require.NoError(t, err)
	assert.Equal(t, 2, groups.Len())
}

func TestCancelBeforeStart(t *testing.T) {
	res := newMemResolver()
	ref := res.add("a.mp4", mediatest.MP4(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := get(t, newMemRetriever(res).Retrieve(ctx, ref))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, res.opened())
}

func TestCancelWhileWaiting(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	res := newMemResolver()
	res.stalls = 1000
	ref := res.add("a.mp4", mediatest.MP4(t))
	ctx, cancel := context.WithCancel(context.Background())

	var states []State
	hook := func(_ string, _ media.Reference, _, to State) { states = append(states, to) }
	f := newMemRetriever(res, WithClock(clk), WithStateHook(hook)).Retrieve(ctx, ref)
	require.Eventually(t, clk.HasWaiters, waitTimeout, time.Millisecond)

	cancel()
	_, err := get(t, f)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StateFailed, states[len(states)-1])

	streams := res.opened()
	require.Len(t, streams, 1)
	assert.True(t, streams[0].Closed())
	assert.False(t, clk.HasWaiters(), "pending retry is dropped")
}

func TestConcurrentRetrievalsAreIndependent(t *testing.T) {
	res := newMemResolver()
	motion, _ := mediatest.MotionPhotoHEIC(t)
	inputs := []struct {
		data   []byte
		groups int
		mime   string
	}{
		{data: mediatest.MP4(t), groups: 2, mime: media.VideoH264},
		{data: mediatest.HEIC(t), groups: 1, mime: media.ImageHEIC},
		{data: motion, groups: 1, mime: media.ImageHEIC},
		{data: mediatest.MP3(nil, 3), groups: 1, mime: media.AudioMPEG},
		{data: mediatest.ADTS(t, 44100, 2, 3), groups: 1, mime: media.AudioAAC},
		{data: mediatest.WebM(t), groups: 2, mime: media.VideoVP8},
	}
	refs := make([]media.Reference, len(inputs))
	for i, in := range inputs {
		refs[i] = res.add(fmt.Sprintf("in%d", i), in.data)
	}
	r := newMemRetriever(res)

	futures := make([]*future.Future[media.TrackGroupArray], 0, 3*len(inputs))
	for round := 0; round < 3; round++ {
		for _, ref := range refs {
			futures = append(futures, r.Retrieve(context.Background(), ref))
		}
	}

	for i, f := range futures {
		in := inputs[i%len(inputs)]
		groups, err := get(t, f)
		require.NoError(t, err)
		require.Equal(t, in.groups, groups.Len())
		assert.Equal(t, in.mime, groups.Get(0).Format(0).SampleMIMEType)
	}
}

func TestRetrieveIsIdempotent(t *testing.T) {
	path := mediatest.WriteFile(t, "sample.mp4", mediatest.MP4(t))
	ref := media.MustParseReference(path)
	r := New()

	first, err := get(t, r.Retrieve(context.Background(), ref))
	require.NoError(t, err)
	second, err := get(t, r.Retrieve(context.Background(), ref))
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestTwoListenersObserveSameValue(t *testing.T) {
	path := mediatest.WriteFile(t, "sample.mp4", mediatest.MP4(t))
	f := New().Retrieve(context.Background(), media.MustParseReference(path))

	results := make(chan media.TrackGroupArray, 2)
	for i := 0; i < 2; i++ {
		f.AddListener(func(groups media.TrackGroupArray, err error) {
			assert.NoError(t, err)
			results <- groups
		})
	}

	var got []media.TrackGroupArray
	for i := 0; i < 2; i++ {
		select {
		case g := <-results:
			got = append(got, g)
		case <-time.After(waitTimeout):
			t.Fatal("listener was not called")
		}
	}
	assert.True(t, got[0].Equal(got[1]))
	assert.Equal(t, 2, got[0].Len())
}

func TestPackageRetrieve(t *testing.T) {
	path := mediatest.WriteFile(t, "clip.aac", mediatest.ADTS(t, 44100, 2, 3))
	groups, err := get(t, Retrieve(context.Background(), media.MustParseReference(path)))
	require.NoError(t, err)
	assert.Equal(t, 1, groups.Len())
}

func TestErrorKinds(t *testing.T) {
	err := newError(KindMalformedContainer, "a.mp4", fmt.Errorf("bad box"))
	assert.ErrorIs(t, err, ErrMalformedContainer)
	assert.NotErrorIs(t, err, ErrResourceOpen)
	assert.Equal(t, KindMalformedContainer, KindOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, Kind(0), KindOf(fmt.Errorf("other")))
	assert.Equal(t, "retrieve a.mp4: malformed_container: bad box", err.Error())
	assert.Equal(t, "cancelled", KindCancelled.String())
	assert.True(t, StateCompleted.Terminal())
	assert.False(t, StateExtracting.Terminal())
}

func TestFailureLogOmitsStackTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	res := newMemResolver()
	ref := res.add("junk", []byte("definitely not a media file"))
	_, err := get(t, newMemRetriever(res, WithLogger(logger)).Retrieve(context.Background(), ref))
	require.ErrorIs(t, err, ErrFormatUnrecognized)

	out := buf.String()
	assert.Contains(t, out, "Retrieval failed")
	assert.Contains(t, out, "kind=format_unrecognized")
	assert.NotContains(t, out, ".go:", "stack trace leaked into log line")
}
