package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/localstore"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/store"
)

type fakeRemote struct {
	mu        sync.Mutex
	userNames []string
	upserts   [][]store.EntryRow
	deletes   [][]string

	upsertErr error
	failChunk int // index of the delete call that fails, -1 for none

	started chan struct{}
	release chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{failChunk: -1}
}

func (f *fakeRemote) EnsureUser(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userNames = append(f.userNames, name)
	return "user-1", nil
}

func (f *fakeRemote) UpsertEntries(_ context.Context, rows []store.EntryRow) error {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, rows)
	return nil
}

func (f *fakeRemote) DeleteEntries(_ context.Context, ids []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.deletes)
	f.deletes = append(f.deletes, ids)
	if call == f.failChunk {
		return 0, errors.New("request too large")
	}
	return int64(len(ids)), nil
}

func (f *fakeRemote) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

type recorder struct {
	events []models.Activity
}

func (r *recorder) Publish(_ context.Context, a models.Activity) error {
	r.events = append(r.events, a)
	return nil
}

func seed(t *testing.T, local localstore.Store, buffer string) {
	t.Helper()
	require.NoError(t, local.Set(context.Background(), localstore.KeyEntries, buffer))
}

func bufferIDs(t *testing.T, local localstore.Store) []string {
	t.Helper()
	var items []models.JournalEntry
	_, err := localstore.GetJSON(context.Background(), local, localstore.KeyEntries, &items)
	require.NoError(t, err)
	ids := make([]string, 0, len(items))
	for _, e := range items {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestSyncRegeneratesInvalidID(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	remote := newFakeRemote()
	seed(t, local, `[{"id":"bad-id","date":"2024-01-01","emotion":"無価値感","selfEsteemScore":70,"worthlessnessScore":30}]`)

	svc := New(local, remote, Options{UserName: "hana"})
	require.True(t, svc.Sync(ctx))

	require.Len(t, remote.upserts, 1)
	require.Len(t, remote.upserts[0], 1)
	row := remote.upserts[0][0]
	_, err := uuid.Parse(row.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "bad-id", row.ID)
	assert.Equal(t, 70, row.SelfEsteemScore)
	assert.Equal(t, 30, row.WorthlessnessScore)
	assert.Equal(t, "user-1", row.UserID)
	assert.Equal(t, []string{"hana"}, remote.userNames)

	// regenerated id is written back, so the next sync has nothing to push
	assert.Equal(t, []string{row.ID}, bufferIDs(t, local))
	require.True(t, svc.Sync(ctx))
	assert.Len(t, remote.upserts, 1)

	st := svc.Status(ctx)
	assert.Equal(t, 1, st.Processed)
	assert.NotNil(t, st.LastSync)
	assert.Empty(t, st.LastError)
}

func TestSyncRegeneratedIDStableWithinBatch(t *testing.T) {
	local := localstore.NewMemory()
	remote := newFakeRemote()
	seed(t, local, `[
		{"id":"x","date":"2024-01-01","emotion":"怒り","event":"first"},
		{"id":"y","date":"2024-01-02","emotion":"幸せ"},
		{"id":"x","date":"2024-01-01","emotion":"怒り","event":"second"}
	]`)

	svc := New(local, remote, Options{UserName: "hana"})
	require.True(t, svc.Sync(context.Background()))

	rows := remote.upserts[0]
	require.Len(t, rows, 2)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
	assert.Equal(t, "second", rows[0].Event)

	ids := bufferIDs(t, local)
	assert.Equal(t, ids[0], ids[2])
	assert.Equal(t, rows[0].ID, ids[0])
}

func TestSyncDropsIncompleteAndDefaultsScores(t *testing.T) {
	local := localstore.NewMemory()
	remote := newFakeRemote()
	id := uuid.NewString()
	seed(t, local, fmt.Sprintf(`[
		{"id":%q,"date":"2024-01-01","emotion":"恐怖","unknownField":1},
		{"id":"","date":"2024-01-01","emotion":"恐怖"},
		{"id":"no-date","emotion":"恐怖"},
		{"id":"no-emotion","date":"2024-01-01"}
	]`, id))

	svc := New(local, remote, Options{UserName: "hana"})
	require.True(t, svc.Sync(context.Background()))

	rows := remote.upserts[0]
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.Equal(t, models.DefaultScore, rows[0].SelfEsteemScore)
	assert.Equal(t, models.DefaultScore, rows[0].WorthlessnessScore)
	assert.False(t, rows[0].CreatedAt.IsZero())
}

func TestSyncWhileInFlight(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	remote := newFakeRemote()
	remote.started = make(chan struct{})
	remote.release = make(chan struct{})
	seed(t, local, fmt.Sprintf(`[{"id":%q,"date":"2024-01-01","emotion":"感謝"}]`, uuid.NewString()))

	svc := New(local, remote, Options{UserName: "hana"})

	done := make(chan bool)
	go func() { done <- svc.Sync(ctx) }()
	<-remote.started

	assert.True(t, svc.Status(ctx).InFlight)
	assert.False(t, svc.Sync(ctx))
	assert.False(t, svc.TriggerManualSync(ctx))
	assert.Empty(t, svc.Status(ctx).LastError)

	close(remote.release)
	assert.True(t, <-done)
	assert.Equal(t, 1, remote.upsertCount())
	assert.False(t, svc.Status(ctx).InFlight)
}

func TestSyncFailureKeepsLocalBuffer(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	remote := newFakeRemote()
	remote.upsertErr = errors.New("connection refused")
	seed(t, local, `[{"id":"bad-id","date":"2024-01-01","emotion":"悲しみ"}]`)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := New(local, remote, Options{UserName: "hana", Metrics: metrics})

	assert.False(t, svc.Sync(ctx))
	st := svc.Status(ctx)
	assert.Contains(t, st.LastError, "connection refused")
	assert.Zero(t, st.Processed)
	assert.Nil(t, st.LastSync)
	assert.Equal(t, []string{"bad-id"}, bufferIDs(t, local))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Syncs.WithLabelValues(resultFailed)))

	remote.upsertErr = nil
	assert.True(t, svc.Sync(ctx))
	assert.Empty(t, svc.Status(ctx).LastError)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Upserted))
}

func TestSyncMalformedBuffer(t *testing.T) {
	local := localstore.NewMemory()
	seed(t, local, `{"not":"a list"`)

	svc := New(local, newFakeRemote(), Options{UserName: "hana"})
	assert.False(t, svc.Sync(context.Background()))
	assert.NotEmpty(t, svc.Status(context.Background()).LastError)
}

func TestSyncNeedsUserName(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	remote := newFakeRemote()
	svc := New(local, remote, Options{})

	assert.False(t, svc.Sync(ctx))
	assert.Contains(t, svc.Status(ctx).LastError, "no user name")

	require.NoError(t, local.Set(ctx, localstore.KeyUserName, "sora"))
	assert.True(t, svc.Sync(ctx))
	assert.Equal(t, []string{"sora"}, remote.userNames)
}

func TestLocalOnlyMode(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	seed(t, local, `[{"id":"a","date":"2024-01-01","emotion":"幸せ"},{"id":"b","date":"2024-01-02","emotion":"幸せ"}]`)

	svc := New(local, nil, Options{UserName: "hana"})
	assert.True(t, svc.LocalOnly())
	assert.False(t, svc.Sync(ctx))
	st := svc.Status(ctx)
	assert.True(t, st.LocalOnly)
	assert.Empty(t, st.LastError)

	report, err := svc.DeleteMany(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Requested)
	assert.Zero(t, report.Chunks)
	assert.Equal(t, []string{"b"}, bufferIDs(t, local))
}

func TestTriggerManualSyncResendsEverything(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	remote := newFakeRemote()
	pub := &recorder{}
	seed(t, local, fmt.Sprintf(`[{"id":%q,"date":"2024-01-01","emotion":"達成感"},{"id":%q,"date":"2024-01-02","emotion":"嬉しい"}]`,
		uuid.NewString(), uuid.NewString()))

	svc := New(local, remote, Options{UserName: "hana", Publisher: pub})
	require.True(t, svc.Sync(ctx))
	require.True(t, svc.Sync(ctx))
	assert.Equal(t, 1, remote.upsertCount())

	require.True(t, svc.TriggerManualSync(ctx))
	require.Equal(t, 2, remote.upsertCount())
	assert.Len(t, remote.upserts[1], 2)

	require.Len(t, pub.events, 2)
	assert.Equal(t, models.ActivityEntriesSynced, pub.events[0].Type)
	assert.Len(t, pub.events[0].EntryIDs, 2)
}

func TestDeleteManyChunks(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	remote := newFakeRemote()
	remote.failChunk = 1

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	ids = append(ids, "not-a-uuid")

	metrics := NewMetrics(prometheus.NewRegistry())
	svc := New(local, remote, Options{UserName: "hana", Metrics: metrics})
	report, err := svc.DeleteMany(ctx, ids)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "request too large")
	require.Len(t, remote.deletes, 3)
	assert.Len(t, remote.deletes[0], 100)
	assert.Len(t, remote.deletes[2], 50)
	assert.Equal(t, 251, report.Requested)
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, int64(150), report.Deleted)
	assert.Equal(t, ids[100:200], report.Failed)
	assert.True(t, report.Partial())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DeleteChunks.WithLabelValues(resultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DeleteChunks.WithLabelValues(resultFailed)))
}

func TestDeleteOne(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	remote := newFakeRemote()
	keep, gone := uuid.NewString(), uuid.NewString()
	seed(t, local, fmt.Sprintf(`[{"id":%q,"date":"2024-01-01","emotion":"幸せ"},{"id":%q,"date":"2024-01-02","emotion":"幸せ"}]`, keep, gone))

	svc := New(local, remote, Options{UserName: "hana"})
	require.True(t, svc.Sync(ctx))
	require.NoError(t, svc.DeleteOne(ctx, gone))

	assert.Equal(t, [][]string{{gone}}, remote.deletes)
	assert.Equal(t, []string{keep}, bufferIDs(t, local))
	assert.Equal(t, 1, svc.Status(ctx).Processed)
}

func TestRunSyncsUntilCancelled(t *testing.T) {
	local := localstore.NewMemory()
	remote := newFakeRemote()
	seed(t, local, fmt.Sprintf(`[{"id":%q,"date":"2024-01-01","emotion":"幸せ"}]`, uuid.NewString()))

	svc := New(local, remote, Options{UserName: "hana", Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return svc.Status(context.Background()).LastSync != nil
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, 1, remote.upsertCount())
}

func TestRunRespectsAutoSyncFlag(t *testing.T) {
	local := localstore.NewMemory()
	remote := newFakeRemote()
	seed(t, local, fmt.Sprintf(`[{"id":%q,"date":"2024-01-01","emotion":"幸せ"}]`, uuid.NewString()))

	svc := New(local, remote, Options{UserName: "hana", Interval: 5 * time.Millisecond})
	require.NoError(t, svc.SetAutoSync(context.Background(), false))
	assert.False(t, svc.AutoSyncEnabled(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.NoError(t, svc.Run(ctx))
	assert.Zero(t, remote.upsertCount())
}

func TestSyncRegeneratesNonCanonicalIDs(t *testing.T) {
	canonical := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	ids := []string{
		"urn:uuid:" + canonical,
		"{" + canonical + "}",
		"6ba7b8109dad11d180b400c04fd430c8",
		"6BA7B810-9DAD-11D1-80B4-00C04FD430C8",
	}
	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			local := localstore.NewMemory()
			remote := newFakeRemote()
			seed(t, local, fmt.Sprintf(`[{"id":%q,"date":"2024-01-01","emotion":"寂しさ"}]`, id))

			svc := New(local, remote, Options{UserName: "hana"})
			require.True(t, svc.Sync(context.Background()))

			require.Len(t, remote.upserts, 1)
			row := remote.upserts[0][0]
			assert.NotEqual(t, id, row.ID)
			assert.True(t, models.ValidID(row.ID))
			assert.Equal(t, []string{row.ID}, bufferIDs(t, local))
		})
	}
}

func TestDeleteManySkipsNonCanonicalIDs(t *testing.T) {
	remote := newFakeRemote()
	valid := uuid.NewString()
	svc := New(localstore.NewMemory(), remote, Options{UserName: "hana"})

	_, err := svc.DeleteMany(context.Background(), []string{valid, "urn:uuid:" + valid, "{" + valid + "}"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{valid}}, remote.deletes)
}

// readOnlyBuffer fails every write to the entry buffer once armed.
type readOnlyBuffer struct {
	localstore.Store
	armed bool
}

func (b *readOnlyBuffer) Set(ctx context.Context, key, value string) error {
	if b.armed && key == localstore.KeyEntries {
		return errors.New("disk full")
	}
	return b.Store.Set(ctx, key, value)
}

func TestSyncKeepsRegeneratedIDWhenWriteBackFails(t *testing.T) {
	ctx := context.Background()
	local := &readOnlyBuffer{Store: localstore.NewMemory()}
	remote := newFakeRemote()
	seed(t, local, `[{"id":"bad-id","date":"2024-01-01","emotion":"悲しみ"}]`)
	local.armed = true

	svc := New(local, remote, Options{UserName: "hana"})
	require.True(t, svc.Sync(ctx))
	require.Len(t, remote.upserts, 1)
	fresh := remote.upserts[0][0].ID
	assert.Equal(t, []string{"bad-id"}, bufferIDs(t, local))

	// the original id counts as pushed
	require.True(t, svc.Sync(ctx))
	assert.Equal(t, 1, remote.upsertCount())

	// a full resync reuses the same regenerated id
	require.True(t, svc.TriggerManualSync(ctx))
	require.Equal(t, 2, remote.upsertCount())
	assert.Equal(t, fresh, remote.upserts[1][0].ID)

	local.armed = false
	report, err := svc.DeleteMany(ctx, []string{"bad-id"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{fresh}}, remote.deletes)
	assert.Equal(t, int64(1), report.Deleted)
	assert.Empty(t, bufferIDs(t, local))
}
