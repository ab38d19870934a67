package reliability

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string]int64
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]int64{}}
}

func (f *fakeObjectStore) Upload(ctx context.Context, key string, body io.Reader) error {
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = n
	return nil
}

func (f *fakeObjectStore) List(ctx context.Context, prefix string) ([]objectSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []objectSummary
	for k, sz := range f.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, objectSummary{Key: k, Size: sz})
		}
	}
	return out, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type fakeCheckpointer struct {
	path            string
	checkpointCalls int
}

func (f *fakeCheckpointer) Path() string { return f.path }
func (f *fakeCheckpointer) Checkpoint() error {
	f.checkpointCalls++
	return nil
}

func newTestDBFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading.db")
	require.NoError(t, os.WriteFile(path, []byte("fake sqlite contents"), 0o644))
	return path
}

func TestCreateAndUpload_ChecksAndUploadsOneArchive(t *testing.T) {
	dbPath := newTestDBFile(t)
	ckpt := &fakeCheckpointer{path: dbPath}
	objStore := newFakeObjectStore()
	job := NewBackupJob(objStore, ckpt, filepath.Join(t.TempDir(), "staging"), zerolog.Nop())

	err := job.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ckpt.checkpointCalls)

	objects, err := objStore.List(context.Background(), archivePrefix)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Greater(t, objects[0].Size, int64(0))
}

func TestRotateOldBackups_KeepsMinimumEvenWhenAllExpired(t *testing.T) {
	objStore := newFakeObjectStore()
	old := time.Now().AddDate(0, 0, -30)
	for i := 0; i < 4; i++ {
		key := archivePrefix + old.Add(time.Duration(i)*time.Hour).Format(archiveTimestampLayout) + ".tar.gz"
		objStore.objects[key] = 100
	}

	job := NewBackupJob(objStore, &fakeCheckpointer{}, t.TempDir(), zerolog.Nop())
	require.NoError(t, job.RotateOldBackups(context.Background(), 7))

	remaining, err := objStore.List(context.Background(), archivePrefix)
	require.NoError(t, err)
	assert.Len(t, remaining, minBackupsToKeep)
}

func TestRotateOldBackups_NoopBelowMinimum(t *testing.T) {
	objStore := newFakeObjectStore()
	old := time.Now().AddDate(0, 0, -30)
	key := archivePrefix + old.Format(archiveTimestampLayout) + ".tar.gz"
	objStore.objects[key] = 100

	job := NewBackupJob(objStore, &fakeCheckpointer{}, t.TempDir(), zerolog.Nop())
	require.NoError(t, job.RotateOldBackups(context.Background(), 7))

	remaining, err := objStore.List(context.Background(), archivePrefix)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestListBackups_SkipsUnparseableKeys(t *testing.T) {
	objStore := newFakeObjectStore()
	objStore.objects[archivePrefix+"not-a-timestamp.tar.gz"] = 10
	objStore.objects[archivePrefix+time.Now().Format(archiveTimestampLayout)+".tar.gz"] = 20

	job := NewBackupJob(objStore, &fakeCheckpointer{}, t.TempDir(), zerolog.Nop())
	backups, err := job.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
