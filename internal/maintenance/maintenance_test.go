package maintenance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/micro-nova/ampctl/internal/models"
)

func TestBackup_CopiesConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "ampctl.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"speaker_hiz":true}`), 0644))

	s := New(cfg, nil, nil)
	file, err := s.RunBackupNow()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "backups"), filepath.Dir(file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.JSONEq(t, `{"speaker_hiz":true}`, string(data))

	files, err := s.ListBackups()
	require.NoError(t, err)
	require.Equal(t, []string{file}, files)
}

func TestBackup_MissingConfig(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "ampctl.json"), nil, nil)
	file, err := s.RunBackupNow()
	require.NoError(t, err)
	require.Empty(t, file)

	files, err := s.ListBackups()
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestBackup_DeletesOld(t *testing.T) {
	dir := t.TempDir()

	newFile := filepath.Join(dir, "ampctl-config-2099-01-01.json")
	require.NoError(t, os.WriteFile(newFile, []byte("new"), 0644))

	oldFile := filepath.Join(dir, "ampctl-config-2000-01-01.json")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0644))
	past := time.Now().Add(-100 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(other, past, past))

	pruneOldBackups(dir, backupMaxAge)

	_, err := os.Stat(oldFile)
	require.True(t, os.IsNotExist(err))
	require.FileExists(t, newFile)
	require.FileExists(t, other)
}

type faultSeq struct {
	mu    sync.Mutex
	seq   []models.Faults
	err   error
	calls int
}

func (f *faultSeq) read(context.Context) (models.Faults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.Faults{}, f.err
	}
	if len(f.seq) == 0 {
		return models.Faults{}, nil
	}
	v := f.seq[0]
	if len(f.seq) > 1 {
		f.seq = f.seq[1:]
	}
	return v, nil
}

func TestFaultPoll_ReportsTransitions(t *testing.T) {
	src := &faultSeq{seq: []models.Faults{
		{},
		{OverTemp: true},
		{OverTemp: true},
		{},
	}}

	var mu sync.Mutex
	var got []models.Faults
	s := New(filepath.Join(t.TempDir(), "ampctl.json"), src.read, func(f models.Faults) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, f)
	})
	s.SetFaultInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.runFaultPoll(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []models.Faults{{OverTemp: true}, {}}, got)
}

func TestFaultPoll_ErrorsAreNotTransitions(t *testing.T) {
	src := &faultSeq{err: errors.New("nack")}
	called := false
	s := New(filepath.Join(t.TempDir(), "ampctl.json"), src.read, func(models.Faults) { called = true })
	s.SetFaultInterval(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.runFaultPoll(ctx)

	require.False(t, called)
	src.mu.Lock()
	defer src.mu.Unlock()
	require.Greater(t, src.calls, 1)
}
