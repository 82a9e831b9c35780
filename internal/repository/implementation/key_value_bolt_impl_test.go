package implementation

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"tarik-chat-be/pkg/chat/chaterr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBolt(t *testing.T, quota int) *KeyValueBoltRepository {
	t.Helper()
	repo, err := OpenKeyValueBoltRepository(filepath.Join(t.TempDir(), "state", "tarik.db"), quota)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestKeyValueBolt_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := openBolt(t, 0)

	_, found, err := repo.Get(ctx, "tarikChatSessions")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, "tarikChatSessions", `[]`))
	v, found, err := repo.Get(ctx, "tarikChatSessions")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[]`, v)

	require.NoError(t, repo.Delete(ctx, "tarikChatSessions"))
	_, found, _ = repo.Get(ctx, "tarikChatSessions")
	assert.False(t, found)
}

func TestKeyValueBolt_Quota(t *testing.T) {
	ctx := context.Background()
	repo := openBolt(t, 64)

	require.NoError(t, repo.Set(ctx, "a", strings.Repeat("x", 40)))
	// Overwriting the same key only counts the new value.
	require.NoError(t, repo.Set(ctx, "a", strings.Repeat("y", 60)))

	err := repo.Set(ctx, "b", strings.Repeat("z", 10))
	assert.ErrorIs(t, err, chaterr.ErrStorageQuotaExceeded)

	v, _, _ := repo.Get(ctx, "a")
	assert.Len(t, v, 60)
}

func TestKeyValueBolt_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tarik.db")

	repo, err := OpenKeyValueBoltRepository(path, 0)
	require.NoError(t, err)
	require.NoError(t, repo.Set(ctx, "tarikChatLanguage", "Amharic"))
	require.NoError(t, repo.Close())

	repo, err = OpenKeyValueBoltRepository(path, 0)
	require.NoError(t, err)
	defer repo.Close()
	v, found, err := repo.Get(ctx, "tarikChatLanguage")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Amharic", v)
}
