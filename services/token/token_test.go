package tokensvc

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/home/neema/.masomo/token")

	tok, err := store.Token()
	require.NoError(t, err)
	assert.Empty(t, tok, "no token before login")

	require.NoError(t, store.Save("abc.def.ghi"))
	tok, err = store.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	info, err := fs.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().String())

	require.NoError(t, store.Save("new.token"))
	tok, _ = store.Token()
	assert.Equal(t, "new.token", tok)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	tok, err = store.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestFileStore_trimsNewline(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/token", []byte("abc\n"), 0o600))

	tok, err := NewFileStore(fs, "/token").Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}
