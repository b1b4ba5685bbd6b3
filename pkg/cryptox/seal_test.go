package cryptox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Setenv("CLIPFORGE_MASTER_KEY", "test-master-key")

	plaintext := []byte(`{"access_token":"tok","provider_token":"ptk"}`)

	sealed, err := Seal(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	opened, err := Open(sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSeal_UniqueNonce(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Setenv("CLIPFORGE_MASTER_KEY", "test-master-key")

	a, err := Seal([]byte("same input"))
	require.NoError(t, err)
	b, err := Seal([]byte("same input"))
	require.NoError(t, err)

	require.NotEqual(t, a, b, "each seal uses a fresh nonce")
}

func TestOpen_RejectsTampering(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Setenv("CLIPFORGE_MASTER_KEY", "test-master-key")

	sealed, err := Seal([]byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = Open(sealed)
	require.Error(t, err)
}

func TestOpen_RejectsShortInput(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Setenv("CLIPFORGE_MASTER_KEY", "test-master-key")

	_, err := Open([]byte("short"))
	require.Error(t, err)
}

func TestMasterKeyFromFile(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Cleanup(ResetMasterKeyForTesting)

	path := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(path, []byte("file-key-material"), 0o600))
	SetMasterKeyPath(path)
	t.Cleanup(func() { SetMasterKeyPath("") })

	sealed, err := Seal([]byte("with file key"))
	require.NoError(t, err)

	opened, err := Open(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("with file key"), opened)
}
