package peer

import (
	"testing"

	"github.com/stephanfeb/p2p-core/core/crypto"
)

func testKey(t *testing.T) (crypto.PrivKey, crypto.PubKey, error) {
	t.Helper()
	return crypto.GenerateEd25519Key(nil)
}
