package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailscope-backend/internal/indexing/domain"
	"mailscope-backend/pkg/crypto"
	"mailscope-backend/pkg/gmail"
	"mailscope-backend/pkg/imap"
)

func factoryKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestClientFor_IMAPAccount(t *testing.T) {
	key := factoryKey(t)
	encrypted, err := crypto.Encrypt("imap-password", key)
	require.NoError(t, err)

	factory := NewProviderMailboxFactory(gmail.NewService("id", "secret"), key)
	client, err := factory.ClientFor(context.Background(), &domain.ConnectedAccount{
		Provider:              domain.ProviderIMAP,
		ImapHost:              "imap.example.com",
		ImapUsername:          "bob",
		EncryptedImapPassword: encrypted,
	})

	require.NoError(t, err)
	assert.IsType(t, &imap.Client{}, client)
}

func TestClientFor_UnsupportedProvider(t *testing.T) {
	factory := NewProviderMailboxFactory(gmail.NewService("id", "secret"), factoryKey(t))

	_, err := factory.ClientFor(context.Background(), &domain.ConnectedAccount{Provider: "exchange"})
	assert.ErrorContains(t, err, "unsupported mailbox provider")
}

func TestClientFor_BadCiphertext(t *testing.T) {
	factory := NewProviderMailboxFactory(gmail.NewService("id", "secret"), factoryKey(t))

	_, err := factory.ClientFor(context.Background(), &domain.ConnectedAccount{
		Provider:              domain.ProviderGoogle,
		EncryptedRefreshToken: "garbage",
	})
	assert.Error(t, err)
}
