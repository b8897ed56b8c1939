package usecase

import (
	"context"
	"fmt"

	"mailscope-backend/internal/indexing/domain"
	"mailscope-backend/pkg/crypto"
	"mailscope-backend/pkg/gmail"
	"mailscope-backend/pkg/imap"
)

// ProviderMailboxFactory resolves a connected account to a concrete
// provider client, decrypting stored credentials on demand.
type ProviderMailboxFactory struct {
	gmail         *gmail.Service
	encryptionKey string
}

func NewProviderMailboxFactory(gmailService *gmail.Service, encryptionKey string) *ProviderMailboxFactory {
	return &ProviderMailboxFactory{gmail: gmailService, encryptionKey: encryptionKey}
}

func (f *ProviderMailboxFactory) ClientFor(ctx context.Context, account *domain.ConnectedAccount) (domain.MailboxClient, error) {
	switch account.Provider {
	case domain.ProviderGoogle:
		refreshToken, err := crypto.Decrypt(account.EncryptedRefreshToken, f.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decrypting refresh token: %w", err)
		}
		return f.gmail.ForUser(ctx, refreshToken)
	case domain.ProviderIMAP:
		password, err := crypto.Decrypt(account.EncryptedImapPassword, f.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decrypting IMAP password: %w", err)
		}
		return imap.NewClient(account.ImapHost, account.ImapPort, account.ImapUsername, password), nil
	default:
		return nil, fmt.Errorf("unsupported mailbox provider %q", account.Provider)
	}
}
