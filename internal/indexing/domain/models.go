package domain

import "time"

// JobStatus is the lifecycle state of an IndexJob.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// IndexJob is one bounded request to ingest up to Total messages for a user.
// A job is created QUEUED, claimed to RUNNING by exactly one worker, and
// terminates at COMPLETED or FAILED. It is never reopened.
type IndexJob struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	UserID     string     `json:"user_id" gorm:"index;not null"`
	Status     JobStatus  `json:"status" gorm:"index;not null"`
	Total      int        `json:"total" gorm:"not null"`
	Processed  int        `json:"processed" gorm:"not null;default:0"`
	LastError  string     `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// EmailMessage is a normalized, indexed mail message. Rows are owned by the
// ingestion worker and upserted by provider message id; the search ranker
// only reads them.
type EmailMessage struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	UserID            string     `json:"user_id" gorm:"index;not null"`
	ProviderMessageID string     `json:"provider_message_id" gorm:"uniqueIndex;not null"`
	ThreadID          string     `json:"thread_id"`
	FromAddress       string     `json:"from" gorm:"column:from_address"`
	ToAddress         string     `json:"to" gorm:"column:to_address"`
	Subject           string     `json:"subject"`
	Date              *time.Time `json:"date" gorm:"index"`
	Snippet           string     `json:"snippet"`
	CleanedText       string     `json:"cleaned_text"`
	ContentHash       string     `json:"content_hash"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Tags []EmailTag `json:"tags,omitempty" gorm:"many2many:email_message_tags;joinForeignKey:EmailMessageID;joinReferences:EmailTagID"`
}

// EmailTag is a category label, globally unique by name and created lazily
// on first use.
type EmailTag struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

// EmailMessageTag joins messages to tags. Re-tagging a message replaces its
// entire row set in one transaction.
type EmailMessageTag struct {
	EmailMessageID string `json:"email_message_id" gorm:"primaryKey"`
	EmailTagID     string `json:"email_tag_id" gorm:"primaryKey"`
}

// Mailbox providers a ConnectedAccount can point at.
const (
	ProviderGoogle = "google"
	ProviderIMAP   = "imap"
)

// ConnectedAccount holds the per-user mailbox credential. Tokens are
// encrypted at rest by the web tier; the worker decrypts at call time.
type ConnectedAccount struct {
	ID                    string    `json:"id" gorm:"primaryKey"`
	UserID                string    `json:"user_id" gorm:"uniqueIndex:idx_user_provider;not null"`
	Provider              string    `json:"provider" gorm:"uniqueIndex:idx_user_provider;not null"`
	EncryptedRefreshToken string    `json:"-"`
	ImapHost              string    `json:"imap_host,omitempty"`
	ImapPort              int       `json:"imap_port,omitempty"`
	ImapUsername          string    `json:"imap_username,omitempty"`
	EncryptedImapPassword string    `json:"-"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
