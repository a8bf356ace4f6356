package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/models"
)

// ErrStoreUnavailable is returned when the ledger cannot accept a write.
// Callers must not assume an entry exists until Append returned successfully.
var ErrStoreUnavailable = errors.New("ledger store unavailable")

// Pseudo-block parameters. The block number is a pure function of the
// sequence so the trail stays internally consistent even if entries are
// replayed: a base offset plus one step every few entries, mimicking a
// young chain around block five million.
const (
	baseBlock       = 5_200_000
	entriesPerBlock = 4
	blockStep       = 17
)

// LedgerRepository is the append-only store of scam fingerprints.
type LedgerRepository interface {
	Append(fingerprint, category string) (*models.LedgerEntry, error)
	ListAll() ([]*models.LedgerEntry, error)
	Count() (int64, error)
}

type ledgerRepository struct {
	db     *sqlx.DB
	logger *zap.Logger

	// mu serializes sequence assignment; reads run concurrently.
	mu   sync.Mutex
	salt string
}

// NewLedgerRepository creates a new ledger repository. The salt is drawn
// once per process so pseudo tx ids are unique across inserts but never
// forgeable as real transaction ids.
func NewLedgerRepository(db *sqlx.DB, logger *zap.Logger) LedgerRepository {
	return &ledgerRepository{
		db:     db,
		logger: logger,
		salt:   uuid.NewString(),
	}
}

// pseudoBlockFor derives the block number from the sequence alone.
func pseudoBlockFor(sequence int64) int64 {
	return baseBlock + ((sequence-1)/entriesPerBlock)*blockStep
}

// pseudoTxIDFor is deterministic in (fingerprint, sequence, salt).
func pseudoTxIDFor(fingerprint string, sequence int64, salt string) string {
	raw := fmt.Sprintf("%s:%d:%s", fingerprint, sequence, salt)
	digest := sha256.Sum256([]byte(raw))
	return "0x" + hex.EncodeToString(digest[:])
}

// Append inserts a new attestation. Sequence assignment happens under the
// repository mutex inside one transaction, so concurrent appends produce
// gapless, strictly increasing sequences. Duplicate fingerprints are
// permitted: every report is a new attestation, not a unique-scam registry.
func (r *ledgerRepository) Append(fingerprint, category string) (*models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	var lastSequence int64
	if err := tx.Get(&lastSequence, "SELECT COALESCE(MAX(sequence), 0) FROM scam_ledger"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	entry := &models.LedgerEntry{
		Sequence:    lastSequence + 1,
		Fingerprint: fingerprint,
		Category:    category,
		CreatedAt:   time.Now().UTC(),
	}
	entry.PseudoBlock = pseudoBlockFor(entry.Sequence)
	entry.PseudoTxID = pseudoTxIDFor(fingerprint, entry.Sequence, r.salt)

	_, err = tx.Exec(`
		INSERT INTO scam_ledger (sequence, fingerprint, category, pseudo_tx_id, pseudo_block, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Sequence, entry.Fingerprint, entry.Category, entry.PseudoTxID, entry.PseudoBlock, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	r.logger.Info("Scam stored in ledger",
		zap.Int64("sequence", entry.Sequence),
		zap.Int64("pseudo_block", entry.PseudoBlock),
		zap.String("category", category))

	return entry, nil
}

// ListAll returns every entry, oldest first.
func (r *ledgerRepository) ListAll() ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := r.db.Select(&entries, `
		SELECT sequence, fingerprint, category, pseudo_tx_id, pseudo_block, created_at
		FROM scam_ledger
		ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of ledger entries.
func (r *ledgerRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Get(&count, "SELECT COUNT(*) FROM scam_ledger"); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}
