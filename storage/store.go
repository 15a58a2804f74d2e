// Package storage provides durable put/get of named JSON state documents.
// Every state family is one whole document, read on start and rewritten on
// every mutation.
package storage

import "encoding/json"

// Document names for each persisted state family.
const (
	DocBalances       = "balances"
	DocCooldowns      = "cooldowns"
	DocInventories    = "inventories"
	DocClans          = "clans"
	DocPendingInvites = "pending_invites"
)

// DocumentStore is the persistence collaborator contract. Put must be durable
// before it returns; Get reports found=false for a document that has never
// been written. Snapshot returns the raw content of every stored document,
// used by the backup mirror.
type DocumentStore interface {
	Put(name string, v any) error
	Get(name string, v any) (found bool, err error)
	Snapshot() (map[string]json.RawMessage, error)
}
