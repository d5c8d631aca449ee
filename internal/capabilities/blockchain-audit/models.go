// internal/capabilities/blockchain-audit/models.go
package blockchainaudit

// AuditRecord is the verification result the audit gateway returns for a
// booking reference.
type AuditRecord struct {
	Verified        bool   `json:"verified"`
	Hash            string `json:"hash"`
	TxHash          string `json:"tx_hash"`
	BlockNumber     int64  `json:"block_number"`
	Timestamp       string `json:"timestamp"`
	ChainID         string `json:"chain_id"`
	ContractAddress string `json:"contract_address"`
	Reason          string `json:"reason"`
}

// anchorHash is the hash shown to the user: the audit record hash when the
// gateway computed one, otherwise the anchoring transaction hash.
func (r AuditRecord) anchorHash() string {
	if r.Hash != "" {
		return r.Hash
	}
	return r.TxHash
}

// verifyEnvelope accepts both a bare audit record and the data-wrapped shape
// the gateway produces when deployed behind the platform API facade.
type verifyEnvelope struct {
	AuditRecord
	Data *AuditRecord `json:"data"`
}

func (e *verifyEnvelope) record() AuditRecord {
	if e.Data != nil {
		return *e.Data
	}
	return e.AuditRecord
}
