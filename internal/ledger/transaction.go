package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Transaction is one signed instruction. The signer is always Authority;
// Account is the bot record (or the source wallet for system transfers).
type Transaction struct {
	ID          string          `json:"id"`
	Instruction InstructionType `json:"instruction"`
	Authority   PublicKey       `json:"authority"`
	Account     PublicKey       `json:"account"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Signature   Signature       `json:"signature"`
}

// NewTransaction builds an unsigned transaction with a fresh id. params may
// be nil for instructions without arguments.
func NewTransaction(instr InstructionType, authority, account PublicKey, params any) (*Transaction, error) {
	tx := &Transaction{
		ID:          uuid.NewString(),
		Instruction: instr,
		Authority:   authority,
		Account:     account,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode %s params: %w", instr, err)
		}
		tx.Payload = raw
	}
	return tx, nil
}

// Message is the byte string covered by the signature.
func (tx *Transaction) Message() []byte {
	var buf bytes.Buffer
	buf.WriteString(tx.ID)
	buf.WriteByte(0)
	buf.WriteString(string(tx.Instruction))
	buf.WriteByte(0)
	buf.Write(tx.Authority[:])
	buf.Write(tx.Account[:])
	buf.Write(tx.Payload)
	return buf.Bytes()
}

func (tx *Transaction) Sign(k Keypair) {
	tx.Signature = k.Sign(tx.Message())
}

func (tx *Transaction) Verify() error {
	if tx.Signature.IsZero() {
		return fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}
	if !verifySignature(tx.Authority, tx.Message(), tx.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// DecodePayload strictly decodes the payload into v.
func (tx *Transaction) DecodePayload(v any) error {
	if len(tx.Payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", ErrInvalidInstruction, tx.Instruction)
	}
	dec := json.NewDecoder(bytes.NewReader(tx.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrInvalidInstruction, tx.Instruction, err)
	}
	return nil
}
