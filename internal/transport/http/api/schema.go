package apihttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"botledger/internal/ledger"
)

const (
	base58Key = `^[1-9A-HJ-NP-Za-km-z]{32,44}$`
	base58Sig = `^[1-9A-HJ-NP-Za-km-z]{64,88}$`
)

type schemas struct {
	transaction *jsonschema.Schema
	airdrop     *jsonschema.Schema
}

func transactionSchema() string {
	names := make([]string, 0, len(ledger.InstructionTypes()))
	for _, t := range ledger.InstructionTypes() {
		names = append(names, fmt.Sprintf("%q", string(t)))
	}
	return fmt.Sprintf(`{
  "type": "object",
  "required": ["id", "instruction", "authority", "account", "signature"],
  "additionalProperties": false,
  "properties": {
    "id": {"type": "string", "minLength": 1, "maxLength": 64},
    "instruction": {"enum": [%s]},
    "authority": {"type": "string", "pattern": %q},
    "account": {"type": "string", "pattern": %q},
    "payload": {"type": ["object", "null"]},
    "signature": {"type": "string", "pattern": %q}
  }
}`, strings.Join(names, ", "), base58Key, base58Key, base58Sig)
}

var airdropSchema = fmt.Sprintf(`{
  "type": "object",
  "required": ["address"],
  "additionalProperties": false,
  "properties": {
    "address": {"type": "string", "pattern": %q},
    "lamports": {"type": "integer", "minimum": 1},
    "sol": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]{1,9})?$"}
  },
  "oneOf": [{"required": ["lamports"]}, {"required": ["sol"]}]
}`, base58Key)

func compileSchemas() (*schemas, error) {
	tx, err := compileSchema("transaction.json", transactionSchema())
	if err != nil {
		return nil, fmt.Errorf("compile transaction schema: %w", err)
	}
	ad, err := compileSchema("airdrop.json", airdropSchema)
	if err != nil {
		return nil, fmt.Errorf("compile airdrop schema: %w", err)
	}
	return &schemas{transaction: tx, airdrop: ad}, nil
}

func compileSchema(name, doc string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// validateJSON checks raw against schema before it is decoded into Go types.
func validateJSON(schema *jsonschema.Schema, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return err
	}
	return nil
}
