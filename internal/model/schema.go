package model

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": [
    "invoice_id", "invoice_date", "customer_name", "customer_id", "customer_location",
    "customer_type", "customer_trn", "payment_status", "due_date", "product", "qty",
    "unit_price", "total", "amount_excl_vat", "vat", "profit", "profit_margin",
    "cost_price", "days_to_payment"
  ],
  "properties": {
    "invoice_id":        {"type": ["string", "null"]},
    "invoice_date":      {"type": ["string", "null"]},
    "customer_name":     {"type": ["string", "null"]},
    "customer_id":       {"type": ["string", "null"]},
    "customer_location": {"type": "string", "minLength": 1},
    "customer_type":     {"type": ["string", "null"]},
    "customer_trn":      {"type": ["string", "null"], "pattern": "^[0-9]+$"},
    "payment_status":    {"type": ["string", "null"]},
    "due_date":          {"type": ["string", "null"]},
    "product":           {"type": "string", "minLength": 1},
    "qty":               {"type": ["number", "null"]},
    "unit_price":        {"type": ["number", "null"]},
    "total":             {"type": ["number", "null"]},
    "amount_excl_vat":   {"type": ["number", "null"]},
    "vat":               {"type": ["number", "null"]},
    "profit":            {"type": ["number", "null"]},
    "profit_margin":     {"type": ["number", "null"]},
    "cost_price":        {"type": ["number", "null"]},
    "days_to_payment":   {"type": ["integer", "null"]}
  }
}`

var compiledRecordSchema = jsonschema.MustCompileString("invoice_record.json", recordSchema)

// ValidateRecord checks the JSON form of a record against the output schema.
func ValidateRecord(rec InvoiceRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := compiledRecordSchema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
