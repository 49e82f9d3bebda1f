package guardian

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Strict wire codec for the entities crossing the dashboard boundary.
// Every upstream or client-supplied document is decoded with unknown
// fields rejected — never evaluated, never loosely coerced.

// EncodeJSON serializes a value for the wire.
func EncodeJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeStrict parses data into v, rejecting unknown fields and trailing
// content.
func DecodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if dec.Decode(new(json.RawMessage)) != io.EOF {
		return fmt.Errorf("decode: trailing content after value")
	}
	return nil
}

// DecodeRiskResult parses a RiskResult from the wire.
func DecodeRiskResult(data []byte) (*RiskResult, error) {
	var r RiskResult
	if err := DecodeStrict(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodePoolRecords parses a pool list from the wire.
func DecodePoolRecords(data []byte) ([]PoolRecord, error) {
	var pools []PoolRecord
	if err := DecodeStrict(data, &pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// DecodeTokenMetrics parses a TokenMetrics from the wire.
func DecodeTokenMetrics(data []byte) (*TokenMetrics, error) {
	var m TokenMetrics
	if err := DecodeStrict(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodePortfolio parses and validates a client-supplied portfolio.
func DecodePortfolio(data []byte) (Portfolio, error) {
	var p Portfolio
	if err := DecodeStrict(data, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
