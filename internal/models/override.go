package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Override is a per-field value on an exception that either replaces the
// master's value or inherits it at read time. The empty string is a valid
// override; only an unset Override inherits. Stored as NULL when unset.
type Override[T ~string] struct {
	val T
	set bool
}

// Set returns an Override that replaces the inherited value with v.
func Set[T ~string](v T) Override[T] {
	return Override[T]{val: v, set: true}
}

// Inherit returns an Override that defers to the master.
func Inherit[T ~string]() Override[T] {
	return Override[T]{}
}

// Get returns the override value and whether it is set.
func (o Override[T]) Get() (T, bool) {
	return o.val, o.set
}

// IsSet reports whether the override replaces the master's value.
func (o Override[T]) IsSet() bool {
	return o.set
}

// Resolve returns the override value if set, otherwise fallback.
func (o Override[T]) Resolve(fallback T) T {
	if o.set {
		return o.val
	}
	return fallback
}

// Value implements driver.Valuer.
func (o Override[T]) Value() (driver.Value, error) {
	if !o.set {
		return nil, nil
	}
	return string(o.val), nil
}

// Scan implements sql.Scanner.
func (o *Override[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = Override[T]{}
	case string:
		*o = Set(T(v))
	case []byte:
		*o = Set(T(string(v)))
	default:
		return fmt.Errorf("models: scan override: unsupported type %T", src)
	}
	return nil
}

// GormDataType tells gorm to store the override as a string column.
func (Override[T]) GormDataType() string {
	return "string"
}

// MarshalJSON encodes an unset override as null.
func (o Override[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(string(o.val))
}

// UnmarshalJSON decodes null as inherit.
func (o *Override[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Override[T]{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("models: decode override: %w", err)
	}
	*o = Set(T(s))
	return nil
}
