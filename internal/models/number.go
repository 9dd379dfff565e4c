package models

import (
	"strings"

	"github.com/google/uuid"
)

// Ticket codes are generated independently of row ids so they can be
// read out loud and printed before the insert commits. Collisions are
// negligible at this length; if one ever happens the unique index
// rejects the insert and the caller retries.

// NewOrderNumber returns a human-readable order ticket code.
func NewOrderNumber() string {
	return "ORD-" + shortCode()
}

// NewPaymentNumber returns a human-readable payment receipt code.
func NewPaymentNumber() string {
	return "PAY-" + shortCode()
}

func shortCode() string {
	id := uuid.New().String()
	return strings.ToUpper(strings.ReplaceAll(id, "-", "")[:10])
}
