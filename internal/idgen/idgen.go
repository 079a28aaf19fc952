// Package idgen produces identifiers for newly stored files.
package idgen

import "github.com/google/uuid"

// Generator produces globally unique identifiers.
type Generator interface {
	GenerateID() string
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() string

// GenerateID calls f.
func (f GeneratorFunc) GenerateID() string {
	return f()
}

// UUIDGenerator generates random (version 4) UUIDs in canonical text form.
type UUIDGenerator struct{}

// GenerateID returns a new random UUID.
func (UUIDGenerator) GenerateID() string {
	return uuid.NewString()
}

// Default is the generator used when none is configured.
var Default Generator = UUIDGenerator{}
