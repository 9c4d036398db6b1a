// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package secrets holds the value types used to describe simulated
// secrets: their identity, ownership, rotation policy and metadata.
package secrets

import (
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/rs/xid"
)

// SecretData holds the key values of a secret revision.
// Once written to a revision the map must be treated as immutable.
type SecretData map[string]string

// RotatePolicy defines a policy for how often to rotate a secret.
type RotatePolicy string

const (
	RotateNever   = RotatePolicy("never")
	RotateHourly  = RotatePolicy("hourly")
	RotateDaily   = RotatePolicy("daily")
	RotateWeekly  = RotatePolicy("weekly")
	RotateMonthly = RotatePolicy("monthly")
	RotateYearly  = RotatePolicy("yearly")
	RotateCustom  = RotatePolicy("custom")
)

// WillRotate reports whether the policy implies rotation at all.
func (p RotatePolicy) WillRotate() bool {
	return p != "" && p != RotateNever
}

// IsValid reports whether the policy is a known one.
// An empty policy is valid and is interpreted as "never".
func (p RotatePolicy) IsValid() bool {
	switch p {
	case "", RotateNever, RotateHourly, RotateDaily, RotateWeekly,
		RotateMonthly, RotateYearly, RotateCustom:
		return true
	}
	return false
}

// OwnerKind represents the kind of a secret owner entity.
type OwnerKind string

// These represent the kinds of secret owner.
const (
	ApplicationOwner = OwnerKind("application")
	UnitOwner        = OwnerKind("unit")
)

// Owner is the owner of a secret. The zero value means the secret is
// not owned by the local unit or application at all; the unit is a
// pure consumer of it.
type Owner struct {
	Kind OwnerKind
	ID   string
}

// IsZero reports whether the owner is unset.
func (o Owner) IsZero() bool {
	return o.Kind == ""
}

func (o Owner) String() string {
	if o.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s-%s", o.Kind, o.ID)
}

// SecretScheme is the URI scheme used to identify secrets.
const SecretScheme = "secret"

// URI identifies a secret. The ID is unique within the process; a
// freshly minted URI gets an xid, but seeded state may carry any
// opaque non-empty identifier.
type URI struct {
	ID string
}

// NewURI returns a new secret URI with a generated ID.
func NewURI() *URI {
	return &URI{ID: xid.New().String()}
}

// ParseURI parses the specified string into a URI, accepting both the
// "secret:" prefixed form and a bare identifier.
func ParseURI(str string) (*URI, error) {
	id := str
	if spec := strings.SplitN(str, ":", 2); len(spec) == 2 {
		if spec[0] != SecretScheme {
			return nil, errors.NotValidf("secret URI scheme %q", spec[0])
		}
		id = spec[1]
	}
	if id == "" {
		return nil, errors.NotValidf("empty secret URI")
	}
	return &URI{ID: id}, nil
}

// String prints the URI as a string.
func (u *URI) String() string {
	if u == nil || u.ID == "" {
		return ""
	}
	return SecretScheme + ":" + u.ID
}

// SecretMetadata holds metadata about a secret, without any content.
type SecretMetadata struct {
	// Read only after creation.
	URI   *URI
	Owner Owner

	// Version starts at 1 and is incremented
	// whenever an incompatible change is made.
	Version int

	// These can be updated after creation.
	Label        string
	Description  string
	RotatePolicy RotatePolicy
	ExpireTime   *time.Time

	// LatestRevision is the most recently written revision number.
	LatestRevision int

	CreateTime time.Time
	UpdateTime time.Time
}

// SecretRevisionMetadata holds metadata about a secret revision.
type SecretRevisionMetadata struct {
	Revision   int
	RevisionID string
	CreateTime time.Time
}
