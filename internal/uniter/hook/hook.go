// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hook provides types that define the secret hooks the
// simulated uniter can fire against a charm.
package hook

import (
	"github.com/juju/errors"
)

// Kind enumerates the secret hook kinds.
type Kind string

const (
	// SecretChanged indicates that a secret the unit consumes has a
	// new revision available.
	SecretChanged = Kind("secret-changed")

	// SecretRotate indicates that a secret is due for rotation.
	SecretRotate = Kind("secret-rotate")

	// SecretExpired indicates that a secret revision has expired.
	SecretExpired = Kind("secret-expired")

	// SecretRemove indicates that a secret revision is obsolete and
	// can be removed.
	SecretRemove = Kind("secret-remove")
)

// IsSecret reports whether the kind is a secret hook kind.
func (k Kind) IsSecret() bool {
	switch k {
	case SecretChanged, SecretRotate, SecretExpired, SecretRemove:
		return true
	}
	return false
}

// NeedsRevision reports whether hooks of this kind carry a revision.
func (k Kind) NeedsRevision() bool {
	return k == SecretExpired || k == SecretRemove
}

// Info holds details required to fire a secret hook.
type Info struct {
	Kind Kind `yaml:"kind"`

	// SecretURI is the secret the hook concerns.
	SecretURI string `yaml:"secret-uri"`

	// SecretLabel is the label the viewing unit knows the secret by,
	// if any.
	SecretLabel string `yaml:"secret-label,omitempty"`

	// SecretRevision is only set for expired and remove hooks.
	SecretRevision int `yaml:"secret-revision,omitempty"`
}

// Validate returns an error if the info is not structurally valid.
func (hi Info) Validate() error {
	if !hi.Kind.IsSecret() {
		return errors.NotValidf("hook kind %q", hi.Kind)
	}
	if hi.SecretURI == "" {
		return errors.NotValidf("%q hook with no secret URI", hi.Kind)
	}
	if hi.Kind.NeedsRevision() && hi.SecretRevision < 0 {
		return errors.NotValidf("%q hook revision %d", hi.Kind, hi.SecretRevision)
	}
	return nil
}
