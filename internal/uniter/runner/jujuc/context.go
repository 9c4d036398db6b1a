// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package jujuc implements the secret hook tools a charm invokes
// during a hook: secret-add, secret-get, secret-set, secret-info-get,
// secret-grant, secret-revoke, secret-remove and secret-ids. The tools
// are thin commands over a Context supplied by the hook runner.
package jujuc

import (
	"time"

	"github.com/juju/cmd/v3"
	"github.com/juju/errors"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

// Context is the interface that hook tool commands operate on.
type Context interface {
	SecretsAccessor
}

// SecretsAccessor is used by the secret hook tools to access the
// secrets backing the current hook context.
type SecretsAccessor interface {
	// CreateSecret creates a secret with the specified data.
	CreateSecret(args *SecretCreateArgs) (*secrets.URI, error)

	// GetSecret returns the content of a secret, either the tracked
	// revision or, with refresh or peek, the latest.
	GetSecret(uri *secrets.URI, label string, refresh, peek bool) (secrets.SecretValue, error)

	// UpdateSecret updates a secret with the specified data and
	// metadata attributes.
	UpdateSecret(uri *secrets.URI, args *SecretUpdateArgs) error

	// SecretMetadata returns the metadata of the secrets the calling
	// unit can manage, keyed by URI id.
	SecretMetadata() (map[string]SecretMetadata, error)

	// GrantSecret grants access to a secret through a relation.
	GrantSecret(uri *secrets.URI, args *SecretGrantRevokeArgs) error

	// RevokeSecret revokes access to a secret.
	RevokeSecret(uri *secrets.URI, args *SecretGrantRevokeArgs) error

	// RemoveSecret removes a secret revision, or all revisions if
	// none is specified.
	RemoveSecret(uri *secrets.URI, revision *int) error
}

// SecretUpdateArgs specifies args used to update a secret.
// Nil values are not updated.
type SecretUpdateArgs struct {
	// Value is the new secret content, if any.
	Value secrets.SecretValue

	RotatePolicy *secrets.RotatePolicy
	ExpireTime   *time.Time
	Description  *string
	Label        *string
}

// SecretCreateArgs specifies args used to create a secret.
type SecretCreateArgs struct {
	SecretUpdateArgs

	OwnerKind secrets.OwnerKind
}

// SecretGrantRevokeArgs specify the scope of a secret grant or revoke.
type SecretGrantRevokeArgs struct {
	RelationID int
	UnitName   *string
}

// SecretMetadata is the secret metadata rendered by secret-info-get
// and used by secret-ids.
type SecretMetadata struct {
	Owner          secrets.Owner        `yaml:"owner,omitempty" json:"owner,omitempty"`
	Label          string               `yaml:"label,omitempty" json:"label,omitempty"`
	Description    string               `yaml:"description,omitempty" json:"description,omitempty"`
	RotatePolicy   secrets.RotatePolicy `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	ExpireTime     *time.Time           `yaml:"expiry,omitempty" json:"expiry,omitempty"`
	LatestRevision int                  `yaml:"revision" json:"revision"`
}

type creator func(Context) (cmd.Command, error)

var registeredCommands = map[string]creator{
	"secret-add":      NewSecretAddCommand,
	"secret-get":      NewSecretGetCommand,
	"secret-set":      NewSecretSetCommand,
	"secret-info-get": NewSecretInfoGetCommand,
	"secret-grant":    NewSecretGrantCommand,
	"secret-revoke":   NewSecretRevokeCommand,
	"secret-remove":   NewSecretRemoveCommand,
	"secret-ids":      NewSecretIdsCommand,
}

// CommandNames returns the names of all hook tool commands.
func CommandNames() []string {
	names := make([]string, 0, len(registeredCommands))
	for name := range registeredCommands {
		names = append(names, name)
	}
	return names
}

// NewCommand returns an instance of the named hook tool command, bound
// to the given context.
func NewCommand(ctx Context, name string) (cmd.Command, error) {
	f, ok := registeredCommands[name]
	if !ok {
		return nil, errors.NotFoundf("hook tool %q", name)
	}
	command, err := f(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return command, nil
}
