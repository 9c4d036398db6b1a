// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jujuc

import (
	"fmt"

	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

type secretAddCommand struct {
	cmd.CommandBase
	ctx Context

	secretUpsertCommand

	owner string
}

// NewSecretAddCommand returns a command to add a secret.
func NewSecretAddCommand(ctx Context) (cmd.Command, error) {
	return &secretAddCommand{ctx: ctx}, nil
}

// Info implements cmd.Command.
func (c *secretAddCommand) Info() *cmd.Info {
	doc := `
Add a secret with a list of key values.

If a key has the '#base64' suffix, the value is already in base64 format and no
encoding will be performed, otherwise the value will be base64 encoded
prior to being stored.

Examples:
    secret-add token=34ae35facd4
    secret-add --base64 token=AA==
    secret-add --rotate monthly token=s3cret
    secret-add --owner unit token=s3cret
    secret-add --label db-password \
        --description "my database password" \
        token=s3cret
`
	return &cmd.Info{
		Name:    "secret-add",
		Args:    "[key[#base64]=value...]",
		Purpose: "add a new secret",
		Doc:     doc,
	}
}

// SetFlags implements cmd.Command.
func (c *secretAddCommand) SetFlags(f *gnuflag.FlagSet) {
	c.secretUpsertCommand.SetFlags(f)
	f.StringVar(&c.owner, "owner", "application", "the owner of the secret, either the application or the unit")
}

// Init implements cmd.Command.
func (c *secretAddCommand) Init(args []string) error {
	if len(args) < 1 {
		return errors.New("missing secret value")
	}
	if c.owner != string(secrets.ApplicationOwner) && c.owner != string(secrets.UnitOwner) {
		return errors.NotValidf("secret owner %q", c.owner)
	}
	return c.secretUpsertCommand.Init(args)
}

// Run implements cmd.Command.
func (c *secretAddCommand) Run(ctx *cmd.Context) error {
	uri, err := c.ctx.CreateSecret(&SecretCreateArgs{
		SecretUpdateArgs: c.updateArgs(),
		OwnerKind:        secrets.OwnerKind(c.owner),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Stdout, uri.String())
	return nil
}
