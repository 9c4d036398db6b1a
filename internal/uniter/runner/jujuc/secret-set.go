// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jujuc

import (
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

type secretSetCommand struct {
	cmd.CommandBase
	ctx Context

	secretUpsertCommand

	uri *secrets.URI
}

// NewSecretSetCommand returns a command to update a secret.
func NewSecretSetCommand(ctx Context) (cmd.Command, error) {
	return &secretSetCommand{ctx: ctx}, nil
}

// Info implements cmd.Command.
func (c *secretSetCommand) Info() *cmd.Info {
	doc := `
Update a secret with a list of key values, or its metadata attributes,
or both. Setting new content appends a new revision; the owner keeps
reading the old tracked revision until it explicitly refreshes.

Examples:
    secret-set secret:9m4e2mr0ui3e8a215n4g token=34ae35facd4
    secret-set secret:9m4e2mr0ui3e8a215n4g --rotate daily
    secret-set secret:9m4e2mr0ui3e8a215n4g --label db-password \
        --description "my database password"
`
	return &cmd.Info{
		Name:    "secret-set",
		Args:    "<ID> [key[#base64]=value...]",
		Purpose: "update an existing secret",
		Doc:     doc,
	}
}

// SetFlags implements cmd.Command.
func (c *secretSetCommand) SetFlags(f *gnuflag.FlagSet) {
	c.secretUpsertCommand.SetFlags(f)
}

// Init implements cmd.Command.
func (c *secretSetCommand) Init(args []string) error {
	if len(args) < 1 {
		return errors.New("missing secret ID")
	}
	var err error
	if c.uri, err = secrets.ParseURI(args[0]); err != nil {
		return errors.Trace(err)
	}
	return c.secretUpsertCommand.Init(args[1:])
}

// Run implements cmd.Command.
func (c *secretSetCommand) Run(_ *cmd.Context) error {
	args := c.updateArgs()
	return c.ctx.UpdateSecret(c.uri, &args)
}
