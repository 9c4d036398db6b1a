// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jujuc

import (
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

type secretRemoveCommand struct {
	cmd.CommandBase
	ctx Context

	uri      *secrets.URI
	revision int
}

// NewSecretRemoveCommand returns a command to remove a secret.
func NewSecretRemoveCommand(ctx Context) (cmd.Command, error) {
	return &secretRemoveCommand{ctx: ctx}, nil
}

// Info implements cmd.Command.
func (c *secretRemoveCommand) Info() *cmd.Info {
	doc := `
Remove a secret with the specified URI, or just one of its revisions.
Once the last revision is removed the secret is gone for good.

Examples:
    secret-remove secret:9m4e2mr0ui3e8a215n4g
    secret-remove secret:9m4e2mr0ui3e8a215n4g --revision 1
`
	return &cmd.Info{
		Name:    "secret-remove",
		Args:    "<ID>",
		Purpose: "remove an existing secret",
		Doc:     doc,
	}
}

// SetFlags implements cmd.Command.
func (c *secretRemoveCommand) SetFlags(f *gnuflag.FlagSet) {
	f.IntVar(&c.revision, "revision", -1, "remove the specified revision only")
}

// Init implements cmd.Command.
func (c *secretRemoveCommand) Init(args []string) error {
	if len(args) < 1 {
		return errors.New("missing secret ID")
	}
	var err error
	if c.uri, err = secrets.ParseURI(args[0]); err != nil {
		return errors.Trace(err)
	}
	return cmd.CheckEmpty(args[1:])
}

// Run implements cmd.Command.
func (c *secretRemoveCommand) Run(_ *cmd.Context) error {
	var rev *int
	if c.revision >= 0 {
		rev = &c.revision
	}
	return c.ctx.RemoveSecret(c.uri, rev)
}
