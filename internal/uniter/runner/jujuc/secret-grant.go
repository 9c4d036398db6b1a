// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jujuc

import (
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/names/v5"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

type secretGrantCommand struct {
	cmd.CommandBase
	ctx Context

	uri        *secrets.URI
	relationID int
	unit       string
}

// NewSecretGrantCommand returns a command to grant access to a secret.
func NewSecretGrantCommand(ctx Context) (cmd.Command, error) {
	return &secretGrantCommand{ctx: ctx}, nil
}

// Info implements cmd.Command.
func (c *secretGrantCommand) Info() *cmd.Info {
	doc := `
Grant access to view the value of a specified secret.
Access is granted in the context of a relation; unless a specific unit
is named, the grant is recorded for the relation's remote application.

Examples:
    secret-grant secret:9m4e2mr0ui3e8a215n4g -r 0
    secret-grant secret:9m4e2mr0ui3e8a215n4g --relation 1 --unit remote/0
`
	return &cmd.Info{
		Name:    "secret-grant",
		Args:    "<ID>",
		Purpose: "grant access to a secret",
		Doc:     doc,
	}
}

// SetFlags implements cmd.Command.
func (c *secretGrantCommand) SetFlags(f *gnuflag.FlagSet) {
	f.IntVar(&c.relationID, "r", -1, "the relation with which to associate the grant")
	f.IntVar(&c.relationID, "relation", -1, "")
	f.StringVar(&c.unit, "unit", "", "the unit to grant access to")
}

// Init implements cmd.Command.
func (c *secretGrantCommand) Init(args []string) error {
	if len(args) < 1 {
		return errors.New("missing secret ID")
	}
	var err error
	if c.uri, err = secrets.ParseURI(args[0]); err != nil {
		return errors.Trace(err)
	}
	if c.relationID < 0 {
		return errors.New("missing relation")
	}
	if c.unit != "" && !names.IsValidUnit(c.unit) {
		return errors.NotValidf("unit %q", c.unit)
	}
	return cmd.CheckEmpty(args[1:])
}

func (c *secretGrantCommand) grantRevokeArgs() *SecretGrantRevokeArgs {
	args := &SecretGrantRevokeArgs{
		RelationID: c.relationID,
	}
	if c.unit != "" {
		args.UnitName = &c.unit
	}
	return args
}

// Run implements cmd.Command.
func (c *secretGrantCommand) Run(_ *cmd.Context) error {
	return c.ctx.GrantSecret(c.uri, c.grantRevokeArgs())
}
