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

type secretRevokeCommand struct {
	cmd.CommandBase
	ctx Context

	uri        *secrets.URI
	relationID int
	unit       string
}

// NewSecretRevokeCommand returns a command to revoke access to a secret.
func NewSecretRevokeCommand(ctx Context) (cmd.Command, error) {
	return &secretRevokeCommand{ctx: ctx}, nil
}

// Info implements cmd.Command.
func (c *secretRevokeCommand) Info() *cmd.Info {
	doc := `
Revoke access to view the value of a specified secret.
Revoking a scope that was never granted is not an error.

Examples:
    secret-revoke secret:9m4e2mr0ui3e8a215n4g -r 0
    secret-revoke secret:9m4e2mr0ui3e8a215n4g --relation 1 --unit remote/0
`
	return &cmd.Info{
		Name:    "secret-revoke",
		Args:    "<ID>",
		Purpose: "revoke access to a secret",
		Doc:     doc,
	}
}

// SetFlags implements cmd.Command.
func (c *secretRevokeCommand) SetFlags(f *gnuflag.FlagSet) {
	f.IntVar(&c.relationID, "r", -1, "the relation for which to revoke the grant")
	f.IntVar(&c.relationID, "relation", -1, "")
	f.StringVar(&c.unit, "unit", "", "the unit to revoke access from")
}

// Init implements cmd.Command.
func (c *secretRevokeCommand) Init(args []string) error {
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

// Run implements cmd.Command.
func (c *secretRevokeCommand) Run(_ *cmd.Context) error {
	args := &SecretGrantRevokeArgs{
		RelationID: c.relationID,
	}
	if c.unit != "" {
		args.UnitName = &c.unit
	}
	return c.ctx.RevokeSecret(c.uri, args)
}
