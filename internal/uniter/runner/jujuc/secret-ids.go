// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jujuc

import (
	"sort"

	"github.com/juju/cmd/v3"
	"github.com/juju/gnuflag"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

type secretIdsCommand struct {
	cmd.CommandBase
	ctx Context
	out cmd.Output
}

// NewSecretIdsCommand returns a command to list the IDs of secrets
// owned by the calling unit or its application.
func NewSecretIdsCommand(ctx Context) (cmd.Command, error) {
	return &secretIdsCommand{ctx: ctx}, nil
}

// Info implements cmd.Command.
func (c *secretIdsCommand) Info() *cmd.Info {
	doc := `
Returns the secret ids for secrets owned by the application.

Examples:
    secret-ids
`
	return &cmd.Info{
		Name:    "secret-ids",
		Purpose: "print secret ids",
		Doc:     doc,
	}
}

// SetFlags implements cmd.Command.
func (c *secretIdsCommand) SetFlags(f *gnuflag.FlagSet) {
	c.out.AddFlags(f, "smart", cmd.DefaultFormatters.Formatters())
}

// Run implements cmd.Command.
func (c *secretIdsCommand) Run(ctx *cmd.Context) error {
	result, err := c.ctx.SecretMetadata()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(result))
	for id := range result {
		uri := secrets.URI{ID: id}
		ids = append(ids, uri.String())
	}
	sort.Strings(ids)
	return c.out.Write(ctx, ids)
}
