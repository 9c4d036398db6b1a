// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jujuc

import (
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

type secretInfoGetCommand struct {
	cmd.CommandBase
	ctx Context
	out cmd.Output

	uri   *secrets.URI
	label string
}

// NewSecretInfoGetCommand returns a command to get secret metadata.
func NewSecretInfoGetCommand(ctx Context) (cmd.Command, error) {
	return &secretInfoGetCommand{ctx: ctx}, nil
}

// Info implements cmd.Command.
func (c *secretInfoGetCommand) Info() *cmd.Info {
	doc := `
Get the metadata of a secret with a given secret ID or label.
Only secret owners can query secret metadata.

Examples:
    secret-info-get secret:9m4e2mr0ui3e8a215n4g
    secret-info-get --label db-password
`
	return &cmd.Info{
		Name:    "secret-info-get",
		Args:    "[ID]",
		Purpose: "get the metadata of a secret",
		Doc:     doc,
	}
}

// SetFlags implements cmd.Command.
func (c *secretInfoGetCommand) SetFlags(f *gnuflag.FlagSet) {
	c.out.AddFlags(f, "yaml", cmd.DefaultFormatters.Formatters())
	f.StringVar(&c.label, "label", "", "a label used to identify the secret")
}

// Init implements cmd.Command.
func (c *secretInfoGetCommand) Init(args []string) error {
	if len(args) > 0 {
		var err error
		if c.uri, err = secrets.ParseURI(args[0]); err != nil {
			return errors.Trace(err)
		}
		args = args[1:]
	} else if c.label == "" {
		return errors.New("missing secret ID or label")
	}
	return cmd.CheckEmpty(args)
}

// Run implements cmd.Command.
func (c *secretInfoGetCommand) Run(ctx *cmd.Context) error {
	metadata, err := c.ctx.SecretMetadata()
	if err != nil {
		return err
	}
	for id, md := range metadata {
		if c.uri != nil && c.uri.ID != id {
			continue
		}
		if c.uri == nil && c.label != md.Label {
			continue
		}
		return c.out.Write(ctx, map[string]SecretMetadata{id: md})
	}
	if c.uri != nil {
		return errors.NotFoundf("secret %q", c.uri)
	}
	return errors.NotFoundf("secret with label %q", c.label)
}
