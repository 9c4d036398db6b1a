// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jujuc

import (
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

type secretGetCommand struct {
	cmd.CommandBase
	ctx Context
	out cmd.Output

	uri   *secrets.URI
	label string
	key   string

	peek    bool
	refresh bool
}

// NewSecretGetCommand returns a command to get the content of a secret.
func NewSecretGetCommand(ctx Context) (cmd.Command, error) {
	return &secretGetCommand{ctx: ctx}, nil
}

// Info implements cmd.Command.
func (c *secretGetCommand) Info() *cmd.Info {
	doc := `
Get the content of a secret with a given secret ID or label.

The first time a secret is read, the latest revision is tracked; the
same revision is then returned on every ordinary read, whatever has
been added since. Use --refresh to move on to the latest revision, or
--peek to look at it without updating what subsequent reads return.

Examples:
    secret-get secret:9m4e2mr0ui3e8a215n4g
    secret-get secret:9m4e2mr0ui3e8a215n4g token
    secret-get secret:9m4e2mr0ui3e8a215n4g token#base64
    secret-get secret:9m4e2mr0ui3e8a215n4g --refresh
    secret-get secret:9m4e2mr0ui3e8a215n4g --peek
    secret-get --label db-password
`
	return &cmd.Info{
		Name:    "secret-get",
		Args:    "[ID] [key[#base64]]",
		Purpose: "get the content of a secret",
		Doc:     doc,
	}
}

// SetFlags implements cmd.Command.
func (c *secretGetCommand) SetFlags(f *gnuflag.FlagSet) {
	c.out.AddFlags(f, "yaml", cmd.DefaultFormatters.Formatters())
	f.StringVar(&c.label, "label", "", "a label used to identify the secret in hooks")
	f.BoolVar(&c.peek, "peek", false,
		`get the latest revision just this time`)
	f.BoolVar(&c.refresh, "refresh", false,
		`get the latest revision and also get this same revision for subsequent calls`)
}

// Init implements cmd.Command.
func (c *secretGetCommand) Init(args []string) error {
	if c.peek && c.refresh {
		return errors.New("specify one of --peek or --refresh but not both")
	}
	if len(args) > 0 {
		var err error
		if c.uri, err = secrets.ParseURI(args[0]); err != nil {
			return errors.Trace(err)
		}
		args = args[1:]
	} else if c.label == "" {
		return errors.New("missing secret ID or label")
	}
	if len(args) > 0 {
		c.key = args[0]
		args = args[1:]
	}
	return cmd.CheckEmpty(args)
}

// Run implements cmd.Command.
func (c *secretGetCommand) Run(ctx *cmd.Context) error {
	value, err := c.ctx.GetSecret(c.uri, c.label, c.refresh, c.peek)
	if err != nil {
		return err
	}

	if c.key != "" {
		val, err := value.KeyValue(c.key)
		if err != nil {
			return err
		}
		return c.out.Write(ctx, val)
	}

	val, err := value.Values()
	if err != nil {
		return err
	}
	return c.out.Write(ctx, val)
}
