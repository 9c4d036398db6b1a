// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jujuc

import (
	"time"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

// secretUpsertCommand is embedded by the add and set commands to share
// the common content and metadata flags.
type secretUpsertCommand struct {
	asBase64    bool
	description string
	label       string
	rotate      string
	expireSpec  string

	expireTime time.Time
	data       secrets.SecretData
}

func (c *secretUpsertCommand) SetFlags(f *gnuflag.FlagSet) {
	f.BoolVar(&c.asBase64, "base64", false,
		`specify the supplied values are base64 encoded strings`)
	f.StringVar(&c.description, "description", "", "the secret description")
	f.StringVar(&c.label, "label", "", "a label used to identify the secret in hooks")
	f.StringVar(&c.rotate, "rotate", "", "the secret rotation policy")
	f.StringVar(&c.expireSpec, "expire", "",
		`either a duration or time when the secret should expire`)
}

func (c *secretUpsertCommand) Init(args []string) error {
	if c.expireSpec != "" {
		expireTime, err := time.Parse(time.RFC3339, c.expireSpec)
		if err != nil {
			d, err := time.ParseDuration(c.expireSpec)
			if err != nil {
				return errors.NotValidf("expire time or duration %q", c.expireSpec)
			}
			if d <= 0 {
				return errors.NotValidf("negative expire duration %q", c.expireSpec)
			}
			expireTime = time.Now().Add(d)
		}
		c.expireTime = expireTime.Truncate(time.Second).UTC()
	}
	if c.rotate != "" && !secrets.RotatePolicy(c.rotate).IsValid() {
		return errors.NotValidf("rotate policy %q", c.rotate)
	}

	var err error
	if len(args) > 0 {
		c.data, err = secrets.CreateSecretData(c.asBase64, args)
	}
	return err
}

func (c *secretUpsertCommand) updateArgs() SecretUpdateArgs {
	var args SecretUpdateArgs
	if len(c.data) > 0 {
		raw := make(map[string][]byte, len(c.data))
		for k, v := range c.data {
			raw[k] = []byte(v)
		}
		args.Value = secrets.NewSecretBytes(raw)
	}
	if c.description != "" {
		args.Description = &c.description
	}
	if c.label != "" {
		args.Label = &c.label
	}
	if c.rotate != "" {
		policy := secrets.RotatePolicy(c.rotate)
		args.RotatePolicy = &policy
	}
	if !c.expireTime.IsZero() {
		args.ExpireTime = &c.expireTime
	}
	return args
}
