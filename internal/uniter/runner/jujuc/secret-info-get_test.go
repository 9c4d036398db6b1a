// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jujuc_test

import (
	"github.com/juju/cmd/v3/cmdtesting"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
	"github.com/tonyandrewmeyer/ops-scenario/internal/uniter/runner/jujuc"
)

type SecretInfoGetSuite struct{}

var _ = gc.Suite(&SecretInfoGetSuite{})

func (s *SecretInfoGetSuite) metadata() map[string]jujuc.SecretMetadata {
	return map[string]jujuc.SecretMetadata{
		"9m4e2mr0ui3e8a215n4g": {
			Owner:          secrets.Owner{Kind: secrets.ApplicationOwner, ID: "mariadb"},
			Label:          "db-password",
			Description:    "my database password",
			RotatePolicy:   secrets.RotateHourly,
			LatestRevision: 666,
		},
	}
}

func (s *SecretInfoGetSuite) TestSecretInfoGetMissingArgs(c *gc.C) {
	ctx := newMockContext()
	com, err := jujuc.NewCommand(ctx, "secret-info-get")
	c.Assert(err, jc.ErrorIsNil)
	_, err = cmdtesting.RunCommand(c, com)
	c.Assert(err, gc.ErrorMatches, "missing secret ID or label")
}

func (s *SecretInfoGetSuite) TestSecretInfoGet(c *gc.C) {
	ctx := newMockContext()
	ctx.metadata = s.metadata()
	com, err := jujuc.NewCommand(ctx, "secret-info-get")
	c.Assert(err, jc.ErrorIsNil)

	cmdCtx, err := cmdtesting.RunCommand(c, com, "secret:9m4e2mr0ui3e8a215n4g")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(cmdtesting.Stdout(cmdCtx), gc.Equals, `
9m4e2mr0ui3e8a215n4g:
  owner:
    kind: application
    id: mariadb
  label: db-password
  description: my database password
  rotation: hourly
  revision: 666
`[1:])
}

func (s *SecretInfoGetSuite) TestSecretInfoGetByLabel(c *gc.C) {
	ctx := newMockContext()
	ctx.metadata = s.metadata()
	com, err := jujuc.NewCommand(ctx, "secret-info-get")
	c.Assert(err, jc.ErrorIsNil)

	cmdCtx, err := cmdtesting.RunCommand(c, com, "--label", "db-password", "--format", "json")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(cmdtesting.Stdout(cmdCtx), gc.Matches, `\{"9m4e2mr0ui3e8a215n4g":.*"label":"db-password".*\}\n`)
}

func (s *SecretInfoGetSuite) TestSecretInfoGetNotFound(c *gc.C) {
	ctx := newMockContext()
	ctx.metadata = s.metadata()
	com, err := jujuc.NewCommand(ctx, "secret-info-get")
	c.Assert(err, jc.ErrorIsNil)

	_, err = cmdtesting.RunCommand(c, com, "secret:deadbeef")
	c.Assert(err, gc.ErrorMatches, `secret "secret:deadbeef" not found`)

	com, err = jujuc.NewCommand(ctx, "secret-info-get")
	c.Assert(err, jc.ErrorIsNil)
	_, err = cmdtesting.RunCommand(c, com, "--label", "nope")
	c.Assert(err, gc.ErrorMatches, `secret with label "nope" not found`)
}
