// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package secrets_test

import (
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

type SecretURISuite struct{}

var _ = gc.Suite(&SecretURISuite{})

const secretID = "9m4e2mr0ui3e8a215n4g"

func (s *SecretURISuite) TestParseURI(c *gc.C) {
	for _, t := range []struct {
		in       string
		str      string
		expected *secrets.URI
		err      string
	}{
		{
			in:  "http:nope",
			err: `secret URI scheme "http" not valid`,
		}, {
			in:  "secret:",
			err: `empty secret URI not valid`,
		}, {
			in:       secretID,
			expected: &secrets.URI{ID: secretID},
		}, {
			in:       "secret:" + secretID,
			expected: &secrets.URI{ID: secretID},
		}, {
			// Seeded state may carry arbitrary opaque identifiers.
			in:       "foo",
			expected: &secrets.URI{ID: "foo"},
		},
	} {
		result, err := secrets.ParseURI(t.in)
		if t.err != "" {
			c.Check(err, gc.ErrorMatches, t.err)
			continue
		}
		c.Assert(err, jc.ErrorIsNil)
		c.Check(result, jc.DeepEquals, t.expected)
		if t.str == "" {
			t.str = "secret:" + t.expected.ID
		}
		c.Check(result.String(), gc.Equals, t.str)
	}
}

func (s *SecretURISuite) TestNewURI(c *gc.C) {
	uri := secrets.NewURI()
	c.Assert(uri.ID, gc.Not(gc.Equals), "")
	c.Assert(uri.String(), gc.Equals, "secret:"+uri.ID)

	other := secrets.NewURI()
	c.Assert(uri.ID, gc.Not(gc.Equals), other.ID)
}

type SecretSuite struct{}

var _ = gc.Suite(&SecretSuite{})

func (s *SecretSuite) TestRotatePolicy(c *gc.C) {
	c.Assert(secrets.RotateNever.WillRotate(), jc.IsFalse)
	c.Assert(secrets.RotatePolicy("").WillRotate(), jc.IsFalse)
	c.Assert(secrets.RotateHourly.WillRotate(), jc.IsTrue)
	c.Assert(secrets.RotateYearly.WillRotate(), jc.IsTrue)

	c.Assert(secrets.RotateDaily.IsValid(), jc.IsTrue)
	c.Assert(secrets.RotatePolicy("").IsValid(), jc.IsTrue)
	c.Assert(secrets.RotatePolicy("sometimes").IsValid(), jc.IsFalse)
}

func (s *SecretSuite) TestOwner(c *gc.C) {
	c.Assert(secrets.Owner{}.IsZero(), jc.IsTrue)
	owner := secrets.Owner{Kind: secrets.UnitOwner, ID: "local/0"}
	c.Assert(owner.IsZero(), jc.IsFalse)
	c.Assert(owner.String(), gc.Equals, "unit-local/0")
}

func (s *SecretSuite) TestCreateSecretData(c *gc.C) {
	data, err := secrets.CreateSecretData(false, []string{"token=s3cret", "hello=world"})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(data, jc.DeepEquals, secrets.SecretData{
		"token": "s3cret",
		"hello": "world",
	})
}

func (s *SecretSuite) TestCreateSecretDataBase64(c *gc.C) {
	data, err := secrets.CreateSecretData(true, []string{"token=czNjcmV0"})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(data, jc.DeepEquals, secrets.SecretData{"token": "s3cret"})
}

func (s *SecretSuite) TestCreateSecretDataErrors(c *gc.C) {
	_, err := secrets.CreateSecretData(false, []string{"nope"})
	c.Assert(err, gc.ErrorMatches, `key value "nope" not valid`)
	_, err = secrets.CreateSecretData(true, []string{"token=!!"})
	c.Assert(err, gc.ErrorMatches, `base64 value for key "token" not valid`)
	_, err = secrets.CreateSecretData(false, nil)
	c.Assert(err, gc.ErrorMatches, `empty secret value not valid`)
}
