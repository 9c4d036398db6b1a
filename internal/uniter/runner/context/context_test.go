// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package context_test

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/tonyandrewmeyer/ops-scenario/core/relation"
	coresecrets "github.com/tonyandrewmeyer/ops-scenario/core/secrets"
	secreterrors "github.com/tonyandrewmeyer/ops-scenario/domain/secret/errors"
	"github.com/tonyandrewmeyer/ops-scenario/internal/uniter/runner/context"
	"github.com/tonyandrewmeyer/ops-scenario/internal/uniter/runner/jujuc"
	unitersecrets "github.com/tonyandrewmeyer/ops-scenario/internal/uniter/secrets"
)

type contextSuite struct{}

var _ = gc.Suite(&contextSuite{})

func newContext(c *gc.C, p context.Params) *context.HookContext {
	if p.UnitName == "" {
		p.UnitName = "local/0"
	}
	ctx, err := context.NewHookContext(p)
	c.Assert(err, jc.ErrorIsNil)
	return ctx
}

func values(c *gc.C, v coresecrets.SecretValue) map[string]string {
	data, err := v.Values()
	c.Assert(err, jc.ErrorIsNil)
	return data
}

func ptr[T any](v T) *T {
	return &v
}

func (s *contextSuite) TestInvalidUnitName(c *gc.C) {
	_, err := context.NewHookContext(context.Params{UnitName: "notaunit"})
	c.Assert(err, jc.ErrorIs, errors.NotValid)
}

func (s *contextSuite) TestInvalidJujuVersion(c *gc.C) {
	_, err := context.NewHookContext(context.Params{UnitName: "local/0", JujuVersion: "fnord"})
	c.Assert(err, jc.ErrorIs, errors.NotValid)
}

func (s *contextSuite) TestGetUnknownSecret(c *gc.C) {
	ctx := newContext(c, context.Params{})
	_, err := ctx.GetSecret(coresecrets.NewURI(), "", false, false)
	c.Assert(err, jc.ErrorIs, secreterrors.SecretNotFound)
	_, err = ctx.GetSecret(nil, "no-such-label", false, false)
	c.Assert(err, jc.ErrorIs, secreterrors.SecretNotFound)
}

func (s *contextSuite) TestGetSeededSecret(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
		}},
	})
	value, err := ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "xoxo"})
}

func (s *contextSuite) TestSeededSecretTracksLatestByDefault(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Secrets: []context.SecretSeed{{
			URI: uri,
			Contents: map[int]coresecrets.SecretData{
				0: {"password": "old"},
				1: {"password": "new"},
			},
		}},
	})
	value, err := ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "new"})
}

func (s *contextSuite) TestSeededSecretTrackedRevisionPinned(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Secrets: []context.SecretSeed{{
			URI: uri,
			Contents: map[int]coresecrets.SecretData{
				0: {"password": "old"},
				1: {"password": "new"},
			},
			TrackedRevision: ptr(0),
		}},
	})
	value, err := ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "old"})

	// peek sees the latest without moving the cursor.
	value, err = ctx.GetSecret(uri, "", false, true)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "new"})
	value, err = ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "old"})

	// refresh moves it.
	value, err = ctx.GetSecret(uri, "", true, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "new"})
	value, err = ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "new"})
}

func (s *contextSuite) TestSeededTrackedRevisionMustExist(c *gc.C) {
	_, err := context.NewHookContext(context.Params{
		UnitName: "local/0",
		Secrets: []context.SecretSeed{{
			Contents:        map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
			TrackedRevision: ptr(3),
		}},
	})
	c.Assert(err, jc.ErrorIs, errors.NotValid)
}

func (s *contextSuite) TestAddUnitSecret(c *gc.C) {
	ctx := newContext(c, context.Params{})
	uri, err := ctx.CreateSecret(&jujuc.SecretCreateArgs{
		SecretUpdateArgs: jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("xoxo")}),
			Label: ptr("mylabel"),
		},
		OwnerKind: coresecrets.UnitOwner,
	})
	c.Assert(err, jc.ErrorIsNil)

	value, err := ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "xoxo"})

	meta, err := ctx.SecretMetadata()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(meta, gc.HasLen, 1)
	md := meta[uri.ID]
	c.Assert(md.Owner, gc.Equals, coresecrets.Owner{Kind: coresecrets.UnitOwner, ID: "local/0"})
	c.Assert(md.Label, gc.Equals, "mylabel")
	c.Assert(md.LatestRevision, gc.Equals, 0)
}

func (s *contextSuite) TestAddApplicationSecretNeedsLeadership(c *gc.C) {
	ctx := newContext(c, context.Params{Leader: false})
	_, err := ctx.CreateSecret(&jujuc.SecretCreateArgs{
		SecretUpdateArgs: jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("xoxo")}),
		},
		OwnerKind: coresecrets.ApplicationOwner,
	})
	c.Assert(err, jc.ErrorIs, secreterrors.PermissionDenied)

	ctx = newContext(c, context.Params{Leader: true})
	uri, err := ctx.CreateSecret(&jujuc.SecretCreateArgs{
		SecretUpdateArgs: jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("xoxo")}),
		},
		OwnerKind: coresecrets.ApplicationOwner,
	})
	c.Assert(err, jc.ErrorIsNil)

	meta, err := ctx.SecretMetadata()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(meta[uri.ID].Owner, gc.Equals, coresecrets.Owner{Kind: coresecrets.ApplicationOwner, ID: "local"})
}

func (s *contextSuite) TestUpdateSecretAccumulatesRevisions(c *gc.C) {
	ctx := newContext(c, context.Params{})
	uri, err := ctx.CreateSecret(&jujuc.SecretCreateArgs{
		SecretUpdateArgs: jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("aaa")}),
		},
		OwnerKind: coresecrets.UnitOwner,
	})
	c.Assert(err, jc.ErrorIsNil)
	for _, pw := range []string{"bbb", "ccc"} {
		err = ctx.UpdateSecret(uri, &jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte(pw)}),
		})
		c.Assert(err, jc.ErrorIsNil)
	}

	st, err := ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)
	contents, err := st.GetSecretContents(uri)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(contents, jc.DeepEquals, map[int]coresecrets.SecretData{
		0: {"password": "aaa"},
		1: {"password": "bbb"},
		2: {"password": "ccc"},
	})
}

func (s *contextSuite) TestOwnerGetAfterUpdate(c *gc.C) {
	ctx := newContext(c, context.Params{JujuVersion: "3.4.0"})
	uri, err := ctx.CreateSecret(&jujuc.SecretCreateArgs{
		SecretUpdateArgs: jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("old")}),
		},
		OwnerKind: coresecrets.UnitOwner,
	})
	c.Assert(err, jc.ErrorIsNil)
	err = ctx.UpdateSecret(uri, &jujuc.SecretUpdateArgs{
		Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("new")}),
	})
	c.Assert(err, jc.ErrorIsNil)

	// The owner stays on its tracked revision until it asks to move.
	value, err := ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "old"})
	value, err = ctx.GetSecret(uri, "", false, true)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "new"})
}

func (s *contextSuite) TestOwnerGetAfterUpdateLegacy(c *gc.C) {
	ctx := newContext(c, context.Params{JujuVersion: "3.1.6"})
	uri, err := ctx.CreateSecret(&jujuc.SecretCreateArgs{
		SecretUpdateArgs: jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("old")}),
		},
		OwnerKind: coresecrets.UnitOwner,
	})
	c.Assert(err, jc.ErrorIsNil)
	err = ctx.UpdateSecret(uri, &jujuc.SecretUpdateArgs{
		Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("new")}),
	})
	c.Assert(err, jc.ErrorIsNil)

	// Before 3.1.7 owners implicitly read the latest revision.
	value, err := ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "new"})
}

func (s *contextSuite) TestUpdateSecretMetadata(c *gc.C) {
	ctx := newContext(c, context.Params{})
	uri, err := ctx.CreateSecret(&jujuc.SecretCreateArgs{
		SecretUpdateArgs: jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("xoxo")}),
		},
		OwnerKind: coresecrets.UnitOwner,
	})
	c.Assert(err, jc.ErrorIsNil)

	err = ctx.UpdateSecret(uri, &jujuc.SecretUpdateArgs{
		Label:        ptr("mylabel"),
		Description:  ptr("babbuccia"),
		RotatePolicy: ptr(coresecrets.RotateDaily),
	})
	c.Assert(err, jc.ErrorIsNil)

	meta, err := ctx.SecretMetadata()
	c.Assert(err, jc.ErrorIsNil)
	md := meta[uri.ID]
	c.Assert(md.Label, gc.Equals, "mylabel")
	c.Assert(md.Description, gc.Equals, "babbuccia")
	c.Assert(md.RotatePolicy, gc.Equals, coresecrets.RotateDaily)
	// Metadata only updates add no revision.
	c.Assert(md.LatestRevision, gc.Equals, 0)
}

func (s *contextSuite) TestSecretMetadataExcludesUnmanaged(c *gc.C) {
	foreign := coresecrets.NewURI()
	appOwned := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Leader: false,
		Secrets: []context.SecretSeed{{
			URI:      foreign,
			Contents: map[int]coresecrets.SecretData{0: {"a": "b"}},
		}, {
			URI:      appOwned,
			Owner:    coresecrets.ApplicationOwner,
			Contents: map[int]coresecrets.SecretData{0: {"c": "d"}},
		}},
	})
	meta, err := ctx.SecretMetadata()
	c.Assert(err, jc.ErrorIsNil)
	// Not leader: neither the foreign nor the application owned secret
	// is manageable.
	c.Assert(meta, gc.HasLen, 0)
}

func (s *contextSuite) TestGrantApplicationScope(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Relations: relation.NewTopology(relation.UnitRelation{
			ID: 1, Endpoint: "db", RemoteApplication: "remote", RemoteUnits: []string{"remote/0"},
		}),
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Owner:    coresecrets.UnitOwner,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
		}},
	})
	err := ctx.GrantSecret(uri, &jujuc.SecretGrantRevokeArgs{RelationID: 1})
	c.Assert(err, jc.ErrorIsNil)

	st, err := ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)
	grants, err := st.GetSecretGrants(uri)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(grants, jc.DeepEquals, map[int][]string{1: {"remote"}})
}

func (s *contextSuite) TestGrantUnitScope(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Relations: relation.NewTopology(relation.UnitRelation{
			ID: 1, RemoteApplication: "remote", RemoteUnits: []string{"remote/0"},
		}),
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Owner:    coresecrets.UnitOwner,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
		}},
	})
	err := ctx.GrantSecret(uri, &jujuc.SecretGrantRevokeArgs{RelationID: 1, UnitName: ptr("remote/0")})
	c.Assert(err, jc.ErrorIsNil)

	st, err := ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)
	grants, err := st.GetSecretGrants(uri)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(grants, jc.DeepEquals, map[int][]string{1: {"remote/0"}})
}

func (s *contextSuite) TestGrantUnknownRelation(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Owner:    coresecrets.UnitOwner,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
		}},
	})
	err := ctx.GrantSecret(uri, &jujuc.SecretGrantRevokeArgs{RelationID: 7})
	c.Assert(err, jc.ErrorIs, relation.RelationNotFound)
}

func (s *contextSuite) TestGrantNotOwned(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Leader: true,
		Relations: relation.NewTopology(relation.UnitRelation{
			ID: 1, RemoteApplication: "remote",
		}),
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
		}},
	})
	err := ctx.GrantSecret(uri, &jujuc.SecretGrantRevokeArgs{RelationID: 1})
	c.Assert(err, jc.ErrorIs, secreterrors.PermissionDenied)
}

func (s *contextSuite) TestRevokeSecret(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Relations: relation.NewTopology(relation.UnitRelation{
			ID: 1, RemoteApplication: "remote",
		}),
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Owner:    coresecrets.UnitOwner,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
			Grants:   map[int][]string{1: {"remote"}},
		}},
	})
	err := ctx.RevokeSecret(uri, &jujuc.SecretGrantRevokeArgs{RelationID: 1})
	c.Assert(err, jc.ErrorIsNil)

	st, err := ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)
	grants, err := st.GetSecretGrants(uri)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(grants, jc.DeepEquals, map[int][]string{})
}

func (s *contextSuite) TestRemoveSecret(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Owner:    coresecrets.UnitOwner,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
		}},
	})
	err := ctx.RemoveSecret(uri, nil)
	c.Assert(err, jc.ErrorIsNil)

	st, err := ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)
	_, err = st.GetSecret(uri)
	c.Assert(err, jc.ErrorIs, secreterrors.SecretNotFound)
}

func (s *contextSuite) TestRemoveSingleRevision(c *gc.C) {
	uri := coresecrets.NewURI()
	ctx := newContext(c, context.Params{
		Secrets: []context.SecretSeed{{
			URI:   uri,
			Owner: coresecrets.UnitOwner,
			Contents: map[int]coresecrets.SecretData{
				0: {"password": "old"},
				1: {"password": "new"},
			},
		}},
	})
	err := ctx.RemoveSecret(uri, ptr(0))
	c.Assert(err, jc.ErrorIsNil)

	st, err := ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)
	contents, err := st.GetSecretContents(uri)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(contents, jc.DeepEquals, map[int]coresecrets.SecretData{1: {"password": "new"}})
}

func (s *contextSuite) TestUnflushedChangesInvisible(c *gc.C) {
	ctx := newContext(c, context.Params{})
	uri, err := ctx.CreateSecret(&jujuc.SecretCreateArgs{
		SecretUpdateArgs: jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("xoxo")}),
		},
		OwnerKind: coresecrets.UnitOwner,
	})
	c.Assert(err, jc.ErrorIsNil)

	// The context was never flushed; a successor sees nothing.
	next := newContext(c, context.Params{})
	_, err = next.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIs, secreterrors.SecretNotFound)
}

func (s *contextSuite) TestFlushOnlyOnce(c *gc.C) {
	ctx := newContext(c, context.Params{})
	_, err := ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)
	_, err = ctx.Flush()
	c.Assert(err, gc.ErrorMatches, "hook context already committed")
}

func (s *contextSuite) TestSeedIsolatedFromPriorState(c *gc.C) {
	uri := coresecrets.NewURI()
	first := newContext(c, context.Params{
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Owner:    coresecrets.UnitOwner,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
		}},
	})
	st, err := first.Flush()
	c.Assert(err, jc.ErrorIsNil)

	// Seeding the same URI again over the committed state fails.
	_, err = context.NewHookContext(context.Params{
		UnitName: "local/0",
		State:    st,
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
		}},
	})
	c.Assert(err, jc.ErrorIs, errors.AlreadyExists)
}

func (s *contextSuite) TestLifecycleAcrossContexts(c *gc.C) {
	rw := unitersecrets.NewMemoryStateReadWriter()

	// First hook: create the secret and update it once.
	ctx := newContext(c, context.Params{ConsumerState: rw})
	uri, err := ctx.CreateSecret(&jujuc.SecretCreateArgs{
		SecretUpdateArgs: jujuc.SecretUpdateArgs{
			Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("one")}),
			Label: ptr("mylabel"),
		},
		OwnerKind: coresecrets.UnitOwner,
	})
	c.Assert(err, jc.ErrorIsNil)
	st, err := ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)

	// Second hook: the secret is there, resolvable by label, and the
	// tracked revision survived the commit.
	ctx = newContext(c, context.Params{State: st, ConsumerState: rw})
	value, err := ctx.GetSecret(nil, "mylabel", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "one"})
	err = ctx.UpdateSecret(uri, &jujuc.SecretUpdateArgs{
		Value: coresecrets.NewSecretBytes(map[string][]byte{"password": []byte("two")}),
	})
	c.Assert(err, jc.ErrorIsNil)
	st, err = ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)

	// Third hook: still on revision 0 until an explicit refresh.
	ctx = newContext(c, context.Params{State: st, ConsumerState: rw})
	value, err = ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "one"})
	value, err = ctx.GetSecret(uri, "", true, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "two"})
	err = ctx.RemoveSecret(uri, nil)
	c.Assert(err, jc.ErrorIsNil)
	st, err = ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)

	// Fourth hook: gone for good.
	ctx = newContext(c, context.Params{State: st, ConsumerState: rw})
	_, err = ctx.GetSecret(uri, "", false, false)
	c.Assert(err, jc.ErrorIs, secreterrors.SecretNotFound)
	_, err = ctx.GetSecret(nil, "mylabel", false, false)
	c.Assert(err, jc.ErrorIs, secreterrors.SecretNotFound)
}

func (s *contextSuite) TestConsumerLabelAcrossContexts(c *gc.C) {
	rw := unitersecrets.NewMemoryStateReadWriter()
	uri := coresecrets.NewURI()

	ctx := newContext(c, context.Params{
		ConsumerState: rw,
		Secrets: []context.SecretSeed{{
			URI:      uri,
			Contents: map[int]coresecrets.SecretData{0: {"password": "xoxo"}},
		}},
	})
	// Reading with both URI and label records the label.
	_, err := ctx.GetSecret(uri, "theirs", false, false)
	c.Assert(err, jc.ErrorIsNil)
	st, err := ctx.Flush()
	c.Assert(err, jc.ErrorIsNil)

	ctx = newContext(c, context.Params{State: st, ConsumerState: rw})
	value, err := ctx.GetSecret(nil, "theirs", false, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(values(c, value), jc.DeepEquals, map[string]string{"password": "xoxo"})
}
