// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package context implements one simulated unit-of-work session: a
// hook context opened against committed model state. Every operation
// issued through the context mutates a private working copy; nothing
// becomes visible to later contexts until Flush commits the copy
// atomically. An erroring hook simply never flushes.
package context

import (
	stdcontext "context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"
	"github.com/juju/version/v2"

	"github.com/tonyandrewmeyer/ops-scenario/core/relation"
	coresecrets "github.com/tonyandrewmeyer/ops-scenario/core/secrets"
	domainsecret "github.com/tonyandrewmeyer/ops-scenario/domain/secret"
	"github.com/tonyandrewmeyer/ops-scenario/domain/secret/service"
	"github.com/tonyandrewmeyer/ops-scenario/domain/secret/state"
	"github.com/tonyandrewmeyer/ops-scenario/internal/uniter/hook"
	unitersecrets "github.com/tonyandrewmeyer/ops-scenario/internal/uniter/secrets"
	"github.com/tonyandrewmeyer/ops-scenario/internal/uniter/runner/jujuc"
)

var logger = loggo.GetLogger("scenario.uniter.context")

// legacyTrackingCutoff is the first platform version on which secret
// owners stopped implicitly tracking the latest revision.
// See https://bugs.launchpad.net/juju/+bug/2037120.
var legacyTrackingCutoff = version.MustParse("3.1.7")

const defaultJujuVersion = "3.4.0"

// SecretSeed describes a secret pre-seeded into the model state before
// a context opens, with an arbitrary pre-existing revision history.
type SecretSeed struct {
	// URI identifies the secret; generated when nil.
	URI *coresecrets.URI

	// Owner declares which side of the local unit owns the secret:
	// its application, the unit itself, or (when empty) nobody local,
	// making the unit a pure consumer.
	Owner coresecrets.OwnerKind

	Label        string
	Description  string
	RotatePolicy coresecrets.RotatePolicy
	ExpireTime   *time.Time

	// Contents maps revision numbers, contiguous from 0, to content
	// snapshots.
	Contents map[int]coresecrets.SecretData

	// TrackedRevision pins the unit's read cursor; defaults to the
	// latest revision present in Contents.
	TrackedRevision *int

	// Grants seeds remote grants, keyed by relation id.
	Grants map[int][]string
}

// Params configure a hook context.
type Params struct {
	// UnitName is the local unit, e.g. "local/0".
	UnitName string

	// Leader is whether the unit holds application leadership for the
	// duration of the context.
	Leader bool

	// JujuVersion is the platform version string the context
	// simulates. Versions before 3.1.7 enable legacy owner tracking.
	JujuVersion string

	// Relations is the current relation topology.
	Relations relation.Topology

	// State is the committed secret state from a previous context's
	// Flush. Nil starts empty.
	State *state.State

	// Secrets are applied to the working state before the context is
	// handed out.
	Secrets []SecretSeed

	// ConsumerState carries the unit's tracked-revision document
	// across contexts. Nil uses a fresh in-memory document.
	ConsumerState unitersecrets.UnitStateReadWriter

	Clock clock.Clock
}

// HookContext exposes the secret operations available to a charm
// during a single hook. It implements jujuc.Context.
type HookContext struct {
	unit     names.UnitTag
	accessor domainsecret.Accessor

	legacyTracking bool
	relations      relation.Topology

	working *state.State
	tracker *unitersecrets.Secrets
	secrets *service.SecretService

	flushed bool
}

// NewHookContext opens a context over a working copy of the supplied
// committed state.
func NewHookContext(p Params) (*HookContext, error) {
	if !names.IsValidUnit(p.UnitName) {
		return nil, errors.NotValidf("unit name %q", p.UnitName)
	}
	unitTag := names.NewUnitTag(p.UnitName)

	verStr := p.JujuVersion
	if verStr == "" {
		verStr = defaultJujuVersion
	}
	ver, err := version.Parse(verStr)
	if err != nil {
		return nil, errors.NotValidf("juju version %q", verStr)
	}
	legacy := ver.Compare(legacyTrackingCutoff) < 0

	clk := p.Clock
	if clk == nil {
		clk = clock.WallClock
	}

	rw := p.ConsumerState
	if rw == nil {
		rw = unitersecrets.NewMemoryStateReadWriter()
	}
	tracker, err := unitersecrets.NewSecrets(rw)
	if err != nil {
		return nil, errors.Trace(err)
	}

	working := state.NewState()
	if p.State != nil {
		working = p.State.Clone()
	}

	ctx := &HookContext{
		unit:           unitTag,
		accessor:       domainsecret.Accessor{Unit: unitTag, Leader: p.Leader},
		legacyTracking: legacy,
		relations:      p.Relations,
		working:        working,
		tracker:        tracker,
	}
	for _, seed := range p.Secrets {
		if err := ctx.seedSecret(seed, clk.Now()); err != nil {
			return nil, errors.Trace(err)
		}
	}
	ctx.secrets = service.NewSecretService(working, tracker, p.Relations, legacy, clk)
	logger.Tracef("opened hook context for %q (leader=%v, legacy tracking=%v)",
		p.UnitName, p.Leader, legacy)
	return ctx, nil
}

func (c *HookContext) seedSecret(seed SecretSeed, now time.Time) error {
	uri := seed.URI
	if uri == nil {
		uri = coresecrets.NewURI()
	}
	var owner coresecrets.Owner
	switch seed.Owner {
	case coresecrets.ApplicationOwner:
		appName, err := names.UnitApplication(c.unit.Id())
		if err != nil {
			return errors.Trace(err)
		}
		owner = coresecrets.Owner{Kind: coresecrets.ApplicationOwner, ID: appName}
	case coresecrets.UnitOwner:
		owner = coresecrets.Owner{Kind: coresecrets.UnitOwner, ID: c.unit.Id()}
	case "":
		// A pure consumer relationship.
	default:
		return errors.NotValidf("secret owner kind %q", seed.Owner)
	}
	rotatePolicy := seed.RotatePolicy
	if rotatePolicy == "" {
		rotatePolicy = coresecrets.RotateNever
	}
	md := coresecrets.SecretMetadata{
		URI:          uri,
		Owner:        owner,
		Version:      1,
		Label:        seed.Label,
		Description:  seed.Description,
		RotatePolicy: rotatePolicy,
		ExpireTime:   seed.ExpireTime,
		CreateTime:   now,
		UpdateTime:   now,
	}
	if err := c.working.ImportSecret(md, seed.Contents); err != nil {
		return errors.Trace(err)
	}
	for relationID, scopes := range seed.Grants {
		for _, scope := range scopes {
			if err := c.working.GrantAccess(uri, relationID, scope); err != nil {
				return errors.Trace(err)
			}
		}
	}
	tracked := len(seed.Contents) - 1
	if seed.TrackedRevision != nil {
		tracked = *seed.TrackedRevision
		if _, ok := seed.Contents[tracked]; !ok {
			return errors.NotValidf("tracked revision %d for secret %q", tracked, uri)
		}
	}
	c.tracker.SetConsumedRevision(uri.ID, tracked)
	return nil
}

// UnitName returns the local unit name.
func (c *HookContext) UnitName() string {
	return c.unit.Id()
}

// IsLeader reports whether the unit holds leadership in this context.
func (c *HookContext) IsLeader() bool {
	return c.accessor.Leader
}

// CreateSecret implements jujuc.SecretsAccessor.
func (c *HookContext) CreateSecret(args *jujuc.SecretCreateArgs) (*coresecrets.URI, error) {
	p := domainsecret.UpsertSecretParams{
		RotatePolicy: args.RotatePolicy,
		ExpireTime:   args.ExpireTime,
		Description:  args.Description,
		Label:        args.Label,
	}
	if args.Value != nil {
		data, err := args.Value.Values()
		if err != nil {
			return nil, errors.Trace(err)
		}
		p.Data = data
	}
	return c.secrets.CreateCharmSecret(stdcontext.Background(), c.accessor, args.OwnerKind, p)
}

// GetSecret implements jujuc.SecretsAccessor.
func (c *HookContext) GetSecret(uri *coresecrets.URI, label string, refresh, peek bool) (coresecrets.SecretValue, error) {
	data, err := c.secrets.GetSecretValue(stdcontext.Background(), c.accessor, uri, label, refresh, peek)
	if err != nil {
		return nil, errors.Trace(err)
	}
	raw := make(map[string][]byte, len(data))
	for k, v := range data {
		raw[k] = []byte(v)
	}
	return coresecrets.NewSecretBytes(raw), nil
}

// UpdateSecret implements jujuc.SecretsAccessor.
func (c *HookContext) UpdateSecret(uri *coresecrets.URI, args *jujuc.SecretUpdateArgs) error {
	p := domainsecret.UpsertSecretParams{
		RotatePolicy: args.RotatePolicy,
		ExpireTime:   args.ExpireTime,
		Description:  args.Description,
		Label:        args.Label,
	}
	if args.Value != nil {
		data, err := args.Value.Values()
		if err != nil {
			return errors.Trace(err)
		}
		p.Data = data
	}
	return c.secrets.UpdateCharmSecret(stdcontext.Background(), c.accessor, uri, p)
}

// SecretMetadata implements jujuc.SecretsAccessor.
func (c *HookContext) SecretMetadata() (map[string]jujuc.SecretMetadata, error) {
	owned, err := c.secrets.ListCharmSecrets(stdcontext.Background(), c.accessor)
	if err != nil {
		return nil, errors.Trace(err)
	}
	result := make(map[string]jujuc.SecretMetadata, len(owned))
	for _, md := range owned {
		result[md.URI.ID] = jujuc.SecretMetadata{
			Owner:          md.Owner,
			Label:          md.Label,
			Description:    md.Description,
			RotatePolicy:   md.RotatePolicy,
			ExpireTime:     md.ExpireTime,
			LatestRevision: md.LatestRevision,
		}
	}
	return result, nil
}

// GrantSecret implements jujuc.SecretsAccessor.
func (c *HookContext) GrantSecret(uri *coresecrets.URI, args *jujuc.SecretGrantRevokeArgs) error {
	return c.secrets.GrantSecretAccess(stdcontext.Background(), c.accessor, uri, grantRevokeParams(args))
}

// RevokeSecret implements jujuc.SecretsAccessor.
func (c *HookContext) RevokeSecret(uri *coresecrets.URI, args *jujuc.SecretGrantRevokeArgs) error {
	return c.secrets.RevokeSecretAccess(stdcontext.Background(), c.accessor, uri, grantRevokeParams(args))
}

func grantRevokeParams(args *jujuc.SecretGrantRevokeArgs) domainsecret.GrantRevokeParams {
	p := domainsecret.GrantRevokeParams{RelationID: args.RelationID}
	if args.UnitName != nil {
		tag := names.NewUnitTag(*args.UnitName)
		p.Unit = &tag
	}
	return p
}

// RemoveSecret implements jujuc.SecretsAccessor.
func (c *HookContext) RemoveSecret(uri *coresecrets.URI, revision *int) error {
	return c.secrets.RemoveSecret(stdcontext.Background(), c.accessor, uri, revision)
}

// Flush commits the context's working copy, returning it as the new
// committed state, and writes the unit's tracked-revision document.
// A context can only be flushed once.
func (c *HookContext) Flush() (*state.State, error) {
	if c.flushed {
		return nil, errors.New("hook context already committed")
	}
	if err := c.tracker.Commit(); err != nil {
		return nil, errors.Trace(err)
	}
	c.flushed = true
	logger.Tracef("committed hook context for %q", c.unit.Id())
	return c.working, nil
}

// NewSecretHook builds the info for a secret hook to be fired against
// the charm, validating it eagerly against the committed state: all
// secret hooks here concern secrets the local unit does not own, so
// referencing an owned secret is a usage error, caught before any
// dispatch happens.
func NewSecretHook(st *state.State, kind hook.Kind, uri *coresecrets.URI, revision *int) (hook.Info, error) {
	md, err := st.GetSecret(uri)
	if err != nil {
		return hook.Info{}, errors.Trace(err)
	}
	if !md.Owner.IsZero() {
		return hook.Info{}, errors.NotValidf("%q hook for a secret owned by %s", kind, md.Owner)
	}
	if kind.NeedsRevision() && revision == nil {
		return hook.Info{}, errors.NotValidf("%q hook with no revision", kind)
	}
	if !kind.NeedsRevision() && revision != nil {
		return hook.Info{}, errors.NotValidf("%q hook with a revision", kind)
	}
	hi := hook.Info{
		Kind:      kind,
		SecretURI: uri.String(),
	}
	if revision != nil {
		hi.SecretRevision = *revision
	}
	if err := hi.Validate(); err != nil {
		return hook.Info{}, errors.Trace(err)
	}
	return hi, nil
}
