// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package service implements the charm-facing secret operations:
// creation, content reads with tracked/latest indirection, metadata
// updates, relation scoped grants, and removal. Every management
// operation is gated on the caller's rights over the secret.
package service

import (
	"context"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4"

	"github.com/tonyandrewmeyer/ops-scenario/core/relation"
	coresecrets "github.com/tonyandrewmeyer/ops-scenario/core/secrets"
	domainsecret "github.com/tonyandrewmeyer/ops-scenario/domain/secret"
	secreterrors "github.com/tonyandrewmeyer/ops-scenario/domain/secret/errors"
	"github.com/tonyandrewmeyer/ops-scenario/domain/secret/state"
)

var logger = loggo.GetLogger("scenario.secrets")

// ConsumerState tracks which revision of each secret the unit has last
// read, and any consumer labels. It is the per-viewer cursor side
// table; the aggregate state holds no cursors of its own.
type ConsumerState interface {
	ConsumedRevision(uri string) (int, bool)
	SetConsumedRevision(uri string, revision int)
	ConsumerLabel(uri string) (string, bool)
	SetConsumerLabel(uri, label string)
	URIForLabel(label string) (string, bool)
	SecretRemoved(uri string)
}

// SecretService provides the API for working with secrets within one
// hook context. It operates on the context's working copy of the
// model state; nothing it does is visible outside the context until
// the context commits.
type SecretService struct {
	st        *state.State
	consumers ConsumerState
	relations relation.Topology

	// legacyTracking is set once per context from the declared
	// platform version. Under it, owners always read and track the
	// latest revision on ordinary gets.
	legacyTracking bool

	clock         clock.Clock
	uuidGenerator func() (utils.UUID, error)
}

// NewSecretService returns a new secret service operating on the given
// working state.
func NewSecretService(
	st *state.State,
	consumers ConsumerState,
	relations relation.Topology,
	legacyTracking bool,
	clk clock.Clock,
) *SecretService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &SecretService{
		st:             st,
		consumers:      consumers,
		relations:      relations,
		legacyTracking: legacyTracking,
		clock:          clk,
		uuidGenerator:  utils.NewUUID,
	}
}

func (s *SecretService) newRevisionID() (string, error) {
	id, err := s.uuidGenerator()
	if err != nil {
		return "", errors.Trace(err)
	}
	return id.String(), nil
}

// CreateCharmSecret creates a secret owned by the calling unit or its
// application, with revision 0 holding the given content. The tracked
// revision is seeded to the revision just written.
func (s *SecretService) CreateCharmSecret(
	ctx context.Context, accessor domainsecret.Accessor,
	ownerKind coresecrets.OwnerKind, p domainsecret.UpsertSecretParams,
) (*coresecrets.URI, error) {
	if len(p.Data) == 0 {
		return nil, errors.NotValidf("empty secret content")
	}
	var owner coresecrets.Owner
	switch ownerKind {
	case coresecrets.ApplicationOwner:
		if !accessor.Leader {
			return nil, errors.Annotatef(secreterrors.PermissionDenied,
				"cannot create an application owned secret without leadership")
		}
		owner = coresecrets.Owner{Kind: coresecrets.ApplicationOwner, ID: accessor.ApplicationName()}
	case coresecrets.UnitOwner:
		owner = coresecrets.Owner{Kind: coresecrets.UnitOwner, ID: accessor.Unit.Id()}
	default:
		return nil, errors.NotValidf("secret owner kind %q", ownerKind)
	}

	uri := coresecrets.NewURI()
	now := s.clock.Now()
	md := coresecrets.SecretMetadata{
		URI:          uri,
		Owner:        owner,
		Version:      1,
		RotatePolicy: coresecrets.RotateNever,
		CreateTime:   now,
		UpdateTime:   now,
	}
	if p.Label != nil {
		md.Label = *p.Label
	}
	if p.Description != nil {
		md.Description = *p.Description
	}
	if p.RotatePolicy != nil {
		if !p.RotatePolicy.IsValid() {
			return nil, errors.NotValidf("rotate policy %q", *p.RotatePolicy)
		}
		md.RotatePolicy = *p.RotatePolicy
	}
	if p.ExpireTime != nil {
		t := *p.ExpireTime
		md.ExpireTime = &t
	}

	revisionID, err := s.newRevisionID()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := s.st.CreateSecret(md, p.Data, revisionID); err != nil {
		return nil, errors.Trace(err)
	}
	s.consumers.SetConsumedRevision(uri.ID, 0)
	logger.Debugf("created %s owned secret %q", ownerKind, uri)
	return uri, nil
}

// resolveURI resolves a secret by URI or, failing that, by label,
// consulting the owner label index first and then the unit's own
// consumer labels.
func (s *SecretService) resolveURI(uri *coresecrets.URI, label string) (*coresecrets.URI, error) {
	if uri != nil {
		if _, err := s.st.GetSecret(uri); err != nil {
			return nil, errors.Trace(err)
		}
		return uri, nil
	}
	if label == "" {
		return nil, errors.Annotate(secreterrors.SecretNotFound, "no URI or label specified")
	}
	resolved, err := s.st.GetURIByLabel(label)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, secreterrors.SecretNotFound) {
		return nil, errors.Trace(err)
	}
	if id, ok := s.consumers.URIForLabel(label); ok {
		return &coresecrets.URI{ID: id}, nil
	}
	return nil, errors.Annotatef(secreterrors.SecretNotFound, "secret with label %q", label)
}

// GetSecretValue returns a content snapshot of the secret.
//
// With neither refresh nor peek, the snapshot is the one at the
// unit's tracked revision; a first ever read pins the cursor to the
// latest revision. refresh moves the cursor to latest and returns it.
// peek returns latest without moving anything. Owners under legacy
// tracking behave as if every ordinary get were a refresh.
func (s *SecretService) GetSecretValue(
	ctx context.Context, accessor domainsecret.Accessor,
	uri *coresecrets.URI, label string, refresh, peek bool,
) (coresecrets.SecretData, error) {
	resolved, err := s.resolveURI(uri, label)
	if err != nil {
		return nil, errors.Trace(err)
	}
	md, err := s.st.GetSecret(resolved)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := s.checkCanRead(accessor, md); err != nil {
		return nil, errors.Trace(err)
	}
	if uri != nil && label != "" {
		s.consumers.SetConsumerLabel(resolved.ID, label)
	}

	cur, tracked := s.consumers.ConsumedRevision(resolved.ID)
	if !tracked {
		// A first read pins the cursor.
		refresh = true
	}
	rev := cur
	if refresh || peek {
		rev = md.LatestRevision
	}
	if s.legacyTracking && !md.Owner.IsZero() && !peek {
		// Before 3.1.7 owners always tracked the latest revision,
		// whether or not they asked to.
		rev = md.LatestRevision
		refresh = true
	}
	if refresh {
		s.consumers.SetConsumedRevision(resolved.ID, rev)
	}
	return s.st.GetSecretValue(resolved, rev)
}

// GetSecretMetadata returns the metadata of the secret. Only entities
// that can manage the secret may see its metadata.
func (s *SecretService) GetSecretMetadata(
	ctx context.Context, accessor domainsecret.Accessor,
	uri *coresecrets.URI, label string,
) (*coresecrets.SecretMetadata, error) {
	resolved, err := s.resolveURI(uri, label)
	if err != nil {
		return nil, errors.Trace(err)
	}
	md, err := s.st.GetSecret(resolved)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := s.checkCanManage(accessor, md); err != nil {
		return nil, errors.Trace(err)
	}
	return md, nil
}

// ListCharmSecrets returns the metadata of all secrets the accessor
// can manage, for the secret-ids listing.
func (s *SecretService) ListCharmSecrets(
	ctx context.Context, accessor domainsecret.Accessor,
) ([]*coresecrets.SecretMetadata, error) {
	var result []*coresecrets.SecretMetadata
	for _, md := range s.st.ListSecrets() {
		if s.canManage(accessor, md) {
			result = append(result, md)
		}
	}
	return result, nil
}

// UpdateCharmSecret applies a partial update to the secret: any of the
// metadata attributes, plus optionally a new content revision. Only
// provided attributes change. Appending content does not move the
// tracked revision.
func (s *SecretService) UpdateCharmSecret(
	ctx context.Context, accessor domainsecret.Accessor,
	uri *coresecrets.URI, p domainsecret.UpsertSecretParams,
) error {
	if !p.HasUpdate() {
		return errors.New("must specify a new value or metadata to update a secret")
	}
	md, err := s.st.GetSecret(uri)
	if err != nil {
		return errors.Trace(err)
	}
	if err := s.checkCanManage(accessor, md); err != nil {
		return errors.Trace(err)
	}
	if p.RotatePolicy != nil && !p.RotatePolicy.IsValid() {
		return errors.NotValidf("rotate policy %q", *p.RotatePolicy)
	}
	now := s.clock.Now()
	if err := s.st.UpdateSecretMetadata(uri, p.Label, p.Description, p.RotatePolicy, p.ExpireTime, now); err != nil {
		return errors.Trace(err)
	}
	if len(p.Data) > 0 {
		revisionID, err := s.newRevisionID()
		if err != nil {
			return errors.Trace(err)
		}
		rev, err := s.st.AppendRevision(uri, p.Data, revisionID, now)
		if err != nil {
			return errors.Trace(err)
		}
		logger.Debugf("appended revision %d to secret %q", rev, uri)
	}
	return nil
}

// GrantSecretAccess grants read access to the secret through the given
// relation. With no unit specified the grant is recorded against the
// relation's remote application; otherwise against that unit.
func (s *SecretService) GrantSecretAccess(
	ctx context.Context, accessor domainsecret.Accessor,
	uri *coresecrets.URI, p domainsecret.GrantRevokeParams,
) error {
	scope, err := s.grantScope(accessor, uri, p)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("granting %q access to secret %q via relation %d", scope, uri, p.RelationID)
	return s.st.GrantAccess(uri, p.RelationID, scope)
}

// RevokeSecretAccess revokes a previously made grant. Revoking a scope
// that was never granted is a no-op.
func (s *SecretService) RevokeSecretAccess(
	ctx context.Context, accessor domainsecret.Accessor,
	uri *coresecrets.URI, p domainsecret.GrantRevokeParams,
) error {
	scope, err := s.grantScope(accessor, uri, p)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("revoking %q access to secret %q via relation %d", scope, uri, p.RelationID)
	return s.st.RevokeAccess(uri, p.RelationID, scope)
}

func (s *SecretService) grantScope(
	accessor domainsecret.Accessor, uri *coresecrets.URI, p domainsecret.GrantRevokeParams,
) (string, error) {
	md, err := s.st.GetSecret(uri)
	if err != nil {
		return "", errors.Trace(err)
	}
	if err := s.checkCanManage(accessor, md); err != nil {
		return "", errors.Trace(err)
	}
	rel, err := s.relations.Get(p.RelationID)
	if err != nil {
		return "", errors.Trace(err)
	}
	if p.Unit != nil {
		return p.Unit.Id(), nil
	}
	return rel.RemoteApplication, nil
}

// RemoveSecret removes the given revision, or every revision if none
// is specified. Once no revisions remain the secret is gone: grants
// are wiped and it cannot be resolved by URI or label again.
func (s *SecretService) RemoveSecret(
	ctx context.Context, accessor domainsecret.Accessor,
	uri *coresecrets.URI, revision *int,
) error {
	md, err := s.st.GetSecret(uri)
	if err != nil {
		return errors.Trace(err)
	}
	if err := s.checkCanManage(accessor, md); err != nil {
		return errors.Trace(err)
	}
	if revision != nil {
		if err := s.st.RemoveRevision(uri, *revision); err != nil {
			return errors.Trace(err)
		}
	} else {
		if err := s.st.RemoveSecret(uri); err != nil {
			return errors.Trace(err)
		}
	}
	if _, err := s.st.GetSecret(uri); errors.Is(err, secreterrors.SecretNotFound) {
		s.consumers.SecretRemoved(uri.ID)
		logger.Debugf("removed secret %q", uri)
	}
	return nil
}
