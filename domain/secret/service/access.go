// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"github.com/juju/errors"

	coresecrets "github.com/tonyandrewmeyer/ops-scenario/core/secrets"
	domainsecret "github.com/tonyandrewmeyer/ops-scenario/domain/secret"
	secreterrors "github.com/tonyandrewmeyer/ops-scenario/domain/secret/errors"
)

// canManage reports whether the accessor may manage the secret: view
// its metadata, set content, update metadata, grant, revoke and
// remove. A unit owned secret is managed by that unit; an application
// owned secret only by the leader. An unowned secret can never be
// managed locally, whatever the leadership.
func (s *SecretService) canManage(accessor domainsecret.Accessor, md *coresecrets.SecretMetadata) bool {
	switch md.Owner.Kind {
	case coresecrets.ApplicationOwner:
		return accessor.Leader && md.Owner.ID == accessor.ApplicationName()
	case coresecrets.UnitOwner:
		return md.Owner.ID == accessor.Unit.Id()
	}
	return false
}

func (s *SecretService) checkCanManage(accessor domainsecret.Accessor, md *coresecrets.SecretMetadata) error {
	if s.canManage(accessor, md) {
		return nil
	}
	return errors.Annotatef(secreterrors.PermissionDenied,
		"%q cannot manage secret %q", accessor.Unit.Id(), md.URI)
}

// checkCanRead gates content reads. Owners can always read. Any other
// secret present in the context's state was either shared with the
// unit through a granted relation or seeded directly into its visible
// state by the harness, so consumer reads are allowed without
// re-deriving the grant; management gating is what must always hold.
func (s *SecretService) checkCanRead(accessor domainsecret.Accessor, md *coresecrets.SecretMetadata) error {
	return nil
}
