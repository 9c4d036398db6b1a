// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package secret holds the parameter types shared by the secret
// service and its callers.
package secret

import (
	"time"

	"github.com/juju/names/v5"

	"github.com/tonyandrewmeyer/ops-scenario/core/secrets"
)

// Accessor is the entity performing a secret operation: the local
// unit, plus whether it currently holds application leadership.
type Accessor struct {
	Unit   names.UnitTag
	Leader bool
}

// ApplicationName returns the name of the accessor's application.
func (a Accessor) ApplicationName() string {
	appName, _ := names.UnitApplication(a.Unit.Id())
	return appName
}

// UpsertSecretParams are used to update a secret.
// Only non-nil values are used.
type UpsertSecretParams struct {
	RotatePolicy *secrets.RotatePolicy
	ExpireTime   *time.Time
	Description  *string
	Label        *string

	Data secrets.SecretData
}

// HasUpdate returns true if at least one attribute to update is set.
func (u *UpsertSecretParams) HasUpdate() bool {
	return u.RotatePolicy != nil ||
		u.ExpireTime != nil ||
		u.Description != nil ||
		u.Label != nil ||
		len(u.Data) > 0
}

// GrantRevokeParams are used when granting or revoking access to a
// secret through a relation. A nil Unit means the grant is made at
// application scope, recording the relation's remote application name.
type GrantRevokeParams struct {
	RelationID int
	Unit       *names.UnitTag
}
