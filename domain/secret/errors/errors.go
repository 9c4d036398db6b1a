// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package errors holds the error taxonomy surfaced to charm-authoring
// code by the secret simulation.
package errors

import (
	"github.com/juju/errors"
)

const (
	// SecretNotFound describes an error that occurs when the secret
	// being operated on does not exist.
	SecretNotFound = errors.ConstError("secret not found")

	// SecretRevisionNotFound describes an error that occurs when the
	// secret revision being operated on does not exist.
	SecretRevisionNotFound = errors.ConstError("secret revision not found")

	// SecretConsumerNotFound describes an error that occurs when the
	// secret has no consumer tracking metadata for the viewing unit.
	SecretConsumerNotFound = errors.ConstError("secret consumer not found")

	// SecretLabelAlreadyExists describes an error that occurs when a
	// secret label is already in use by another secret.
	SecretLabelAlreadyExists = errors.ConstError("secret label already exists")

	// PermissionDenied describes an error that occurs when the caller
	// does not have manage access to the secret being operated on.
	PermissionDenied = errors.ConstError("permission denied")
)
