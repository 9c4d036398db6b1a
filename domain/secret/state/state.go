// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package state implements the in-memory secret aggregate: metadata,
// an append-only numbered revision store, and relation scoped access
// grants. A State value is either the committed model state or a hook
// context's working copy; Clone produces the latter from the former.
package state

import (
	"sort"
	"time"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	coresecrets "github.com/tonyandrewmeyer/ops-scenario/core/secrets"
	secreterrors "github.com/tonyandrewmeyer/ops-scenario/domain/secret/errors"
)

type revisionRecord struct {
	meta coresecrets.SecretRevisionMetadata
	data coresecrets.SecretData
}

type secretRecord struct {
	md coresecrets.SecretMetadata

	// revisions is keyed by revision number. Appends are contiguous
	// from 0; removing a single revision may leave a gap.
	revisions map[int]revisionRecord

	// grants is keyed by relation id; members are remote unit or
	// application names. An empty set is never stored.
	grants map[int]set.Strings
}

// State holds the secrets known to the model, indexed by URI ID and by
// owner label.
type State struct {
	secrets map[string]*secretRecord
	labels  map[string]string
}

// NewState returns an empty secret state.
func NewState() *State {
	return &State{
		secrets: make(map[string]*secretRecord),
		labels:  make(map[string]string),
	}
}

// Clone returns a deep copy of the state, sharing nothing with the
// original. Hook contexts mutate a clone and swap it in at commit.
func (s *State) Clone() *State {
	out := NewState()
	for id, rec := range s.secrets {
		recCopy := &secretRecord{
			md:        rec.md,
			revisions: make(map[int]revisionRecord, len(rec.revisions)),
			grants:    make(map[int]set.Strings, len(rec.grants)),
		}
		uriCopy := *rec.md.URI
		recCopy.md.URI = &uriCopy
		if rec.md.ExpireTime != nil {
			t := *rec.md.ExpireTime
			recCopy.md.ExpireTime = &t
		}
		for rev, r := range rec.revisions {
			recCopy.revisions[rev] = revisionRecord{
				meta: r.meta,
				data: copyData(r.data),
			}
		}
		for relID, scopes := range rec.grants {
			recCopy.grants[relID] = set.NewStrings(scopes.Values()...)
		}
		out.secrets[id] = recCopy
	}
	for label, id := range s.labels {
		out.labels[label] = id
	}
	return out
}

func copyData(data coresecrets.SecretData) coresecrets.SecretData {
	out := make(coresecrets.SecretData, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (s *State) secret(uri *coresecrets.URI) (*secretRecord, error) {
	if uri == nil {
		return nil, errors.Annotate(secreterrors.SecretNotFound, "nil URI")
	}
	rec, ok := s.secrets[uri.ID]
	if !ok {
		return nil, errors.Annotatef(secreterrors.SecretNotFound, "secret %q", uri)
	}
	return rec, nil
}

func (s *State) checkLabelUnique(label string, uri *coresecrets.URI) error {
	if label == "" {
		return nil
	}
	if existing, ok := s.labels[label]; ok && existing != uri.ID {
		return errors.Annotatef(secreterrors.SecretLabelAlreadyExists, "label %q", label)
	}
	return nil
}

// CreateSecret records a new secret with revision 0 holding the given
// content. The metadata URI must be set; LatestRevision is maintained
// here.
func (s *State) CreateSecret(md coresecrets.SecretMetadata, data coresecrets.SecretData, revisionID string) error {
	if md.URI == nil || md.URI.ID == "" {
		return errors.NotValidf("secret URI")
	}
	if _, ok := s.secrets[md.URI.ID]; ok {
		return errors.AlreadyExistsf("secret %q", md.URI)
	}
	if len(data) == 0 {
		return errors.NotValidf("empty secret content")
	}
	if err := s.checkLabelUnique(md.Label, md.URI); err != nil {
		return errors.Trace(err)
	}
	md.LatestRevision = 0
	rec := &secretRecord{
		md:        md,
		revisions: make(map[int]revisionRecord),
		grants:    make(map[int]set.Strings),
	}
	rec.revisions[0] = revisionRecord{
		meta: coresecrets.SecretRevisionMetadata{
			Revision:   0,
			RevisionID: revisionID,
			CreateTime: md.CreateTime,
		},
		data: copyData(data),
	}
	s.secrets[md.URI.ID] = rec
	if md.Label != "" {
		s.labels[md.Label] = md.URI.ID
	}
	return nil
}

// ImportSecret seeds a secret with an arbitrary pre-existing revision
// history, as supplied by the harness before a session starts. The
// revision numbers must be contiguous from 0.
func (s *State) ImportSecret(md coresecrets.SecretMetadata, contents map[int]coresecrets.SecretData) error {
	if len(contents) == 0 {
		return errors.NotValidf("secret %q without content", md.URI)
	}
	for rev := 0; rev < len(contents); rev++ {
		if _, ok := contents[rev]; !ok {
			return errors.NotValidf("secret %q revisions with gap at %d", md.URI, rev)
		}
	}
	first, ok := contents[0]
	if !ok || len(first) == 0 {
		return errors.NotValidf("empty secret content")
	}
	if err := s.CreateSecret(md, first, ""); err != nil {
		return errors.Trace(err)
	}
	rec := s.secrets[md.URI.ID]
	for rev := 1; rev < len(contents); rev++ {
		rec.revisions[rev] = revisionRecord{
			meta: coresecrets.SecretRevisionMetadata{
				Revision:   rev,
				CreateTime: md.CreateTime,
			},
			data: copyData(contents[rev]),
		}
	}
	rec.md.LatestRevision = len(contents) - 1
	return nil
}

// GetSecret returns the metadata for the given secret.
func (s *State) GetSecret(uri *coresecrets.URI) (*coresecrets.SecretMetadata, error) {
	rec, err := s.secret(uri)
	if err != nil {
		return nil, errors.Trace(err)
	}
	md := rec.md
	uriCopy := *rec.md.URI
	md.URI = &uriCopy
	if rec.md.ExpireTime != nil {
		t := *rec.md.ExpireTime
		md.ExpireTime = &t
	}
	return &md, nil
}

// GetURIByLabel returns the URI of the secret with the given owner label.
func (s *State) GetURIByLabel(label string) (*coresecrets.URI, error) {
	id, ok := s.labels[label]
	if !ok {
		return nil, errors.Annotatef(secreterrors.SecretNotFound, "secret with label %q", label)
	}
	return &coresecrets.URI{ID: id}, nil
}

// ListSecrets returns the metadata for all secrets, ordered by URI ID.
func (s *State) ListSecrets() []*coresecrets.SecretMetadata {
	ids := make([]string, 0, len(s.secrets))
	for id := range s.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	result := make([]*coresecrets.SecretMetadata, len(ids))
	for i, id := range ids {
		md, _ := s.GetSecret(&coresecrets.URI{ID: id})
		result[i] = md
	}
	return result
}

// UpdateSecretMetadata applies a partial metadata update. Only non-nil
// attributes are changed.
func (s *State) UpdateSecretMetadata(
	uri *coresecrets.URI,
	label, description *string,
	rotatePolicy *coresecrets.RotatePolicy,
	expireTime *time.Time,
	now time.Time,
) error {
	rec, err := s.secret(uri)
	if err != nil {
		return errors.Trace(err)
	}
	if label != nil {
		if err := s.checkLabelUnique(*label, uri); err != nil {
			return errors.Trace(err)
		}
	}
	if label != nil {
		if rec.md.Label != "" {
			delete(s.labels, rec.md.Label)
		}
		rec.md.Label = *label
		if *label != "" {
			s.labels[*label] = uri.ID
		}
	}
	if description != nil {
		rec.md.Description = *description
	}
	if rotatePolicy != nil {
		rec.md.RotatePolicy = *rotatePolicy
	}
	if expireTime != nil {
		t := *expireTime
		rec.md.ExpireTime = &t
	}
	rec.md.UpdateTime = now
	return nil
}

// AppendRevision adds a new immutable content snapshot and returns its
// revision number, one past the current latest.
func (s *State) AppendRevision(uri *coresecrets.URI, data coresecrets.SecretData, revisionID string, now time.Time) (int, error) {
	rec, err := s.secret(uri)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if len(data) == 0 {
		return 0, errors.NotValidf("empty secret content")
	}
	next := rec.md.LatestRevision + 1
	rec.revisions[next] = revisionRecord{
		meta: coresecrets.SecretRevisionMetadata{
			Revision:   next,
			RevisionID: revisionID,
			CreateTime: now,
		},
		data: copyData(data),
	}
	rec.md.LatestRevision = next
	rec.md.UpdateTime = now
	return next, nil
}

// GetSecretValue returns the content snapshot at the given revision.
func (s *State) GetSecretValue(uri *coresecrets.URI, revision int) (coresecrets.SecretData, error) {
	rec, err := s.secret(uri)
	if err != nil {
		return nil, errors.Trace(err)
	}
	r, ok := rec.revisions[revision]
	if !ok {
		return nil, errors.Annotatef(secreterrors.SecretRevisionNotFound, "secret %q revision %d", uri, revision)
	}
	return copyData(r.data), nil
}

// ListSecretRevisions returns the revision metadata for the secret,
// ordered by revision number.
func (s *State) ListSecretRevisions(uri *coresecrets.URI) ([]coresecrets.SecretRevisionMetadata, error) {
	rec, err := s.secret(uri)
	if err != nil {
		return nil, errors.Trace(err)
	}
	result := make([]coresecrets.SecretRevisionMetadata, 0, len(rec.revisions))
	for _, r := range rec.revisions {
		result = append(result, r.meta)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Revision < result[j].Revision
	})
	return result, nil
}

// GetSecretContents returns the full revision history of the secret.
func (s *State) GetSecretContents(uri *coresecrets.URI) (map[int]coresecrets.SecretData, error) {
	rec, err := s.secret(uri)
	if err != nil {
		return nil, errors.Trace(err)
	}
	result := make(map[int]coresecrets.SecretData, len(rec.revisions))
	for rev, r := range rec.revisions {
		result[rev] = copyData(r.data)
	}
	return result, nil
}

// GrantAccess adds the scope (a remote unit or application name) to
// the grants for the given relation. Granting twice is a no-op.
func (s *State) GrantAccess(uri *coresecrets.URI, relationID int, scope string) error {
	rec, err := s.secret(uri)
	if err != nil {
		return errors.Trace(err)
	}
	if scope == "" {
		return errors.NotValidf("empty grant scope")
	}
	scopes, ok := rec.grants[relationID]
	if !ok {
		scopes = set.NewStrings()
		rec.grants[relationID] = scopes
	}
	scopes.Add(scope)
	return nil
}

// RevokeAccess removes the scope from the grants for the given
// relation. Revoking a never granted scope is a no-op. When the last
// scope goes, the relation entry is deleted entirely.
func (s *State) RevokeAccess(uri *coresecrets.URI, relationID int, scope string) error {
	rec, err := s.secret(uri)
	if err != nil {
		return errors.Trace(err)
	}
	scopes, ok := rec.grants[relationID]
	if !ok {
		return nil
	}
	scopes.Remove(scope)
	if scopes.IsEmpty() {
		delete(rec.grants, relationID)
	}
	return nil
}

// IsGranted reports whether the scope holds a grant through the given
// relation.
func (s *State) IsGranted(uri *coresecrets.URI, relationID int, scope string) (bool, error) {
	rec, err := s.secret(uri)
	if err != nil {
		return false, errors.Trace(err)
	}
	scopes, ok := rec.grants[relationID]
	return ok && scopes.Contains(scope), nil
}

// GetSecretGrants returns the remote grants of the secret, keyed by
// relation id. Relations with no grants are absent.
func (s *State) GetSecretGrants(uri *coresecrets.URI) (map[int][]string, error) {
	rec, err := s.secret(uri)
	if err != nil {
		return nil, errors.Trace(err)
	}
	result := make(map[int][]string, len(rec.grants))
	for relID, scopes := range rec.grants {
		result[relID] = scopes.SortedValues()
	}
	return result, nil
}

// RemoveRevision deletes a single revision. Removing the last
// remaining revision removes the secret entirely.
func (s *State) RemoveRevision(uri *coresecrets.URI, revision int) error {
	rec, err := s.secret(uri)
	if err != nil {
		return errors.Trace(err)
	}
	if _, ok := rec.revisions[revision]; !ok {
		return errors.Annotatef(secreterrors.SecretRevisionNotFound, "secret %q revision %d", uri, revision)
	}
	delete(rec.revisions, revision)
	if len(rec.revisions) == 0 {
		return s.RemoveSecret(uri)
	}
	return nil
}

// RemoveSecret wipes every revision and grant of the secret; further
// lookups by URI or label fail with SecretNotFound.
func (s *State) RemoveSecret(uri *coresecrets.URI) error {
	rec, err := s.secret(uri)
	if err != nil {
		return errors.Trace(err)
	}
	if rec.md.Label != "" {
		delete(s.labels, rec.md.Label)
	}
	delete(s.secrets, uri.ID)
	return nil
}
