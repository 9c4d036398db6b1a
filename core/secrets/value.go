// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package secrets

import (
	"encoding/base64"
	"strings"

	"github.com/juju/errors"
)

// Base64 encoded key suffix, used when fetching a single value.
const base64Suffix = "#base64"

// CreateSecretData creates a secret data bag from a list of arguments.
// The arguments are either file paths in juju proper; here they are
// always key=value pairs. If asBase64 is true, the supplied values are
// base64 encoded and are decoded before being stored, otherwise they
// are stored as is.
func CreateSecretData(asBase64 bool, args []string) (SecretData, error) {
	data := make(SecretData)
	for _, val := range args {
		idx := strings.Index(val, "=")
		if idx < 1 {
			return nil, errors.NotValidf("key value %q", val)
		}
		key := val[0:idx]
		value := val[idx+1:]
		if asBase64 {
			decoded, err := base64.StdEncoding.DecodeString(value)
			if err != nil {
				return nil, errors.NotValidf("base64 value for key %q", key)
			}
			value = string(decoded)
		}
		data[key] = value
	}
	if len(data) == 0 {
		return nil, errors.NotValidf("empty secret value")
	}
	return data, nil
}

// SecretValue holds the value of a secret.
// Instances of SecretValue are returned by the hook tool layer and
// mediate between the raw content held in a revision and its base64
// encoded view.
type SecretValue interface {
	// EncodedValues returns the key values of a secret as
	// the base64 encoded strings.
	EncodedValues() map[string]string

	// Values returns the key values of a secret as strings.
	Values() (map[string]string, error)

	// KeyValue returns the specified secret value for the key.
	// If the key has a #base64 suffix, the returned value is base64 encoded.
	KeyValue(string) (string, error)

	// IsEmpty checks if the value is empty.
	IsEmpty() bool
}

type secretValue struct {
	// data holds the key values of a secret.
	// All values are base64 encoded.
	data map[string]string
}

// NewSecretValue returns a secret using the specified map of values.
// The map values are assumed to be already base64 encoded.
func NewSecretValue(data map[string]string) SecretValue {
	dataCopy := make(map[string]string, len(data))
	for k, v := range data {
		dataCopy[k] = v
	}
	return &secretValue{data: dataCopy}
}

// NewSecretBytes returns a secret using the specified map of raw values,
// which are base64 encoded before being stored.
func NewSecretBytes(data map[string][]byte) SecretValue {
	dataCopy := make(map[string]string, len(data))
	for k, v := range data {
		dataCopy[k] = base64.StdEncoding.EncodeToString(v)
	}
	return &secretValue{data: dataCopy}
}

// IsEmpty checks if the value is empty.
func (v secretValue) IsEmpty() bool {
	return len(v.data) == 0
}

// EncodedValues implements SecretValue.
func (v secretValue) EncodedValues() map[string]string {
	dataCopy := make(map[string]string, len(v.data))
	for k, val := range v.data {
		dataCopy[k] = val
	}
	return dataCopy
}

// Values implements SecretValue.
func (v secretValue) Values() (map[string]string, error) {
	dataCopy := v.EncodedValues()
	for k, val := range dataCopy {
		data, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			return nil, errors.Trace(err)
		}
		dataCopy[k] = string(data)
	}
	return dataCopy, nil
}

// KeyValue implements SecretValue.
func (v secretValue) KeyValue(key string) (string, error) {
	useBase64 := false
	if strings.HasSuffix(key, base64Suffix) {
		key = strings.TrimSuffix(key, base64Suffix)
		useBase64 = true
	}
	val, ok := v.data[key]
	if !ok {
		return "", errors.NotFoundf("secret key value %q", key)
	}
	if useBase64 {
		return val, nil
	}
	data, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(data), nil
}
