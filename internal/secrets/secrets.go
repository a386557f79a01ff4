// Copyright (C) 2025 SeismoHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package secrets resolves named credentials at process start. The storage
// access key pair is looked up by name ("access_key", "secret_key") and
// injected into the components that need it; nothing reads secrets from
// global state afterwards.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Provider fetches a secret by name.
type Provider interface {
	Get(name string) (string, error)
}

// Names of the two secrets this service requires.
const (
	AccessKeyName = "access_key"
	SecretKeyName = "secret_key"
)

// EnvProvider resolves secrets from environment variables. The name is
// upper-cased and prefixed, so "access_key" becomes "QUAKEFEED_ACCESS_KEY"
// under the default prefix.
type EnvProvider struct {
	Prefix string
}

func (p EnvProvider) Get(name string) (string, error) {
	key := strings.ToUpper(name)
	if p.Prefix != "" {
		key = p.Prefix + "_" + key
	}
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("secret %q not found (environment variable %s)", name, key)
	}
	return v, nil
}

// Static is a fixed name-to-value map, used in tests and local tooling.
type Static map[string]string

func (s Static) Get(name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", fmt.Errorf("secret %q not found", name)
	}
	return v, nil
}

// Keys resolves the storage access key pair from the provider.
func Keys(p Provider) (accessKey, secretKey string, err error) {
	accessKey, err = p.Get(AccessKeyName)
	if err != nil {
		return "", "", err
	}
	secretKey, err = p.Get(SecretKeyName)
	if err != nil {
		return "", "", err
	}
	return accessKey, secretKey, nil
}
