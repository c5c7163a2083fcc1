// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"time"
)

// GraphProvider identifies the graph store backend.
type GraphProvider string

const (
	GraphProviderMemory     GraphProvider = "memory"
	GraphProviderBlazegraph GraphProvider = "blazegraph"
)

// GraphConfig configures the ontology graph store.
//
// Example:
//
//	graph:
//	  provider: blazegraph
//	  base_url: http://localhost:9999/blazegraph
//	  namespace: ontomed
type GraphConfig struct {
	// Provider type (memory, blazegraph).
	// Default: memory
	Provider GraphProvider `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"title=Provider,description=Graph store backend,enum=memory,enum=blazegraph,default=memory"`

	// BaseURL of the Blazegraph instance.
	// Required when Provider is "blazegraph".
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=Blazegraph instance URL"`

	// Namespace is the Blazegraph namespace holding the ontology.
	// Created on startup if it does not exist.
	// Default: "ontomed"
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty" jsonschema:"title=Namespace,description=Blazegraph namespace for the ontology,default=ontomed"`

	// Timeout for graph store requests.
	// Default: 30s
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Request timeout (e.g. 30s)"`

	// MaxRetries for transient request failures.
	// Default: 3
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"title=Max Retries,description=Retry budget for transient failures,minimum=0,default=3"`

	// TLS configures TLS for the Blazegraph connection.
	TLS *GraphTLSConfig `yaml:"tls,omitempty" json:"tls,omitempty" jsonschema:"title=TLS,description=TLS settings for the Blazegraph connection"`
}

// GraphTLSConfig configures TLS for the graph store connection.
type GraphTLSConfig struct {
	// InsecureSkipVerify disables certificate verification (dev/test only).
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty" json:"insecure_skip_verify,omitempty"`

	// CACertificate is the path to a custom CA certificate file.
	CACertificate string `yaml:"ca_certificate,omitempty" json:"ca_certificate,omitempty"`
}

// SetDefaults applies default values to GraphConfig.
func (c *GraphConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = GraphProviderMemory
	}
	if c.Namespace == "" {
		c.Namespace = "ontomed"
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(30 * time.Second)
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate checks the graph configuration.
func (c *GraphConfig) Validate() error {
	switch c.Provider {
	case GraphProviderMemory:
	case GraphProviderBlazegraph:
		if c.BaseURL == "" {
			return fmt.Errorf("base_url is required when provider is blazegraph")
		}
	default:
		return fmt.Errorf("unknown graph provider %q (valid: memory, blazegraph)", c.Provider)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}

	return nil
}
