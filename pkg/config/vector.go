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

import "fmt"

// VectorConfig configures the embedded vector index used for concept
// similarity search. When the section is absent the index is disabled and
// the related-concepts operations are unavailable.
//
// Example:
//
//	vector:
//	  llm: default
//	  persist_path: .ontomed/vectors
//	  compress: true
//	  similarity_threshold: 0.75
type VectorConfig struct {
	// LLM references a configured LLM by name for embedding requests.
	// Default: "default"
	LLM string `yaml:"llm,omitempty" json:"llm,omitempty" jsonschema:"title=LLM Reference,description=Configured LLM used for embeddings,default=default"`

	// Collection is the vector collection name.
	// Default: "concepts"
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty" jsonschema:"title=Collection,description=Vector collection name,default=concepts"`

	// PersistPath enables file persistence (optional).
	// If empty, vectors are stored in memory only.
	PersistPath string `yaml:"persist_path,omitempty" json:"persist_path,omitempty" jsonschema:"title=Persist Path,description=Directory for vector persistence"`

	// Compress enables gzip compression for persistence.
	Compress bool `yaml:"compress,omitempty" json:"compress,omitempty" jsonschema:"title=Compress,description=Gzip-compress persisted vectors"`

	// SimilarityThreshold filters related-concept results (0.0 - 1.0).
	// Default: 0.7
	SimilarityThreshold float32 `yaml:"similarity_threshold,omitempty" json:"similarity_threshold,omitempty" jsonschema:"title=Similarity Threshold,description=Minimum cosine similarity for related concepts,minimum=0,maximum=1,default=0.7"`

	// TopK limits how many related concepts a query returns.
	// Default: 5
	TopK int `yaml:"top_k,omitempty" json:"top_k,omitempty" jsonschema:"title=Top K,description=Maximum related concepts per query,minimum=1,default=5"`
}

// SetDefaults applies default values to VectorConfig.
func (c *VectorConfig) SetDefaults() {
	if c.LLM == "" {
		c.LLM = "default"
	}
	if c.Collection == "" {
		c.Collection = "concepts"
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.7
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
}

// Validate checks the vector configuration.
func (c *VectorConfig) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be between 0 and 1, got %f", c.SimilarityThreshold)
	}
	if c.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative")
	}
	return nil
}
