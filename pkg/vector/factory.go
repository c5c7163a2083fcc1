// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"github.com/kadirpekel/ontomed/pkg/config"
)

// NewProvider creates a vector provider from configuration. A nil config
// disables vector storage and yields a NilProvider, so callers can hold a
// Provider unconditionally.
func NewProvider(cfg *config.VectorConfig) (Provider, error) {
	if cfg == nil {
		return NilProvider{}, nil
	}

	return NewChromemProvider(ChromemConfig{
		PersistPath: cfg.PersistPath,
		Compress:    cfg.Compress,
	})
}
