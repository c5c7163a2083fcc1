// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package template

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrNotFound is returned when a template id is not in the store.
	ErrNotFound = errors.New("template not found")
)

// NotFoundError reports a lookup for an unknown template id.
type NotFoundError struct {
	// TemplateID is the id that was requested.
	TemplateID string
}

// Error returns the error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template not found: %s", e.TemplateID)
}

// Unwrap returns the underlying sentinel.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a NotFoundError for the given id.
func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{TemplateID: id}
}

// IsNotFound checks if an error is a template lookup failure.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound)
}
