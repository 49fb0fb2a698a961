// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSlugTaken is returned when creating or updating a post with a slug
// that already belongs to a different post. Slugs are globally unique.
var ErrSlugTaken = errors.New("blog: slug already in use")

// DataIntegrityError reports a post whose author or category reference
// cannot be resolved. A post in this state is unrenderable; assembly fails
// loudly instead of returning a partial view with a missing reference.
type DataIntegrityError struct {
	PostID uuid.UUID
	Ref    string // "author" or "category"
	RefID  uuid.UUID
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("blog: post %s references missing %s %s", e.PostID, e.Ref, e.RefID)
}
