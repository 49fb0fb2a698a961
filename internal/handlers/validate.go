// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for post, comment, and category fields.
const (
	maxTitleLen        = 300
	maxSlugLen         = 300
	maxContentLen      = 100_000
	maxExcerptLen      = 1_000
	maxTagLen          = 50
	maxTagCount        = 20
	maxCommentLen      = 5_000
	maxAuthorNameLen   = 100
	maxAuthorEmailLen  = 254
	maxCategoryNameLen = 100
)

// validatePost checks post inputs and returns the first error found.
func validatePost(title, slug, content string, tags []string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Title is required."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(slug) > maxSlugLen {
		return "Slug is too long (max 300 characters)."
	}
	if strings.TrimSpace(content) == "" {
		return "Content is required."
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return "Content is too long (max 100,000 characters)."
	}
	if len(tags) > maxTagCount {
		return "Too many tags (max 20)."
	}
	for _, tag := range tags {
		if utf8.RuneCountInString(tag) > maxTagLen {
			return "Tag is too long (max 50 characters)."
		}
	}
	return ""
}

// validateExcerpt checks the optional post excerpt.
func validateExcerpt(excerpt string) string {
	if utf8.RuneCountInString(excerpt) > maxExcerptLen {
		return "Excerpt is too long (max 1,000 characters)."
	}
	return ""
}

// validateComment checks reader comment inputs and returns the first
// error found.
func validateComment(authorName, authorEmail, content string) string {
	authorName = strings.TrimSpace(authorName)
	if authorName == "" {
		return "Name is required."
	}
	if utf8.RuneCountInString(authorName) > maxAuthorNameLen {
		return "Name is too long (max 100 characters)."
	}
	authorEmail = strings.TrimSpace(authorEmail)
	if authorEmail == "" {
		return "Email is required."
	}
	if utf8.RuneCountInString(authorEmail) > maxAuthorEmailLen || !strings.Contains(authorEmail, "@") {
		return "Email is not valid."
	}
	if strings.TrimSpace(content) == "" {
		return "Comment text is required."
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return "Comment is too long (max 5,000 characters)."
	}
	return ""
}

// validateCategory checks category inputs and returns the first error found.
func validateCategory(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Name is required."
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLen {
		return "Name is too long (max 100 characters)."
	}
	return ""
}
