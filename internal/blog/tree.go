// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package blog contains the read-model core of the platform: comment tree
// construction and denormalized post assembly. All functions here are
// synchronous logic over already-fetched records; I/O belongs to the store.
package blog

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// treeNode is the mutable scaffolding used while linking comments.
// The finished forest is materialized into immutable CommentThread values
// so callers never share state with the builder.
type treeNode struct {
	comment  models.Comment
	children []*treeNode
}

// BuildCommentTree converts a flat set of comments belonging to one post
// into an ordered forest of root comments with nested replies.
//
// Rules:
//   - Only approved comments participate; unapproved ones are filtered out
//     before any linking happens.
//   - Comments are ordered by creation time ascending (ID as tiebreak), so
//     sibling order at every level reflects chronological posting order
//     regardless of insertion order in the backing store.
//   - A comment whose parent cannot be found in the approved same-post set
//     (deleted, unapproved, or belonging to another post) is an orphan and
//     is dropped entirely — it is never promoted to root. Replies hanging
//     off an orphan are unreachable from the roots and drop with it.
//
// The function is pure: calling it twice on the same input yields an
// identical forest.
func BuildCommentTree(comments []models.Comment) []models.CommentThread {
	approved := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		if c.IsApproved {
			approved = append(approved, c)
		}
	}

	sort.SliceStable(approved, func(i, j int) bool {
		if !approved[i].CreatedAt.Equal(approved[j].CreatedAt) {
			return approved[i].CreatedAt.Before(approved[j].CreatedAt)
		}
		return bytes.Compare(approved[i].ID[:], approved[j].ID[:]) < 0
	})

	nodes := make(map[uuid.UUID]*treeNode, len(approved))
	order := make([]*treeNode, 0, len(approved))
	for _, c := range approved {
		n := &treeNode{comment: c}
		nodes[c.ID] = n
		order = append(order, n)
	}

	var roots []*treeNode
	for _, n := range order {
		if n.comment.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*n.comment.ParentID]
		if !ok || parent == n || parent.comment.PostID != n.comment.PostID {
			// Orphan: parent context is unverifiable. Drop silently.
			continue
		}
		parent.children = append(parent.children, n)
	}

	return materialize(roots)
}

// materialize converts linked nodes into the immutable output forest.
// Reply slices are always non-nil so they serialize as [] rather than null.
func materialize(nodes []*treeNode) []models.CommentThread {
	out := make([]models.CommentThread, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, models.CommentThread{
			Comment: n.comment,
			Replies: materialize(n.children),
		})
	}
	return out
}
