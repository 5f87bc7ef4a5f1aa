// Package review supports the code-review workflow: collecting reviewable
// git diffs and publishing reviewer comments to interested consumers.
//
// Diffs come from the workspace's git repository, split into the staged and
// unstaged groups, and filtered to languages the reviewer understands. The
// comment service is the shared sink the session publishes accepted review
// results into.
package review
