// Package reconcile runs the post-login convergence steps for a user:
// creating a starter workspace when they own no team, and accepting pending
// invites addressed to their email.
//
// Both steps are idempotent. Running them twice, or concurrently, for the
// same user ends in the same state: one starter team at most, one membership
// per invited team, every matching invite stamped once. Errors are collected
// per item and never abort a login.
package reconcile
