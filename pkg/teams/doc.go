// Package teams manages teams, their memberships and pending email invites.
//
// A team has exactly one owner, recorded on the team row, plus any number of
// members with a role of owner, coach or member. Invites are keyed by email
// and matched case-insensitively. They are accepted at most once: the
// accepted_at stamp is applied only while it is still NULL.
package teams
