package model

import "github.com/google/uuid"

type MemberRole string

const (
	RoleCreator MemberRole = "creator"
	RoleAdmin   MemberRole = "admin"
	RoleMember  MemberRole = "member"
)

// Group is a named chat room with members (spec §3 "Group").
type Group struct {
	ID        uuid.UUID
	Name      string
	CreatorID uuid.UUID
	CreatedAt int64
}

// GroupMember is keyed by the pair (GroupID, UserID) — no duplicate
// memberships (spec §3 primary-key invariant).
type GroupMember struct {
	GroupID  uuid.UUID
	UserID   uuid.UUID
	Role     MemberRole
	JoinedAt int64
}

// GroupMessage is a message broadcast to every member of a Group.
type GroupMessage struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	SenderID  uuid.UUID
	Content   string
	Kind      string
	CreatedAt int64
}

// GroupMessageRead records that a single member has read a single
// GroupMessage; created once, never mutated.
type GroupMessageRead struct {
	MessageID uuid.UUID
	UserID    uuid.UUID
	ReadAt    int64
}
