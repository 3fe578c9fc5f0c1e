// Package store implements the Message Store (C2): durable history for
// direct messages, groups, group membership, group messages, and read
// receipts (spec §3, §6.2).
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/Merrick1307/chat-core/internal/domain/model"
)

// MessageStore is the C2 surface the Delivery Engine and the HTTP
// control plane depend on.
type MessageStore interface {
	SaveDirectMessage(ctx context.Context, msg *model.Message) error
	GetMessage(ctx context.Context, messageID uuid.UUID) (*model.Message, error)
	GetConversation(ctx context.Context, userA, userB uuid.UUID, limit, offset int) ([]*model.Message, error)
	GetUnreadMessages(ctx context.Context, userID uuid.UUID) ([]*model.Message, error)
	MarkDelivered(ctx context.Context, messageID uuid.UUID) (bool, error)
	MarkRead(ctx context.Context, messageID, userID uuid.UUID) (bool, error)

	CreateGroup(ctx context.Context, group *model.Group, memberIDs []uuid.UUID) error
	AddMember(ctx context.Context, groupID, userID uuid.UUID, role model.MemberRole) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	GetGroup(ctx context.Context, groupID uuid.UUID) (*model.Group, error)
	GetGroupMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)

	SaveGroupMessage(ctx context.Context, msg *model.GroupMessage) error
	GetGroupMessage(ctx context.Context, messageID uuid.UUID) (*model.GroupMessage, error)
	GetGroupMessages(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*model.GroupMessage, error)
	MarkGroupMessageRead(ctx context.Context, messageID, userID uuid.UUID) (bool, error)
	GetUnreadGroupMessages(ctx context.Context, groupID, userID uuid.UUID) ([]*model.GroupMessage, error)

	// GetUsername resolves a display name for peer enrichment.
	GetUsername(ctx context.Context, userID uuid.UUID) (string, error)

	Close() error
}
