package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/ecomission/internal/model"
)

// MyGroups lists the caller's groups. When date is set, each group carries
// the caller's completion for that date.
func (c *Client) MyGroups(ctx context.Context, date model.CalendarDate) ([]model.GroupMission, error) {
	path := "/group-missions/my"
	if date != "" {
		path += "?" + url.Values{"date": {string(date)}}.Encode()
	}
	var raw []groupMission
	if err := c.Get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetching my groups: %w", err)
	}
	return toGroups(raw), nil
}

// RecommendedGroups lists groups the caller may join.
func (c *Client) RecommendedGroups(ctx context.Context) ([]model.GroupMission, error) {
	var raw []groupMission
	if err := c.Get(ctx, "/group-missions/recommended", &raw); err != nil {
		return nil, fmt.Errorf("fetching recommended groups: %w", err)
	}
	return toGroups(raw), nil
}

// CreateGroup creates a group owned by the caller.
func (c *Client) CreateGroup(ctx context.Context, name, color string) (model.GroupMission, error) {
	var created groupMission
	if err := c.Post(ctx, "/group-missions", createGroupRequest{Name: name, Color: color}, &created); err != nil {
		return model.GroupMission{}, fmt.Errorf("creating group: %w", err)
	}
	return created.toModel(), nil
}

// JoinGroup adds the caller to group id.
func (c *Client) JoinGroup(ctx context.Context, id int) error {
	if err := c.Post(ctx, fmt.Sprintf("/group-missions/%d/join", id), nil, nil); err != nil {
		return fmt.Errorf("joining group %d: %w", id, err)
	}
	return nil
}

// LeaveGroup removes the caller from group id.
func (c *Client) LeaveGroup(ctx context.Context, id int) error {
	if err := c.Delete(ctx, fmt.Sprintf("/group-missions/%d/leave", id)); err != nil {
		return fmt.Errorf("leaving group %d: %w", id, err)
	}
	return nil
}

// CheckGroup records the caller's completion of group id on date.
func (c *Client) CheckGroup(ctx context.Context, id int, date model.CalendarDate, completed bool) error {
	err := c.Post(ctx, fmt.Sprintf("/group-missions/%d/check", id),
		groupCheckRequest{Date: date, Completed: completed}, nil)
	if err != nil {
		return fmt.Errorf("checking group %d on %s: %w", id, date, err)
	}
	return nil
}

// DeleteGroup deletes group id. Only the owner may do so.
func (c *Client) DeleteGroup(ctx context.Context, id int) error {
	if err := c.Delete(ctx, fmt.Sprintf("/group-missions/%d", id)); err != nil {
		return fmt.Errorf("deleting group %d: %w", id, err)
	}
	return nil
}

// SendInvites invites friends into group id.
func (c *Client) SendInvites(ctx context.Context, groupID int, friendIDs []int) error {
	err := c.Post(ctx, fmt.Sprintf("/group-missions/%d/invite", groupID), inviteRequest{FriendIDs: friendIDs}, nil)
	if err != nil {
		return fmt.Errorf("inviting into group %d: %w", groupID, err)
	}
	return nil
}

// ReceivedInvites lists pending invitations for the caller.
func (c *Client) ReceivedInvites(ctx context.Context) ([]model.Invite, error) {
	var invites []model.Invite
	if err := c.Get(ctx, "/invites/received", &invites); err != nil {
		return nil, fmt.Errorf("fetching invites: %w", err)
	}
	return invites, nil
}

// AcceptInvite accepts invitation id.
func (c *Client) AcceptInvite(ctx context.Context, id int) error {
	if err := c.Post(ctx, fmt.Sprintf("/invites/%d/accept", id), nil, nil); err != nil {
		return fmt.Errorf("accepting invite %d: %w", id, err)
	}
	return nil
}

// DeclineInvite declines invitation id.
func (c *Client) DeclineInvite(ctx context.Context, id int) error {
	if err := c.Delete(ctx, fmt.Sprintf("/invites/%d/decline", id)); err != nil {
		return fmt.Errorf("declining invite %d: %w", id, err)
	}
	return nil
}
