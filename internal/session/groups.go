package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/nhle/ecomission/internal/api"
	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
	"github.com/nhle/ecomission/internal/store"
)

func (s *Session) applyGroups(key groupKey, groups []model.GroupMission) {
	list := cloneGroups(groups)
	s.mu.Lock()
	s.groupLists[key] = list
	s.mu.Unlock()
}

func cloneGroups(groups []model.GroupMission) []model.GroupMission {
	out := make([]model.GroupMission, len(groups))
	for i, g := range groups {
		g.Participants = append([]model.Participant(nil), g.Participants...)
		out[i] = g
	}
	return out
}

func findGroup(groups []model.GroupMission, id int) (model.GroupMission, bool) {
	for _, g := range groups {
		if g.ID == id {
			return g, true
		}
	}
	return model.GroupMission{}, false
}

// FetchGroups returns the caller's groups. With a date, the listing carries
// each group's completion for that date and is cached separately from the
// undated one.
func (s *Session) FetchGroups(ctx context.Context, date model.CalendarDate, force bool) ([]model.GroupMission, error) {
	if date != "" {
		if _, err := dates.Parse(string(date)); err != nil {
			return nil, err
		}
	}
	key := groupKeyFor(date)

	groups, err := s.groups.GetOrFetch(ctx, key, func(ctx context.Context) ([]model.GroupMission, error) {
		return s.backend.MyGroups(ctx, date)
	}, force)
	if err != nil {
		return nil, s.fail(err, msgGroupsFailed)
	}
	if key == baseGroupKey {
		s.local.SaveValue(ctx, store.KeyMyGroupMissions, groups)
	}
	return cloneGroups(groups), nil
}

// Groups returns the last known base listing without fetching.
func (s *Session) Groups() []model.GroupMission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneGroups(s.groupLists[baseGroupKey])
}

// refreshGroups drops every group listing and refetches the base one.
func (s *Session) refreshGroups(ctx context.Context) {
	s.groups.Reset()
	s.mu.Lock()
	s.groupLists = make(map[groupKey][]model.GroupMission)
	s.mu.Unlock()
	if _, err := s.FetchGroups(ctx, "", true); err != nil {
		s.log.Warn().Err(err).Msg("refreshing groups")
	}
}

// RecommendedGroups lists groups the caller could join.
func (s *Session) RecommendedGroups(ctx context.Context) ([]model.GroupMission, error) {
	groups, err := s.backend.RecommendedGroups(ctx)
	if err != nil {
		return nil, s.fail(err, msgRecommendedFailed)
	}
	s.mu.Lock()
	s.recommended = cloneGroups(groups)
	s.mu.Unlock()
	return groups, nil
}

// JoinGroup joins group id. The client refuses when the caller is already a
// member, the group already has three participants, or the caller is in the
// maximum number of groups; the server enforces the same limits.
func (s *Session) JoinGroup(ctx context.Context, id int) error {
	s.mu.Lock()
	mine := s.groupLists[baseGroupKey]
	_, member := findGroup(mine, id)
	candidate, known := findGroup(s.recommended, id)
	joined := len(mine)
	s.mu.Unlock()

	switch {
	case member:
		s.notify(model.NoticeError, msgAlreadyMember)
		return ErrAlreadyMember
	case known && len(candidate.Participants) >= model.MaxParticipants:
		s.notify(model.NoticeError, msgGroupFull)
		return ErrGroupFull
	case joined >= model.MaxGroupsPerUser:
		s.notify(model.NoticeError, msgGroupLimit)
		return ErrGroupLimit
	}

	if err := s.backend.JoinGroup(ctx, id); err != nil {
		return s.fail(err, joinFailureMessage(err))
	}
	s.refreshGroups(ctx)
	s.notify(model.NoticeSuccess, msgJoined)
	return nil
}

func joinFailureMessage(err error) string {
	switch api.StatusOf(err) {
	case http.StatusConflict:
		return msgAlreadyMember
	case http.StatusBadRequest:
		return messageOr(err, msgJoinRejected)
	case http.StatusNotFound:
		return msgGroupNotFound
	default:
		return messageOr(err, msgJoinFailed)
	}
}

// LeaveGroup leaves group id.
func (s *Session) LeaveGroup(ctx context.Context, id int) error {
	if err := s.backend.LeaveGroup(ctx, id); err != nil {
		return s.fail(err, messageOr(err, msgLeaveFailed))
	}
	s.dropGroup(ctx, id)
	return nil
}

// dropGroup removes id from every listing and the device copy.
func (s *Session) dropGroup(ctx context.Context, id int) {
	s.groups.Reset()

	s.mu.Lock()
	for key, list := range s.groupLists {
		kept := list[:0:0]
		for _, g := range list {
			if g.ID != id {
				kept = append(kept, g)
			}
		}
		s.groupLists[key] = kept
	}
	base := cloneGroups(s.groupLists[baseGroupKey])
	s.mu.Unlock()

	s.local.SaveValue(ctx, store.KeyMyGroupMissions, base)
}

// CreateGroup creates a group and joins it.
func (s *Session) CreateGroup(ctx context.Context, name, color string) (model.GroupMission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.GroupMission{}, &model.ValidationError{Field: "name", Message: "group name must not be blank"}
	}
	if color == "" {
		color = model.DefaultGroupColor
	}

	group, err := s.backend.CreateGroup(ctx, name, color)
	if err != nil {
		return model.GroupMission{}, s.fail(err, createFailureMessage(err))
	}
	if err := s.backend.JoinGroup(ctx, group.ID); err != nil {
		return group, s.fail(err, createFailureMessage(err))
	}

	s.refreshGroups(ctx)
	if recommended, err := s.backend.RecommendedGroups(ctx); err != nil {
		s.log.Warn().Err(err).Msg("refreshing recommended groups")
	} else {
		s.mu.Lock()
		s.recommended = cloneGroups(recommended)
		s.mu.Unlock()
	}
	s.notify(model.NoticeSuccess, msgGroupCreated)

	if joined, ok := findGroup(s.Groups(), group.ID); ok {
		return joined, nil
	}
	return group, nil
}

func createFailureMessage(err error) string {
	if api.StatusOf(err) == http.StatusBadRequest {
		return messageOr(err, msgCreateRejected)
	}
	return messageOr(err, msgCreateFailed)
}

// CheckGroup records the caller's completion of group id on date.
func (s *Session) CheckGroup(ctx context.Context, id int, date model.CalendarDate, completed bool) error {
	if _, err := dates.Parse(string(date)); err != nil {
		return err
	}
	if err := s.backend.CheckGroup(ctx, id, date, completed); err != nil {
		return s.fail(err, messageOr(err, msgCheckFailed))
	}

	key := groupKeyFor(date)
	s.groups.Delete(key)
	s.mu.Lock()
	list := s.groupLists[key]
	for i := range list {
		if list[i].ID == id {
			done := completed
			list[i].Checked = &done
		}
	}
	s.mu.Unlock()
	return nil
}

// DeleteGroup deletes group id. Only its owner may do so.
func (s *Session) DeleteGroup(ctx context.Context, id int) error {
	if err := s.backend.DeleteGroup(ctx, id); err != nil {
		return s.fail(err, messageOr(err, msgDeleteGroupFailed))
	}
	s.dropGroup(ctx, id)
	return nil
}

// Friends lists the caller's friends with a default profile color filled in.
func (s *Session) Friends(ctx context.Context) ([]model.Friend, error) {
	friends, err := s.backend.Friends(ctx)
	if err != nil {
		return nil, s.fail(err, msgFriendsFailed)
	}
	for i := range friends {
		if friends[i].ProfileColor == "" {
			friends[i].ProfileColor = model.DefaultParticipantColor
		}
	}
	return friends, nil
}

// SendInvites invites friendIDs into group groupID.
func (s *Session) SendInvites(ctx context.Context, groupID int, friendIDs []int) error {
	if groupID == 0 {
		s.notify(model.NoticeError, msgInviteNoGroup)
		return &model.ValidationError{Field: "group", Message: "no group selected"}
	}
	if len(friendIDs) == 0 {
		s.notify(model.NoticeError, msgInviteNoFriends)
		return &model.ValidationError{Field: "friends", Message: "no friends selected"}
	}
	if err := s.backend.SendInvites(ctx, groupID, friendIDs); err != nil {
		return s.fail(err, messageOr(err, msgInviteFailed))
	}
	s.notify(model.NoticeSuccess, msgInvitesSent)
	return nil
}

// ReceivedInvites lists invitations waiting for the caller.
func (s *Session) ReceivedInvites(ctx context.Context) ([]model.Invite, error) {
	invites, err := s.backend.ReceivedInvites(ctx)
	if err != nil {
		return nil, s.fail(err, msgInvitesLoadFailed)
	}
	return invites, nil
}

// AcceptInvite accepts invitation id and refreshes the caller's groups.
func (s *Session) AcceptInvite(ctx context.Context, id int) error {
	if err := s.backend.AcceptInvite(ctx, id); err != nil {
		return s.fail(err, messageOr(err, msgInviteAnswerFailed))
	}
	s.refreshGroups(ctx)
	s.notify(model.NoticeSuccess, msgInviteAccepted)
	return nil
}

// DeclineInvite declines invitation id.
func (s *Session) DeclineInvite(ctx context.Context, id int) error {
	if err := s.backend.DeclineInvite(ctx, id); err != nil {
		return s.fail(err, messageOr(err, msgInviteAnswerFailed))
	}
	return nil
}

// PersonalRanking returns the personal leaderboard.
func (s *Session) PersonalRanking(ctx context.Context) ([]model.RankingUser, error) {
	rows, err := s.backend.PersonalRanking(ctx)
	if err != nil {
		return nil, s.fail(err, msgRankingFailed)
	}
	return rows, nil
}

// GroupRanking returns the group leaderboard.
func (s *Session) GroupRanking(ctx context.Context) ([]model.GroupRanking, error) {
	rows, err := s.backend.GroupRanking(ctx)
	if err != nil {
		return nil, s.fail(err, msgRankingFailed)
	}
	return rows, nil
}

// MyRank returns the caller's personal and per-group ranks.
func (s *Session) MyRank(ctx context.Context) (model.MyRank, error) {
	rank, err := s.backend.MyRank(ctx)
	if err != nil {
		return model.MyRank{}, s.fail(err, msgRankingFailed)
	}
	return rank, nil
}
