package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
)

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	if err := c.Get(ctx, "/users/me", &u); err != nil {
		return model.User{}, fmt.Errorf("fetching profile: %w", err)
	}
	return u, nil
}

// UpdateMe saves the caller's profile.
func (c *Client) UpdateMe(ctx context.Context, p model.ProfileUpdate) (model.User, error) {
	var u model.User
	if err := c.Request(ctx, http.MethodPut, "/users/me", p, &u); err != nil {
		return model.User{}, fmt.Errorf("updating profile: %w", err)
	}
	return u, nil
}

// Friends lists the caller's friends.
func (c *Client) Friends(ctx context.Context) ([]model.Friend, error) {
	var friends []model.Friend
	if err := c.Get(ctx, "/friends", &friends); err != nil {
		return nil, fmt.Errorf("fetching friends: %w", err)
	}
	return friends, nil
}

// RandomUsers samples up to limit users for friend discovery.
func (c *Client) RandomUsers(ctx context.Context, limit int) ([]model.Friend, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var users []model.Friend
	if err := c.Get(ctx, "/users/random?"+q.Encode(), &users); err != nil {
		return nil, fmt.Errorf("fetching random users: %w", err)
	}
	return users, nil
}

// Catalog lists the mission templates.
func (c *Client) Catalog(ctx context.Context) ([]model.CatalogMission, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/missions/catalog", &raw); err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	return decodeList[model.CatalogMission](raw)
}

// ServerDate returns the backend's notion of today. The endpoint answers
// either a bare date string or {"date": ...}.
func (c *Client) ServerDate(ctx context.Context) (model.CalendarDate, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/server/date", &raw); err != nil {
		return "", fmt.Errorf("fetching server date: %w", err)
	}

	var s string
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		var wrapped struct {
			Date string `json:"date"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return "", fmt.Errorf("decoding server date: %w", err)
		}
		s = wrapped.Date
	} else if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decoding server date: %w", err)
	}

	if len(s) > 10 {
		s = s[:10]
	}
	return dates.Parse(s)
}

// PersonalRanking returns the personal leaderboard.
func (c *Client) PersonalRanking(ctx context.Context) ([]model.RankingUser, error) {
	var users []model.RankingUser
	if err := c.Get(ctx, "/ranking/personal", &users); err != nil {
		return nil, fmt.Errorf("fetching personal ranking: %w", err)
	}
	for i := range users {
		if users[i].Rank == 0 {
			users[i].Rank = i + 1
		}
	}
	return users, nil
}

// GroupRanking returns the group leaderboard.
func (c *Client) GroupRanking(ctx context.Context) ([]model.GroupRanking, error) {
	var raw []groupRanking
	if err := c.Get(ctx, "/ranking/group", &raw); err != nil {
		return nil, fmt.Errorf("fetching group ranking: %w", err)
	}
	out := make([]model.GroupRanking, 0, len(raw))
	for i, g := range raw {
		rank := g.Rank
		if rank == 0 {
			rank = i + 1
		}
		color := g.Color
		if color == "" {
			color = model.DefaultGroupColor
		}
		out = append(out, model.GroupRanking{
			Rank:         rank,
			ID:           g.ID,
			Name:         g.Name,
			ColorTag:     color,
			Score:        g.TotalScore,
			Participants: model.NormalizeParticipants(g.Participants),
		})
	}
	return out, nil
}

// MyRank returns the caller's personal and per-group ranks.
func (c *Client) MyRank(ctx context.Context) (model.MyRank, error) {
	var r model.MyRank
	if err := c.Get(ctx, "/ranking/my", &r); err != nil {
		return model.MyRank{}, fmt.Errorf("fetching my rank: %w", err)
	}
	return r, nil
}
