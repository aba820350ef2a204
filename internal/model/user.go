package model

// User is the signed-in account's profile.
type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name"`
	ProfileColor string `json:"profile_color"`
	Bio          string `json:"bio"`
}

// ProfileUpdate is the editable subset of a profile.
type ProfileUpdate struct {
	Name         string `json:"name"`
	ProfileColor string `json:"profile_color"`
	Bio          string `json:"bio"`
}

// Friend is another user the caller can invite.
type Friend struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	ActiveDays   int    `json:"activeDays"`
	ProfileColor string `json:"profileColor"`
}

// Invite is a pending invitation into a group.
type Invite struct {
	ID        int    `json:"id"`
	GroupID   int    `json:"group_mission_id"`
	GroupName string `json:"group_name"`
	FromUser  string `json:"from_user"`
	CreatedAt string `json:"created_at"`
}

// RankingUser is one row of the personal leaderboard.
type RankingUser struct {
	Rank         int    `json:"rank"`
	ID           int    `json:"id"`
	Name         string `json:"name"`
	ProfileColor string `json:"profile_color"`
	Score        int    `json:"score"`
}

// GroupRanking is one row of the group leaderboard.
type GroupRanking struct {
	Rank         int           `json:"rank"`
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	ColorTag     string        `json:"colorTag"`
	Score        int           `json:"score"`
	Participants []Participant `json:"participants"`
}

// GroupRank is the caller's position for one group.
type GroupRank struct {
	GroupID int `json:"group_id"`
	Rank    int `json:"rank"`
}

// MyRank is the caller's personal rank and the rank of each of their groups.
type MyRank struct {
	PersonalRank *int        `json:"personal_rank"`
	GroupRanks   []GroupRank `json:"group_ranks"`
}
