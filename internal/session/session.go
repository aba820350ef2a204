// Package session owns the client's view of missions, groups and weekly
// summaries. Every read goes through a TTL cache with per-key fetch
// deduplication, and every write keeps the caches, the in-memory state and
// the device snapshot in step.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/nhle/ecomission/internal/api"
	"github.com/nhle/ecomission/internal/cache"
	"github.com/nhle/ecomission/internal/credential"
	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
	"github.com/nhle/ecomission/internal/scoring"
	"github.com/nhle/ecomission/internal/store"
	rollover "github.com/nhle/ecomission/internal/sync"
)

// Backend is the remote API the session drives. *api.Client satisfies it.
type Backend interface {
	DayMissions(ctx context.Context, date model.CalendarDate) ([]model.MissionEntry, error)
	AddDayMission(ctx context.Context, date model.CalendarDate, catalogID int, label string) (model.MissionEntry, error)
	DeleteDayMission(ctx context.Context, date model.CalendarDate, id int) error
	SetDayMissionCompleted(ctx context.Context, date model.CalendarDate, id int, completed bool) (model.MissionEntry, error)
	WeekSummary(ctx context.Context, date model.CalendarDate) ([]model.DayCompletionSummary, error)
	CreateRoutine(ctx context.Context, catalogID int, date model.CalendarDate, label string) (api.Routine, error)
	DeleteRoutine(ctx context.Context, id int) error

	MyGroups(ctx context.Context, date model.CalendarDate) ([]model.GroupMission, error)
	RecommendedGroups(ctx context.Context) ([]model.GroupMission, error)
	CreateGroup(ctx context.Context, name, color string) (model.GroupMission, error)
	JoinGroup(ctx context.Context, id int) error
	LeaveGroup(ctx context.Context, id int) error
	CheckGroup(ctx context.Context, id int, date model.CalendarDate, completed bool) error
	DeleteGroup(ctx context.Context, id int) error
	SendInvites(ctx context.Context, groupID int, friendIDs []int) error
	ReceivedInvites(ctx context.Context) ([]model.Invite, error)
	AcceptInvite(ctx context.Context, id int) error
	DeclineInvite(ctx context.Context, id int) error

	Friends(ctx context.Context) ([]model.Friend, error)
	Catalog(ctx context.Context) ([]model.CatalogMission, error)
	Me(ctx context.Context) (model.User, error)
	UpdateMe(ctx context.Context, p model.ProfileUpdate) (model.User, error)
	PersonalRanking(ctx context.Context) ([]model.RankingUser, error)
	GroupRanking(ctx context.Context) ([]model.GroupRanking, error)
	MyRank(ctx context.Context) (model.MyRank, error)

	Login(ctx context.Context, email, password string) error
	KakaoLogin(ctx context.Context, code string) error
	Logout(ctx context.Context) error
}

// Sentinel errors returned by client-side checks.
var (
	ErrUnknownCatalogMission = errors.New("mission is not in the catalog")
	ErrNoSuchMission         = errors.New("no mission at that position")
	ErrDuplicateMission      = errors.New("mission already added for that date")
	ErrNotSynced             = errors.New("mission has no server record")
	ErrAlreadyMember         = errors.New("already a member of the group")
	ErrGroupFull             = errors.New("group is full")
	ErrGroupLimit            = errors.New("group membership limit reached")
)

// Default cache lifetimes.
const (
	DefaultDayTTL         = 30 * time.Second
	DefaultGroupTTL       = 30 * time.Second
	DefaultWeekSummaryTTL = 60 * time.Second

	defaultNoticeBuffer = 16
)

// Options configures a Session. Zero values select the defaults.
type Options struct {
	DayTTL           time.Duration
	GroupTTL         time.Duration
	WeekSummaryTTL   time.Duration
	RolloverInterval time.Duration
	NoticeBuffer     int

	// Now overrides the wall clock, mainly for tests.
	Now func() time.Time

	Logger zerolog.Logger

	// Registerer receives the cache lookup counters when set.
	Registerer prometheus.Registerer
}

// groupKey addresses the group cache: the base listing or a date-scoped one.
type groupKey string

const baseGroupKey groupKey = "base"

func groupKeyFor(date model.CalendarDate) groupKey {
	if date == "" {
		return baseGroupKey
	}
	return groupKey("group:" + string(date))
}

// Session is the single owner of mission, group and summary state.
//
// Lock order: a cache's internal lock may be held while s.mu is taken (fill
// hooks), so s.mu is never held while calling into a cache.
type Session struct {
	backend Backend
	local   *store.Local
	tokens  credential.TokenStore
	now     func() time.Time
	log     zerolog.Logger

	days   *cache.Cache[model.CalendarDate, []model.MissionEntry]
	groups *cache.Cache[groupKey, []model.GroupMission]
	weeks  *cache.Cache[model.CalendarDate, []model.DayCompletionSummary]

	notices chan model.Notice
	poller  *rollover.Poller

	mu           sync.Mutex
	missions     model.MissionsByDate
	records      map[model.CalendarDate]map[model.MissionKey]int
	groupLists   map[groupKey][]model.GroupMission
	recommended  []model.GroupMission
	summaries    map[model.CalendarDate]model.DayCompletionSummary
	catalog      []model.CatalogMission
	profile      model.User
	selected     model.CalendarDate
	followsToday bool
	signedIn     bool
}

// New builds a session and starts its day-rollover poller. Close stops it.
func New(backend Backend, local *store.Local, tokens credential.TokenStore, opts Options) (*Session, error) {
	if opts.DayTTL <= 0 {
		opts.DayTTL = DefaultDayTTL
	}
	if opts.GroupTTL <= 0 {
		opts.GroupTTL = DefaultGroupTTL
	}
	if opts.WeekSummaryTTL <= 0 {
		opts.WeekSummaryTTL = DefaultWeekSummaryTTL
	}
	if opts.NoticeBuffer <= 0 {
		opts.NoticeBuffer = defaultNoticeBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var metrics *cache.Metrics
	if opts.Registerer != nil {
		m, err := cache.NewMetrics(opts.Registerer)
		if err != nil {
			return nil, err
		}
		metrics = m
	}
	cacheOpts := []cache.Option{cache.WithClock(opts.Now), cache.WithMetrics(metrics)}

	s := &Session{
		backend:    backend,
		local:      local,
		tokens:     tokens,
		now:        opts.Now,
		log:        opts.Logger.With().Str("component", "session").Logger(),
		days:       cache.New[model.CalendarDate, []model.MissionEntry]("day", opts.DayTTL, cacheOpts...),
		groups:     cache.New[groupKey, []model.GroupMission]("group", opts.GroupTTL, cacheOpts...),
		weeks:      cache.New[model.CalendarDate, []model.DayCompletionSummary]("week_summary", opts.WeekSummaryTTL, cacheOpts...),
		notices:    make(chan model.Notice, opts.NoticeBuffer),
		missions:   make(model.MissionsByDate),
		records:    make(map[model.CalendarDate]map[model.MissionKey]int),
		groupLists: make(map[groupKey][]model.GroupMission),
		summaries:  make(map[model.CalendarDate]model.DayCompletionSummary),
	}
	s.days.OnFill(s.applyDay)
	s.groups.OnFill(s.applyGroups)
	s.weeks.OnFill(func(_ model.CalendarDate, v []model.DayCompletionSummary) { s.applySummaries(v) })

	s.selected = s.today()
	s.followsToday = true
	if access, err := tokens.Access(); err == nil && access != "" {
		s.signedIn = true
	}

	s.poller = rollover.New(opts.RolloverInterval, s.today, s.onRollover, opts.Logger)
	s.poller.Start()
	return s, nil
}

// Close stops the rollover poller.
func (s *Session) Close() {
	s.poller.Stop()
}

// Today returns the current calendar date in UTC+9.
func (s *Session) Today() model.CalendarDate {
	return s.today()
}

func (s *Session) today() model.CalendarDate {
	return dates.TodayAt(s.now())
}

// onRollover follows the new day only while the selection tracks today.
func (s *Session) onRollover(_, next model.CalendarDate) {
	s.mu.Lock()
	follow := s.followsToday
	if follow {
		s.selected = next
	}
	s.mu.Unlock()

	if !follow {
		return
	}
	if err := s.loadDay(context.Background(), next, false); err != nil {
		s.log.Warn().Err(err).Str("date", string(next)).Msg("loading new day failed")
	}
}

// Notices delivers user-facing messages. Notices raised while the buffer is
// full are dropped.
func (s *Session) Notices() <-chan model.Notice {
	return s.notices
}

func (s *Session) notify(level model.NoticeLevel, msg string) {
	n := model.NewNotice(level, msg, s.now())
	select {
	case s.notices <- n:
	default:
		s.log.Debug().Str("message", msg).Msg("notice dropped")
	}
}

// handleAuth ends the session when err is a terminal authentication failure.
func (s *Session) handleAuth(err error) bool {
	if !api.IsAuthExpired(err) {
		return false
	}
	s.log.Warn().Msg("authentication expired, signing out")
	if cerr := s.tokens.Clear(); cerr != nil {
		s.log.Error().Err(cerr).Msg("clearing tokens")
	}
	s.InvalidateAllCaches()
	s.mu.Lock()
	s.signedIn = false
	s.mu.Unlock()
	return true
}

// fail raises msg as an error notice, or the re-authentication notice when
// err ended the session, and returns err.
func (s *Session) fail(err error, msg string) error {
	if s.handleAuth(err) {
		s.notify(model.NoticeError, msgAuthExpired)
		return err
	}
	s.notify(model.NoticeError, msg)
	return err
}

// messageOr prefers the server's message.
func messageOr(err error, fallback string) string {
	if msg := api.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}

// InvalidateAllCaches drops every cached value and supersedes every fetch
// in flight, so the next read starts cold.
func (s *Session) InvalidateAllCaches() {
	s.days.Reset()
	s.groups.Reset()
	s.weeks.Reset()
	s.log.Debug().Msg("caches invalidated")
}

// SignedIn reports whether the session holds credentials.
func (s *Session) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedIn
}

// SelectDate moves the selection. Choosing any day other than today stops
// the selection from following day rollovers.
func (s *Session) SelectDate(date model.CalendarDate) error {
	if _, err := dates.Parse(string(date)); err != nil {
		return err
	}
	today := s.today()
	s.mu.Lock()
	s.selected = date
	s.followsToday = date == today
	s.mu.Unlock()
	return nil
}

// Selected returns the selected date and whether it follows today.
func (s *Session) Selected() (model.CalendarDate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.followsToday
}

// CurrentMissions returns the entries of the selected date.
func (s *Session) CurrentMissions() []model.MissionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.missions[s.selected])
}

// Missions returns a copy of every known day.
func (s *Session) Missions() model.MissionsByDate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missions.Clone()
}

// Streak counts consecutive days with missions ending today.
func (s *Session) Streak() (int, error) {
	return scoring.StreakLength(s.Missions(), s.today())
}

// SignIn authenticates with email and password and starts from cold caches.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	if err := s.backend.Login(ctx, email, password); err != nil {
		s.notify(model.NoticeError, messageOr(err, msgLoginFailed))
		return err
	}
	s.startSignedIn()
	return nil
}

// SignInWithKakao exchanges a Kakao authorization code for a session.
func (s *Session) SignInWithKakao(ctx context.Context, code string) error {
	if err := s.backend.KakaoLogin(ctx, code); err != nil {
		msg := messageOr(err, msgKakaoFailed)
		if errors.Is(err, context.DeadlineExceeded) {
			msg = msgKakaoTimeout
		}
		s.notify(model.NoticeError, msg)
		return err
	}
	s.startSignedIn()
	return nil
}

func (s *Session) startSignedIn() {
	s.InvalidateAllCaches()
	s.mu.Lock()
	s.signedIn = true
	s.mu.Unlock()
	s.poller.Start()
}

// SignOut revokes the tokens, stops the rollover poller and forgets all
// account state. Local tokens are cleared even when the server cannot be
// reached. Signing in again restarts the poller.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.backend.Logout(ctx)
	s.poller.Stop()
	s.InvalidateAllCaches()

	s.mu.Lock()
	s.missions = make(model.MissionsByDate)
	s.records = make(map[model.CalendarDate]map[model.MissionKey]int)
	s.groupLists = make(map[groupKey][]model.GroupMission)
	s.recommended = nil
	s.summaries = make(map[model.CalendarDate]model.DayCompletionSummary)
	s.profile = model.User{}
	s.signedIn = false
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Msg("sign out")
	}
	return err
}

func cloneEntries(list []model.MissionEntry) []model.MissionEntry {
	out := make([]model.MissionEntry, len(list))
	copy(out, list)
	return out
}
