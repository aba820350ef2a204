package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhle/ecomission/internal/app"
	"github.com/nhle/ecomission/internal/dates"
	"github.com/nhle/ecomission/internal/model"
	"github.com/nhle/ecomission/internal/scoring"
	"github.com/nhle/ecomission/internal/session"
	"github.com/nhle/ecomission/internal/theme"
)

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// dateOrToday parses s, defaulting to today in UTC+9.
func dateOrToday(e *env, s string) (model.CalendarDate, error) {
	if s == "" {
		return e.sess.Today(), nil
	}
	return dates.Parse(s)
}

func printNotices(s *session.Session) {
	for {
		select {
		case n := <-s.Notices():
			printNotice(n)
		default:
			return
		}
	}
}

func printNotice(n model.Notice) {
	fmt.Fprintln(os.Stderr, theme.NoticeStyle(n.Level).Render(n.Message))
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account e-mail")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	creds, err := app.PromptLogin(app.Credentials{Email: *email, Password: *password})
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.sess.SignIn(ctx, creds.Email, creds.Password); err != nil {
		return err
	}
	return printProfile(ctx, e)
}

func runKakaoURL(_ context.Context, e *env, args []string) error {
	if err := newFlags("kakao-url").Parse(args); err != nil {
		return err
	}
	fmt.Println(e.client.KakaoAuthURL(uuid.NewString()))
	return nil
}

func runKakao(ctx context.Context, e *env, args []string) error {
	fs := newFlags("kakao")
	code := fs.String("code", "", "authorization code from the redirect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *code == "" {
		return errors.New("-code is required")
	}
	if err := e.sess.SignInWithKakao(ctx, *code); err != nil {
		return err
	}
	return printProfile(ctx, e)
}

func runLogout(ctx context.Context, e *env, args []string) error {
	if err := newFlags("logout").Parse(args); err != nil {
		return err
	}
	return e.sess.SignOut(ctx)
}

func runDay(ctx context.Context, e *env, args []string) error {
	fs := newFlags("day")
	dateFlag := fs.String("date", "", "date as YYYY-MM-DD (default today)")
	force := fs.Bool("force", false, "bypass the cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := selectDay(ctx, e, *dateFlag, *force)
	if err != nil {
		return err
	}
	return printDay(e, date)
}

// selectDay selects and loads a day.
func selectDay(ctx context.Context, e *env, s string, force bool) (model.CalendarDate, error) {
	date, err := dateOrToday(e, s)
	if err != nil {
		return "", err
	}
	if err := e.sess.SelectDate(date); err != nil {
		return "", err
	}
	if _, err := e.sess.LoadCatalog(ctx); err != nil {
		e.log.Debug().Err(err).Msg("catalog unavailable")
	}
	if err := e.sess.LoadDay(ctx, date, force); err != nil {
		e.log.Debug().Err(err).Msg("day load failed")
	}
	return date, nil
}

func printDay(e *env, date model.CalendarDate) error {
	label, err := dates.FormatLabel(date)
	if err != nil {
		return err
	}
	fmt.Println(theme.HeaderStyle.Render(label))

	names := make(map[int]string)
	for _, c := range e.sess.Catalog() {
		names[c.ID] = c.Name
	}
	list := e.sess.CurrentMissions()
	if len(list) == 0 {
		fmt.Println(theme.HelpStyle.Render("  이 날의 미션이 없어요"))
		return nil
	}
	for i, m := range list {
		fmt.Printf("%2d %s\n", i+1, theme.RenderMission(m, names[m.MissionCatalogID], false))
	}
	return nil
}

func runWeek(ctx context.Context, e *env, args []string) error {
	fs := newFlags("week")
	dateFlag := fs.String("date", "", "any date of the week (default today)")
	interactive := fs.Bool("i", false, "open the interactive week view")
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := dateOrToday(e, *dateFlag)
	if err != nil {
		return err
	}
	if err := e.sess.SelectDate(date); err != nil {
		return err
	}

	if *interactive {
		if _, err := e.sess.LoadCatalog(ctx); err != nil {
			e.log.Debug().Err(err).Msg("catalog unavailable")
		}
		_, err := tea.NewProgram(app.New(e.sess), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}

	summaries, err := e.sess.RefreshWeekSummary(ctx, date, false)
	if err != nil {
		return err
	}
	week, err := dates.EnumerateWeek(date, e.sess.Today())
	if err != nil {
		return err
	}
	for _, d := range week {
		if err := e.sess.LoadDay(ctx, d.Date, false); err != nil {
			e.log.Debug().Err(err).Str("date", string(d.Date)).Msg("day load failed")
		}
	}
	if _, err := e.sess.FetchGroups(ctx, "", false); err != nil {
		e.log.Debug().Err(err).Msg("groups unavailable")
	}

	fmt.Println(theme.RenderWeekStrip(week, date, summaries))
	for _, s := range summaries {
		fmt.Printf("%s  %d/%d\n", s.Date, s.CompletedMissions, s.TotalMissions)
	}

	score, err := e.sess.WeekScore(date)
	if err != nil {
		return err
	}
	streak, err := e.sess.Streak()
	if err != nil {
		return err
	}
	fmt.Printf("점수 %d · 연속 %d일 · 전체 미션 %d개\n", score, streak, scoring.TotalMissionCount(e.sess.Missions()))
	return nil
}

func runAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("add")
	dateFlag := fs.String("date", "", "date as YYYY-MM-DD (default today)")
	missionID := fs.Int("mission", 0, "catalog mission id")
	labels := fs.String("labels", "", "comma separated submission labels")
	weekly := fs.Bool("weekly", false, "repeat for the rest of the week")
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := selectDay(ctx, e, *dateFlag, false)
	if err != nil {
		return err
	}
	parts := strings.Split(*labels, ",")

	if *weekly {
		n, err := e.sess.AddPersonalMission(ctx, date, *missionID, parts)
		if err != nil {
			return err
		}
		fmt.Printf("%d개의 루틴을 추가했어요\n", n)
		return printDay(e, date)
	}

	for _, label := range parts {
		if _, err := e.sess.AddDailyMission(ctx, date, *missionID, label); err != nil {
			return err
		}
	}
	return printDay(e, date)
}

// indexFlags parses the shared -date and 1-based -index flags.
func indexFlags(name string, args []string) (string, int, error) {
	fs := newFlags(name)
	dateFlag := fs.String("date", "", "date as YYYY-MM-DD (default today)")
	index := fs.Int("index", 0, "mission number as listed by day")
	if err := fs.Parse(args); err != nil {
		return "", 0, err
	}
	if *index < 1 {
		return "", 0, errors.New("-index must be at least 1")
	}
	return *dateFlag, *index - 1, nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	dateFlag, index, err := indexFlags("delete", args)
	if err != nil {
		return err
	}
	date, err := selectDay(ctx, e, dateFlag, false)
	if err != nil {
		return err
	}
	if err := e.sess.DeleteMission(ctx, index); err != nil {
		return err
	}
	return printDay(e, date)
}

func runToggle(ctx context.Context, e *env, args []string) error {
	dateFlag, index, err := indexFlags("toggle", args)
	if err != nil {
		return err
	}
	date, err := selectDay(ctx, e, dateFlag, false)
	if err != nil {
		return err
	}
	if _, err := e.sess.ToggleComplete(ctx, index); err != nil {
		return err
	}
	return printDay(e, date)
}

func printGroups(groups []model.GroupMission) {
	if len(groups) == 0 {
		fmt.Println(theme.HelpStyle.Render("  그룹이 없어요"))
		return
	}
	for _, g := range groups {
		names := make([]string, len(g.Participants))
		for i, p := range g.Participants {
			names[i] = p.Name
		}
		name := lipgloss.NewStyle().Foreground(theme.TagColor(g.ColorTag)).Bold(true).Render(g.Name)
		fmt.Printf("%4d %s (%d/%d) %s\n", g.ID, name, len(g.Participants), model.MaxParticipants, strings.Join(names, ", "))
	}
}

func runGroups(ctx context.Context, e *env, args []string) error {
	fs := newFlags("groups")
	force := fs.Bool("force", false, "bypass the cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	groups, err := e.sess.FetchGroups(ctx, "", *force)
	if err != nil {
		return err
	}
	printGroups(groups)
	return nil
}

func runRecommended(ctx context.Context, e *env, args []string) error {
	if err := newFlags("recommended").Parse(args); err != nil {
		return err
	}
	groups, err := e.sess.RecommendedGroups(ctx)
	if err != nil {
		return err
	}
	printGroups(groups)
	return nil
}

func groupFlag(name string, args []string) (int, error) {
	fs := newFlags(name)
	id := fs.Int("group", 0, "group id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *id <= 0 {
		return 0, errors.New("-group is required")
	}
	return *id, nil
}

func runJoin(ctx context.Context, e *env, args []string) error {
	id, err := groupFlag("join", args)
	if err != nil {
		return err
	}
	if _, err := e.sess.LoadProfile(ctx); err != nil {
		return err
	}
	if _, err := e.sess.FetchGroups(ctx, "", false); err != nil {
		return err
	}
	if _, err := e.sess.RecommendedGroups(ctx); err != nil {
		e.log.Debug().Err(err).Msg("recommended groups unavailable")
	}
	if err := e.sess.JoinGroup(ctx, id); err != nil {
		return err
	}
	printGroups(e.sess.Groups())
	return nil
}

func runLeave(ctx context.Context, e *env, args []string) error {
	id, err := groupFlag("leave", args)
	if err != nil {
		return err
	}
	if err := e.sess.LeaveGroup(ctx, id); err != nil {
		return err
	}
	printGroups(e.sess.Groups())
	return nil
}

func runRanking(ctx context.Context, e *env, args []string) error {
	if err := newFlags("ranking").Parse(args); err != nil {
		return err
	}
	users, err := e.sess.PersonalRanking(ctx)
	if err != nil {
		return err
	}
	groups, err := e.sess.GroupRanking(ctx)
	if err != nil {
		return err
	}
	mine, err := e.sess.MyRank(ctx)
	if err != nil {
		return err
	}

	fmt.Println(theme.HeaderStyle.Render("개인 랭킹"))
	for _, u := range users {
		fmt.Printf("%3d %-12s %d\n", u.Rank, u.Name, u.Score)
	}
	fmt.Println(theme.HeaderStyle.Render("그룹 랭킹"))
	for _, g := range groups {
		fmt.Printf("%3d %-12s %d\n", g.Rank, g.Name, g.Score)
	}
	if mine.PersonalRank != nil {
		fmt.Printf("내 순위 %d위\n", *mine.PersonalRank)
	}
	return nil
}

func printProfile(ctx context.Context, e *env) error {
	u, err := e.sess.LoadProfile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", u.Name, u.ProfileColor)
	if u.Bio != "" {
		fmt.Println(u.Bio)
	}
	return nil
}

func runProfile(ctx context.Context, e *env, args []string) error {
	fs := newFlags("profile")
	name := fs.String("name", "", "new display name")
	bio := fs.String("bio", "", "new bio")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" && *bio == "" {
		return printProfile(ctx, e)
	}

	current, err := e.sess.LoadProfile(ctx)
	if err != nil {
		return err
	}
	update := model.ProfileUpdate{Name: current.Name, ProfileColor: current.ProfileColor, Bio: current.Bio}
	if *name != "" {
		update.Name = *name
	}
	if *bio != "" {
		update.Bio = *bio
	}
	if _, err := e.sess.SaveProfile(ctx, update); err != nil {
		return err
	}
	return printProfile(ctx, e)
}

// runWatch keeps the session running: the selected day follows rollovers,
// notices are printed as they arrive, and the day is reloaded whenever its
// cache entry goes stale.
func runWatch(ctx context.Context, e *env, args []string) error {
	if err := newFlags("watch").Parse(args); err != nil {
		return err
	}

	if addr := e.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(e.metrics, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.log.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				e.log.Warn().Err(err).Msg("metrics shutdown")
			}
		}()
		e.log.Info().Str("addr", addr).Msg("serving metrics")
	}

	if serverToday, err := e.client.ServerDate(ctx); err != nil {
		e.log.Debug().Err(err).Msg("server date unavailable")
	} else if serverToday != e.sess.Today() {
		e.log.Warn().
			Str("server", string(serverToday)).
			Str("client", string(e.sess.Today())).
			Msg("server and client disagree on today")
	}

	date, err := selectDay(ctx, e, "", false)
	if err != nil {
		return err
	}
	if err := printDay(e, date); err != nil {
		return err
	}

	ticker := time.NewTicker(e.cfg.Cache.DayTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-e.sess.Notices():
			printNotice(n)
		case <-ticker.C:
			date, _ := e.sess.Selected()
			if err := e.sess.LoadDay(ctx, date, false); err != nil {
				e.log.Debug().Err(err).Msg("day reload failed")
				continue
			}
			if err := printDay(e, date); err != nil {
				return err
			}
		}
	}
}

func runFriends(ctx context.Context, e *env, args []string) error {
	fs := newFlags("friends")
	discover := fs.Int("discover", 0, "also list this many random users to invite")
	if err := fs.Parse(args); err != nil {
		return err
	}

	friends, err := e.sess.Friends(ctx)
	if err != nil {
		return err
	}
	printFriends(friends)

	if *discover > 0 {
		users, err := e.client.RandomUsers(ctx, *discover)
		if err != nil {
			return err
		}
		fmt.Println(theme.HeaderStyle.Render("추천 친구"))
		printFriends(users)
	}
	return nil
}

func printFriends(friends []model.Friend) {
	if len(friends) == 0 {
		fmt.Println(theme.HelpStyle.Render("  아직 친구가 없어요"))
		return
	}
	for _, f := range friends {
		name := lipgloss.NewStyle().Foreground(theme.TagColor(f.ProfileColor)).Render(f.Name)
		fmt.Printf("%4d %s · %d일 활동\n", f.ID, name, f.ActiveDays)
	}
}

// runConfig prints the effective configuration file path, and with -write
// saves the effective settings there.
func runConfig(_ context.Context, e *env, args []string) error {
	fs := newFlags("config")
	write := fs.Bool("write", false, "write the effective configuration to the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := configPath()
	fmt.Println(path)
	if !*write {
		return nil
	}
	return model.SaveConfig(path, e.cfg)
}

func runGroupCreate(ctx context.Context, e *env, args []string) error {
	fs := newFlags("group-create")
	name := fs.String("name", "", "group name")
	color := fs.String("color", "", "color tag such as bg-blue-300")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := e.sess.CreateGroup(ctx, *name, *color); err != nil {
		return err
	}
	printGroups(e.sess.Groups())
	return nil
}

func runGroupDelete(ctx context.Context, e *env, args []string) error {
	id, err := groupFlag("group-delete", args)
	if err != nil {
		return err
	}
	if err := e.sess.DeleteGroup(ctx, id); err != nil {
		return err
	}
	printGroups(e.sess.Groups())
	return nil
}

func runCheck(ctx context.Context, e *env, args []string) error {
	fs := newFlags("check")
	id := fs.Int("group", 0, "group id")
	dateFlag := fs.String("date", "", "date as YYYY-MM-DD (default today)")
	undo := fs.Bool("undo", false, "clear the completion instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-group is required")
	}
	date, err := dateOrToday(e, *dateFlag)
	if err != nil {
		return err
	}
	if err := e.sess.CheckGroup(ctx, *id, date, !*undo); err != nil {
		return err
	}
	groups, err := e.sess.FetchGroups(ctx, date, false)
	if err != nil {
		return err
	}
	printGroups(groups)
	return nil
}

func runInvite(ctx context.Context, e *env, args []string) error {
	fs := newFlags("invite")
	id := fs.Int("group", 0, "group id")
	friends := fs.String("friends", "", "comma separated friend ids")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var ids []int
	for _, part := range strings.Split(*friends, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("friend id %q: %w", part, err)
		}
		ids = append(ids, n)
	}
	return e.sess.SendInvites(ctx, *id, ids)
}

func runInvites(ctx context.Context, e *env, args []string) error {
	if err := newFlags("invites").Parse(args); err != nil {
		return err
	}
	invites, err := e.sess.ReceivedInvites(ctx)
	if err != nil {
		return err
	}
	if len(invites) == 0 {
		fmt.Println(theme.HelpStyle.Render("  받은 초대가 없어요"))
		return nil
	}
	for _, inv := range invites {
		fmt.Printf("%4d %s · %s\n", inv.ID, inv.GroupName, inv.FromUser)
	}
	return nil
}

func inviteFlag(name string, args []string) (int, error) {
	fs := newFlags(name)
	id := fs.Int("invite", 0, "invite id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *id <= 0 {
		return 0, errors.New("-invite is required")
	}
	return *id, nil
}

func runAccept(ctx context.Context, e *env, args []string) error {
	id, err := inviteFlag("accept", args)
	if err != nil {
		return err
	}
	if err := e.sess.AcceptInvite(ctx, id); err != nil {
		return err
	}
	printGroups(e.sess.Groups())
	return nil
}

func runDecline(ctx context.Context, e *env, args []string) error {
	id, err := inviteFlag("decline", args)
	if err != nil {
		return err
	}
	return e.sess.DeclineInvite(ctx, id)
}
