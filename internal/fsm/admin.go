package fsm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"
)

// AdminGate authenticates admin panel access. Attempts are counted and
// audited by the implementation; the machine only routes the outcome.
type AdminGate interface {
	Attempt(ctx context.Context, admin *domain.User, password string) (domain.AdminAttempt, error)
	// Require reports whether the admin holds a live authenticated
	// session, refreshing its idle clock when it does.
	Require(ctx context.Context, admin *domain.User) (bool, error)
	Logout(ctx context.Context, admin *domain.User) error
}

// AdminOps is the audited privileged operation surface. Every call is
// role-checked and written to the audit log by the implementation;
// domain.ErrForbidden signals a role floor the caller does not clear.
type AdminOps interface {
	Overview(ctx context.Context, admin *domain.User) (domain.Statistics, error)
	PopularSections(ctx context.Context, admin *domain.User, days int) ([]domain.SectionCount, error)
	BlockUser(ctx context.Context, admin *domain.User, targetID int64, reason string) error
	UnblockUser(ctx context.Context, admin *domain.User, targetID int64) error
	CreateBroadcast(ctx context.Context, admin *domain.User, text string, dept *domain.Department) (*domain.Broadcast, error)
	UpsertContent(ctx context.Context, admin *domain.User, section, key, text string) error
	RecentLogs(ctx context.Context, admin *domain.User, limit int) ([]domain.AdminLog, error)
}

// adminEntry handles the admin command. A live session skips the
// password prompt.
func (m *Machine) adminEntry(ctx context.Context, user *domain.User) (Result, error) {
	live, err := m.gate.Require(ctx, user)
	if err != nil {
		return Result{}, err
	}
	if live {
		res := adminMenuResult(domain.NewSession(domain.StateAdminMenu), "Admin panel.")
		res.Activity = domain.Activity{Action: "admin_entry", Section: "admin"}
		return res, nil
	}
	return Result{
		Session:   domain.NewSession(domain.StateAdminPassword),
		Response:  domain.TextResponse("Enter the admin password:"),
		Activity:  domain.Activity{Action: "admin_entry", Section: "admin"},
		Sensitive: true,
	}, nil
}

func (m *Machine) adminStep(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (Result, error) {
	if sess.State == domain.StateAdminPassword {
		return m.adminPassword(ctx, user, sess, ev)
	}

	// Every step past the password gate re-checks the session so an idle
	// admin is logged out mid-flow instead of on the next /admin.
	live, err := m.gate.Require(ctx, user)
	if err != nil {
		return Result{}, err
	}
	if !live {
		return Result{
			Session:   domain.NewSession(domain.StateAdminPassword),
			Response:  domain.TextResponse("Your admin session expired. Enter the password again:"),
			Activity:  domain.Activity{Action: "admin_session_expired", Section: "admin"},
			Sensitive: true,
		}, nil
	}

	switch sess.State {
	case domain.StateAdminMenu:
		return m.adminMenuStep(ctx, user, sess, ev)
	case domain.StateAdminUserID:
		return m.adminUserIDStep(ctx, user, sess, ev)
	case domain.StateAdminBlockReason:
		return m.adminBlockReasonStep(ctx, user, sess, ev)
	case domain.StateAdminBroadcastText:
		return m.adminBroadcastTextStep(sess, ev), nil
	case domain.StateAdminBroadcastDept:
		return m.adminBroadcastDeptStep(sess, ev), nil
	case domain.StateAdminBroadcastCheck:
		return m.adminBroadcastCheckStep(ctx, user, sess, ev)
	case domain.StateAdminContentKey:
		return m.adminContentKeyStep(sess, ev), nil
	case domain.StateAdminContentText:
		return m.adminContentTextStep(ctx, user, sess, ev)
	}
	return m.toMainMenu("menu_resync"), nil
}

func (m *Machine) adminPassword(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (Result, error) {
	if ev.Kind != domain.EventText {
		res := clarify(sess, "admin_login_retry", "Send the admin password as a text message.")
		res.Sensitive = true
		return res, nil
	}

	outcome, err := m.gate.Attempt(ctx, user, ev.Text)
	if err != nil {
		return Result{}, err
	}

	switch {
	case outcome.OK:
		res := adminMenuResult(sess, "Password accepted. Admin panel.")
		res.Activity = domain.Activity{Action: "admin_login", Section: "admin"}
		res.Sensitive = true
		return res, nil
	case outcome.Locked:
		res := m.toMainMenu("admin_login_locked")
		res.Response.Text = fmt.Sprintf(
			"Too many wrong attempts. Try again in %d minutes.\n\n%s",
			int(outcome.RetryAfter.Minutes())+1, res.Response.Text)
		res.Activity = domain.Activity{Action: "admin_login_locked", Section: "admin"}
		res.Sensitive = true
		return res, nil
	default:
		res := clarify(sess, "admin_login_failed",
			fmt.Sprintf("Wrong password. Attempts remaining: %d.", outcome.Remaining))
		res.Sensitive = true
		return res, nil
	}
}

func (m *Machine) adminMenuStep(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (Result, error) {
	if ev.Kind != domain.EventCallback {
		return adminMenuResult(sess, "Use the admin panel buttons below."), nil
	}

	switch ev.Token {
	case "home":
		// Leaving the panel keeps the authenticated session alive until
		// its idle timeout; only logout drops it.
		return m.toMainMenu("menu_home"), nil

	case "admin:stats":
		return m.adminStats(ctx, user, sess)

	case "admin:block", "admin:unblock":
		sess.State = domain.StateAdminUserID
		sess.Data.AdminUnblock = ev.Token == "admin:unblock"
		verb := "block"
		if sess.Data.AdminUnblock {
			verb = "unblock"
		}
		return Result{
			Session:  sess,
			Response: domain.TextResponse("Send the Telegram ID of the user to " + verb + "."),
			Activity: domain.Activity{Action: "admin_" + verb + "_prompt", Section: "admin"},
		}, nil

	case "admin:broadcast":
		sess.State = domain.StateAdminBroadcastText
		return Result{
			Session:  sess,
			Response: domain.TextResponse("Send the broadcast text."),
			Activity: domain.Activity{Action: "admin_broadcast_prompt", Section: "admin"},
		}, nil

	case "admin:content":
		sess.State = domain.StateAdminContentKey
		return Result{
			Session:  sess,
			Response: domain.TextResponse("Send the content key as section.key, for example sales.scripts."),
			Activity: domain.Activity{Action: "admin_content_prompt", Section: "admin"},
		}, nil

	case "admin:logs":
		return m.adminLogs(ctx, user, sess)

	case "admin:logout":
		if err := m.gate.Logout(ctx, user); err != nil {
			return Result{}, err
		}
		res := m.toMainMenu("admin_logout")
		res.Response.Text = "Logged out of the admin panel.\n\n" + res.Response.Text
		res.Activity = domain.Activity{Action: "admin_logout", Section: "admin"}
		return res, nil
	}

	return adminMenuResult(sess, "Use the admin panel buttons below."), nil
}

func (m *Machine) adminStats(ctx context.Context, user *domain.User, sess domain.Session) (Result, error) {
	stats, err := m.ops.Overview(ctx, user)
	if errors.Is(err, domain.ErrForbidden) {
		return forbidden(sess), nil
	}
	if err != nil {
		return Result{}, err
	}
	sections, err := m.ops.PopularSections(ctx, user, 7)
	if err != nil && !errors.Is(err, domain.ErrForbidden) {
		return Result{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User statistics\n\n")
	fmt.Fprintf(&b, "Total users: %d\n", stats.TotalUsers)
	fmt.Fprintf(&b, "Active today: %d\n", stats.ActiveToday)
	fmt.Fprintf(&b, "Active this week: %d\n", stats.ActiveWeek)
	fmt.Fprintf(&b, "New this week: %d\n", stats.NewThisWeek)
	fmt.Fprintf(&b, "Blocked: %d\n", stats.BlockedUsers)
	fmt.Fprintf(&b, "Actions recorded: %d\n", stats.TotalActions)
	if len(sections) > 0 {
		b.WriteString("\nPopular sections, last 7 days:\n")
		for _, s := range sections {
			fmt.Fprintf(&b, "  %s: %d\n", s.Section, s.Views)
		}
	}

	res := adminMenuResult(sess, b.String())
	res.Activity = domain.Activity{Action: "admin_stats", Section: "admin"}
	return res, nil
}

func (m *Machine) adminLogs(ctx context.Context, user *domain.User, sess domain.Session) (Result, error) {
	logs, err := m.ops.RecentLogs(ctx, user, 20)
	if errors.Is(err, domain.ErrForbidden) {
		return forbidden(sess), nil
	}
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	b.WriteString("Recent admin actions:\n\n")
	if len(logs) == 0 {
		b.WriteString("  nothing yet\n")
	}
	for _, l := range logs {
		status := "ok"
		if !l.Success {
			status = "failed"
		}
		fmt.Fprintf(&b, "  %s  %s by %d (%s)\n",
			l.CreatedAt.Format("02.01 15:04"), l.Action, l.AdminID, status)
	}

	res := adminMenuResult(sess, b.String())
	res.Activity = domain.Activity{Action: "admin_logs", Section: "admin"}
	return res, nil
}

func (m *Machine) adminUserIDStep(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (Result, error) {
	if ev.Kind != domain.EventText {
		return clarify(sess, "admin_retry", "Send the user's numeric Telegram ID as a text message."), nil
	}
	target, err := strconv.ParseInt(strings.TrimSpace(ev.Text), 10, 64)
	if err != nil || target <= 0 {
		return clarify(sess, "admin_retry", "That does not look like a Telegram ID. Send a number."), nil
	}

	if sess.Data.AdminUnblock {
		err := m.ops.UnblockUser(ctx, user, target)
		res, handled := adminOpVerdict(sess, err, "User unblocked.")
		if !handled {
			return Result{}, err
		}
		res.Activity = domain.Activity{
			Action:  "admin_unblock",
			Section: "admin",
			Details: map[string]any{"target": target, "ok": err == nil},
		}
		return res, nil
	}

	sess.State = domain.StateAdminBlockReason
	sess.Data.AdminTarget = target
	return Result{
		Session:  sess,
		Response: domain.TextResponse("Send the block reason."),
		Activity: domain.Activity{Action: "admin_block_target", Section: "admin", Details: map[string]any{"target": target}},
	}, nil
}

func (m *Machine) adminBlockReasonStep(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (Result, error) {
	reason := strings.TrimSpace(ev.Text)
	if ev.Kind != domain.EventText || reason == "" {
		return clarify(sess, "admin_retry", "Send the block reason as a text message."), nil
	}

	target := sess.Data.AdminTarget
	err := m.ops.BlockUser(ctx, user, target, reason)
	res, handled := adminOpVerdict(sess, err, "User blocked.")
	if !handled {
		return Result{}, err
	}
	res.Activity = domain.Activity{
		Action:  "admin_block",
		Section: "admin",
		Details: map[string]any{"target": target, "ok": err == nil},
	}
	return res, nil
}

func (m *Machine) adminBroadcastTextStep(sess domain.Session, ev domain.Event) Result {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != domain.EventText || text == "" {
		return clarify(sess, "admin_retry", "Send the broadcast text as a text message.")
	}

	sess.State = domain.StateAdminBroadcastDept
	sess.Data.BroadcastText = text
	return Result{
		Session: sess,
		Response: domain.Response{
			Text:    "Who should receive it?",
			Buttons: departmentButtons(true),
		},
		Activity: domain.Activity{Action: "admin_broadcast_text", Section: "admin"},
	}
}

func (m *Machine) adminBroadcastDeptStep(sess domain.Session, ev domain.Event) Result {
	token, ok := strings.CutPrefix(ev.Token, "dept:")
	if ev.Kind != domain.EventCallback || !ok {
		res := clarify(sess, "admin_retry", "Pick the audience with the buttons below.")
		res.Response.Buttons = departmentButtons(true)
		return res
	}

	audience := "everyone"
	if token == "all" {
		sess.Data.BroadcastDept = ""
	} else {
		dept, ok := domain.ParseDepartment(token)
		if !ok {
			res := clarify(sess, "admin_retry", "Pick the audience with the buttons below.")
			res.Response.Buttons = departmentButtons(true)
			return res
		}
		sess.Data.BroadcastDept = dept
		audience = string(dept)
	}

	sess.State = domain.StateAdminBroadcastCheck
	return Result{
		Session: sess,
		Response: domain.Response{
			Text: fmt.Sprintf("Broadcast to %s:\n\n%s\n\nSend it?", audience, sess.Data.BroadcastText),
			Buttons: [][]domain.Button{
				{{Label: "Send", Token: "bconfirm"}, {Label: "Cancel", Token: "bcancel"}},
			},
		},
		Activity: domain.Activity{Action: "admin_broadcast_audience", Section: "admin", Details: map[string]any{"audience": audience}},
	}
}

func (m *Machine) adminBroadcastCheckStep(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (Result, error) {
	if ev.Kind != domain.EventCallback {
		return clarify(sess, "admin_retry", "Confirm or cancel with the buttons below."), nil
	}

	switch ev.Token {
	case "bcancel":
		res := adminMenuResult(sess, "Broadcast cancelled.")
		res.Activity = domain.Activity{Action: "admin_broadcast_cancelled", Section: "admin"}
		return res, nil

	case "bconfirm":
		var dept *domain.Department
		if sess.Data.BroadcastDept != "" {
			d := sess.Data.BroadcastDept
			dept = &d
		}
		b, err := m.ops.CreateBroadcast(ctx, user, sess.Data.BroadcastText, dept)
		if errors.Is(err, domain.ErrForbidden) {
			return forbidden(sess), nil
		}
		if err != nil {
			return Result{}, err
		}
		res := adminMenuResult(sess,
			fmt.Sprintf("Broadcast #%d queued, it will be delivered shortly.", b.ID))
		res.Activity = domain.Activity{Action: "admin_broadcast_queued", Section: "admin", Details: map[string]any{"broadcast_id": b.ID}}
		return res, nil
	}

	return clarify(sess, "admin_retry", "Confirm or cancel with the buttons below."), nil
}

func (m *Machine) adminContentKeyStep(sess domain.Session, ev domain.Event) Result {
	key := strings.TrimSpace(ev.Text)
	section, _, found := strings.Cut(key, ".")
	if ev.Kind != domain.EventText || !found || section == "" {
		return clarify(sess, "admin_retry", "Send the key as section.key, for example sales.scripts.")
	}

	sess.State = domain.StateAdminContentText
	sess.Data.ContentKey = key
	sess.Data.ContentSection = section
	return Result{
		Session:  sess,
		Response: domain.TextResponse("Send the new text for " + key + "."),
		Activity: domain.Activity{Action: "admin_content_key", Section: "admin", Details: map[string]any{"key": key}},
	}
}

func (m *Machine) adminContentTextStep(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (Result, error) {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != domain.EventText || text == "" {
		return clarify(sess, "admin_retry", "Send the content text as a text message."), nil
	}

	key := sess.Data.ContentKey
	err := m.ops.UpsertContent(ctx, user, sess.Data.ContentSection, key, text)
	if errors.Is(err, domain.ErrForbidden) {
		return forbidden(sess), nil
	}
	if err != nil {
		return Result{}, err
	}

	res := adminMenuResult(sess, "Content for "+key+" updated.")
	res.Activity = domain.Activity{Action: "admin_content_updated", Section: "admin", Details: map[string]any{"key": key}}
	return res, nil
}

// adminOpVerdict maps an operation error onto a user-facing admin menu
// response. The second return value is false for errors the caller must
// propagate as transition failures.
func adminOpVerdict(sess domain.Session, err error, okText string) (Result, bool) {
	switch {
	case err == nil:
		return adminMenuResult(sess, okText), true
	case errors.Is(err, domain.ErrForbidden):
		return forbidden(sess), true
	case errors.Is(err, repository.ErrNotFound):
		return adminMenuResult(sess, "No user with that Telegram ID."), true
	}
	return Result{}, false
}

func forbidden(sess domain.Session) Result {
	res := adminMenuResult(sess, "Your role does not allow that operation.")
	res.Activity = domain.Activity{Action: "admin_forbidden", Section: "admin"}
	return res
}

// adminMenuResult positions the session at the admin menu with cleared
// operation scratch data
func adminMenuResult(sess domain.Session, text string) Result {
	sess.State = domain.StateAdminMenu
	sess.Data.AdminTarget = 0
	sess.Data.AdminUnblock = false
	sess.Data.BroadcastText = ""
	sess.Data.BroadcastDept = ""
	sess.Data.ContentKey = ""
	sess.Data.ContentSection = ""

	return Result{
		Session: sess,
		Response: domain.Response{
			Text: text,
			Buttons: [][]domain.Button{
				{{Label: "Statistics", Token: "admin:stats"}},
				{{Label: "Block user", Token: "admin:block"}, {Label: "Unblock user", Token: "admin:unblock"}},
				{{Label: "Broadcast", Token: "admin:broadcast"}},
				{{Label: "Edit content", Token: "admin:content"}},
				{{Label: "Audit log", Token: "admin:logs"}},
				{{Label: "Log out", Token: "admin:logout"}, {Label: "Main menu", Token: "home"}},
			},
		},
		Activity: domain.Activity{Action: "admin_menu", Section: "admin"},
	}
}
