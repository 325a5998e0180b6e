package fsm

import (
	"strings"

	"trainingbot/internal/domain"
)

// beginRegistration starts the four-step profile collection. The order is
// fixed: full name, department, position, park location.
func (m *Machine) beginRegistration() Result {
	return Result{
		Session: domain.NewSession(domain.StateAwaitingFullName),
		Response: domain.TextResponse(
			"Welcome to the team training bot!\n\n" +
				"Before we start, a few questions about you.\n" +
				"What is your full name?"),
		Activity: domain.Activity{Action: "registration_start"},
	}
}

func (m *Machine) registrationStep(user *domain.User, sess domain.Session, ev domain.Event) Result {
	switch sess.State {
	case domain.StateAwaitingFullName:
		return m.collectFullName(sess, ev)
	case domain.StateAwaitingDepartment:
		return m.collectDepartment(sess, ev)
	case domain.StateAwaitingPosition:
		return m.collectPosition(sess, ev)
	case domain.StateAwaitingPark:
		return m.collectPark(user, sess, ev)
	}
	return m.beginRegistration()
}

func (m *Machine) collectFullName(sess domain.Session, ev domain.Event) Result {
	name := strings.TrimSpace(ev.Text)
	if ev.Kind != domain.EventText || len([]rune(name)) < 2 {
		return clarify(sess, "registration_retry", "Please send your full name as a text message.")
	}

	sess.State = domain.StateAwaitingDepartment
	sess.Data.FullName = name
	return Result{
		Session: sess,
		Response: domain.Response{
			Text:    "Nice to meet you, " + name + "!\nWhich department do you work in?",
			Buttons: departmentButtons(false),
		},
		Activity: domain.Activity{Action: "registration_name"},
	}
}

func (m *Machine) collectDepartment(sess domain.Session, ev domain.Event) Result {
	token, ok := strings.CutPrefix(ev.Token, "dept:")
	if ev.Kind != domain.EventCallback || !ok {
		res := clarify(sess, "registration_retry", "Please choose your department with the buttons below.")
		res.Response.Buttons = departmentButtons(false)
		return res
	}
	dept, ok := domain.ParseDepartment(token)
	if !ok {
		res := clarify(sess, "registration_retry", "That department is not on the list, please pick one of the buttons.")
		res.Response.Buttons = departmentButtons(false)
		return res
	}

	sess.State = domain.StateAwaitingPosition
	sess.Data.Department = dept
	return Result{
		Session:  sess,
		Response: domain.TextResponse("Got it. What is your position?"),
		Activity: domain.Activity{Action: "registration_department", Details: map[string]any{"department": string(dept)}},
	}
}

func (m *Machine) collectPosition(sess domain.Session, ev domain.Event) Result {
	position := strings.TrimSpace(ev.Text)
	if ev.Kind != domain.EventText || position == "" {
		return clarify(sess, "registration_retry", "Please send your position as a text message.")
	}

	sess.State = domain.StateAwaitingPark
	sess.Data.Position = position
	return Result{
		Session:  sess,
		Response: domain.TextResponse("Almost done. Which park location do you work at?"),
		Activity: domain.Activity{Action: "registration_position"},
	}
}

// collectPark finishes registration. The collected profile travels as a
// single merge-patch effect; only after the dispatcher commits it does
// the user land in the main menu.
func (m *Machine) collectPark(user *domain.User, sess domain.Session, ev domain.Event) Result {
	park := strings.TrimSpace(ev.Text)
	if ev.Kind != domain.EventText || park == "" {
		return clarify(sess, "registration_retry", "Please send your park location as a text message.")
	}

	first, last := splitFullName(sess.Data.FullName)
	dept := sess.Data.Department
	position := sess.Data.Position
	patch := domain.UserPatch{
		FirstName:    &first,
		Department:   &dept,
		Position:     &position,
		ParkLocation: &park,
	}
	if last != "" {
		patch.LastName = &last
	}

	res := m.toMainMenu("registration_complete")
	res.Effects = []Effect{SaveProfileEffect{Patch: patch}}
	res.Response.Text = "You are all set, " + first + "!\n\n" + res.Response.Text
	res.Activity = domain.Activity{
		Action:  "registration_complete",
		Details: map[string]any{"department": string(dept)},
	}
	return res
}

func splitFullName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	last = strings.Join(parts[1:], " ")
	return first, last
}

func departmentButtons(includeAll bool) [][]domain.Button {
	rows := [][]domain.Button{
		{{Label: "General", Token: "dept:general"}},
		{{Label: "Sales", Token: "dept:sales"}},
		{{Label: "Sport", Token: "dept:sport"}},
		{{Label: "Administration", Token: "dept:admin"}},
	}
	if includeAll {
		rows = append(rows, []domain.Button{{Label: "Everyone", Token: "dept:all"}})
	}
	return rows
}
