package fsm

import (
	"context"
	"errors"
	"strings"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"
)

// sectionNode is one entry of the static menu tree. Leaf sections point
// at a content key; branch sections list their children.
type sectionNode struct {
	Key          string
	Title        string
	ContentKey   string
	Children     []string
	QuizCategory string
}

var topSections = []string{"general", "sales", "sport"}

var menuTree = map[string]sectionNode{
	"general": {
		Key:      "general",
		Title:    "General information",
		Children: []string{"park_addresses", "phone_numbers", "emergency"},
	},
	"park_addresses": {Key: "park_addresses", Title: "Park addresses", ContentKey: "general.park_addresses"},
	"phone_numbers":  {Key: "phone_numbers", Title: "Phone numbers", ContentKey: "general.phone_numbers"},
	"emergency":      {Key: "emergency", Title: "Emergency procedures", ContentKey: "general.emergency"},

	"sales": {
		Key:          "sales",
		Title:        "Sales department",
		Children:     []string{"sales_scripts", "cash_register", "guest_relations"},
		QuizCategory: "sales",
	},
	"sales_scripts":   {Key: "sales_scripts", Title: "Sales scripts", ContentKey: "sales.scripts"},
	"cash_register":   {Key: "cash_register", Title: "Cash register", ContentKey: "sales.cash_register"},
	"guest_relations": {Key: "guest_relations", Title: "Guest relations", ContentKey: "sales.guest_relations"},

	"sport": {
		Key:          "sport",
		Title:        "Sport department",
		Children:     []string{"safety_rules", "equipment", "first_aid"},
		QuizCategory: "sport",
	},
	"safety_rules": {Key: "safety_rules", Title: "Safety rules", ContentKey: "sport.safety_rules"},
	"equipment":    {Key: "equipment", Title: "Equipment", ContentKey: "sport.equipment"},
	"first_aid":    {Key: "first_aid", Title: "First aid", ContentKey: "sport.first_aid"},
}

func mainMenuResponse() domain.Response {
	rows := make([][]domain.Button, 0, len(topSections)+2)
	for _, key := range topSections {
		node := menuTree[key]
		rows = append(rows, []domain.Button{{Label: node.Title, Token: "menu:" + key}})
	}
	rows = append(rows, []domain.Button{{Label: "Knowledge check", Token: "quiz"}})
	return domain.Response{
		Text:    "Main menu. Choose a section:",
		Buttons: rows,
	}
}

func (m *Machine) mainMenuStep(ctx context.Context, sess domain.Session, ev domain.Event) (Result, error) {
	if ev.Kind != domain.EventCallback {
		res := clarify(sess, "menu_hint", "Use the menu buttons below to navigate.")
		res.Response.Buttons = mainMenuResponse().Buttons
		return res, nil
	}

	switch {
	case ev.Token == "home":
		return m.toMainMenu("menu_home"), nil
	case ev.Token == "quiz":
		return m.quizCategoryPrompt(sess), nil
	case strings.HasPrefix(ev.Token, "quiz:"):
		return m.startQuiz(ctx, sess, strings.TrimPrefix(ev.Token, "quiz:"))
	case strings.HasPrefix(ev.Token, "menu:"):
		sess.State = domain.StateMainMenu
		sess.Data.MenuPath = nil
		return m.enterSection(ctx, sess, strings.TrimPrefix(ev.Token, "menu:"))
	}

	// Stale button from an earlier message; resync instead of guessing.
	return m.toMainMenu("menu_resync"), nil
}

func (m *Machine) sectionStep(ctx context.Context, sess domain.Session, ev domain.Event) (Result, error) {
	if ev.Kind != domain.EventCallback {
		return clarify(sess, "menu_hint", "Use the buttons below, or send /menu to start over."), nil
	}

	switch {
	case ev.Token == "home":
		return m.toMainMenu("menu_home"), nil
	case ev.Token == "back":
		return m.popSection(ctx, sess)
	case strings.HasPrefix(ev.Token, "quiz:"):
		return m.startQuiz(ctx, sess, strings.TrimPrefix(ev.Token, "quiz:"))
	case strings.HasPrefix(ev.Token, "menu:"):
		return m.enterSection(ctx, sess, strings.TrimPrefix(ev.Token, "menu:"))
	}

	return m.toMainMenu("menu_resync"), nil
}

// enterSection pushes a section onto the navigation path and renders its
// content and child buttons
func (m *Machine) enterSection(ctx context.Context, sess domain.Session, key string) (Result, error) {
	node, ok := menuTree[key]
	if !ok {
		return m.toMainMenu("menu_resync"), nil
	}

	text := node.Title
	if node.ContentKey != "" {
		content, err := m.content.GetByKey(ctx, node.ContentKey)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			text = node.Title + "\n\nThis section is being prepared, check back soon."
		case err != nil:
			return Result{}, err
		default:
			text = content.Title + "\n\n" + content.Text
		}
	}

	sess.State = domain.StateMenuSection
	sess.Data.MenuPath = append(sess.Data.MenuPath, key)

	activity := domain.Activity{Action: "menu_navigation", Section: sess.Data.MenuPath[0]}
	if len(sess.Data.MenuPath) > 1 {
		activity.Subsection = key
	}

	return Result{
		Session: sess,
		Response: domain.Response{
			Text:    text,
			Buttons: sectionButtons(node),
		},
		Activity: activity,
	}, nil
}

// popSection steps one level up the navigation path
func (m *Machine) popSection(ctx context.Context, sess domain.Session) (Result, error) {
	if len(sess.Data.MenuPath) <= 1 {
		return m.toMainMenu("menu_back"), nil
	}
	sess.Data.MenuPath = sess.Data.MenuPath[:len(sess.Data.MenuPath)-1]
	parent := sess.Data.MenuPath[len(sess.Data.MenuPath)-1]
	sess.Data.MenuPath = sess.Data.MenuPath[:len(sess.Data.MenuPath)-1]
	return m.enterSection(ctx, sess, parent)
}

func sectionButtons(node sectionNode) [][]domain.Button {
	rows := make([][]domain.Button, 0, len(node.Children)+2)
	for _, child := range node.Children {
		childNode, ok := menuTree[child]
		if !ok {
			continue
		}
		rows = append(rows, []domain.Button{{Label: childNode.Title, Token: "menu:" + child}})
	}
	if node.QuizCategory != "" {
		rows = append(rows, []domain.Button{{Label: "Take the quiz", Token: "quiz:" + node.QuizCategory}})
	}
	rows = append(rows, []domain.Button{
		{Label: "Back", Token: "back"},
		{Label: "Main menu", Token: "home"},
	})
	return rows
}
