package fsm

import (
	"context"
	"errors"
	"testing"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"
	"trainingbot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine() (*Machine, *testutil.MockQuizRepository, *testutil.MockContentRepository, *testutil.MockAdminGate, *testutil.MockAdminOps) {
	questions := new(testutil.MockQuizRepository)
	content := new(testutil.MockContentRepository)
	gate := new(testutil.MockAdminGate)
	ops := new(testutil.MockAdminOps)
	m := NewMachine(questions, content, gate, ops, 0.7, testutil.NewTestLogger())
	return m, questions, content, gate, ops
}

func TestTransition_StartUnregisteredBeginsRegistration(t *testing.T) {
	m, _, _, _, _ := newTestMachine()
	user := testutil.NewUnregisteredUser(100)

	res, err := m.Transition(context.Background(), user, domain.Session{}, domain.Event{Kind: domain.EventStart})

	require.NoError(t, err)
	assert.Equal(t, domain.StateAwaitingFullName, res.Session.State)
	assert.Empty(t, res.Effects)
	assert.Contains(t, res.Response.Text, "full name")
}

func TestTransition_StartRegisteredShowsMainMenu(t *testing.T) {
	m, _, _, _, _ := newTestMachine()
	user := testutil.NewTestUser(100, domain.RoleUser)

	res, err := m.Transition(context.Background(), user, domain.Session{}, domain.Event{Kind: domain.EventStart})

	require.NoError(t, err)
	assert.Equal(t, domain.StateMainMenu, res.Session.State)
	assert.NotEmpty(t, res.Response.Buttons)
}

func TestTransition_RegistrationFlowCollectsInOrder(t *testing.T) {
	m, _, _, _, _ := newTestMachine()
	user := testutil.NewUnregisteredUser(100)
	ctx := context.Background()

	res, err := m.Transition(ctx, user, domain.Session{}, domain.Event{Kind: domain.EventStart})
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingFullName, res.Session.State)

	res, err = m.Transition(ctx, user, res.Session, domain.Event{Kind: domain.EventText, Text: "Anna Petrova"})
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingDepartment, res.Session.State)
	assert.Equal(t, "Anna Petrova", res.Session.Data.FullName)
	assert.NotEmpty(t, res.Response.Buttons)

	res, err = m.Transition(ctx, user, res.Session, domain.Event{Kind: domain.EventCallback, Token: "dept:sales"})
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingPosition, res.Session.State)
	assert.Equal(t, domain.DepartmentSales, res.Session.Data.Department)

	res, err = m.Transition(ctx, user, res.Session, domain.Event{Kind: domain.EventText, Text: "Manager"})
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingPark, res.Session.State)

	res, err = m.Transition(ctx, user, res.Session, domain.Event{Kind: domain.EventText, Text: "North Park"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateMainMenu, res.Session.State)

	require.Len(t, res.Effects, 1)
	profile, ok := res.Effects[0].(SaveProfileEffect)
	require.True(t, ok)
	require.NotNil(t, profile.Patch.FirstName)
	assert.Equal(t, "Anna", *profile.Patch.FirstName)
	require.NotNil(t, profile.Patch.LastName)
	assert.Equal(t, "Petrova", *profile.Patch.LastName)
	require.NotNil(t, profile.Patch.Department)
	assert.Equal(t, domain.DepartmentSales, *profile.Patch.Department)
	require.NotNil(t, profile.Patch.Position)
	assert.Equal(t, "Manager", *profile.Patch.Position)
	require.NotNil(t, profile.Patch.ParkLocation)
	assert.Equal(t, "North Park", *profile.Patch.ParkLocation)
}

func TestTransition_RegistrationWrongEventShapeClarifies(t *testing.T) {
	tests := []struct {
		name  string
		state domain.State
		event domain.Event
	}{
		{
			name:  "callback instead of name",
			state: domain.StateAwaitingFullName,
			event: domain.Event{Kind: domain.EventCallback, Token: "menu:general"},
		},
		{
			name:  "text instead of department button",
			state: domain.StateAwaitingDepartment,
			event: domain.Event{Kind: domain.EventText, Text: "sales"},
		},
		{
			name:  "unknown department token",
			state: domain.StateAwaitingDepartment,
			event: domain.Event{Kind: domain.EventCallback, Token: "dept:finance"},
		},
		{
			name:  "empty position",
			state: domain.StateAwaitingPosition,
			event: domain.Event{Kind: domain.EventText, Text: "   "},
		},
		{
			name:  "callback instead of park",
			state: domain.StateAwaitingPark,
			event: domain.Event{Kind: domain.EventCallback, Token: "home"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _, _, _ := newTestMachine()
			user := testutil.NewUnregisteredUser(100)
			sess := domain.NewSession(tt.state)

			res, err := m.Transition(context.Background(), user, sess, tt.event)

			require.NoError(t, err)
			assert.Equal(t, tt.state, res.Session.State, "clarification must not advance the flow")
			assert.Empty(t, res.Effects)
			assert.NotEmpty(t, res.Response.Text)
		})
	}
}

func TestTransition_ExpiredSessionRegisteredUserLandsInMainMenu(t *testing.T) {
	m, _, _, _, _ := newTestMachine()
	user := testutil.NewTestUser(100, domain.RoleUser)

	// No session at all and a text event: the machine rebuilds from the
	// persistent profile instead of restarting registration.
	res, err := m.Transition(context.Background(), user, domain.Session{}, domain.Event{Kind: domain.EventText, Text: "hello"})

	require.NoError(t, err)
	assert.Equal(t, domain.StateMainMenu, res.Session.State)
}

func TestTransition_MenuCommandResetsNavigation(t *testing.T) {
	m, _, _, _, _ := newTestMachine()
	user := testutil.NewTestUser(100, domain.RoleUser)
	sess := domain.NewSession(domain.StateMenuSection)
	sess.Data.MenuPath = []string{"sales", "sales_scripts"}

	res, err := m.Transition(context.Background(), user, sess, domain.Event{Kind: domain.EventText, Text: "/menu"})

	require.NoError(t, err)
	assert.Equal(t, domain.StateMainMenu, res.Session.State)
	assert.Empty(t, res.Session.Data.MenuPath)
}

func TestTransition_UnknownStateResetsToMainMenu(t *testing.T) {
	m, _, _, _, _ := newTestMachine()
	user := testutil.NewTestUser(100, domain.RoleUser)
	sess := domain.NewSession(domain.State("no_such_state"))

	res, err := m.Transition(context.Background(), user, sess, domain.Event{Kind: domain.EventCallback, Token: "home"})

	require.NoError(t, err)
	assert.Equal(t, domain.StateMainMenu, res.Session.State)
}

func TestTransition_MenuNavigation(t *testing.T) {
	m, _, content, _, _ := newTestMachine()
	user := testutil.NewTestUser(100, domain.RoleUser)
	ctx := context.Background()

	content.On("GetByKey", ctx, "sales.scripts").
		Return(testutil.NewTestContent("sales.scripts", "sales", "Greet every guest."), nil)

	sess := domain.NewSession(domain.StateMainMenu)
	res, err := m.Transition(ctx, user, sess, domain.Event{Kind: domain.EventCallback, Token: "menu:sales"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateMenuSection, res.Session.State)
	assert.Equal(t, []string{"sales"}, res.Session.Data.MenuPath)
	assert.Equal(t, "menu_navigation", res.Activity.Action)
	assert.Equal(t, "sales", res.Activity.Section)

	res, err = m.Transition(ctx, user, res.Session, domain.Event{Kind: domain.EventCallback, Token: "menu:sales_scripts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sales", "sales_scripts"}, res.Session.Data.MenuPath)
	assert.Equal(t, "sales_scripts", res.Activity.Subsection)
	assert.Contains(t, res.Response.Text, "Greet every guest.")

	res, err = m.Transition(ctx, user, res.Session, domain.Event{Kind: domain.EventCallback, Token: "back"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sales"}, res.Session.Data.MenuPath)

	res, err = m.Transition(ctx, user, res.Session, domain.Event{Kind: domain.EventCallback, Token: "home"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateMainMenu, res.Session.State)
	assert.Empty(t, res.Session.Data.MenuPath)
}

func TestTransition_MissingContentFallsBack(t *testing.T) {
	m, _, content, _, _ := newTestMachine()
	user := testutil.NewTestUser(100, domain.RoleUser)
	ctx := context.Background()

	content.On("GetByKey", ctx, "general.emergency").Return(nil, repository.ErrNotFound)

	sess := domain.NewSession(domain.StateMenuSection)
	sess.Data.MenuPath = []string{"general"}

	res, err := m.Transition(ctx, user, sess, domain.Event{Kind: domain.EventCallback, Token: "menu:emergency"})

	require.NoError(t, err)
	assert.Equal(t, domain.StateMenuSection, res.Session.State)
	assert.Contains(t, res.Response.Text, "being prepared")
}

func TestTransition_ContentSourceFailurePropagates(t *testing.T) {
	m, _, content, _, _ := newTestMachine()
	user := testutil.NewTestUser(100, domain.RoleUser)
	ctx := context.Background()

	content.On("GetByKey", ctx, "general.emergency").Return(nil, errors.New("connection refused"))

	sess := domain.NewSession(domain.StateMenuSection)
	sess.Data.MenuPath = []string{"general"}

	_, err := m.Transition(ctx, user, sess, domain.Event{Kind: domain.EventCallback, Token: "menu:emergency"})

	assert.Error(t, err)
}
