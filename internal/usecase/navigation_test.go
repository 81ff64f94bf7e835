package usecase

import (
	"context"
	"testing"

	"BrokerConsole/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestGuardProtectedViewsRedirectToLogin(t *testing.T) {
	for _, v := range models.ProtectedViews {
		t.Run(v.String(), func(t *testing.T) {
			d := Guard(v, false)
			assert.Equal(t, Decision{View: models.ViewLogin, Redirect: true, Replace: true}, d)

			assert.Equal(t, Decision{View: v}, Guard(v, true))
		})
	}
}

func TestGuardLoginAndRoot(t *testing.T) {
	assert.Equal(t, Decision{View: models.ViewLogin}, Guard(models.ViewLogin, false))
	assert.Equal(t, Decision{View: models.ViewDashboard, Redirect: true, Replace: true}, Guard(models.ViewLogin, true))

	assert.Equal(t, Decision{View: models.ViewLogin}, Guard(models.ViewRoot, false))
	assert.Equal(t, Decision{View: models.ViewDashboard}, Guard(models.ViewRoot, true))
}

func TestNavigationGateFollowsSession(t *testing.T) {
	session := &fakeSession{}
	gate := NewNavigationGate(session)

	assert.True(t, gate.Resolve(models.ViewTrades).Redirect)

	session.Login(context.Background())
	assert.Equal(t, Decision{View: models.ViewTrades}, gate.Resolve(models.ViewTrades))

	session.Logout(context.Background())
	d := gate.Resolve(models.ViewChart)
	assert.Equal(t, models.ViewLogin, d.View)
	assert.True(t, d.Replace)
	assert.Equal(t, 1, session.logouts)
}
