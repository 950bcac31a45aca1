package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientDisplayName(t *testing.T) {
	ind := Client{Type: ClientIndividual, FirstName: " Maria ", LastName: "Lopez", CompanyName: "ignored"}
	assert.Equal(t, "Maria Lopez", ind.DisplayName())

	biz := Client{Type: ClientBusiness, FirstName: "ignored", CompanyName: "Acme Holdings LLC"}
	assert.Equal(t, "Acme Holdings LLC", biz.DisplayName())
}

func TestCaseSetStatusKeepsDateClosedInStep(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := Case{Status: CaseOpen}

	c.SetStatus(CaseClosed, now)
	if assert.NotNil(t, c.DateClosed) {
		assert.Equal(t, now, *c.DateClosed)
	}

	// closing again keeps the original date
	c.SetStatus(CaseClosed, now.Add(time.Hour))
	assert.Equal(t, now, *c.DateClosed)

	c.SetStatus(CaseOpen, now)
	assert.Nil(t, c.DateClosed)
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, RoleAssociate.IsLawyer())
	assert.False(t, RoleParalegal.IsLawyer())
	assert.True(t, RoleClient.Valid())
	assert.False(t, UserRole("viewer").Valid())
}

func TestDocumentRootID(t *testing.T) {
	root := uint(4)
	assert.Equal(t, uint(4), Document{Model: Model{ID: 4}}.RootID())
	assert.Equal(t, uint(4), Document{Model: Model{ID: 9}, ParentID: &root}.RootID())
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.Active(now))
	revoked := now
	s.RevokedAt = &revoked
	assert.False(t, s.Active(now))
}
