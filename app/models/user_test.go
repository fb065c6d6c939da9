package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserHashesPasswordAndDefaultsRole(t *testing.T) {
	u, err := CreateUser("  Asha ", "Asha@Example.com", "secret123", "")
	require.NoError(t, err)

	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, ROLE_STUDENT, u.Role)
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		role     string
	}{
		{name: "bad email", email: "not-an-email", password: "secret123", role: ROLE_STUDENT},
		{name: "short password", email: "a@example.com", password: "123", role: ROLE_STUDENT},
		{name: "unknown role", email: "a@example.com", password: "secret123", role: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateUser("Someone", tt.email, tt.password, tt.role)
			assert.Error(t, err)
		})
	}
}

func TestCoursePriceMinorUnits(t *testing.T) {
	c := &Course{Price: decimal.RequireFromString("999")}
	assert.Equal(t, int64(99900), c.PriceMinorUnits())

	c.Price = decimal.RequireFromString("12.345")
	assert.Equal(t, int64(1235), c.PriceMinorUnits())
}

func TestCourseOwnershipAndLectures(t *testing.T) {
	c := &Course{CreatorID: 7, Lectures: []Lecture{{ID: 1}, {ID: 2}}}

	assert.True(t, c.IsOwnedBy(7))
	assert.False(t, c.IsOwnedBy(8))
	assert.False(t, c.IsOwnedBy(0))
	assert.True(t, c.HasLecture(2))
	assert.False(t, c.HasLecture(3))
}

func TestPurchaseSessionID(t *testing.T) {
	p := &Purchase{Status: PURCHASE_PENDING}
	assert.Equal(t, "", p.SessionID())
	assert.False(t, p.IsCompleted())

	sid := "cs_test_123"
	p.PaymentID = &sid
	p.Status = PURCHASE_COMPLETED
	assert.Equal(t, sid, p.SessionID())
	assert.True(t, p.IsCompleted())
}
