package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleStudent.Valid())
	assert.True(t, RoleInstructor.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("teacher").Valid())
}

func TestFullNameFallsBackToUsername(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", User{FirstName: "Ada"}.FullName())
	assert.Equal(t, "ada", User{Username: "ada"}.FullName())
}

func TestChatParticipants(t *testing.T) {
	chat := Chat{UserLow: 3, UserHigh: 9}
	assert.True(t, chat.HasParticipant(3))
	assert.True(t, chat.HasParticipant(9))
	assert.False(t, chat.HasParticipant(4))
	assert.Equal(t, int64(9), chat.Other(3))
	assert.Equal(t, int64(3), chat.Other(9))
}
