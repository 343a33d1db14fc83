package login

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "ann@example.com"},
		{in: "  ann@example.com  "},
		{in: "", wantErr: true},
		{in: "not-an-address", wantErr: true},
	}
	for _, tt := range tests {
		err := validateEmail(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, validatePassword(ModeLogin, ""))
	assert.NoError(t, validatePassword(ModeLogin, "short"))
	assert.EqualError(t, validatePassword(ModeRegister, "short"),
		"password must be at least 8 characters")
	assert.NoError(t, validatePassword(ModeRegister, "long-enough"))
}

func TestResultRebuildsFormAndShowsError(t *testing.T) {
	m := New(80, 30)
	m.fb.email = "ann@example.com"
	m.fb.password = "secret"
	m.Start()
	m.pending = true

	m, cmd := m.Update(ResultMsg{Err: errors.New("Invalid email or password")})
	require.NotNil(t, cmd)

	assert.False(t, m.pending)
	assert.Equal(t, "ann@example.com", m.fb.email)
	assert.Empty(t, m.fb.password)
	assert.Contains(t, m.View(), "Invalid email or password")
}

func TestResetClearsFields(t *testing.T) {
	m := New(80, 30)
	m.fb.mode = ModeRegister
	m.fb.email = "ann@example.com"
	m.SetError("boom")

	m.Reset()

	assert.Equal(t, ModeLogin, m.fb.mode)
	assert.Empty(t, m.fb.email)
	assert.Empty(t, m.err)
}

func TestHandleSubmitTrimsInput(t *testing.T) {
	m := New(80, 30)
	m.fb.mode = ModeRegister
	m.fb.email = " ann@example.com "
	m.fb.fullName = " Ann "
	m.fb.password = "pw with spaces "

	msg := m.handleSubmit()().(SubmitMsg)
	assert.Equal(t, SubmitMsg{
		Mode:     ModeRegister,
		Email:    "ann@example.com",
		FullName: "Ann",
		Password: "pw with spaces ",
	}, msg)
}
