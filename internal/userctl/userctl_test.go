package userctl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophstat/internal/common"
	"github.com/dmitrijs2005/gophstat/internal/server/models"
)

type fakeAccounts struct {
	created  []string
	password string
	email    string
	fullName string
	disabled map[string]bool
	err      error
}

func (f *fakeAccounts) Create(_ context.Context, username, email, fullName, password string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, username)
	f.email, f.fullName, f.password = email, fullName, password
	return &models.User{Username: username}, nil
}

func (f *fakeAccounts) SetDisabled(_ context.Context, username string, disabled bool) error {
	if f.err != nil {
		return f.err
	}
	if f.disabled == nil {
		f.disabled = map[string]bool{}
	}
	f.disabled[username] = disabled
	return nil
}

func stubPasswords(t *testing.T, entries ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(entries) {
			return nil, errors.New("no more input")
		}
		pw := entries[i]
		i++
		return []byte(pw), nil
	}
}

func TestAdd_PasswordFromStdin(t *testing.T) {
	acc := &fakeAccounts{}
	var out bytes.Buffer
	cli := New(acc, strings.NewReader("s3cret\n"), &out)

	err := cli.Run(context.Background(), []string{"add", "-u", "alice", "-e", "alice@example.com", "-n", "Alice Chains", "-password-stdin"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, acc.created)
	assert.Equal(t, "s3cret", acc.password)
	assert.Equal(t, "alice@example.com", acc.email)
	assert.Equal(t, "Alice Chains", acc.fullName)
	assert.Contains(t, out.String(), "created user alice")
}

func TestAdd_PasswordFromStdinWithoutNewline(t *testing.T) {
	acc := &fakeAccounts{}
	cli := New(acc, strings.NewReader("s3cret"), &bytes.Buffer{})

	require.NoError(t, cli.Run(context.Background(), []string{"add", "-u", "alice", "-password-stdin"}))
	assert.Equal(t, "s3cret", acc.password)
}

func TestAdd_Prompted(t *testing.T) {
	stubPasswords(t, "pw", "pw")
	acc := &fakeAccounts{}
	var out bytes.Buffer

	require.NoError(t, New(acc, strings.NewReader(""), &out).Run(context.Background(), []string{"add", "-u", "bob"}))
	assert.Equal(t, "pw", acc.password)
	assert.Contains(t, out.String(), "Enter password: ")
	assert.Contains(t, out.String(), "Repeat password: ")
}

func TestAdd_PromptMismatch(t *testing.T) {
	stubPasswords(t, "pw", "other")
	acc := &fakeAccounts{}

	err := New(acc, strings.NewReader(""), &bytes.Buffer{}).Run(context.Background(), []string{"add", "-u", "bob"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not match")
	assert.Empty(t, acc.created)
}

func TestAdd_PromptError(t *testing.T) {
	stubPasswords(t)

	err := New(&fakeAccounts{}, strings.NewReader(""), &bytes.Buffer{}).Run(context.Background(), []string{"add", "-u", "bob"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read password")
}

func TestAdd_Duplicate(t *testing.T) {
	acc := &fakeAccounts{err: common.ErrAlreadyExists}

	err := New(acc, strings.NewReader("pw\n"), &bytes.Buffer{}).Run(context.Background(), []string{"add", "-u", "johndoe", "-password-stdin"})
	require.Error(t, err)
	assert.Equal(t, `user "johndoe" already exists`, err.Error())
}

func TestDisableEnable(t *testing.T) {
	acc := &fakeAccounts{}
	var out bytes.Buffer
	cli := New(acc, strings.NewReader(""), &out)

	require.NoError(t, cli.Run(context.Background(), []string{"disable", "-u", "johndoe"}))
	assert.True(t, acc.disabled["johndoe"])
	assert.Contains(t, out.String(), "disabled user johndoe")

	require.NoError(t, cli.Run(context.Background(), []string{"enable", "-u", "johndoe"}))
	assert.False(t, acc.disabled["johndoe"])
	assert.Contains(t, out.String(), "enabled user johndoe")
}

func TestDisable_Unknown(t *testing.T) {
	acc := &fakeAccounts{err: common.ErrorNotFound}

	err := New(acc, strings.NewReader(""), &bytes.Buffer{}).Run(context.Background(), []string{"disable", "-u", "ghost"})
	require.Error(t, err)
	assert.Equal(t, `user "ghost" not found`, err.Error())
}

func TestUsageErrors(t *testing.T) {
	cli := New(&fakeAccounts{}, strings.NewReader(""), &bytes.Buffer{})

	for _, args := range [][]string{
		nil,
		{"frobnicate"},
		{"add"},
		{"add", "-x"},
		{"disable"},
		{"enable", "-u"},
	} {
		err := cli.Run(context.Background(), args)
		assert.ErrorIs(t, err, ErrUsage, "%v", args)
	}
}

func TestUsage(t *testing.T) {
	var out bytes.Buffer
	Usage(&out)
	assert.Contains(t, out.String(), "userctl")
	assert.Contains(t, out.String(), "-password-stdin")
}
