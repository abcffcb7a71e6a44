package auth

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	apperrors "github.com/Corphon/ScribeNest/internal/errors"
	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/utils"
	"github.com/Corphon/ScribeNest/internal/validate"
)

type fakeProvider struct {
	signUps int
	result  *SignUpResult
	err     error
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password, displayName string) (*SignUpResult, error) {
	f.signUps++
	return f.result, f.err
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	return nil, nil, f.err
}

func (f *fakeProvider) SignOut(ctx context.Context, accessToken string) error { return f.err }

func (f *fakeProvider) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	return nil, f.err
}

func (f *fakeProvider) ConfirmEmail(ctx context.Context, confirmToken string) error { return f.err }

func quietLogger() *utils.Logger {
	return utils.NewLogger(zapcore.AddSync(&bytes.Buffer{}))
}

func TestRegisterValidationSkipsProvider(t *testing.T) {
	cases := []struct {
		email, password, name string
		want                  string
	}{
		{"a@b.com", "secret1", "writer", validate.DomainMessage(validate.DefaultEmailDomains)},
		{"a@qq.com", "12345", "writer", validate.MsgPasswordTooShort},
		{"", "secret1", "writer", validate.MsgRegisterFieldsEmpty},
		{"not-an-email", "secret1", "writer", validate.MsgEmailInvalid},
	}
	for _, tc := range cases {
		p := &fakeProvider{}
		c := NewClient(p, nil, quietLogger())

		res, err := c.Register(context.Background(), tc.email, tc.password, tc.name)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, tc.want, res.ErrorMessage)
		assert.Equal(t, 0, p.signUps, tc.email)
	}
	assert.Equal(t, "只支持 @qq.com、@163.com 和 @gmail.com 邮箱注册", validate.DomainMessage(validate.DefaultEmailDomains))
}

func TestRegisterNeedsConfirmationWithoutSession(t *testing.T) {
	user := &models.User{ID: "u1", Email: "a@qq.com"}
	p := &fakeProvider{result: &SignUpResult{User: user}}
	c := NewClient(p, nil, quietLogger())

	res, err := c.Register(context.Background(), "a@qq.com", "secret1", "writer")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.NeedsEmailConfirmation)
	assert.Equal(t, user, res.User)
	assert.Equal(t, 1, p.signUps)

	p.result = &SignUpResult{User: user, Session: &models.Session{AccessToken: "t"}}
	res, err = c.Register(context.Background(), "a@qq.com", "secret1", "writer")
	require.NoError(t, err)
	assert.False(t, res.NeedsEmailConfirmation)
}

func TestRegisterProviderErrors(t *testing.T) {
	p := &fakeProvider{err: apperrors.NewProviderError(MsgEmailTaken, nil)}
	c := NewClient(p, nil, quietLogger())

	res, err := c.Register(context.Background(), "a@qq.com", "secret1", "writer")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, MsgEmailTaken, res.ErrorMessage)

	p.err = errors.New("disk full")
	res, err = c.Register(context.Background(), "a@qq.com", "secret1", "writer")
	assert.Error(t, err)
	assert.Equal(t, MsgRegisterFailed, res.ErrorMessage)
}

func TestClientCustomDomains(t *testing.T) {
	p := &fakeProvider{result: &SignUpResult{User: &models.User{ID: "u"}}}
	c := NewClient(p, []string{"example.org"}, quietLogger())

	res, err := c.Register(context.Background(), "a@qq.com", "secret1", "writer")
	require.NoError(t, err)
	assert.Equal(t, "只支持 @example.org 邮箱注册", res.ErrorMessage)

	res, err = c.Register(context.Background(), "a@Example.org", "secret1", "writer")
	require.NoError(t, err)
	assert.True(t, res.Success)
}
