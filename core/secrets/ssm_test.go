package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/tokenbot/core/config"
)

type fakeAPI struct {
	out  *ssm.GetParameterOutput
	err  error
	seen *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.seen = in
	return f.out, f.err
}

func TestParamStoreGetParameter(t *testing.T) {
	api := &fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name:  aws.String("/tokenbot/oneshot"),
		Value: aws.String("s3cr3t"),
		Type:  types.ParameterTypeSecureString,
	}}}
	store, err := NewParamStore(api)
	require.NoError(t, err)

	v, err := store.GetParameter(context.Background(), " /tokenbot/oneshot ")
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", v)
	require.Equal(t, "/tokenbot/oneshot", aws.ToString(api.seen.Name))
	require.True(t, aws.ToBool(api.seen.WithDecryption))
}

func TestParamStoreErrors(t *testing.T) {
	_, err := NewParamStore(nil)
	require.Error(t, err)

	store, err := NewParamStore(&fakeAPI{err: errors.New("boom")})
	require.NoError(t, err)
	_, err = store.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")

	_, err = store.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")

	store, err = NewParamStore(&fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{}}})
	require.NoError(t, err)
	_, err = store.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "no value")
}

type getterFunc func(ctx context.Context, name string) (string, error)

func (f getterFunc) GetParameter(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

func TestResolveOneShot(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.OneShot.APISecretParam = "/tokenbot/oneshot"

	err := ResolveOneShot(context.Background(), cfg, getterFunc(func(_ context.Context, name string) (string, error) {
		require.Equal(t, "/tokenbot/oneshot", name)
		return "from-ssm", nil
	}))
	require.NoError(t, err)
	require.Equal(t, "from-ssm", cfg.OneShot.APISecret)
}

func TestResolveOneShotWithoutParam(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.OneShot.APISecret = "inline"
	require.NoError(t, ResolveOneShot(context.Background(), cfg, nil))
	require.Equal(t, "inline", cfg.OneShot.APISecret)
}

func TestResolveOneShotFailure(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.OneShot.APISecretParam = "p"
	err := ResolveOneShot(context.Background(), cfg, getterFunc(func(context.Context, string) (string, error) {
		return "", errors.New("denied")
	}))
	require.ErrorContains(t, err, "denied")
	require.Empty(t, cfg.OneShot.APISecret)
}
