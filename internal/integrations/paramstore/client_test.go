package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut  *ssm.GetParameterOutput
	getErr  error
	lastIn  *ssm.GetParameterInput
	callCnt int
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	f.callCnt++
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr(`{"token":"sk"}`), Type: types.ParameterTypeSecureString,
	}}}
	client, err := New(api)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), " p ")
	require.NoError(t, err)
	require.Equal(t, `{"token":"sk"}`, v)
	require.Equal(t, "p", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_ApiError(t *testing.T) {
	client, err := New(&fakeAPI{getErr: errors.New("boom")})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

type fakeGetter struct {
	vals  []string
	errs  []error
	names []string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	i := len(f.names)
	f.names = append(f.names, name)
	var val string
	var err error
	if i < len(f.vals) {
		val = f.vals[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return val, err
}

func TestNewTokenSource_Validates(t *testing.T) {
	_, err := NewTokenSource(nil, "/shopping-agent")
	require.Error(t, err)

	_, err = NewTokenSource(&fakeGetter{}, " / ")
	require.Error(t, err)

	src, err := NewTokenSource(&fakeGetter{}, "/shopping-agent/")
	require.NoError(t, err)
	require.Equal(t, "/shopping-agent/open-ai-token", src.Name())
}

func TestTokenSource_CachesSuccess(t *testing.T) {
	g := &fakeGetter{vals: []string{`{"token":"sk-from-ssm"}`}}
	src, err := NewTokenSource(g, "/shopping-agent")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		key, err := src.APIKey(context.Background())
		require.NoError(t, err)
		require.Equal(t, "sk-from-ssm", key)
	}
	require.Equal(t, []string{"/shopping-agent/open-ai-token"}, g.names)
}

func TestTokenSource_RetriesAfterFailure(t *testing.T) {
	g := &fakeGetter{
		vals: []string{"", `{"token":"sk-second"}`},
		errs: []error{errors.New("ssm unavailable"), nil},
	}
	src, err := NewTokenSource(g, "/shopping-agent")
	require.NoError(t, err)

	_, err = src.APIKey(context.Background())
	require.ErrorContains(t, err, "ssm unavailable")

	key, err := src.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-second", key)
	require.Len(t, g.names, 2)
}

func TestTokenSource_MalformedPayloads(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"broken`, "unmarshal"},
		{`{"other":"value"}`, "API token is empty"},
		{`{"token":"  "}`, "API token is empty"},
	}
	for _, tc := range cases {
		src, err := NewTokenSource(&fakeGetter{vals: []string{tc.raw}}, "/shopping-agent")
		require.NoError(t, err)
		_, err = src.APIKey(context.Background())
		require.ErrorContains(t, err, tc.want, "raw=%q", tc.raw)
	}
}
