package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[EntryMode]EntryMode{
		Onboarding:  Onboarding,
		Auth:        Auth,
		Home:        Home,
		"":          Home,
		"AUTH":      Home,
		"somewhere": Home,
		" auth":     Home,
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestParseEntryMode(t *testing.T) {
	mode, err := ParseEntryMode(" Auth ")
	require.NoError(t, err)
	assert.Equal(t, Auth, mode)

	_, err = ParseEntryMode("lobby")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unknown entry mode "lobby"`)
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestModeOf(t *testing.T) {
	assert.Equal(t, Auth, ModeOf("auth"))
	assert.Equal(t, Onboarding, ModeOf(Onboarding))
	assert.Equal(t, Home, ModeOf(stringer("home")))
	assert.Equal(t, EntryMode(""), ModeOf(nil))
	assert.Equal(t, EntryMode(""), ModeOf(42))
}

func TestRunnerNormalizes(t *testing.T) {
	r := NewRunner(nil)
	out := r.Run(context.Background(), Request{Seq: 3, ID: "req", Resolver: Const("weird")})

	assert.Equal(t, uint64(3), out.Seq)
	assert.Equal(t, "req", out.ID)
	assert.Equal(t, Home, out.Entry)
	assert.Equal(t, EntryMode("weird"), out.Raw)
	assert.False(t, out.Recognized())
	assert.NoError(t, out.Err)
}

func TestWithTimeoutExpires(t *testing.T) {
	slow := ResolverFunc(func(ctx context.Context) (EntryMode, error) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return Auth, nil
	})

	_, err := WithTimeout(slow, 20*time.Millisecond).Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out after 20ms")
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	mode, err := WithTimeout(Const(Auth), time.Second).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Auth, mode)

	r := Const(Home)
	assert.Equal(t, r, WithTimeout(r, 0))
}

func TestWithTimeoutRecoversPanic(t *testing.T) {
	boom := ResolverFunc(func(context.Context) (EntryMode, error) { panic("kaboom") })

	_, err := WithTimeout(boom, time.Second).Resolve(context.Background())
	require.Error(t, err)
	assert.Equal(t, "kaboom", err.Error())
}

func TestExprDefaultExpression(t *testing.T) {
	cases := []struct {
		facts Facts
		want  EntryMode
	}{
		{Facts{"onboarded": false, "token": ""}, Onboarding},
		{Facts{"onboarded": true, "token": ""}, Auth},
		{Facts{"onboarded": true, "token": "tok"}, Home},
	}
	for _, tc := range cases {
		r, err := Expr(DefaultExpression, StaticFacts(tc.facts))
		require.NoError(t, err)
		got, err := r.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "facts %v", tc.facts)
	}
}

func TestExprLaterSourceWins(t *testing.T) {
	r, err := Expr(`mode`,
		StaticFacts(Facts{"mode": "auth"}),
		nil,
		StaticFacts(Facts{"mode": "onboarding"}),
	)
	require.NoError(t, err)

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Onboarding, got)
	assert.Equal(t, "mode", r.Expression())
}

func TestExprNonStringResultIsEmptyMode(t *testing.T) {
	r, err := Expr(`1 + 2`)
	require.NoError(t, err)

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EntryMode(""), got)
}

func TestExprCompileErrors(t *testing.T) {
	_, err := Expr("   ")
	assert.Error(t, err)

	_, err = Expr(`"auth" +`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile entry expression")
}

func TestExprSourceErrorFailsResolution(t *testing.T) {
	failing := func(context.Context) (Facts, error) { return nil, errors.New("keychain locked") }
	r, err := Expr(`"home"`, failing)
	require.NoError(t, err)

	c := NewController(allCaps)
	require.NoError(t, c.Resolve(context.Background(), r))
	assert.Equal(t, Failed, c.State().Status)
	assert.Equal(t, "gather facts: keychain locked", c.State().Err.Error())
}

func TestStaticFactsSnapshot(t *testing.T) {
	facts := Facts{"token": "a"}
	src := StaticFacts(facts)
	facts["token"] = "b"

	got, err := src(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", got["token"])
}

func TestParseResolver(t *testing.T) {
	r, err := ParseResolver("  ")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = ParseResolver("auth")
	require.NoError(t, err)
	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Auth, got)

	r, err = ParseResolver(`token == "" ? "auth" : "home"`, StaticFacts(Facts{"token": "x"}))
	require.NoError(t, err)
	got, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Home, got)

	_, err = ParseResolver("((")
	assert.ErrorContains(t, err, "compile entry expression")
}
