package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jrsteele09/go-sponsor-gate/auth/authfakes"
	fakecreatorrepo "github.com/jrsteele09/go-sponsor-gate/creators/fakerepo"
	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/stretchr/testify/require"
)

type harness struct {
	repo     *fakecreatorrepo.FakeCreatorRepo
	oracle   *authfakes.FakeOracle
	platform *authfakes.FakePlatform
	closed   int
}

func newHarness() *harness {
	return &harness{
		repo:     fakecreatorrepo.NewFakeCreatorRepo(),
		oracle:   authfakes.NewFakeOracle(),
		platform: authfakes.NewFakePlatform().WithVisitor("unused", "alice", "Alice Liddell"),
	}
}

func (h *harness) open(context.Context) (*dependencies, error) {
	return &dependencies{
		repo:     h.repo,
		oracle:   h.oracle,
		platform: h.platform,
		close:    func() { h.closed++ },
	}, nil
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(accessTokenEnvVar, "")
	var out bytes.Buffer
	cmd := newRootCommand(h.open)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPut_VerifiesTokenOwner(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "gho_alice\n", "put", "Alice")
	require.NoError(t, err)
	require.Contains(t, out, "registered alice")
	require.Equal(t, 1, h.closed)

	credential, err := h.repo.AccessCredential(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "gho_alice", credential)

	c, err := h.repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice Liddell", c.Name)
}

func TestPut_RejectsForeignToken(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "gho_alice\n", "put", "bob")
	require.ErrorContains(t, err, `belongs to "alice"`)

	_, err = h.repo.Get(context.Background(), "bob")
	require.ErrorIs(t, err, apperrors.ErrCreatorNotFound)
}

func TestPut_SkipVerify(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "ghp_offline\n", "put", "carol", "--skip-verify", "--name", "Carol")
	require.NoError(t, err)
	require.Zero(t, h.platform.Calls())

	c, err := h.repo.Get(context.Background(), "carol")
	require.NoError(t, err)
	require.Equal(t, "Carol", c.Name)
}

func TestPut_RequiresToken(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "", "put", "alice")
	require.Error(t, err)
}

func TestPut_TokenFromEnvironment(t *testing.T) {
	h := newHarness()
	t.Setenv(accessTokenEnvVar, "gho_alice")

	var out bytes.Buffer
	cmd := newRootCommand(h.open)
	cmd.SetArgs([]string{"put", "alice"})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&out)
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	credential, err := h.repo.AccessCredential(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "gho_alice", credential)
}

func TestShow_NeverPrintsToken(t *testing.T) {
	h := newHarness()
	h.repo.WithCreator("alice", "gho_secret")

	out, err := h.run(t, "", "show", "ALICE")
	require.NoError(t, err)
	require.Contains(t, out, `"id": "alice"`)
	require.NotContains(t, out, "gho_secret")
}

func TestCheck(t *testing.T) {
	h := newHarness()
	h.repo.WithCreator("alice", "gho_alice")
	h.oracle.Sponsors["gho_alice"] = []string{"bob"}

	out, err := h.run(t, "", "check", "alice", "bob")
	require.NoError(t, err)
	require.Contains(t, out, "bob is a sponsor of alice")

	out, err = h.run(t, "", "check", "alice", "eve")
	require.NoError(t, err)
	require.Contains(t, out, "eve is not a sponsor of alice")

	_, err = h.run(t, "", "check", "nobody", "bob")
	require.ErrorIs(t, err, apperrors.ErrCreatorNotFound)
}

func TestDelete(t *testing.T) {
	h := newHarness()
	h.repo.WithCreator("alice", "gho_alice")

	out, err := h.run(t, "", "delete", "alice")
	require.NoError(t, err)
	require.Contains(t, out, "deleted alice")

	_, err = h.repo.Get(context.Background(), "alice")
	require.ErrorIs(t, err, apperrors.ErrCreatorNotFound)
}
